// Package visualizer turns a live PCM stream into bar-chart frames for the
// recording screen.
package visualizer

import (
	"context"
	"math"
	"time"

	"chelouizer/internal/audio"
	"chelouizer/internal/domain"
)

// Config sizes the drawing surface and the analysis.
type Config struct {
	Width     int
	Height    int
	FFTSize   int
	FrameRate int
	Smoothing float64
}

// DefaultConfig matches the recording screen: a 400x100 surface and a 256-point FFT.
func DefaultConfig() Config {
	return Config{Width: 400, Height: 100, FFTSize: 256, FrameRate: 60, Smoothing: 0.8}
}

// Visualizer renders frames for one recording.
type Visualizer struct {
	cfg Config
}

func New(cfg Config) *Visualizer {
	defaults := DefaultConfig()
	if cfg.Width <= 0 {
		cfg.Width = defaults.Width
	}
	if cfg.Height <= 0 {
		cfg.Height = defaults.Height
	}
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = defaults.FFTSize
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = defaults.FrameRate
	}
	if cfg.Smoothing < 0 || cfg.Smoothing >= 1 {
		cfg.Smoothing = defaults.Smoothing
	}
	return &Visualizer{cfg: cfg}
}

// Run redraws once per tick while chunks keep arriving. It returns, releasing
// its analysis buffers, as soon as chunks is closed or ctx is cancelled.
func (v *Visualizer) Run(ctx context.Context, chunks <-chan []byte, emit func(domain.Frame)) {
	an := newAnalyser(v.cfg.FFTSize, v.cfg.Smoothing)
	defer an.Release()

	ticker := time.NewTicker(time.Second / time.Duration(v.cfg.FrameRate))
	defer ticker.Stop()

	bins := make([]uint8, an.BinCount())
	pending := false
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			an.Push(audio.BytesToInt16(chunk))
			pending = true
		case <-ticker.C:
			if !pending {
				continue
			}
			pending = false
			an.ByteFrequencyData(bins)
			emit(v.layout(bins))
		}
	}
}

// layout places bars left to right like the canvas renderer: each bar is
// 2.5 bin-widths wide with a 1-unit gap; bars past the right edge are dropped.
func (v *Visualizer) layout(bins []uint8) domain.Frame {
	frame := domain.Frame{
		Width:  v.cfg.Width,
		Height: v.cfg.Height,
		Bins:   append([]uint8(nil), bins...),
	}

	barWidth := float64(v.cfg.Width) / float64(len(bins)) * 2.5
	x := 0.0
	for _, value := range bins {
		if x >= float64(v.cfg.Width) {
			break
		}
		level := float64(value) / 255
		frame.Bars = append(frame.Bars, domain.Bar{
			X:       x,
			Width:   barWidth,
			Height:  level * float64(v.cfg.Height),
			Opacity: math.Min(level+0.2, 1),
		})
		x += barWidth + 1
	}
	return frame
}
