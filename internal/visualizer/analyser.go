package visualizer

import (
	"math"
	"math/cmplx"
)

// analyser mirrors the byte frequency data of a browser AnalyserNode:
// Hann window, FFT, exponential smoothing, dB range mapped to 0..255.
type analyser struct {
	size      int
	smoothing float64
	minDB     float64
	maxDB     float64

	ring   []float64
	write  int
	filled int

	window   []float64
	smoothed []float64
	scratch  []complex128
}

func newAnalyser(size int, smoothing float64) *analyser {
	if size < 32 || size&(size-1) != 0 {
		size = 256
	}
	window := make([]float64, size)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size)))
	}
	return &analyser{
		size:      size,
		smoothing: smoothing,
		minDB:     -100,
		maxDB:     -30,
		ring:      make([]float64, size),
		window:    window,
		smoothed:  make([]float64, size/2),
		scratch:   make([]complex128, size),
	}
}

// BinCount is the number of frequency bins produced per frame.
func (a *analyser) BinCount() int {
	return a.size / 2
}

// Push appends normalized samples to the time-domain ring.
func (a *analyser) Push(samples []int16) {
	for _, sample := range samples {
		a.ring[a.write] = float64(sample) / 32768
		a.write = (a.write + 1) % a.size
		if a.filled < a.size {
			a.filled++
		}
	}
}

// ByteFrequencyData computes the current spectrum into dst.
func (a *analyser) ByteFrequencyData(dst []uint8) {
	for i := 0; i < a.size; i++ {
		sample := a.ring[(a.write+i)%a.size]
		a.scratch[i] = complex(sample*a.window[i], 0)
	}
	fft(a.scratch)

	for k := 0; k < a.BinCount() && k < len(dst); k++ {
		magnitude := cmplx.Abs(a.scratch[k]) / float64(a.size)
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*magnitude

		db := math.Inf(-1)
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		scaled := 255 * (db - a.minDB) / (a.maxDB - a.minDB)
		switch {
		case math.IsInf(scaled, -1) || scaled < 0:
			dst[k] = 0
		case scaled > 255:
			dst[k] = 255
		default:
			dst[k] = uint8(scaled)
		}
	}
}

// Release drops the buffers so a stopped visualizer holds no audio state.
func (a *analyser) Release() {
	a.ring = nil
	a.window = nil
	a.smoothed = nil
	a.scratch = nil
}

// fft is an in-place iterative radix-2 Cooley-Tukey transform; len(x) must be a power of two.
func fft(x []complex128) {
	n := len(x)
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}
	for length := 2; length <= n; length <<= 1 {
		angle := -2 * math.Pi / float64(length)
		step := cmplx.Rect(1, angle)
		for start := 0; start < n; start += length {
			w := complex(1, 0)
			for k := 0; k < length/2; k++ {
				even := x[start+k]
				odd := w * x[start+k+length/2]
				x[start+k] = even + odd
				x[start+k+length/2] = even - odd
				w *= step
			}
		}
	}
}
