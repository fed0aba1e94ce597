package audio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"chelouizer/internal/domain"
)

// SpeakerPlayer plays PCM through the default output device using beep.
// The device is initialised once at the first clip's rate; later clips at
// other rates are resampled.
type SpeakerPlayer struct {
	mu       sync.Mutex
	initRate beep.SampleRate
	ready    bool
}

func NewSpeakerPlayer() *SpeakerPlayer {
	return &SpeakerPlayer{}
}

func (p *SpeakerPlayer) Play(ctx context.Context, clip domain.SpeechAudio) error {
	if len(clip.PCM) < 2 {
		return errors.New("speech payload is empty")
	}
	rate := beep.SampleRate(clip.SampleRate)
	if rate <= 0 {
		rate = beep.SampleRate(24000)
	}

	deviceRate, err := p.ensureSpeaker(rate)
	if err != nil {
		return err
	}

	var streamer beep.Streamer = newPCMStreamer(clip.PCM, clip.Channels)
	if deviceRate != rate {
		streamer = beep.Resample(4, rate, deviceRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

func (p *SpeakerPlayer) ensureSpeaker(rate beep.SampleRate) (beep.SampleRate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return p.initRate, nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return 0, err
	}
	p.initRate = rate
	p.ready = true
	return rate, nil
}

// pcmStreamer adapts 16-bit little-endian PCM to beep's stereo float frames.
type pcmStreamer struct {
	samples  []int16
	channels int
	pos      int
}

func newPCMStreamer(pcm []byte, channels int) *pcmStreamer {
	if channels != 2 {
		channels = 1
	}
	return &pcmStreamer{samples: BytesToInt16(pcm), channels: channels}
}

func (s *pcmStreamer) Stream(frames [][2]float64) (int, bool) {
	n := 0
	for n < len(frames) && s.pos+s.channels <= len(s.samples) {
		left := float64(s.samples[s.pos]) / 32768
		right := left
		if s.channels == 2 {
			right = float64(s.samples[s.pos+1]) / 32768
		}
		frames[n][0] = left
		frames[n][1] = right
		s.pos += s.channels
		n++
	}
	return n, n > 0
}

func (s *pcmStreamer) Err() error {
	return nil
}
