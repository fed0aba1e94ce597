package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gordonklaus/portaudio"

	"chelouizer/internal/ports"
)

const portAudioFrames = 1024

// PortAudioCapture records from the default input device through PortAudio.
type PortAudioCapture struct{}

func NewPortAudioCapture() *PortAudioCapture {
	return &PortAudioCapture{}
}

func (c *PortAudioCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cfg = normalizeAudioConfig(cfg)

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("microphone unavailable: portaudio init: %w", err)
	}

	buf := make([]int16, portAudioFrames*cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SampleRate), portAudioFrames, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("microphone unavailable: open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("microphone unavailable: start input stream: %w", err)
	}

	reader, writer := io.Pipe()
	session := &portAudioSession{
		stream: stream,
		reader: reader,
		writer: writer,
		done:   make(chan struct{}),
	}
	go session.loop(ctx, buf)
	return session, nil
}

type portAudioSession struct {
	stream *portaudio.Stream
	reader *io.PipeReader
	writer *io.PipeWriter

	stopMu  sync.Mutex
	stopped bool
	done    chan struct{}

	once    sync.Once
	stopErr error
}

func (s *portAudioSession) loop(ctx context.Context, buf []int16) {
	defer close(s.done)
	for {
		if ctx.Err() != nil || s.isStopped() {
			_ = s.writer.Close()
			return
		}
		if err := s.stream.Read(); err != nil {
			if s.isStopped() {
				_ = s.writer.Close()
				return
			}
			_ = s.writer.CloseWithError(fmt.Errorf("read input stream: %w", err))
			return
		}
		if _, err := s.writer.Write(Int16ToBytes(buf)); err != nil {
			return
		}
	}
}

func (s *portAudioSession) isStopped() bool {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	return s.stopped
}

func (s *portAudioSession) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *portAudioSession) Close() error {
	return s.Stop()
}

func (s *portAudioSession) Stop() error {
	s.once.Do(func() {
		s.stopMu.Lock()
		s.stopped = true
		s.stopMu.Unlock()

		// Unblock a pending pipe write so the loop can observe the stop flag.
		_ = s.reader.CloseWithError(io.EOF)
		<-s.done

		if err := s.stream.Stop(); err != nil {
			s.stopErr = err
		}
		if err := s.stream.Close(); err != nil && s.stopErr == nil {
			s.stopErr = err
		}
		if err := portaudio.Terminate(); err != nil && s.stopErr == nil {
			s.stopErr = err
		}
	})
	return s.stopErr
}
