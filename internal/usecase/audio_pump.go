package usecase

import (
	"errors"
	"io"
	"os"

	"chelouizer/internal/ports"
)

// pumpAudioChunks copies captured audio into the collector and offers each
// chunk to the visualizer without ever blocking on it. frames and done are
// closed on return. The returned error is nil when the capture was stopped.
func pumpAudioChunks(
	audio ports.AudioSession,
	collector *fragmentCollector,
	frames chan<- []byte,
	chunkSize int,
	onDrop func(),
	done chan struct{},
) error {
	defer close(done)
	if frames != nil {
		defer close(frames)
	}

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			collector.Add(buf[:n])
			if frames != nil {
				select {
				case frames <- append([]byte(nil), buf[:n]...):
				default:
					if onDrop != nil {
						onDrop()
					}
				}
			}
		}
		if err != nil {
			if isEndOfCapture(err) {
				return nil
			}
			return err
		}
	}
}

func isEndOfCapture(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed)
}
