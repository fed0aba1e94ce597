package usecase

import (
	"chelouizer/internal/ports"
)

// recordingSession owns the capture session for exactly one recording.
type recordingSession struct {
	cancel func()
	audio  ports.AudioSession

	collector  *fragmentCollector
	pumpDone   chan struct{}
	renderDone chan struct{}
}

// release stops the microphone and waits for the pump and the visualizer.
func (s *recordingSession) release() error {
	err := s.audio.Stop()
	<-s.pumpDone
	s.cancel()
	<-s.renderDone
	return err
}
