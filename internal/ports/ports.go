package ports

import (
	"context"
	"io"

	"chelouizer/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session. Stop releases the device.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Analyzer produces absurd rewrites from audio or typed text.
type Analyzer interface {
	AnalyzeAudio(ctx context.Context, clip domain.AudioClip) (domain.AnalysisResult, error)
	AnalyzeText(ctx context.Context, text string) (domain.AnalysisResult, error)
}

// Speaker synthesizes speech for one text in one persona voice.
type Speaker interface {
	Speak(ctx context.Context, text string, voice domain.Voice) (domain.SpeechAudio, error)
}

// Player plays decoded speech and returns once playback has finished.
type Player interface {
	Play(ctx context.Context, audio domain.SpeechAudio) error
}

// Lexicon rewrites text before it is synthesized.
type Lexicon interface {
	Apply(text string) string
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// Notifier raises a desktop notification.
type Notifier interface {
	Notify(title string, message string) error
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	StatusChanged(snapshot domain.Snapshot, reason domain.StatusReason)
	PlaybackChanged(playingID string)
	VisualizerFrame(frame domain.Frame)
	SessionError(code domain.ErrorCode, detail string)
}

// Visualizer renders frames from captured chunks until chunks closes or ctx ends.
type Visualizer interface {
	Run(ctx context.Context, chunks <-chan []byte, emit func(domain.Frame))
}

// Telemetry records lifecycle counters.
type Telemetry interface {
	RecordTransition(status domain.Status)
	RecordRecording(capturedBytes int)
	RecordVisualizerDrop()
}
