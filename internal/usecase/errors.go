package usecase

import "errors"

var (
	ErrMicrophoneUnavailable = errors.New("microphone unavailable")
	ErrEmptyText             = errors.New("text is empty")
	ErrInvalidTransition     = errors.New("operation not allowed in the current status")
	ErrUnknownVoice          = errors.New("unknown voice")
	ErrUnknownVariation      = errors.New("unknown variation")
	ErrClipboardUnavailable  = errors.New("clipboard is not available")
)

const (
	microphoneErrorMessage = "Could not access the microphone. Check your permissions!"
	analysisErrorPrefix    = "Analysis failed: "
)
