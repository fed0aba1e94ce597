package domain

// Status models the application lifecycle. Exactly one is active at a time.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRecording  Status = "recording"
	StatusProcessing Status = "processing"
	StatusResult     Status = "result"
	StatusError      Status = "error"
)

// StatusReason provides a structured reason for status transitions.
type StatusReason string

const (
	ReasonReady              StatusReason = "ready"
	ReasonRecordingStarted   StatusReason = "recording_started"
	ReasonMicrophoneDenied   StatusReason = "microphone_denied"
	ReasonAnalyzingAudio     StatusReason = "analyzing_audio"
	ReasonAnalyzingText      StatusReason = "analyzing_text"
	ReasonResultReady        StatusReason = "result_ready"
	ReasonAnalysisFailed     StatusReason = "analysis_failed"
	ReasonReset              StatusReason = "reset"
	ReasonVoiceChanged       StatusReason = "voice_changed"
	ReasonRecordingDiscarded StatusReason = "recording_discarded"
	ReasonRecordingFailed    StatusReason = "recording_failed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeMicrophone  ErrorCode = "microphone"
	ErrorCodeAnalysis    ErrorCode = "analysis"
	ErrorCodeClipboard   ErrorCode = "clipboard"
	ErrorCodeAudioStream ErrorCode = "audio_stream"
)

// Variation is one rewrite of the source text.
type Variation struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Mood        string `json:"mood"`
}

// AnalysisResult is the outcome of one transformation request.
type AnalysisResult struct {
	Original   string      `json:"original"`
	Variations []Variation `json:"variations"`
}

// Variation returns the variation with the given id.
func (r *AnalysisResult) Variation(id string) (Variation, bool) {
	if r == nil {
		return Variation{}, false
	}
	for _, v := range r.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

// AudioClip is a finalized recording ready to be sent for analysis.
type AudioClip struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mimeType"`
}

// SpeechAudio is decoded 16-bit little-endian PCM returned by speech synthesis.
type SpeechAudio struct {
	PCM        []byte `json:"-"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// Snapshot is the full view state published after every transition.
type Snapshot struct {
	Status     Status          `json:"status"`
	Result     *AnalysisResult `json:"result"`
	Error      string          `json:"error"`
	ManualText string          `json:"manualText"`
	Voice      Voice           `json:"voice"`
	PlayingID  string          `json:"playingId"`
	RequestID  string          `json:"requestId,omitempty"`
}

// Bar is one rectangle of a visualizer frame.
type Bar struct {
	X       float64 `json:"x"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Opacity float64 `json:"opacity"`
}

// Frame is one redraw of the recording visualizer.
type Frame struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Bins   []uint8 `json:"bins"`
	Bars   []Bar   `json:"bars"`
}
