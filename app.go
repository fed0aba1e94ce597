package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"chelouizer/internal/audio"
	"chelouizer/internal/bootstrap"
	"chelouizer/internal/config"
	"chelouizer/internal/domain"
	"chelouizer/internal/usecase"
)

const (
	eventStatus   = "chelouizer:status"
	eventPlayback = "chelouizer:playback"
	eventFrame    = "chelouizer:frame"
	eventError    = "chelouizer:error"
)

// App is the Wails application root.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	controller *usecase.Controller
	cfg        config.Config
	logger     zerolog.Logger
	bootErr    error
}

func NewApp() *App {
	return &App{logger: zerolog.Nop()}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(ctx, a, &wailsClipboard{})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.logger = services.Logger
	a.controller = services.Controller

	if addr := a.cfg.Metrics.Addr; addr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		a.cancel = cancel
		go func() {
			if err := services.Metrics.Serve(metricsCtx, addr); err != nil {
				a.logger.Error().Err(err).Str("addr", addr).Msg("metrics endpoint stopped")
			}
		}()
	}

	a.StatusChanged(a.controller.Snapshot(), domain.ReasonReady)
}

func (a *App) shutdown(context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.controller != nil {
		a.controller.Close()
	}
}

// StartRecording opens the microphone and starts the visualizer.
func (a *App) StartRecording() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	err := a.controller.StartRecording(a.ctx)
	return a.controller.Snapshot(), err
}

// StopRecording ends capture and sends the recording for analysis.
func (a *App) StopRecording() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	err := a.controller.StopRecording(a.ctx)
	return a.controller.Snapshot(), err
}

// SubmitText sends typed text for analysis.
func (a *App) SubmitText(text string) (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	err := a.controller.SubmitText(a.ctx, text)
	return a.controller.Snapshot(), err
}

// SetManualText stores the text box draft.
func (a *App) SetManualText(text string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.SetManualText(text)
	return nil
}

// PlayVariation speaks one variation with the selected voice.
func (a *App) PlayVariation(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.PlayVariation(a.ctx, id)
}

// CopyVariation copies one variation's text to the clipboard.
func (a *App) CopyVariation(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.CopyVariation(a.ctx, id)
}

// Reset returns to idle from a result or an error.
func (a *App) Reset() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	err := a.controller.Reset()
	return a.controller.Snapshot(), err
}

// SelectVoice changes the playback persona.
func (a *App) SelectVoice(voice string) (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	err := a.controller.SelectVoice(domain.Voice(voice))
	return a.controller.Snapshot(), err
}

// GetSnapshot returns the current view state.
func (a *App) GetSnapshot() domain.Snapshot {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Snapshot{Status: domain.StatusError, Error: a.bootErr.Error(), Voice: domain.DefaultVoice}
		}
		return domain.Snapshot{Status: domain.StatusIdle, Voice: domain.DefaultVoice}
	}
	return a.controller.Snapshot()
}

// GetVoices lists the persona voices.
func (a *App) GetVoices() []domain.VoiceOption {
	return domain.Voices()
}

// GetLastRecording returns the analysed recording as a data URL, or an empty string.
func (a *App) GetLastRecording() string {
	if a.controller == nil {
		return ""
	}
	clip, ok := a.controller.LastRecording()
	if !ok {
		return ""
	}
	return "data:" + clip.MIMEType + ";base64," + audio.EncodeBase64(clip.Data)
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	return bootstrap.Describe(a.cfg)
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// StatusChanged emits lifecycle updates to the frontend.
func (a *App) StatusChanged(snapshot domain.Snapshot, reason domain.StatusReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventStatus, map[string]any{
		"snapshot": snapshot,
		"reason":   string(reason),
		"message":  statusReasonMessage(reason),
	})
}

// PlaybackChanged emits the playing variation id; empty means nothing is playing.
func (a *App) PlaybackChanged(playingID string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPlayback, map[string]string{"playingId": playingID})
}

// VisualizerFrame emits one redraw of the recording visualizer.
func (a *App) VisualizerFrame(frame domain.Frame) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventFrame, frame)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func statusReasonMessage(reason domain.StatusReason) string {
	switch reason {
	case domain.ReasonReady:
		return "Ready"
	case domain.ReasonRecordingStarted:
		return "Recording..."
	case domain.ReasonMicrophoneDenied:
		return "Microphone unavailable"
	case domain.ReasonAnalyzingAudio:
		return "Recording stopped. Analyzing..."
	case domain.ReasonAnalyzingText:
		return "Analyzing text..."
	case domain.ReasonResultReady:
		return "Three variations ready"
	case domain.ReasonAnalysisFailed:
		return "Analysis failed"
	case domain.ReasonReset:
		return "Ready for another round"
	case domain.ReasonVoiceChanged:
		return "Voice changed"
	case domain.ReasonRecordingDiscarded:
		return "Recording discarded"
	case domain.ReasonRecordingFailed:
		return "Recording interrupted"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeMicrophone:
		return "Microphone access failed"
	case domain.ErrorCodeAnalysis:
		return "Analysis error"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
