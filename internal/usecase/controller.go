package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chelouizer/internal/domain"
	"chelouizer/internal/ports"
)

// Config controls recording and analysis behavior.
type Config struct {
	Audio        ports.AudioConfig
	ChunkSize    int
	KeepDir      string
	DefaultVoice domain.Voice
}

// Dependencies are the collaborators of a Controller. Visualizer, Lexicon,
// Clipboard, Notifier and Telemetry are optional.
type Dependencies struct {
	Capture    ports.AudioCapture
	Analyzer   ports.Analyzer
	Speaker    ports.Speaker
	Player     ports.Player
	Events     ports.EventSink
	Visualizer ports.Visualizer
	Lexicon    ports.Lexicon
	Clipboard  ports.Clipboard
	Notifier   ports.Notifier
	Telemetry  ports.Telemetry
	Logger     zerolog.Logger
}

// Controller is the application state machine: idle, recording, processing,
// result and error. Slow work runs outside the lock and completions are
// applied in the order they finish.
type Controller struct {
	capture    ports.AudioCapture
	analyzer   ports.Analyzer
	speaker    ports.Speaker
	player     ports.Player
	events     ports.EventSink
	visualizer ports.Visualizer
	lexicon    ports.Lexicon
	clipboard  ports.Clipboard
	notifier   ports.Notifier
	telemetry  ports.Telemetry
	finalizer  recordingFinalizer
	logger     zerolog.Logger
	cfg        Config

	mu         sync.Mutex
	status     domain.Status
	result     *domain.AnalysisResult
	errMessage string
	manualText string
	voice      domain.Voice
	playingID  string
	requestID  string
	acquiring  bool
	recording  *recordingSession
	lastClip   domain.AudioClip
	closed     bool

	work sync.WaitGroup
}

func NewController(deps Dependencies, cfg Config) *Controller {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if _, ok := domain.ParseVoice(string(cfg.DefaultVoice)); !ok {
		cfg.DefaultVoice = domain.DefaultVoice
	}
	logger := deps.Logger.With().Str("component", "controller").Logger()

	return &Controller{
		capture:    deps.Capture,
		analyzer:   deps.Analyzer,
		speaker:    deps.Speaker,
		player:     deps.Player,
		events:     deps.Events,
		visualizer: deps.Visualizer,
		lexicon:    deps.Lexicon,
		clipboard:  deps.Clipboard,
		notifier:   deps.Notifier,
		telemetry:  deps.Telemetry,
		finalizer:  newRecordingFinalizer(cfg.Audio, cfg.KeepDir, deps.Telemetry, logger),
		logger:     logger,
		cfg:        cfg,
		status:     domain.StatusIdle,
		voice:      cfg.DefaultVoice,
	}
}

// StartRecording acquires the microphone and enters recording. It is only
// valid from idle; a capture failure moves to error without ever recording.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.status != domain.StatusIdle || c.acquiring {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.acquiring = true
	c.mu.Unlock()

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	session, err := c.capture.Start(sessionCtx, c.cfg.Audio)
	if err != nil {
		cancel()
		c.mu.Lock()
		c.acquiring = false
		c.status = domain.StatusError
		c.result = nil
		c.errMessage = fmt.Sprintf("%s (%v)", microphoneErrorMessage, err)
		snapshot := c.snapshotLocked()
		c.mu.Unlock()

		c.logger.Warn().Err(err).Msg("microphone unavailable")
		c.events.SessionError(domain.ErrorCodeMicrophone, err.Error())
		c.transition(snapshot, domain.ReasonMicrophoneDenied)
		return fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}

	rec := &recordingSession{
		cancel:     cancel,
		audio:      session,
		collector:  newFragmentCollector(),
		pumpDone:   make(chan struct{}),
		renderDone: make(chan struct{}),
	}

	c.mu.Lock()
	c.acquiring = false
	if c.closed {
		c.mu.Unlock()
		_ = rec.audio.Stop()
		cancel()
		return ErrInvalidTransition
	}
	c.recording = rec
	c.status = domain.StatusRecording
	c.errMessage = ""
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info().Msg("recording started")
	c.transition(snapshot, domain.ReasonRecordingStarted)

	var frames chan []byte
	if c.visualizer != nil {
		frames = make(chan []byte, 8)
		go func() {
			defer close(rec.renderDone)
			c.visualizer.Run(sessionCtx, frames, c.events.VisualizerFrame)
		}()
	} else {
		close(rec.renderDone)
	}
	go func() {
		if err := pumpAudioChunks(rec.audio, rec.collector, frames, c.cfg.ChunkSize, c.recordVisualizerDrop, rec.pumpDone); err != nil {
			c.captureFailed(rec, err)
		}
	}()
	return nil
}

// StopRecording releases the microphone, finalizes the recording and starts
// audio analysis. It does nothing unless the status is exactly recording.
func (c *Controller) StopRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.status != domain.StatusRecording || c.recording == nil {
		c.mu.Unlock()
		return nil
	}
	rec := c.recording
	c.recording = nil
	requestID := c.beginProcessingLocked()
	snapshot := c.snapshotLocked()
	c.work.Add(1)
	c.mu.Unlock()

	c.transition(snapshot, domain.ReasonAnalyzingAudio)

	if err := rec.release(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to stop audio capture cleanly")
		c.events.SessionError(domain.ErrorCodeAudioStream, "failed to stop audio capture cleanly")
	}
	fragments, total := rec.collector.Drain()

	workCtx := context.WithoutCancel(ctx)
	go func() {
		defer c.work.Done()

		clip, err := c.finalizer.Finalize(fragments, total)
		if err != nil {
			c.completeAnalysis(requestID, domain.AnalysisResult{}, err)
			return
		}
		c.mu.Lock()
		c.lastClip = clip
		c.mu.Unlock()

		result, err := c.analyzer.AnalyzeAudio(workCtx, clip)
		c.completeAnalysis(requestID, result, err)
	}()
	return nil
}

// captureFailed ends a recording whose capture broke mid-stream: the
// microphone is released and the status moves to error. It does nothing if
// the recording was already stopped or discarded.
func (c *Controller) captureFailed(rec *recordingSession, cause error) {
	c.mu.Lock()
	if c.recording != rec {
		c.mu.Unlock()
		return
	}
	c.recording = nil
	c.status = domain.StatusError
	c.result = nil
	c.errMessage = fmt.Sprintf("%s (%v)", microphoneErrorMessage, cause)
	snapshot := c.snapshotLocked()
	c.work.Add(1)
	c.mu.Unlock()
	defer c.work.Done()

	if err := rec.release(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to stop audio capture cleanly")
	}
	_, discarded := rec.collector.Drain()

	c.logger.Error().Err(cause).Int("discarded_bytes", discarded).Msg("audio capture failed during recording")
	c.events.SessionError(domain.ErrorCodeAudioStream, cause.Error())
	c.transition(snapshot, domain.ReasonRecordingFailed)
}

// SubmitText starts text analysis. Blank text is rejected without any
// transition or network call.
func (c *Controller) SubmitText(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	c.mu.Lock()
	if c.closed || c.status != domain.StatusIdle || c.acquiring {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.manualText = text
	requestID := c.beginProcessingLocked()
	snapshot := c.snapshotLocked()
	c.work.Add(1)
	c.mu.Unlock()

	c.transition(snapshot, domain.ReasonAnalyzingText)

	workCtx := context.WithoutCancel(ctx)
	go func() {
		defer c.work.Done()

		result, err := c.analyzer.AnalyzeText(workCtx, text)
		if err == nil {
			result.Original = text
		}
		c.completeAnalysis(requestID, result, err)
	}()
	return nil
}

// SetManualText stores the text typed so far.
func (c *Controller) SetManualText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.manualText = text
}

// Reset returns from result or error to a clean idle state. The voice is kept.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.status != domain.StatusResult && c.status != domain.StatusError {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.status = domain.StatusIdle
	c.result = nil
	c.errMessage = ""
	c.manualText = ""
	c.requestID = ""
	c.lastClip = domain.AudioClip{}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.transition(snapshot, domain.ReasonReset)
	return nil
}

// SelectVoice changes the persona used for playback. It is allowed in any status.
func (c *Controller) SelectVoice(voice domain.Voice) error {
	parsed, ok := domain.ParseVoice(string(voice))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVoice, voice)
	}

	c.mu.Lock()
	changed := c.voice != parsed
	c.voice = parsed
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if changed {
		c.events.StatusChanged(snapshot, domain.ReasonVoiceChanged)
	}
	return nil
}

// PlayVariation speaks one variation with the selected voice. While another
// variation is playing the request is ignored.
func (c *Controller) PlayVariation(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.status != domain.StatusResult {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	variation, ok := c.result.Variation(id)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownVariation, id)
	}
	if c.playingID != "" {
		playing := c.playingID
		c.mu.Unlock()
		c.logger.Debug().Str("variation", id).Str("playing", playing).Msg("playback already in progress")
		return nil
	}
	c.playingID = id
	voice := c.voice
	c.work.Add(1)
	c.mu.Unlock()

	c.events.PlaybackChanged(id)

	workCtx := context.WithoutCancel(ctx)
	go func() {
		defer c.work.Done()
		defer c.finishPlayback(id)

		if err := c.play(workCtx, variation.Text, voice); err != nil {
			c.logger.Warn().Err(err).Str("variation", id).Str("voice", string(voice)).Msg("playback failed")
		}
	}()
	return nil
}

func (c *Controller) play(ctx context.Context, text string, voice domain.Voice) error {
	if c.lexicon != nil {
		text = c.lexicon.Apply(text)
	}
	speech, err := c.speaker.Speak(ctx, text, voice)
	if err != nil {
		return fmt.Errorf("speech synthesis: %w", err)
	}
	if err := c.player.Play(ctx, speech); err != nil {
		return fmt.Errorf("audio playback: %w", err)
	}
	return nil
}

func (c *Controller) finishPlayback(id string) {
	c.mu.Lock()
	if c.playingID != id {
		c.mu.Unlock()
		return
	}
	c.playingID = ""
	c.mu.Unlock()
	c.events.PlaybackChanged("")
}

// CopyVariation writes one variation's text to the clipboard.
func (c *Controller) CopyVariation(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.status != domain.StatusResult {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	variation, ok := c.result.Variation(id)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVariation, id)
	}
	if c.clipboard == nil {
		return ErrClipboardUnavailable
	}

	if err := c.clipboard.SetText(ctx, variation.Text); err != nil {
		c.events.SessionError(domain.ErrorCodeClipboard, "clipboard write failed")
		return err
	}
	return nil
}

// Snapshot returns the current view state.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Voices lists the persona voices in display order.
func (c *Controller) Voices() []domain.VoiceOption {
	return domain.Voices()
}

// LastRecording returns the clip sent for the current audio analysis, if any.
func (c *Controller) LastRecording() (domain.AudioClip, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lastClip.Data) == 0 {
		return domain.AudioClip{}, false
	}
	return c.lastClip, true
}

// Wait blocks until in-flight analysis and playback have finished.
func (c *Controller) Wait() {
	c.work.Wait()
}

// Close discards an active recording, releasing the microphone, and waits
// for in-flight work.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	rec := c.recording
	c.recording = nil
	var snapshot domain.Snapshot
	if rec != nil {
		c.status = domain.StatusIdle
		snapshot = c.snapshotLocked()
	}
	c.mu.Unlock()

	if rec != nil {
		if err := rec.release(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to stop audio capture cleanly")
		}
		rec.collector.Drain()
		c.transition(snapshot, domain.ReasonRecordingDiscarded)
	}
	c.work.Wait()
}

func (c *Controller) beginProcessingLocked() string {
	c.status = domain.StatusProcessing
	c.result = nil
	c.errMessage = ""
	c.lastClip = domain.AudioClip{}
	c.requestID = uuid.NewString()
	return c.requestID
}

func (c *Controller) completeAnalysis(requestID string, result domain.AnalysisResult, err error) {
	c.mu.Lock()
	if c.status != domain.StatusProcessing || c.requestID != requestID {
		c.mu.Unlock()
		c.logger.Debug().Str("request_id", requestID).Msg("discarding stale analysis completion")
		return
	}

	reason := domain.ReasonResultReady
	if err != nil {
		c.status = domain.StatusError
		c.result = nil
		c.errMessage = analysisErrorPrefix + err.Error()
		reason = domain.ReasonAnalysisFailed
	} else {
		c.status = domain.StatusResult
		c.result = &result
		c.errMessage = ""
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	logEvent := c.logger.Info()
	if err != nil {
		logEvent = c.logger.Error().Err(err)
	}
	logEvent.Str("request_id", requestID).Str("status", string(snapshot.Status)).Msg("analysis finished")

	if err != nil {
		c.events.SessionError(domain.ErrorCodeAnalysis, err.Error())
	}
	c.transition(snapshot, reason)
	c.notify(reason)
}

func (c *Controller) notify(reason domain.StatusReason) {
	if c.notifier == nil {
		return
	}
	message := "Your three variations are ready"
	if reason == domain.ReasonAnalysisFailed {
		message = "Analysis failed"
	}
	if err := c.notifier.Notify("", message); err != nil {
		c.logger.Debug().Err(err).Msg("desktop notification failed")
	}
}

func (c *Controller) transition(snapshot domain.Snapshot, reason domain.StatusReason) {
	if c.telemetry != nil {
		c.telemetry.RecordTransition(snapshot.Status)
	}
	c.events.StatusChanged(snapshot, reason)
}

func (c *Controller) recordVisualizerDrop() {
	if c.telemetry != nil {
		c.telemetry.RecordVisualizerDrop()
	}
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	var result *domain.AnalysisResult
	if c.result != nil {
		copied := *c.result
		copied.Variations = append([]domain.Variation(nil), c.result.Variations...)
		result = &copied
	}
	return domain.Snapshot{
		Status:     c.status,
		Result:     result,
		Error:      c.errMessage,
		ManualText: c.manualText,
		Voice:      c.voice,
		PlayingID:  c.playingID,
		RequestID:  c.requestID,
	}
}
