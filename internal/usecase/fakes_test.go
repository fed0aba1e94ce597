package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"chelouizer/internal/domain"
	"chelouizer/internal/ports"
)

type fakeAudioCapture struct {
	mu       sync.Mutex
	sessions []ports.AudioSession
	err      error
	calls    int
}

func (f *fakeAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.sessions) == 0 {
		return nil, errors.New("no audio session configured")
	}
	session := f.sessions[0]
	f.sessions = f.sessions[1:]
	return session, nil
}

// fakeAudioSession yields its chunks, then fails with readErr if set,
// otherwise blocks until Stop.
type fakeAudioSession struct {
	mu        sync.Mutex
	chunks    [][]byte
	readErr   error
	stopErr   error
	stopCalls int
	stopped   chan struct{}
	once      sync.Once
}

func newFakeAudioSession(chunks ...[]byte) *fakeAudioSession {
	return &fakeAudioSession{chunks: chunks, stopped: make(chan struct{})}
}

func (f *fakeAudioSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	if len(f.chunks) > 0 {
		chunk := f.chunks[0]
		f.chunks = f.chunks[1:]
		f.mu.Unlock()
		return copy(p, chunk), nil
	}
	readErr := f.readErr
	f.mu.Unlock()
	if readErr != nil {
		return 0, readErr
	}

	<-f.stopped
	return 0, io.EOF
}

func (f *fakeAudioSession) Close() error { return nil }

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	f.once.Do(func() { close(f.stopped) })
	return f.stopErr
}

func (f *fakeAudioSession) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type fakeAnalyzer struct {
	mu         sync.Mutex
	result     domain.AnalysisResult
	err        error
	release    chan struct{}
	audioClips []domain.AudioClip
	texts      []string
}

func (f *fakeAnalyzer) AnalyzeAudio(_ context.Context, clip domain.AudioClip) (domain.AnalysisResult, error) {
	f.mu.Lock()
	f.audioClips = append(f.audioClips, clip)
	f.mu.Unlock()
	f.wait()
	return f.result, f.err
}

func (f *fakeAnalyzer) AnalyzeText(_ context.Context, text string) (domain.AnalysisResult, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	f.wait()
	return f.result, f.err
}

func (f *fakeAnalyzer) wait() {
	if f.release != nil {
		<-f.release
	}
}

func (f *fakeAnalyzer) calls() (audio []domain.AudioClip, texts []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AudioClip(nil), f.audioClips...), append([]string(nil), f.texts...)
}

type speakCall struct {
	text  string
	voice domain.Voice
}

type fakeSpeaker struct {
	mu    sync.Mutex
	calls []speakCall
	err   error
}

func (f *fakeSpeaker) Speak(_ context.Context, text string, voice domain.Voice) (domain.SpeechAudio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, speakCall{text: text, voice: voice})
	if f.err != nil {
		return domain.SpeechAudio{}, f.err
	}
	return domain.SpeechAudio{PCM: []byte{1, 0}, SampleRate: 24000, Channels: 1}, nil
}

func (f *fakeSpeaker) snapshotCalls() []speakCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]speakCall(nil), f.calls...)
}

type fakePlayer struct {
	release chan struct{}
	started chan struct{}
	err     error
}

func (f *fakePlayer) Play(_ context.Context, _ domain.SpeechAudio) error {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.err
}

type upperLexicon struct{}

func (upperLexicon) Apply(text string) string { return "<" + text + ">" }

type fakeClipboard struct {
	mu       sync.Mutex
	lastText string
	err      error
}

func (f *fakeClipboard) SetText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastText = text
	return f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(_ string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

type fakeTelemetry struct {
	mu          sync.Mutex
	transitions []domain.Status
	recordings  int
	bytes       int
}

func (f *fakeTelemetry) RecordTransition(status domain.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, status)
}

func (f *fakeTelemetry) RecordRecording(capturedBytes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordings++
	f.bytes += capturedBytes
}

func (f *fakeTelemetry) RecordVisualizerDrop() {}

type fakeVisualizer struct {
	mu      sync.Mutex
	chunks  int
	stopped bool
}

func (f *fakeVisualizer) Run(ctx context.Context, chunks <-chan []byte, emit func(domain.Frame)) {
	defer func() {
		f.mu.Lock()
		f.stopped = true
		f.mu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			f.mu.Lock()
			f.chunks++
			f.mu.Unlock()
			emit(domain.Frame{Width: 400, Height: 100, Bins: []uint8{uint8(len(chunk))}})
		}
	}
}

func (f *fakeVisualizer) state() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chunks, f.stopped
}

type fakeEventSink struct {
	mu sync.Mutex

	states   []stateEvent
	playback []string
	frames   []domain.Frame
	errors   []errEvent
}

type stateEvent struct {
	snapshot domain.Snapshot
	reason   domain.StatusReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) StatusChanged(snapshot domain.Snapshot, reason domain.StatusReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{snapshot: snapshot, reason: reason})
}

func (f *fakeEventSink) PlaybackChanged(playingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playback = append(f.playback, playingID)
}

func (f *fakeEventSink) VisualizerFrame(frame domain.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) snapshotPlayback() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.playback...)
}

func (f *fakeEventSink) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func threeVariations(original string) domain.AnalysisResult {
	return domain.AnalysisResult{
		Original: original,
		Variations: []domain.Variation{
			{ID: "v1", Text: "bon-bon-jour", Label: "Le Glitch"},
			{ID: "v2", Text: "je téléporte mon fromage", Label: "Le Surréaliste"},
			{ID: "v3", Text: "le jour, c'est comme un fromage", Label: "Le Philosophe Bourré"},
		},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
