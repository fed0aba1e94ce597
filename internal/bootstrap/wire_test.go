package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"chelouizer/internal/audio"
	"chelouizer/internal/config"
	"chelouizer/internal/domain"
)

func TestBuildSuccess(t *testing.T) {
	home := t.TempDir()
	t.Chdir(home)
	t.Setenv("HOME", home)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("CHELOUIZER_DEFAULT_VOICE", "charon")

	services, err := Build(context.Background(), noopEventSink{}, noopClipboard{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Controller == nil || services.Metrics == nil {
		t.Fatalf("expected controller and metrics")
	}
	if got := services.Controller.Snapshot(); got.Status != domain.StatusIdle || got.Voice != domain.VoiceCharon {
		t.Fatalf("unexpected initial snapshot: %+v", got)
	}
}

func TestBuildFailsWithoutAPIKey(t *testing.T) {
	home := t.TempDir()
	t.Chdir(home)
	t.Setenv("HOME", home)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")

	if _, err := Build(context.Background(), noopEventSink{}, noopClipboard{}); err == nil {
		t.Fatalf("expected build error without api key")
	}
}

func TestBuildFailsOnInvalidLexicon(t *testing.T) {
	home := t.TempDir()
	lexiconPath := filepath.Join(home, "bad.yaml")
	if err := os.WriteFile(lexiconPath, []byte("entries:\n  - say: nothing to match\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Chdir(home)
	t.Setenv("HOME", home)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("CHELOUIZER_LEXICON_FILE", lexiconPath)

	_, err := Build(context.Background(), noopEventSink{}, noopClipboard{})
	if err == nil {
		t.Fatalf("expected build error due to invalid lexicon")
	}
}

func TestBackendSelection(t *testing.T) {
	t.Parallel()

	if _, ok := newCapture(config.AudioConfig{Backend: config.CaptureBackendPortAudio}).(*audio.PortAudioCapture); !ok {
		t.Fatalf("expected portaudio capture")
	}
	if _, ok := newCapture(config.AudioConfig{Backend: config.CaptureBackendFFMPEG}).(*audio.FFMPEGCapture); !ok {
		t.Fatalf("expected ffmpeg capture")
	}
	if _, ok := newPlayer(config.PlaybackConfig{Backend: config.PlaybackBackendCommand}).(*audio.CommandPlayer); !ok {
		t.Fatalf("expected command player")
	}
	if _, ok := newPlayer(config.PlaybackConfig{Backend: config.PlaybackBackendSpeaker}).(*audio.SpeakerPlayer); !ok {
		t.Fatalf("expected speaker player")
	}
}

func TestDescribeOmitsSecrets(t *testing.T) {
	t.Parallel()

	info := Describe(config.Config{Gemini: config.GeminiConfig{APIKey: "secret", AnalysisModel: "m"}})
	for key, value := range info {
		if value == "secret" {
			t.Fatalf("api key leaked through %q", key)
		}
	}
	if info["analysisModel"] != "m" {
		t.Fatalf("unexpected info: %v", info)
	}
}

type noopEventSink struct{}

func (noopEventSink) StatusChanged(domain.Snapshot, domain.StatusReason) {}
func (noopEventSink) PlaybackChanged(string)                            {}
func (noopEventSink) VisualizerFrame(domain.Frame)                      {}
func (noopEventSink) SessionError(domain.ErrorCode, string)             {}

type noopClipboard struct{}

func (noopClipboard) SetText(_ context.Context, _ string) error { return nil }
