package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"chelouizer/internal/audio"
	"chelouizer/internal/config"
	"chelouizer/internal/logging"
	"chelouizer/internal/lexicon"
	"chelouizer/internal/metrics"
	"chelouizer/internal/notify"
	"chelouizer/internal/ports"
	"chelouizer/internal/providers/gemini"
	"chelouizer/internal/usecase"
	"chelouizer/internal/visualizer"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.Controller
	Metrics    *metrics.Metrics
	Config     config.Config
	Logger     zerolog.Logger
}

// Build loads configuration and wires all backend dependencies for the current runtime.
func Build(ctx context.Context, eventSink ports.EventSink, clipboard ports.Clipboard) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	return BuildWithConfig(ctx, cfg, logging.New(cfg.Logging), eventSink, clipboard)
}

// BuildWithConfig wires the runtime graph from an already loaded configuration.
func BuildWithConfig(ctx context.Context, cfg config.Config, logger zerolog.Logger, eventSink ports.EventSink, clipboard ports.Clipboard) (Services, error) {
	lex, err := lexicon.Load(cfg.Lexicon.Path, cfg.Lexicon.PassLimit)
	if err != nil {
		return Services{}, err
	}

	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:        cfg.Gemini.APIKey,
		APIBaseURL:    cfg.Gemini.APIBaseURL,
		AnalysisModel: cfg.Gemini.AnalysisModel,
		SpeechModel:   cfg.Gemini.SpeechModel,
		Timeout:       cfg.Gemini.Timeout,
	})
	if err != nil {
		return Services{}, err
	}

	m := metrics.New()

	var notifier ports.Notifier = notify.Noop{}
	if cfg.Notifications.Enabled {
		notifier = notify.NewDesktop()
	}

	controller := usecase.NewController(usecase.Dependencies{
		Capture:    newCapture(cfg.Audio),
		Analyzer:   metrics.InstrumentAnalyzer(client, m),
		Speaker:    metrics.InstrumentSpeaker(client, m),
		Player:     metrics.InstrumentPlayer(newPlayer(cfg.Playback), m),
		Events:     eventSink,
		Visualizer: visualizer.New(visualizer.Config{FrameRate: cfg.Visualizer.FrameRate}),
		Lexicon:    lex,
		Clipboard:  clipboard,
		Notifier:   notifier,
		Telemetry:  m,
		Logger:     logger,
	}, usecase.Config{
		Audio: ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
		ChunkSize:    cfg.Audio.ChunkSize,
		KeepDir:      cfg.Audio.KeepDir,
		DefaultVoice: cfg.DefaultVoice,
	})

	logger.Info().
		Str("capture", cfg.Audio.Backend).
		Str("playback", cfg.Playback.Backend).
		Str("analysis_model", cfg.Gemini.AnalysisModel).
		Int("lexicon_entries", lex.Len()).
		Msg("services ready")

	return Services{Controller: controller, Metrics: m, Config: cfg, Logger: logger}, nil
}

func newCapture(cfg config.AudioConfig) ports.AudioCapture {
	switch cfg.Backend {
	case config.CaptureBackendPortAudio:
		return audio.NewPortAudioCapture()
	default:
		return audio.NewFFMPEGCapture(cfg.RecorderCommand)
	}
}

func newPlayer(cfg config.PlaybackConfig) ports.Player {
	switch cfg.Backend {
	case config.PlaybackBackendCommand:
		return audio.NewCommandPlayer(cfg.Command)
	default:
		return audio.NewSpeakerPlayer()
	}
}

// Describe returns non-sensitive runtime settings for the UI.
func Describe(cfg config.Config) map[string]string {
	return map[string]string{
		"provider":       "Gemini",
		"analysisModel":  cfg.Gemini.AnalysisModel,
		"speechModel":    cfg.Gemini.SpeechModel,
		"capture":        cfg.Audio.Backend,
		"audioInput":     cfg.Audio.InputDevice,
		"audioFormat":    cfg.Audio.InputFormat,
		"playback":       cfg.Playback.Backend,
		"lexiconFile":    cfg.Lexicon.Path,
		"defaultVoice":   string(cfg.DefaultVoice),
		"metricsAddress": cfg.Metrics.Addr,
		"sampleRate":     fmt.Sprint(cfg.Audio.SampleRate),
	}
}
