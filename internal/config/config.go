package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"chelouizer/internal/domain"
)

const (
	CaptureBackendFFMPEG    = "ffmpeg"
	CaptureBackendPortAudio = "portaudio"

	PlaybackBackendSpeaker = "speaker"
	PlaybackBackendCommand = "command"
)

// Config stores runtime configuration for the desktop app and the headless server.
type Config struct {
	Gemini        GeminiConfig
	Audio         AudioConfig
	Playback      PlaybackConfig
	Visualizer    VisualizerConfig
	Lexicon       LexiconConfig
	Notifications NotificationsConfig
	Metrics       MetricsConfig
	HTTP          HTTPConfig
	Logging       LoggingConfig
	DefaultVoice  domain.Voice
}

type GeminiConfig struct {
	APIKey        string
	APIBaseURL    string
	AnalysisModel string
	SpeechModel   string
	Timeout       time.Duration
}

type AudioConfig struct {
	Backend         string
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	ChunkSize       int
	KeepDir         string
}

type PlaybackConfig struct {
	Backend string
	Command string
}

type VisualizerConfig struct {
	FrameRate int
}

type LexiconConfig struct {
	Path      string
	PassLimit int
}

type NotificationsConfig struct {
	Enabled bool
}

type MetricsConfig struct {
	Addr string
}

type HTTPConfig struct {
	Addr string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load resolves configuration from .env, environment variables and sensible defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	lexiconPath := strings.TrimSpace(os.Getenv("CHELOUIZER_LEXICON_FILE"))
	if lexiconPath == "" {
		lexiconPath = filepath.Join(home, ".config", "chelouizer", "lexicon.yaml")
	}

	cfg := Config{
		Gemini: GeminiConfig{
			APIKey:        firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("API_KEY")),
			APIBaseURL:    strings.TrimSpace(os.Getenv("GEMINI_API_BASE")),
			AnalysisModel: envOrDefault("GEMINI_ANALYSIS_MODEL", "gemini-3-flash-preview"),
			SpeechModel:   envOrDefault("GEMINI_SPEECH_MODEL", "gemini-2.5-flash-preview-tts"),
			Timeout:       time.Duration(envOrDefaultInt("GEMINI_TIMEOUT_MS", 60000)) * time.Millisecond,
		},
		Audio: AudioConfig{
			Backend:         strings.ToLower(envOrDefault("CHELOUIZER_CAPTURE_BACKEND", CaptureBackendFFMPEG)),
			RecorderCommand: envOrDefault("CHELOUIZER_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("CHELOUIZER_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("CHELOUIZER_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("CHELOUIZER_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("CHELOUIZER_CHANNELS", 1),
			ChunkSize:       envOrDefaultInt("CHELOUIZER_AUDIO_CHUNK_SIZE", 4096),
			KeepDir:         strings.TrimSpace(os.Getenv("CHELOUIZER_KEEP_RECORDINGS_DIR")),
		},
		Playback: PlaybackConfig{
			Backend: strings.ToLower(envOrDefault("CHELOUIZER_PLAYBACK_BACKEND", PlaybackBackendSpeaker)),
			Command: envOrDefault("CHELOUIZER_PLAYER_COMMAND", "ffplay"),
		},
		Visualizer: VisualizerConfig{
			FrameRate: envOrDefaultInt("CHELOUIZER_VISUALIZER_FPS", 60),
		},
		Lexicon: LexiconConfig{
			Path:      lexiconPath,
			PassLimit: envOrDefaultInt("CHELOUIZER_LEXICON_PASS_LIMIT", 30),
		},
		Notifications: NotificationsConfig{
			Enabled: envOrDefaultBool("CHELOUIZER_NOTIFICATIONS", false),
		},
		Metrics: MetricsConfig{
			Addr: strings.TrimSpace(os.Getenv("CHELOUIZER_METRICS_ADDR")),
		},
		HTTP: HTTPConfig{
			Addr: envOrDefault("CHELOUIZER_HTTP_ADDR", "127.0.0.1:8787"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(envOrDefault("CHELOUIZER_LOG_LEVEL", "info")),
			Format: strings.ToLower(envOrDefault("CHELOUIZER_LOG_FORMAT", "console")),
		},
		DefaultVoice: domain.DefaultVoice,
	}

	if voice, ok := domain.ParseVoice(os.Getenv("CHELOUIZER_DEFAULT_VOICE")); ok {
		cfg.DefaultVoice = voice
	}
	if cfg.Gemini.Timeout <= 0 {
		cfg.Gemini.Timeout = time.Minute
	}
	if cfg.Audio.Backend != CaptureBackendPortAudio {
		cfg.Audio.Backend = CaptureBackendFFMPEG
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}
	if cfg.Playback.Backend != PlaybackBackendCommand {
		cfg.Playback.Backend = PlaybackBackendSpeaker
	}
	if cfg.Visualizer.FrameRate <= 0 || cfg.Visualizer.FrameRate > 240 {
		cfg.Visualizer.FrameRate = 60
	}
	if cfg.Lexicon.PassLimit <= 0 {
		cfg.Lexicon.PassLimit = 30
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
