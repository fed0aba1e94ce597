package usecase

import (
	"github.com/rs/zerolog"

	"chelouizer/internal/audio"
	"chelouizer/internal/domain"
	"chelouizer/internal/ports"
)

// recordingFinalizer turns the captured fragments of one recording into the
// clip sent for analysis.
type recordingFinalizer struct {
	sampleRate int
	channels   int
	keepDir    string
	telemetry  ports.Telemetry
	logger     zerolog.Logger
}

func newRecordingFinalizer(cfg ports.AudioConfig, keepDir string, telemetry ports.Telemetry, logger zerolog.Logger) recordingFinalizer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return recordingFinalizer{
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		keepDir:    keepDir,
		telemetry:  telemetry,
		logger:     logger,
	}
}

func (f recordingFinalizer) Finalize(fragments [][]byte, total int) (domain.AudioClip, error) {
	if f.telemetry != nil {
		f.telemetry.RecordRecording(total)
	}

	clip, err := audio.EncodeRecording(fragments, f.sampleRate, f.channels)
	if err != nil {
		return domain.AudioClip{}, err
	}

	if f.keepDir != "" && len(clip.Data) > 0 {
		path, keepErr := audio.KeepRecording(f.keepDir, clip)
		if keepErr != nil {
			f.logger.Warn().Err(keepErr).Str("dir", f.keepDir).Msg("failed to keep recording")
		} else {
			f.logger.Debug().Str("path", path).Msg("recording kept")
		}
	}

	f.logger.Info().Int("captured_bytes", total).Int("clip_bytes", len(clip.Data)).Msg("recording finalized")
	return clip, nil
}
