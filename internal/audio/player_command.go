package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"chelouizer/internal/domain"
)

// CommandPlayer pipes PCM into an external player (ffplay by default) and
// returns when the process exits.
type CommandPlayer struct {
	command string
}

func NewCommandPlayer(command string) *CommandPlayer {
	if command == "" {
		command = "ffplay"
	}
	return &CommandPlayer{command: command}
}

func (p *CommandPlayer) Play(ctx context.Context, clip domain.SpeechAudio) error {
	if len(clip.PCM) == 0 {
		return errors.New("speech payload is empty")
	}

	cmd := exec.CommandContext(ctx, p.command, playerArgs(clip)...)
	cmd.Stdin = bytes.NewReader(clip.PCM)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("player %q failed: %w: %s", p.command, err, trimOutput(stderr.String()))
	}
	return nil
}

func playerArgs(clip domain.SpeechAudio) []string {
	rate := clip.SampleRate
	if rate <= 0 {
		rate = 24000
	}
	channels := clip.Channels
	if channels <= 0 {
		channels = 1
	}
	return []string{
		"-nodisp",
		"-autoexit",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(rate),
		"-ch_layout", channelLayout(channels),
		"-i", "-",
	}
}

func channelLayout(channels int) string {
	if channels == 2 {
		return "stereo"
	}
	return "mono"
}
