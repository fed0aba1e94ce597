package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chelouizer/internal/domain"
)

func TestCommandPlayerWaitsForExit(t *testing.T) {
	t.Parallel()

	sink := filepath.Join(t.TempDir(), "played.raw")
	script := writeScript(t, "play.sh", "#!/usr/bin/env bash\ncat > '"+sink+"'\n")
	player := NewCommandPlayer(script)

	pcm := Int16ToBytes([]int16{1, 2, 3, 4})
	if err := player.Play(context.Background(), domain.SpeechAudio{PCM: pcm, SampleRate: 24000, Channels: 1}); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	written, err := os.ReadFile(sink)
	if err != nil {
		t.Fatalf("read sink: %v", err)
	}
	if string(written) != string(pcm) {
		t.Fatalf("player did not receive the pcm payload")
	}
}

func TestCommandPlayerReportsFailure(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "broken.sh", "#!/usr/bin/env bash\ncat >/dev/null\necho 'no audio device' 1>&2\nexit 3\n")
	player := NewCommandPlayer(script)

	err := player.Play(context.Background(), domain.SpeechAudio{PCM: []byte{1, 2}})
	if err == nil || !strings.Contains(err.Error(), "no audio device") {
		t.Fatalf("expected player failure, got %v", err)
	}
}

func TestCommandPlayerRejectsEmptyPayload(t *testing.T) {
	t.Parallel()

	if err := NewCommandPlayer("true").Play(context.Background(), domain.SpeechAudio{}); err == nil {
		t.Fatalf("expected empty payload error")
	}
}

func TestPlayerArgs(t *testing.T) {
	t.Parallel()

	args := strings.Join(playerArgs(domain.SpeechAudio{}), " ")
	for _, want := range []string{"-autoexit", "-f s16le", "-ar 24000", "-ch_layout mono", "-i -"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in %q", want, args)
		}
	}
	if !strings.Contains(strings.Join(playerArgs(domain.SpeechAudio{SampleRate: 48000, Channels: 2}), " "), "-ar 48000 -ch_layout stereo") {
		t.Fatalf("expected explicit rate and layout")
	}
}

func TestPCMStreamerMono(t *testing.T) {
	t.Parallel()

	s := newPCMStreamer(Int16ToBytes([]int16{16384, -16384, 0}), 1)
	frames := make([][2]float64, 2)

	n, ok := s.Stream(frames)
	if n != 2 || !ok {
		t.Fatalf("expected 2 frames, got n=%d ok=%v", n, ok)
	}
	if frames[0][0] != 0.5 || frames[0][1] != 0.5 || frames[1][0] != -0.5 {
		t.Fatalf("unexpected frames: %v", frames)
	}

	n, ok = s.Stream(frames)
	if n != 1 || !ok {
		t.Fatalf("expected trailing frame, got n=%d ok=%v", n, ok)
	}
	n, ok = s.Stream(frames)
	if n != 0 || ok {
		t.Fatalf("expected drained streamer, got n=%d ok=%v", n, ok)
	}
	if s.Err() != nil {
		t.Fatalf("unexpected streamer error")
	}
}

func TestPCMStreamerStereo(t *testing.T) {
	t.Parallel()

	s := newPCMStreamer(Int16ToBytes([]int16{16384, -16384}), 2)
	frames := make([][2]float64, 4)
	n, _ := s.Stream(frames)
	if n != 1 || frames[0][0] != 0.5 || frames[0][1] != -0.5 {
		t.Fatalf("unexpected stereo frame: n=%d %v", n, frames[0])
	}
}
