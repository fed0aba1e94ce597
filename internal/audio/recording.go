package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"chelouizer/internal/domain"
)

// RecordingMIMEType is the container produced by EncodeRecording.
const RecordingMIMEType = "audio/wav"

// EncodeRecording joins captured s16le fragments into one WAV clip. A
// recording with no captured bytes yields an empty payload, not a bare header.
func EncodeRecording(fragments [][]byte, sampleRate int, channels int) (domain.AudioClip, error) {
	clip := domain.AudioClip{MIMEType: RecordingMIMEType}

	total := 0
	for _, fragment := range fragments {
		total += len(fragment)
	}
	if total == 0 {
		return clip, nil
	}
	if sampleRate <= 0 {
		return clip, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		channels = 1
	}

	pcm := make([]byte, 0, total)
	for _, fragment := range fragments {
		pcm = append(pcm, fragment...)
	}
	samples := BytesToInt16(pcm)
	data := make([]int, len(samples))
	for i, sample := range samples {
		data[i] = int(sample)
	}

	out := &memWriteSeeker{}
	enc := wav.NewEncoder(out, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return clip, fmt.Errorf("encode recording: %w", err)
	}
	if err := enc.Close(); err != nil {
		return clip, fmt.Errorf("finalize recording: %w", err)
	}

	clip.Data = out.Bytes()
	return clip, nil
}

// KeepRecording writes the clip into dir under a unique name and returns its path.
func KeepRecording(dir string, clip domain.AudioClip) (string, error) {
	if dir == "" {
		return "", errors.New("keep directory is not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create keep directory: %w", err)
	}
	path := filepath.Join(dir, "recording_"+uuid.NewString()+".wav")
	if err := os.WriteFile(path, clip.Data, 0o600); err != nil {
		return "", fmt.Errorf("write recording: %w", err)
	}
	return path, nil
}

// memWriteSeeker lets the WAV encoder patch its header in memory.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(m.pos) + offset
	case io.SeekEnd:
		next = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = int(next)
	return next, nil
}

func (m *memWriteSeeker) Bytes() []byte {
	return m.buf
}
