package audio

import (
	"encoding/base64"
	"encoding/binary"
)

// EncodeBase64 converts an audio payload into the text-safe form used in JSON bodies.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// BytesToInt16 reads little-endian 16-bit samples. A trailing odd byte is dropped.
func BytesToInt16(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return out
}

// Int16ToBytes writes samples as little-endian 16-bit PCM.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(sample))
	}
	return out
}
