// Package audio provides the PCM transcoding, playback scheduling, and
// capture/playback device plumbing for the voice session. The codec is
// stateless; devices are acquired on session open and released on close.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"
)

// Negotiated audio shape. Capture is what the microphone produces and the
// backend consumes; playback is what the backend streams down.
const (
	CaptureSampleRateHz  = 16000
	PlaybackSampleRateHz = 24000
	Channels             = 1
	BytesPerSample       = 2

	// CaptureBlockMS is the fixed capture callback period. Each callback
	// block is encoded and transmitted immediately.
	CaptureBlockMS = 20
)

// EncodeFrame converts raw PCM bytes into the transport-safe base64 form
// used by the live wire protocol.
func EncodeFrame(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeFrame reverses EncodeFrame.
func DecodeFrame(data string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode audio frame: %w", err)
	}
	return pcm, nil
}

// SamplesToBytes packs little-endian signed 16-bit samples into bytes.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// BytesToSamples unpacks little-endian signed 16-bit PCM bytes. A trailing
// odd byte is dropped.
func BytesToSamples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// Duration returns the playback duration of n PCM bytes at the given sample
// rate, assuming the package's channel count and sample width.
func Duration(n int, sampleRateHz int) time.Duration {
	bytesPerSecond := sampleRateHz * Channels * BytesPerSample
	if bytesPerSecond <= 0 || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bytesPerSecond)
}
