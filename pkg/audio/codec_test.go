package audio

import (
	"bytes"
	"testing"
	"time"
)

func TestEncodeDecodeFrame_RoundTrip(t *testing.T) {
	t.Parallel()
	pcm := []byte{0x00, 0x01, 0xff, 0x7f, 0x00, 0x80}
	decoded, err := DecodeFrame(EncodeFrame(pcm))
	if err != nil {
		t.Fatalf("DecodeFrame error: %v", err)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Fatalf("decoded = %v, want %v", decoded, pcm)
	}
}

func TestDecodeFrame_Invalid(t *testing.T) {
	t.Parallel()
	if _, err := DecodeFrame("!!not base64!!"); err == nil {
		t.Fatalf("DecodeFrame expected error for invalid input")
	}
}

func TestSamplesBytes_RoundTrip(t *testing.T) {
	t.Parallel()
	samples := []int16{0, 1, -1, 32767, -32768}
	got := BytesToSamples(SamplesToBytes(samples))
	if len(got) != len(samples) {
		t.Fatalf("len = %d, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample[%d] = %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestDuration_PlaybackMath(t *testing.T) {
	t.Parallel()
	// 24kHz mono PCM16 => 48000 bytes/s; 960 bytes => 20ms.
	if got := Duration(960, PlaybackSampleRateHz); got != 20*time.Millisecond {
		t.Fatalf("Duration(960) = %v, want 20ms", got)
	}
	if got := Duration(48000, PlaybackSampleRateHz); got != time.Second {
		t.Fatalf("Duration(48000) = %v, want 1s", got)
	}
	if got := Duration(0, PlaybackSampleRateHz); got != 0 {
		t.Fatalf("Duration(0) = %v, want 0", got)
	}
}
