package form

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestDataURI_RoundTrip(t *testing.T) {
	t.Parallel()
	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}
	uri := DataURI("image/png", data)

	mediaType, decoded, err := ParseDataURI(uri)
	if err != nil {
		t.Fatalf("ParseDataURI error: %v", err)
	}
	if mediaType != "image/png" {
		t.Fatalf("mediaType = %q, want image/png", mediaType)
	}
	if !bytes.Equal(decoded, data) {
		t.Fatalf("decoded = %v, want %v", decoded, data)
	}
}

func TestParseDataURI_Malformed(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"", "hello", "data:image/png,abc", "data:image/png;base64,!!"} {
		if _, _, err := ParseDataURI(s); err == nil {
			t.Fatalf("ParseDataURI(%q) expected error", s)
		}
	}
}

func TestAttachmentFromFile_InfersMediaType(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cert.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	uri, err := AttachmentFromFile(path)
	if err != nil {
		t.Fatalf("AttachmentFromFile error: %v", err)
	}
	mediaType, data, err := ParseDataURI(uri)
	if err != nil {
		t.Fatalf("ParseDataURI error: %v", err)
	}
	if mediaType != "application/pdf" {
		t.Fatalf("mediaType = %q, want application/pdf", mediaType)
	}
	if string(data) != "%PDF-1.4" {
		t.Fatalf("data = %q, want %%PDF-1.4", data)
	}
}
