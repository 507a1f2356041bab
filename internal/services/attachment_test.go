package services

import (
	"bytes"
	"strings"
	"testing"

	"hookchat-backend/internal/models"
)

func TestClassify(t *testing.T) {
	s := NewAttachmentService()

	tests := []struct {
		name     string
		att      models.Attachment
		expected string
	}{
		{"image by type string", models.Attachment{Type: "image/png"}, KindImage},
		{"audio by type string", models.Attachment{Type: "audio/webm"}, KindAudio},
		{"other", models.Attachment{Type: "application/pdf"}, KindOther},
		{"empty type", models.Attachment{}, KindOther},
		{"case insensitive", models.Attachment{Type: "IMAGE/JPEG"}, KindImage},
		{
			"blob type wins over attachment type",
			models.Attachment{Type: "application/octet-stream", Data: &models.FileBlob{Type: "audio/ogg"}},
			KindAudio,
		},
		{
			"falls back to attachment type when blob has none",
			models.Attachment{Type: "image/gif", Data: &models.FileBlob{}},
			KindImage,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Classify(tc.att); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestDataURIRoundTrip(t *testing.T) {
	s := NewAttachmentService()

	blob := &models.FileBlob{Name: "pic.png", Type: "image/png", Data: []byte{0x89, 'P', 'N', 'G', 0, 1, 2}}
	uri, err := s.ToDataURI(blob)
	if err != nil {
		t.Fatalf("ToDataURI: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Errorf("Unexpected data URI prefix: %q", uri)
	}

	mediaType, data, err := s.DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("DecodeDataURI: %v", err)
	}
	if mediaType != "image/png" {
		t.Errorf("Expected media type image/png, got %q", mediaType)
	}
	if !bytes.Equal(data, blob.Data) {
		t.Error("Decoded bytes differ from original")
	}
}

func TestToDataURISniffsMissingType(t *testing.T) {
	s := NewAttachmentService()

	uri, err := s.ToDataURI(&models.FileBlob{Name: "note", Data: []byte("plain text attachment")})
	if err != nil {
		t.Fatalf("ToDataURI: %v", err)
	}
	if !strings.HasPrefix(uri, "data:text/plain") {
		t.Errorf("Expected sniffed text/plain type, got %q", uri)
	}
}

func TestToDataURIFailsWithoutBytes(t *testing.T) {
	s := NewAttachmentService()

	if _, err := s.ToDataURI(nil); err == nil {
		t.Error("Expected error for nil blob")
	}
	if _, err := s.ToDataURI(&models.FileBlob{Name: "empty"}); err == nil {
		t.Error("Expected error for empty blob")
	}
}

func TestDecodeDataURIRejectsMalformed(t *testing.T) {
	s := NewAttachmentService()

	for _, uri := range []string{
		"http://example.com/x.png",
		"data:image/png;base64",
		"data:image/png,plain",
		"data:image/png;base64,!!!",
	} {
		if _, _, err := s.DecodeDataURI(uri); err == nil {
			t.Errorf("Expected error for %q", uri)
		}
	}
}

func TestEphemeralRefs(t *testing.T) {
	s := NewAttachmentService()

	blob := &models.FileBlob{Name: "pic.png", Type: "image/png", Data: []byte{1, 2, 3}}
	ref := s.NewEphemeralRef(blob)
	if !strings.HasPrefix(ref, "blob:") {
		t.Errorf("Expected blob: prefix, got %q", ref)
	}

	got, ok := s.Resolve(ref)
	if !ok || got != blob {
		t.Fatal("Expected ref to resolve to the registered blob")
	}

	s.Release(ref)
	if _, ok := s.Resolve(ref); ok {
		t.Error("Expected ref to be gone after release")
	}

	// Releasing twice is harmless.
	s.Release(ref)
}
