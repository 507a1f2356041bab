package services

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"hookchat-backend/internal/models"
)

// Attachment kinds, decided from the MIME-type prefix.
const (
	KindImage = "image"
	KindAudio = "audio"
	KindOther = "other"
)

// AttachmentService converts between binary file handles, short-lived
// ephemeral references and persisted data URIs. Pure transformation: no
// network or storage access.
type AttachmentService struct {
	mu   sync.Mutex
	refs map[string]*models.FileBlob
}

func NewAttachmentService() *AttachmentService {
	return &AttachmentService{refs: make(map[string]*models.FileBlob)}
}

// Classify reports whether an attachment is an image, audio or other. The
// binary handle's declared type takes precedence over the attachment's own
// type string when both are present.
func (s *AttachmentService) Classify(att models.Attachment) string {
	mediaType := att.Type
	if att.Data != nil && att.Data.Type != "" {
		mediaType = att.Data.Type
	}
	return classifyMediaType(mediaType)
}

// ClassifyBlob is the same decision for a bare binary handle.
func (s *AttachmentService) ClassifyBlob(blob *models.FileBlob) string {
	if blob == nil {
		return KindOther
	}
	return classifyMediaType(blob.Type)
}

func classifyMediaType(mediaType string) string {
	mediaType = strings.ToLower(mediaType)
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return KindImage
	case strings.HasPrefix(mediaType, "audio/"):
		return KindAudio
	default:
		return KindOther
	}
}

// ToDataURI encodes a binary handle as a self-describing data URI so the
// attachment survives a reload without the handle. The media type is sniffed
// from content when the handle carries none.
func (s *AttachmentService) ToDataURI(blob *models.FileBlob) (string, error) {
	if blob == nil || len(blob.Data) == 0 {
		return "", fmt.Errorf("attachment has no readable bytes")
	}
	mediaType := blob.Type
	if mediaType == "" {
		mediaType = http.DetectContentType(blob.Data)
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(blob.Data), nil
}

// DecodeDataURI is the inverse of ToDataURI.
func (s *AttachmentService) DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("unsupported data URI encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("malformed data URI payload: %w", err)
	}
	return mediaType, data, nil
}

// NewEphemeralRef registers a binary handle for same-session preview and
// returns a short-lived reference. Callers must Release the reference once it
// is no longer displayed, or the bytes stay pinned in memory.
func (s *AttachmentService) NewEphemeralRef(blob *models.FileBlob) string {
	ref := "blob:" + uuid.New().String()
	s.mu.Lock()
	s.refs[ref] = blob
	s.mu.Unlock()
	return ref
}

// Resolve returns the handle behind an ephemeral reference, if still held.
func (s *AttachmentService) Resolve(ref string) (*models.FileBlob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.refs[ref]
	return blob, ok
}

// Release drops an ephemeral reference; unknown references are a no-op.
func (s *AttachmentService) Release(ref string) {
	s.mu.Lock()
	delete(s.refs, ref)
	s.mu.Unlock()
}
