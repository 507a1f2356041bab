package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"

	"hookchat-backend/internal/models"
)

// Sentinel replies produced by response normalization. The remote endpoint is
// a user-configured automation workflow with no fixed output contract, so the
// exchange degrades to "something, rather than nothing" for every reply shape.
const (
	replyNoData     = "Request processed successfully, but no response data was returned"
	replyProcessed  = "Request processed successfully"
	replyStructured = "Received structured response from webhook"
	replyFromArray  = "Received response from webhook"

	maxRawReplyLen = 500
	truncationMark = "... (truncated)"
)

// Opaque pass-through credential headers for an access-control proxy in front
// of the webhook. The values are never inspected.
const (
	headerAccessClientID     = "CF-Access-Client-Id"
	headerAccessClientSecret = "CF-Access-Client-Secret"
)

// WebhookService posts a chat message plus attachments to the configured
// endpoint as multipart/form-data and normalizes the reply to a display
// string.
type WebhookService struct {
	httpClient *http.Client
	timeout    time.Duration
}

func NewWebhookService(timeout time.Duration) *WebhookService {
	return &WebhookService{
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// Send posts message and files to endpoint, bounded by the configured
// timeout. Files without readable bytes are silently skipped. The error is
// one of *ConfigError, *TimeoutError, *NetworkError, *HTTPStatusError or
// *ResponseFormatError.
func (s *WebhookService) Send(ctx context.Context, endpoint, message string, files []*models.FileBlob, chatID, accessID, accessSecret string) (string, error) {
	if endpoint == "" {
		return "", &ConfigError{Message: "webhook URL is not set"}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chatId", chatID); err != nil {
		return "", err
	}
	if message != "" {
		if err := writer.WriteField("message", LinkifyURLs(message)); err != nil {
			return "", err
		}
	}
	for _, f := range files {
		if f == nil || len(f.Data) == 0 {
			continue
		}
		part, err := writer.CreateFormFile("files", f.Name)
		if err != nil {
			return "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if accessID != "" {
		req.Header.Set(headerAccessClientID, accessID)
	}
	if accessSecret != "" {
		req.Header.Set(headerAccessClientSecret, accessSecret)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &TimeoutError{}
		}
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &TimeoutError{}
		}
		return "", &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPStatusError{Status: resp.StatusCode, Body: string(raw)}
	}

	if declaresJSON(resp.Header.Get("Content-Type")) && !json.Valid(bytes.TrimSpace(raw)) && len(bytes.TrimSpace(raw)) > 0 {
		return "", &ResponseFormatError{Message: "webhook did not return valid JSON data"}
	}

	return NormalizeResponse(string(raw)), nil
}

// NormalizeResponse maps the endpoint's arbitrary reply body to a single
// display string. Precedence: empty body, JSON string, object .message,
// object .output, array (first element), any other object; null and falsy
// scalars collapse to a generic acknowledgement. A body
// that is not JSON at all is returned verbatim up to 500 characters.
func NormalizeResponse(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return replyNoData
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		if len(raw) <= maxRawReplyLen {
			return raw
		}
		return raw[:maxRawReplyLen] + truncationMark
	}

	switch v := parsed.(type) {
	case string:
		return v
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
		if out, ok := v["output"].(string); ok {
			return out
		}
		return replyStructured
	case []interface{}:
		if len(v) == 0 {
			return replyStructured
		}
		switch first := v[0].(type) {
		case string:
			return first
		case map[string]interface{}:
			if msg, ok := first["message"].(string); ok {
				return msg
			}
			if out, ok := first["output"].(string); ok {
				return out
			}
		}
		return replyFromArray
	case bool:
		if !v {
			return replyProcessed
		}
		return replyStructured
	case float64:
		if v == 0 {
			return replyProcessed
		}
		return replyStructured
	case nil:
		return replyProcessed
	default:
		return replyStructured
	}
}

var bareURLPattern = regexp.MustCompile(`(^|[\s(])(https?://[^\s<>")]+)`)

// LinkifyURLs wraps bare URLs in the message text as anchor markup before the
// message is forwarded.
func LinkifyURLs(text string) string {
	return bareURLPattern.ReplaceAllString(text, `$1<a href="$2">$2</a>`)
}

func declaresJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Service error taxonomy.

// ConfigError means no webhook endpoint is configured.
type ConfigError struct{ Message string }

func (e *ConfigError) Error() string { return e.Message }

type TimeoutError struct{}

func (e *TimeoutError) Error() string {
	return "request timed out waiting for the webhook"
}

type NetworkError struct{ Err error }

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string { return fmt.Sprintf("HTTP error! status: %d", e.Status) }

// ResponseFormatError means the response claimed to be JSON but failed to
// parse.
type ResponseFormatError struct{ Message string }

func (e *ResponseFormatError) Error() string { return e.Message }

// BusyError means a send was attempted while another exchange for the same
// thread was still in flight.
type BusyError struct{ ThreadID string }

func (e *BusyError) Error() string {
	return fmt.Sprintf("another message for thread %s is still being processed", e.ThreadID)
}
