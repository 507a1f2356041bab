package services

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hookchat-backend/internal/models"
)

// placeholderContent is the transient agent message shown while a webhook
// reply is pending. It is broadcast to live subscribers but never persisted.
const placeholderContent = "Agent is typing..."

// Human-readable classifications of exchange failures, surfaced as agent
// messages so a send never leaves the user without a response.
const (
	errReplyTimeout = "Request timed out. The webhook server might be unavailable."
	errReplyNetwork = "Network error: Cannot connect to the webhook. Please check your internet connection and webhook URL."
	errReplyFormat  = "Invalid response format. The webhook did not return valid JSON data."
	errReplyGeneric = "Failed to send message"
)

// Event types published to live subscribers of a thread.
const (
	EventMessage     = "message"
	EventTyping      = "typing"
	EventTypingDone  = "typing_done"
	EventThreadSaved = "thread_saved"
)

// ThreadEvent is pushed to WebSocket subscribers of a thread.
type ThreadEvent struct {
	Type    string          `json:"type"`
	ChatID  string          `json:"chat_id"`
	Message *models.Message `json:"message,omitempty"`
}

// EventSink receives thread events for live delivery. The WebSocket hub
// implements it.
type EventSink interface {
	Publish(threadID string, event ThreadEvent)
}

type threadStore interface {
	Messages(id string) []models.Message
	UpsertMessages(threadID string, messages []models.Message) error
}

type settingsStore interface {
	Load() models.ChatSettings
}

// ChatService orchestrates a send: append the user message, persist, invoke
// the webhook behind a transient placeholder, and replace the placeholder
// with the reply or a failure classification.
type ChatService struct {
	threads     threadStore
	settings    settingsStore
	webhook     *WebhookService
	attachments *AttachmentService
	events      EventSink

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewChatService(threads threadStore, settings settingsStore, webhook *WebhookService, attachments *AttachmentService, events EventSink) *ChatService {
	return &ChatService{
		threads:     threads,
		settings:    settings,
		webhook:     webhook,
		attachments: attachments,
		events:      events,
		inFlight:    make(map[string]bool),
	}
}

// IsLoading reports whether a webhook exchange is outstanding for the thread.
func (s *ChatService) IsLoading(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[threadID]
}

// Send runs the conversation pipeline for one user message and returns the
// thread's full message list afterwards. At most one exchange per thread may
// be outstanding; a concurrent send fails fast with *BusyError.
func (s *ChatService) Send(ctx context.Context, threadID, text string, uploads []*models.FileBlob) ([]models.Message, error) {
	settings := s.settings.Load()

	// The guard is only held while an exchange can happen, so a disconnected
	// send never reports loading.
	connected := settings.WebhookURL != ""
	if connected {
		if err := s.acquire(threadID); err != nil {
			return nil, err
		}
		defer s.release(threadID)
	}

	userMsg := models.Message{
		ID:        uuid.New().String(),
		Content:   strings.TrimSpace(text),
		Sender:    models.SenderUser,
		Timestamp: time.Now().UnixMilli(),
	}
	for _, blob := range uploads {
		if blob == nil {
			continue
		}
		att := models.Attachment{
			ID:   uuid.New().String(),
			Name: blob.Name,
			Type: blob.Type,
			Size: int64(len(blob.Data)),
			Data: blob,
		}
		// Same-session preview before the persisted form exists.
		if s.attachments.Classify(att) == KindImage {
			att.PreviewURL = s.attachments.NewEphemeralRef(blob)
		}
		userMsg.Attachments = append(userMsg.Attachments, att)
	}

	messages := append(s.threads.Messages(threadID), userMsg)
	s.publish(threadID, ThreadEvent{Type: EventMessage, ChatID: threadID, Message: &userMsg})
	s.persist(threadID, messages)

	// Disconnected: the user message is appended and saved, nothing is sent.
	if !connected {
		return messages, nil
	}

	placeholder := models.Message{
		ID:        uuid.New().String(),
		Content:   placeholderContent,
		Sender:    models.SenderAgent,
		Timestamp: time.Now().UnixMilli(),
	}
	s.publish(threadID, ThreadEvent{Type: EventTyping, ChatID: threadID, Message: &placeholder})

	var files []*models.FileBlob
	for _, att := range userMsg.Attachments {
		if att.Data != nil && len(att.Data.Data) > 0 {
			files = append(files, att.Data)
		}
	}

	reply, err := s.webhook.Send(ctx, settings.WebhookURL, userMsg.Content, files, threadID, settings.AccessClientID, settings.AccessClientSecret)

	agentMsg := models.Message{
		ID:        uuid.New().String(),
		Sender:    models.SenderAgent,
		Timestamp: time.Now().UnixMilli(),
	}
	if err != nil {
		log.Printf("chat: webhook exchange failed for thread %s: %v", threadID, err)
		agentMsg.Content = classifyFailure(err)
	} else {
		agentMsg.Content = reply
		agentMsg.IsTyping = settings.TypingAnimation
	}

	s.publish(threadID, ThreadEvent{Type: EventTypingDone, ChatID: threadID})
	s.publish(threadID, ThreadEvent{Type: EventMessage, ChatID: threadID, Message: &agentMsg})

	messages = append(messages, agentMsg)
	s.persist(threadID, messages)
	return messages, nil
}

// persist converts binary handles to data URIs and writes the full message
// list. Failures are logged and swallowed: a failed write never rolls back
// the in-memory conversation.
func (s *ChatService) persist(threadID string, messages []models.Message) {
	for i := range messages {
		for j := range messages[i].Attachments {
			att := &messages[i].Attachments[j]
			if att.Data == nil || att.URL != "" {
				continue
			}
			url, err := s.attachments.ToDataURI(att.Data)
			if err != nil {
				log.Printf("chat: could not persist attachment %s: %v", att.Name, err)
				continue
			}
			att.URL = url
			if s.attachments.Classify(*att) == KindImage {
				if strings.HasPrefix(att.PreviewURL, "blob:") {
					s.attachments.Release(att.PreviewURL)
				}
				att.PreviewURL = url
			}
		}
	}
	// The typing flag only drives the live reveal of the current reply; stored
	// messages always carry it cleared so a reload never re-animates.
	stored := make([]models.Message, len(messages))
	copy(stored, messages)
	for i := range stored {
		stored[i].IsTyping = false
	}
	if err := s.threads.UpsertMessages(threadID, stored); err != nil {
		log.Printf("chat: failed to save thread %s: %v", threadID, err)
		return
	}
	s.publish(threadID, ThreadEvent{Type: EventThreadSaved, ChatID: threadID})
}

func (s *ChatService) acquire(threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[threadID] {
		return &BusyError{ThreadID: threadID}
	}
	s.inFlight[threadID] = true
	return nil
}

func (s *ChatService) release(threadID string) {
	s.mu.Lock()
	delete(s.inFlight, threadID)
	s.mu.Unlock()
}

func (s *ChatService) publish(threadID string, event ThreadEvent) {
	if s.events != nil {
		s.events.Publish(threadID, event)
	}
}

func classifyFailure(err error) string {
	switch err.(type) {
	case *TimeoutError:
		return errReplyTimeout
	case *NetworkError:
		return errReplyNetwork
	case *ResponseFormatError:
		return errReplyFormat
	case *HTTPStatusError:
		return "Error: " + err.Error()
	default:
		return errReplyGeneric
	}
}
