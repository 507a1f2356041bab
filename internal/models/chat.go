package models

// Message senders. Order within a thread is insertion order and is never
// re-sorted by timestamp.
const (
	SenderUser  = "user"
	SenderAgent = "agent"
)

// FileBlob is the in-memory binary handle for an uploaded file. It is only
// valid for the lifetime of the current process; attachments are converted to
// data URIs before a thread is saved.
type FileBlob struct {
	Name string
	Type string
	Data []byte
}

// Attachment is a file attached to a message. URL holds the persisted
// data-URI form once the message has been saved; Data holds the session-local
// binary handle and is never serialized.
type Attachment struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	URL        string    `json:"url,omitempty"`
	Size       int64     `json:"size,omitempty"`
	PreviewURL string    `json:"previewUrl,omitempty"`
	Data       *FileBlob `json:"-"`
}

// Message is a single conversation turn.
type Message struct {
	ID          string       `json:"id"`
	Content     string       `json:"content"`
	Sender      string       `json:"sender"`
	Timestamp   int64        `json:"timestamp"` // epoch millis
	Attachments []Attachment `json:"attachments,omitempty"`
	IsTyping    bool         `json:"isTyping,omitempty"`
}

// ChatSettings is the process-wide settings record, stored under the
// chatSettings key. The two access values are opaque pass-through credentials
// forwarded verbatim as webhook request headers.
type ChatSettings struct {
	WebhookURL         string `json:"webhookUrl"`
	TypingAnimation    bool   `json:"typingAnimation"`
	ChatID             string `json:"chatId"`
	ChatName           string `json:"chatName"`
	ChatEmoji          string `json:"chatEmoji,omitempty"`
	AccessClientID     string `json:"accessClientId,omitempty"`
	AccessClientSecret string `json:"accessClientSecret,omitempty"`
}

// ChatThread is one stored conversation: its messages plus the settings
// snapshot captured when the thread was created, so exports are
// self-contained.
type ChatThread struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Messages []Message    `json:"messages"`
	Settings ChatSettings `json:"settings"`
}

// ThreadSummary is the list-view projection of a thread.
type ThreadSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MessageCount int    `json:"message_count"`
}

// MessagesResponse is returned by the send and list-messages endpoints.
type MessagesResponse struct {
	ChatID   string    `json:"chat_id"`
	Messages []Message `json:"messages"`
}
