package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"hookchat-backend/internal/models"
)

const historyKey = "chatHistory"

// keptOnQuotaTrim is how many of the most recently appended threads survive a
// quota-exceeded save. Older threads are an accepted loss, not an error.
const keptOnQuotaTrim = 3

// FormatError reports a malformed imported thread file.
type FormatError struct{ Message string }

func (e *FormatError) Error() string { return e.Message }

// ThreadRepo stores the whole thread collection as one JSON array under the
// chatHistory key, preserving insertion order across saves.
type ThreadRepo struct {
	kv       *FileKV
	settings *SettingsRepo
}

func NewThreadRepo(kv *FileKV, settings *SettingsRepo) *ThreadRepo {
	return &ThreadRepo{kv: kv, settings: settings}
}

// List returns every stored thread in insertion order. Corrupt stored data
// reads as an empty collection.
func (r *ThreadRepo) List() []models.ChatThread {
	raw, ok := r.kv.Get(historyKey)
	if !ok {
		return nil
	}
	var threads []models.ChatThread
	if err := json.Unmarshal([]byte(raw), &threads); err != nil {
		log.Printf("threads: unparseable chat history, treating as empty")
		return nil
	}
	return threads
}

func (r *ThreadRepo) Get(id string) (*models.ChatThread, bool) {
	for _, t := range r.List() {
		if t.ID == id {
			return &t, true
		}
	}
	return nil, false
}

// Messages returns the message list of a thread, or nil when absent.
func (r *ThreadRepo) Messages(id string) []models.Message {
	t, ok := r.Get(id)
	if !ok {
		return nil
	}
	return t.Messages
}

// UpsertMessages replaces a thread's message list wholesale. When threadID is
// not in the collection yet (and non-empty), a thread named "Chat" is created
// with the current settings snapshot attached.
func (r *ThreadRepo) UpsertMessages(threadID string, messages []models.Message) error {
	threads := r.List()
	found := false
	for i := range threads {
		if threads[i].ID == threadID {
			threads[i].Messages = messages
			found = true
			break
		}
	}
	if !found {
		if threadID == "" {
			return nil
		}
		threads = append(threads, models.ChatThread{
			ID:       threadID,
			Name:     "Chat",
			Messages: messages,
			Settings: r.settings.Load(),
		})
	}
	return r.save(threads)
}

// Clear removes the thread with the given id; absent ids are a no-op.
func (r *ThreadRepo) Clear(id string) error {
	threads := r.List()
	kept := threads[:0]
	for _, t := range threads {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(threads) {
		return nil
	}
	return r.save(kept)
}

// Export serializes one thread to indented JSON and derives a download
// filename from its display name. The second return is false when the thread
// is absent.
func (r *ThreadRepo) Export(id string) ([]byte, string, bool) {
	t, ok := r.Get(id)
	if !ok {
		return nil, "", false
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, "", false
	}
	filename := fmt.Sprintf("chat-history-%s.json", slugify(t.Name))
	return data, filename, true
}

// Import parses an exported thread, assigns it a fresh id to avoid
// collisions, marks its name as imported, and persists it immediately.
// A parse or validation failure leaves the stored collection untouched.
func (r *ThreadRepo) Import(data []byte) (*models.ChatThread, error) {
	var t models.ChatThread
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, &FormatError{Message: "invalid chat history format"}
	}
	if t.ID == "" || t.Messages == nil {
		return nil, &FormatError{Message: "invalid chat history format: missing id or messages"}
	}

	t.ID = uuid.New().String()
	t.Name = t.Name + " (imported)"

	threads := append(r.List(), t)
	if err := r.save(threads); err != nil {
		return nil, err
	}
	return &t, nil
}

// save writes the collection, retrying once with only the most recently
// appended threads when the namespace quota is hit. A second failure is
// logged and swallowed: history loss must never block the conversation.
func (r *ThreadRepo) save(threads []models.ChatThread) error {
	b, err := json.Marshal(threads)
	if err != nil {
		return err
	}
	err = r.kv.Set(historyKey, string(b))
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		return err
	}

	if len(threads) > keptOnQuotaTrim {
		threads = threads[len(threads)-keptOnQuotaTrim:]
	}
	b, merr := json.Marshal(threads)
	if merr != nil {
		return merr
	}
	if err := r.kv.Set(historyKey, string(b)); err != nil {
		log.Printf("threads: dropping chat history update after quota retry: %v", err)
	}
	return nil
}

var slugPattern = regexp.MustCompile(`\s+`)

func slugify(name string) string {
	return strings.ToLower(slugPattern.ReplaceAllString(strings.TrimSpace(name), "-"))
}
