package repository

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hookchat-backend/internal/models"
)

func newTestRepos(t *testing.T, quota int) (*ThreadRepo, *SettingsRepo) {
	t.Helper()
	kv, err := NewFileKV(t.TempDir(), quota)
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	settings := NewSettingsRepo(kv)
	return NewThreadRepo(kv, settings), settings
}

func msg(id, sender, content string) models.Message {
	return models.Message{ID: id, Sender: sender, Content: content, Timestamp: 1700000000000}
}

func TestUpsertMessagesCreatesThread(t *testing.T) {
	repo, _ := newTestRepos(t, 0)

	if err := repo.UpsertMessages("t1", []models.Message{msg("m1", models.SenderUser, "hi")}); err != nil {
		t.Fatalf("UpsertMessages: %v", err)
	}

	thread, ok := repo.Get("t1")
	if !ok {
		t.Fatal("Expected thread t1 to exist")
	}
	if thread.Name != "Chat" {
		t.Errorf("Expected new thread named 'Chat', got %q", thread.Name)
	}
	if len(thread.Messages) != 1 || thread.Messages[0].Content != "hi" {
		t.Errorf("Unexpected messages: %+v", thread.Messages)
	}
	if thread.Settings.ChatName != "Chat" || !thread.Settings.TypingAnimation {
		t.Errorf("Expected default settings snapshot, got %+v", thread.Settings)
	}
}

func TestUpsertMessagesEmptyIDIsNoop(t *testing.T) {
	repo, _ := newTestRepos(t, 0)

	if err := repo.UpsertMessages("", []models.Message{msg("m1", models.SenderUser, "hi")}); err != nil {
		t.Fatalf("UpsertMessages: %v", err)
	}
	if got := len(repo.List()); got != 0 {
		t.Errorf("Expected no threads, got %d", got)
	}
}

func TestUpsertMessagesReplacesWholesale(t *testing.T) {
	repo, _ := newTestRepos(t, 0)

	repo.UpsertMessages("t1", []models.Message{msg("m1", models.SenderUser, "one")})
	repo.UpsertMessages("t1", []models.Message{
		msg("m1", models.SenderUser, "one"),
		msg("m2", models.SenderAgent, "two"),
	})

	got := repo.Messages("t1")
	if len(got) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(got))
	}
	// Insertion order is the display order; never re-sorted.
	if got[0].ID != "m1" || got[1].ID != "m2" {
		t.Errorf("Expected insertion order m1,m2, got %s,%s", got[0].ID, got[1].ID)
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	repo, _ := newTestRepos(t, 0)

	for _, id := range []string{"a", "b", "c"} {
		repo.UpsertMessages(id, []models.Message{msg("m-"+id, models.SenderUser, id)})
	}

	threads := repo.List()
	if len(threads) != 3 {
		t.Fatalf("Expected 3 threads, got %d", len(threads))
	}
	for i, want := range []string{"a", "b", "c"} {
		if threads[i].ID != want {
			t.Errorf("Position %d: expected %q, got %q", i, want, threads[i].ID)
		}
	}
}

func TestClearThread(t *testing.T) {
	repo, _ := newTestRepos(t, 0)

	repo.UpsertMessages("t1", []models.Message{msg("m1", models.SenderUser, "hi")})
	repo.UpsertMessages("t2", []models.Message{msg("m2", models.SenderUser, "yo")})

	if err := repo.Clear("t1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := repo.Get("t1"); ok {
		t.Error("Expected t1 to be gone")
	}
	if _, ok := repo.Get("t2"); !ok {
		t.Error("Expected t2 to survive")
	}

	// Absent id is a no-op, not an error.
	if err := repo.Clear("nope"); err != nil {
		t.Errorf("Clear of absent thread: %v", err)
	}
}

func TestCorruptHistoryReadsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	kv, _ := NewFileKV(dir, 0)
	settings := NewSettingsRepo(kv)
	repo := NewThreadRepo(kv, settings)

	os.WriteFile(filepath.Join(dir, "chatHistory.json"), []byte("{not json"), 0o644)

	if got := repo.List(); got != nil {
		t.Errorf("Expected empty list for corrupt store, got %+v", got)
	}

	// And it must be writable again afterwards.
	if err := repo.UpsertMessages("t1", []models.Message{msg("m1", models.SenderUser, "hi")}); err != nil {
		t.Fatalf("UpsertMessages after corruption: %v", err)
	}
	if len(repo.List()) != 1 {
		t.Error("Expected store to recover after corruption")
	}
}

func TestQuotaExceededKeepsNewestThree(t *testing.T) {
	// Quota sized so four threads with 1KB messages cannot fit but three can.
	repo, _ := newTestRepos(t, 4300)

	big := strings.Repeat("x", 1024)
	for _, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		repo.UpsertMessages(id, []models.Message{msg("m-"+id, models.SenderUser, big)})
	}

	threads := repo.List()
	if len(threads) != 3 {
		t.Fatalf("Expected 3 surviving threads after quota trim, got %d", len(threads))
	}
	for i, want := range []string{"t3", "t4", "t5"} {
		if threads[i].ID != want {
			t.Errorf("Position %d: expected %q, got %q", i, want, threads[i].ID)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	repo, _ := newTestRepos(t, 0)

	repo.UpsertMessages("orig", []models.Message{
		msg("m1", models.SenderUser, "hello"),
		msg("m2", models.SenderAgent, "hi there"),
	})

	data, filename, ok := repo.Export("orig")
	if !ok {
		t.Fatal("Export: thread not found")
	}
	if filename != "chat-history-chat.json" {
		t.Errorf("Expected filename chat-history-chat.json, got %q", filename)
	}

	imported, err := repo.Import(data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imported.ID == "orig" {
		t.Error("Imported thread must get a fresh id")
	}
	if imported.Name != "Chat (imported)" {
		t.Errorf("Expected name 'Chat (imported)', got %q", imported.Name)
	}
	if len(imported.Messages) != 2 || imported.Messages[1].Content != "hi there" {
		t.Errorf("Imported messages differ: %+v", imported.Messages)
	}

	// Both the original and the imported copy are now stored.
	if len(repo.List()) != 2 {
		t.Errorf("Expected 2 stored threads, got %d", len(repo.List()))
	}
}

func TestImportRejectsMalformedData(t *testing.T) {
	repo, _ := newTestRepos(t, 0)
	repo.UpsertMessages("keep", []models.Message{msg("m1", models.SenderUser, "hi")})

	tests := []struct {
		name string
		data string
	}{
		{"not json", "{oops"},
		{"missing id", `{"name":"X","messages":[]}`},
		{"missing messages", `{"id":"x","name":"X"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.Import([]byte(tc.data))
			if err == nil {
				t.Fatal("Expected import to fail")
			}
			if _, ok := err.(*FormatError); !ok {
				t.Errorf("Expected *FormatError, got %T", err)
			}
		})
	}

	// A failed import must not touch the stored collection.
	if got := len(repo.List()); got != 1 {
		t.Errorf("Expected stored collection untouched (1 thread), got %d", got)
	}
}

func TestExportAbsentThread(t *testing.T) {
	repo, _ := newTestRepos(t, 0)
	if _, _, ok := repo.Export("missing"); ok {
		t.Error("Expected Export of absent thread to report not found")
	}
}

func TestSettingsDefaultsAndRoundTrip(t *testing.T) {
	_, settings := newTestRepos(t, 0)

	def := settings.Load()
	if def.WebhookURL != "" {
		t.Errorf("Expected empty default webhook URL, got %q", def.WebhookURL)
	}
	if !def.TypingAnimation {
		t.Error("Expected typing animation on by default")
	}
	if def.ChatID == "" {
		t.Error("Expected a generated chat id")
	}
	if def.ChatName != "Chat" {
		t.Errorf("Expected default chat name 'Chat', got %q", def.ChatName)
	}

	def.WebhookURL = "https://example.com/hook"
	def.AccessClientID = "id"
	def.AccessClientSecret = "secret"
	if err := settings.Save(def); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := settings.Load()
	if got != def {
		t.Errorf("Settings round trip mismatch: %+v vs %+v", got, def)
	}
}

func TestSettingsCorruptFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	kv, _ := NewFileKV(dir, 0)
	settings := NewSettingsRepo(kv)

	os.WriteFile(filepath.Join(dir, "chatSettings.json"), []byte("???"), 0o644)

	got := settings.Load()
	if got.ChatName != "Chat" || !got.TypingAnimation {
		t.Errorf("Expected defaults for corrupt settings, got %+v", got)
	}
}
