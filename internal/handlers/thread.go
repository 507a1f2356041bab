package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hookchat-backend/internal/models"
	"hookchat-backend/internal/repository"
)

type ThreadHandler struct {
	threadRepo   *repository.ThreadRepo
	settingsRepo *repository.SettingsRepo
}

func NewThreadHandler(threadRepo *repository.ThreadRepo, settingsRepo *repository.SettingsRepo) *ThreadHandler {
	return &ThreadHandler{threadRepo: threadRepo, settingsRepo: settingsRepo}
}

func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	threads := h.threadRepo.List()
	summaries := make([]models.ThreadSummary, 0, len(threads))
	for _, t := range threads {
		summaries = append(summaries, models.ThreadSummary{
			ID:           t.ID,
			Name:         t.Name,
			MessageCount: len(t.Messages),
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

// Clear deletes a whole thread. Clearing a thread that does not exist is not
// an error.
func (h *ThreadHandler) Clear(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")
	if err := h.threadRepo.Clear(threadID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat history cleared"})
}

// Export streams one thread as a downloadable JSON file named from its
// display name.
func (h *ThreadHandler) Export(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")
	data, filename, ok := h.threadRepo.Export(threadID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Thread not found", r))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(data)
}

// Import reconstructs a thread from an exported file, under a fresh id, and
// points the current settings at it.
func (h *ThreadHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unreadable file", r))
		return
	}

	thread, err := h.threadRepo.Import(data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	// Switch the current session to the imported thread.
	settings := h.settingsRepo.Load()
	settings.ChatID = thread.ID
	settings.ChatName = thread.Name
	if err := h.settingsRepo.Save(settings); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, thread)
}
