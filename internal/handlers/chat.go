package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hookchat-backend/internal/models"
	"hookchat-backend/internal/repository"
	"hookchat-backend/internal/services"
)

// maxUploadBytes bounds a single send's multipart body. Attachments are held
// in memory and persisted as base64, so this stays modest.
const maxUploadBytes = 25 * 1024 * 1024

type ChatHandler struct {
	chatService *services.ChatService
	threadRepo  *repository.ThreadRepo
	attachments *services.AttachmentService
}

func NewChatHandler(chatService *services.ChatService, threadRepo *repository.ThreadRepo, attachments *services.AttachmentService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		threadRepo:  threadRepo,
		attachments: attachments,
	}
}

// SendMessage accepts a multipart form with a "message" text field and any
// number of "files" parts, runs the conversation pipeline and responds with
// the thread's updated message list.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")
	if threadID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Thread ID is required", r))
		return
	}

	if r.ContentLength > maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "Attachments exceed the upload limit", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart request body", r))
		return
	}

	text := strings.TrimSpace(r.FormValue("message"))

	var uploads []*models.FileBlob
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			file, err := header.Open()
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unreadable file part", r))
				return
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unreadable file part", r))
				return
			}

			mediaType := header.Header.Get("Content-Type")
			if mediaType == "" || mediaType == "application/octet-stream" {
				mediaType = http.DetectContentType(data)
			}
			uploads = append(uploads, &models.FileBlob{
				Name: header.Filename,
				Type: mediaType,
				Data: data,
			})
		}
	}

	if text == "" && len(uploads) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message text or at least one file is required", r))
		return
	}

	messages, err := h.chatService.Send(r.Context(), threadID, text, uploads)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.MessagesResponse{ChatID: threadID, Messages: messages})
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")
	messages := h.threadRepo.Messages(threadID)
	if messages == nil {
		messages = []models.Message{}
	}
	writeJSON(w, http.StatusOK, models.MessagesResponse{ChatID: threadID, Messages: messages})
}

// DownloadAttachment serves an attachment's bytes, preferring the persisted
// data URI and falling back to the session binary handle or ephemeral
// preview reference.
func (h *ChatHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")
	messageID := chi.URLParam(r, "messageID")
	attachmentID := chi.URLParam(r, "attachmentID")

	att, ok := h.findAttachment(threadID, messageID, attachmentID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Attachment not found", r))
		return
	}

	var mediaType string
	var data []byte
	switch {
	case att.URL != "":
		mt, b, err := h.attachments.DecodeDataURI(att.URL)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Stored attachment is unreadable", r))
			return
		}
		mediaType, data = mt, b
	case att.Data != nil:
		mediaType, data = att.Data.Type, att.Data.Data
	default:
		if blob, ok := h.attachments.Resolve(att.PreviewURL); ok {
			mediaType, data = blob.Type, blob.Data
		}
	}
	if data == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Attachment has no stored content", r))
		return
	}

	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+att.Name+`"`)
	w.Write(data)
}

func (h *ChatHandler) findAttachment(threadID, messageID, attachmentID string) (*models.Attachment, bool) {
	for _, msg := range h.threadRepo.Messages(threadID) {
		if msg.ID != messageID {
			continue
		}
		for i := range msg.Attachments {
			if msg.Attachments[i].ID == attachmentID {
				return &msg.Attachments[i], true
			}
		}
	}
	return nil, false
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.BusyError:
		writeJSON(w, http.StatusConflict, errorResp("BUSY", e.Error(), r))
	case *services.ConfigError:
		writeJSON(w, http.StatusBadRequest, errorResp("NOT_CONFIGURED", e.Error(), r))
	case *repository.FormatError:
		writeJSON(w, http.StatusBadRequest, errorResp("FORMAT_ERROR", e.Error(), r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Something went wrong", r))
	}
}
