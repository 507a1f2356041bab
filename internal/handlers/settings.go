package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"hookchat-backend/internal/models"
	"hookchat-backend/internal/repository"
)

type SettingsHandler struct {
	settingsRepo *repository.SettingsRepo
}

func NewSettingsHandler(settingsRepo *repository.SettingsRepo) *SettingsHandler {
	return &SettingsHandler{settingsRepo: settingsRepo}
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settingsRepo.Load())
}

func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.ChatSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	// An empty webhook URL is valid (disconnected state); anything else must
	// be an http(s) URL.
	if req.WebhookURL != "" && !strings.HasPrefix(req.WebhookURL, "http://") && !strings.HasPrefix(req.WebhookURL, "https://") {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Webhook URL must start with http:// or https://", r))
		return
	}
	if req.ChatID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Chat ID is required", r))
		return
	}
	if req.ChatName == "" {
		req.ChatName = "Chat"
	}

	if err := h.settingsRepo.Save(req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}
