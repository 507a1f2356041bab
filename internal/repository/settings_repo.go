package repository

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"hookchat-backend/internal/models"
)

const settingsKey = "chatSettings"

type SettingsRepo struct {
	kv *FileKV
}

func NewSettingsRepo(kv *FileKV) *SettingsRepo {
	return &SettingsRepo{kv: kv}
}

// Load returns the stored settings, or defaults (empty webhook URL, typing
// animation on, a freshly generated chat id, name "Chat") when nothing is
// stored or the stored value does not parse.
func (r *SettingsRepo) Load() models.ChatSettings {
	raw, ok := r.kv.Get(settingsKey)
	if ok {
		var s models.ChatSettings
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return s
		}
		log.Printf("settings: unparseable stored value, falling back to defaults")
	}
	return models.ChatSettings{
		WebhookURL:      "",
		TypingAnimation: true,
		ChatID:          uuid.New().String(),
		ChatName:        "Chat",
	}
}

func (r *SettingsRepo) Save(s models.ChatSettings) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.kv.Set(settingsKey, string(b))
}
