package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Storage
	StoragePath       string
	StorageQuotaBytes int

	// Webhook
	WebhookTimeout time.Duration

	// Rate limiting
	SendRatePerMin int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		Env:               getEnvOrDefault("ENV", "development"),
		StoragePath:       getEnvOrDefault("STORAGE_PATH", "./data"),
		StorageQuotaBytes: getEnvAsIntOrDefault("STORAGE_QUOTA_BYTES", 5*1024*1024),
		WebhookTimeout:    time.Duration(getEnvAsIntOrDefault("WEBHOOK_TIMEOUT_SECONDS", 180)) * time.Second,
		SendRatePerMin:    getEnvAsIntOrDefault("SEND_RATE_LIMIT_PER_MINUTE", 30),
		FrontendURL:       getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
