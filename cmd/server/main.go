package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hookchat-backend/internal/config"
	"hookchat-backend/internal/handlers"
	"hookchat-backend/internal/repository"
	"hookchat-backend/internal/router"
	"hookchat-backend/internal/services"
	"hookchat-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting Hookchat Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Open Local Store ────
	kv, err := repository.NewFileKV(cfg.StoragePath, cfg.StorageQuotaBytes)
	if err != nil {
		log.Fatalf("✗ Local store initialization failed: %v", err)
	}
	settingsRepo := repository.NewSettingsRepo(kv)
	threadRepo := repository.NewThreadRepo(kv, settingsRepo)
	log.Printf("✓ Local store ready at %s (quota %d bytes)", cfg.StoragePath, cfg.StorageQuotaBytes)

	// ──── Step 3: Start WebSocket Hub ────
	wsHub := websocket.NewHub()
	log.Println("✓ WebSocket hub started")

	// ──── Initialize Services ────
	attachmentService := services.NewAttachmentService()
	webhookService := services.NewWebhookService(cfg.WebhookTimeout)
	chatService := services.NewChatService(threadRepo, settingsRepo, webhookService, attachmentService, wsHub)
	log.Printf("✓ Webhook exchange ready (timeout %s)", cfg.WebhookTimeout)

	// ──── Initialize Handlers ────
	chatHandler := handlers.NewChatHandler(chatService, threadRepo, attachmentService)
	threadHandler := handlers.NewThreadHandler(threadRepo, settingsRepo)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo)

	// ──── Step 4: Start HTTP Server ────
	r := router.New(
		chatHandler,
		threadHandler,
		settingsHandler,
		wsHub,
		cfg.FrontendURL,
		cfg.SendRatePerMin,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// A send response is held open for the whole webhook exchange.
		WriteTimeout: cfg.WebhookTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Hookchat Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
