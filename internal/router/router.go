package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"hookchat-backend/internal/handlers"
	"hookchat-backend/internal/middleware"
	"hookchat-backend/internal/websocket"
)

func New(
	chatHandler *handlers.ChatHandler,
	threadHandler *handlers.ThreadHandler,
	settingsHandler *handlers.SettingsHandler,
	wsHub *websocket.Hub,
	frontendURL string,
	sendRatePerMin int,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Send rate limiter (per IP): every accepted send may hold a webhook
	// exchange open for minutes.
	sendLimiter := middleware.NewRateLimiter(sendRatePerMin, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Thread & Message Routes ────
		r.Route("/threads", func(r chi.Router) {
			r.Get("/", threadHandler.List)
			r.Post("/import", threadHandler.Import)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", threadHandler.Clear)
				r.Get("/export", threadHandler.Export)
				r.Get("/messages", chatHandler.ListMessages)
				r.Group(func(r chi.Router) {
					r.Use(sendLimiter.Middleware)
					r.Post("/messages", chatHandler.SendMessage)
				})
				r.Get("/messages/{messageID}/attachments/{attachmentID}", chatHandler.DownloadAttachment)
			})
		})

		// ──── Settings Routes ────
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", settingsHandler.GetSettings)
			r.Put("/", settingsHandler.UpdateSettings)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
