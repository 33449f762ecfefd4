// Package api wires the HTTP surface: router, middleware, and handlers.
package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/tweetframe/internal/api/handler"
	mw "github.com/iconidentify/tweetframe/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	healthHandler *handler.HealthHandler,
	tweetHandler *handler.TweetHandler,
	captureHandler *handler.CaptureHandler,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	// Captures can legitimately take minutes: video download plus encode.
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(mw.CORS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Get("/tweet", tweetHandler.Get)
		r.Get("/card", captureHandler.Card)
		r.Post("/capture", captureHandler.Capture)
	})

	return r
}
