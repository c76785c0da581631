package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /languages", h.ListLanguages)

	mux.HandleFunc("POST /sessions", h.CreateSession)
	mux.HandleFunc("GET /sessions", h.ListSessions)

	sessionRoute := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, h.RequireSessionID(fn))
	}
	sessionRoute("GET /sessions/{id}", h.GetSession)
	sessionRoute("DELETE /sessions/{id}", h.DeleteSession)

	sessionRoute("PUT /sessions/{id}/video", h.UploadVideo)
	sessionRoute("POST /sessions/{id}/resize", h.ResizeVideo)
	sessionRoute("POST /sessions/{id}/extract", h.ExtractText)
	sessionRoute("POST /sessions/{id}/translate", h.TranslateText)
	sessionRoute("POST /sessions/{id}/synthesize", h.SynthesizeAudio)
	sessionRoute("POST /sessions/{id}/pipeline", h.RunPipeline)
	sessionRoute("POST /sessions/{id}/publish", h.Publish)

	sessionRoute("GET /sessions/{id}/download/video", h.DownloadVideo)
	sessionRoute("GET /sessions/{id}/download/audio", h.DownloadAudio)

	chain := ChainMiddleware(
		RequestIDMiddleware(),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
