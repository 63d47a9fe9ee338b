package server

import (
	"net/http"

	"document-qa/internal/server/middleware"

	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	Handler      *Handler
	MaxBodyBytes int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Sentry)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(cfg.MaxBodyBytes, http.HandlerFunc(cfg.Handler.TooLarge)))

	r.Get("/health", cfg.Handler.Health)

	r.Get("/", cfg.Handler.Index)
	r.Post("/upload", cfg.Handler.Upload)
	r.Post("/ask", cfg.Handler.Ask)
	r.Post("/reset", cfg.Handler.Reset)

	return r
}
