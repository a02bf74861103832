package api

import (
	"net/http"
)

// NewRouter setup routes and apply global middleware
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/extract", h.Extract)
	mux.HandleFunc("/api/progress/", h.Progress)
	mux.HandleFunc("/api/summarize", h.Summarize)
	mux.HandleFunc("/health", h.Health)

	return CORSMiddleware(allowedOrigins, LoggingMiddleware(mux))
}
