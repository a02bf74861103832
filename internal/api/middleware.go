package api

import (
	"log/slog"
	"net/http"
	"time"
)

// CORSMiddleware applies the configured origin allowlist. "*" in the list
// allows every origin.
func CORSMiddleware(allowedOrigins []string, next http.Handler) http.Handler {
	origins := map[string]struct{}{}
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	_, allowAll := origins["*"]

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if _, ok := origins[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin") // keep caches origin-aware
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			} else {
				http.Error(w, "CORS origin denied", http.StatusForbidden)
				return
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware records method, path and latency per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request",
			"method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}
