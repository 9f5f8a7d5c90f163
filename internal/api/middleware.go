package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/henrilopes1/log-analyzer/internal/config"
)

// WithMiddleware wraps the handler with recovery, logging, metrics, and
// optional API key authentication. Middleware is applied in reverse order;
// the last applied runs first.
func WithMiddleware(handler http.Handler, cfg *config.Config, metrics *Metrics, logger *slog.Logger) http.Handler {
	h := handler

	h = recoveryMiddleware(h, logger)
	h = loggingMiddleware(h, metrics, logger)

	if cfg.Auth.Enabled {
		h = authMiddleware(h, cfg.Auth)
	}

	return h
}

// loggingMiddleware logs requests and records the HTTP request counter.
func loggingMiddleware(next http.Handler, metrics *Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		if metrics != nil {
			metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(wrapped.statusCode)).Inc()
		}

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", duration.Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// authMiddleware checks for a valid API key. Health and metrics endpoints
// stay open for probes and scrapers.
func authMiddleware(next http.Handler, authCfg config.AuthConfig) http.Handler {
	validKeys := make(map[string]bool, len(authCfg.APIKeys))
	for _, key := range authCfg.APIKeys {
		validKeys[key] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get(authCfg.APIKeyHeader)
		if apiKey == "" {
			http.Error(w, `{"success":false,"error":"missing API key"}`, http.StatusUnauthorized)
			return
		}
		if !validKeys[apiKey] {
			http.Error(w, `{"success":false,"error":"invalid API key"}`, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers from panics.
func recoveryMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, `{"success":false,"error":"internal server error"}`, http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
