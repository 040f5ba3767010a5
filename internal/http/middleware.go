package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"setlist/internal/auth"
)

const csrfHeaderName = "X-CSRF-Token"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func newSlogMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}

type contextKey string

const sessionContextKey contextKey = "session"

// SessionFromContext returns the verified session payload, or nil when the
// session middleware did not run or found no valid session.
func SessionFromContext(ctx context.Context) *auth.SessionPayload {
	payload, _ := ctx.Value(sessionContextKey).(*auth.SessionPayload)
	return payload
}

// newSessionMiddleware verifies the session cookie and injects its payload.
func newSessionMiddleware(tokens *auth.TokenIssuer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(userSessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			payload, err := tokens.ParseSession(cookie.Value)
			if err != nil {
				logger.Debug("session rejected", "error", err)
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, &payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// newCSRFMiddleware enforces the double-submit check on unsafe methods: the
// X-CSRF-Token header must equal the csrf_token cookie.
func newCSRFMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get(csrfHeaderName)
			cookie, err := r.Cookie(csrfTokenCookieName)
			if err != nil || cookie.Value == "" || header == "" ||
				subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
				logger.Warn("csrf check failed", "method", r.Method, "path", r.URL.Path)
				writeError(w, http.StatusForbidden, "invalid csrf token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "authentication required")
}

func newSecurityHeadersMiddleware(isProd bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")

			if isProd {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
