package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"setlist/internal/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCSRFMiddleware(t *testing.T) {
	cases := []struct {
		name   string
		method string
		header string
		cookie string
		status int
	}{
		{name: "safe method skips check", method: http.MethodGet, status: http.StatusOK},
		{name: "missing header", method: http.MethodPost, cookie: "token", status: http.StatusForbidden},
		{name: "missing cookie", method: http.MethodPost, header: "token", status: http.StatusForbidden},
		{name: "mismatch", method: http.MethodPost, header: "token", cookie: "other", status: http.StatusForbidden},
		{name: "match", method: http.MethodPost, header: "token", cookie: "token", status: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/auth/signout", nil)
			if tc.header != "" {
				req.Header.Set(csrfHeaderName, tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfTokenCookieName, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()

			newCSRFMiddleware(discardLogger())(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestSessionMiddlewareRejectsMissingCookie(t *testing.T) {
	handler := newSessionMiddleware(auth.NewTokenIssuer(testJWTSecret), discardLogger())(okHandler())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionMiddlewareRejectsForeignSignature(t *testing.T) {
	handler := newSessionMiddleware(auth.NewTokenIssuer("other-secret"), discardLogger())(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(sessionCookie(t, testUser("google")))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionMiddlewareInjectsPayload(t *testing.T) {
	user := testUser("google")
	var got *auth.SessionPayload
	handler := newSessionMiddleware(auth.NewTokenIssuer(testJWTSecret), discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(sessionCookie(t, user))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, got) {
		assert.Equal(t, user.ID, got.User.ID)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	rec := httptest.NewRecorder()
	newSecurityHeadersMiddleware(false)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	newSecurityHeadersMiddleware(true)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
