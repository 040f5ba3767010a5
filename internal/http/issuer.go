package http

import (
	"log/slog"
	"net/http"

	"setlist/internal/auth"
	"setlist/internal/config"
)

// sessionIssuer signs auth tokens and writes them as cookies.
// Shared by the OAuth callback and registration completion.
type sessionIssuer struct {
	tokens *auth.TokenIssuer
	cfg    config.Config
	logger *slog.Logger
}

// writeRegistration sets the registration cookie for a first-time user.
func (s sessionIssuer) writeRegistration(w http.ResponseWriter, payload auth.RegistrationPayload, attrs CookieAttrs) error {
	token, err := s.tokens.SignRegistration(payload)
	if err != nil {
		return err
	}

	// Client-debug leaves the cookie readable by the SPA for local inspection.
	// Config loading refuses it in production.
	httpOnly := !s.cfg.RegisterCookieClientDebug
	if !httpOnly {
		s.logger.Warn("register cookie written without HttpOnly (REGISTER_COOKIE_CLIENT_DEBUG)")
	}
	http.SetCookie(w, attrs.cookie(registerCookieName, token, auth.SessionTTL, httpOnly))
	return nil
}

// writeSession sets the session cookie and a fresh double-submit CSRF cookie.
func (s sessionIssuer) writeSession(w http.ResponseWriter, payload auth.SessionPayload, attrs CookieAttrs) error {
	token, err := s.tokens.SignSession(payload)
	if err != nil {
		return err
	}

	csrfToken, err := auth.GenerateToken()
	if err != nil {
		return err
	}

	http.SetCookie(w, attrs.cookie(userSessionCookieName, token, auth.SessionTTL, true))
	http.SetCookie(w, attrs.cookie(csrfTokenCookieName, csrfToken, auth.SessionTTL, false))
	return nil
}
