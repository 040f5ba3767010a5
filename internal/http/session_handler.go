package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"setlist/internal/auth"
	"setlist/internal/config"
)

type registrationService interface {
	RegisterUser(ctx context.Context, reg auth.RegistrationPayload, username, displayName string) (*auth.User, auth.UserPublic, error)
}

// SessionHandler serves the session endpoints the SPA calls after sign-in.
type SessionHandler struct {
	service registrationService
	tokens  *auth.TokenIssuer
	issuer  sessionIssuer
	cfg     config.Config
	logger  *slog.Logger
}

// NewSessionHandler returns a handler wired with the token issuer.
func NewSessionHandler(service registrationService, tokens *auth.TokenIssuer, cfg config.Config, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		tokens:  tokens,
		issuer:  sessionIssuer{tokens: tokens, cfg: cfg, logger: logger},
		cfg:     cfg,
		logger:  logger,
	}
}

type sessionResponse struct {
	User       auth.User       `json:"user"`
	UserPublic auth.UserPublic `json:"userPublic"`
	Provider   string          `json:"provider"`
	RedirectTo string          `json:"redirectTo,omitempty"`
}

// Status handles GET /api/auth/session and reports the signed-in user.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	payload := SessionFromContext(r.Context())
	if payload == nil {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		User:       payload.User,
		UserPublic: payload.UserPublic,
		Provider:   payload.OAuthState.Provider,
	})
}

// Register handles POST /api/auth/register
// Completes a first-time sign-in started by the OAuth callback.
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(registerCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "registration session expired")
		return
	}

	reg, err := h.tokens.ParseRegistration(cookie.Value)
	if err != nil {
		h.logger.Warn("register: invalid registration token", "error", err)
		writeError(w, http.StatusUnauthorized, "registration session expired")
		return
	}

	var body struct {
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeJSONBody(w, r, &body); err != nil {
		writeJSONError(w, err)
		return
	}

	user, public, err := h.service.RegisterUser(r.Context(), reg, body.Username, body.DisplayName)
	switch {
	case errors.Is(err, auth.ErrInvalidUsername):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username already taken")
		return
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "an account already exists for this email")
		return
	case err != nil:
		writeServerError(w, r, h.logger, err)
		return
	}

	state := reg.OAuthState
	state.Lang = normalizeLang(state.Lang, h.cfg.DefaultLanguage)
	attrs := cookieAttrsFor(r, h.cfg.IsProduction(), state.RedirectOrigin)

	payload := auth.SessionPayload{
		User:          *user,
		UserPublic:    public,
		OAuthUserData: reg.OAuthUserData,
		OAuthState:    state,
		IP:            clientIP(r),
	}
	if err := h.issuer.writeSession(w, payload, attrs); err != nil {
		writeServerError(w, r, h.logger, err)
		return
	}
	http.SetCookie(w, attrs.clear(registerCookieName, true))

	h.logger.Info("registration completed", "user_id", user.ID, "provider", state.Provider)
	writeJSON(w, http.StatusCreated, sessionResponse{
		User:       *user,
		UserPublic: public,
		Provider:   state.Provider,
		RedirectTo: buildDashboardRedirectURL(state, h.cfg, h.logger),
	})
}

// SignOut handles POST /api/auth/signout and clears the session cookies.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	attrs := cookieAttrsFor(r, h.cfg.IsProduction(), "")
	http.SetCookie(w, attrs.clear(userSessionCookieName, true))
	http.SetCookie(w, attrs.clear(csrfTokenCookieName, false))
	w.WriteHeader(http.StatusNoContent)
}
