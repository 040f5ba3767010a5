package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"setlist/internal/apperr"
	"setlist/internal/auth"
	"setlist/internal/config"
)

// Query parameters of the provider callback.
const (
	callbackCodeParam  = "code"
	callbackStateParam = "state"
)

type signInService interface {
	Provider(name string) (auth.Provider, bool)
	FetchAndPrepareUser(ctx context.Context, params auth.FetchParams) (*auth.PreparedUser, error)
	ResolveUsername(ctx context.Context, user *auth.User) (auth.UserPublic, error)
}

type stateCodec interface {
	Sign(state auth.OAuthState) (string, error)
	Verify(token string) (auth.OAuthState, error)
}

// OAuthHandler starts and completes third-party sign-in.
type OAuthHandler struct {
	service signInService
	limiter auth.RateLimiter
	state   stateCodec
	issuer  sessionIssuer
	cfg     config.Config
	logger  *slog.Logger
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(service signInService, limiter auth.RateLimiter, state stateCodec, tokens *auth.TokenIssuer, cfg config.Config, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		service: service,
		limiter: limiter,
		state:   state,
		issuer:  sessionIssuer{tokens: tokens, cfg: cfg, logger: logger},
		cfg:     cfg,
		logger:  logger,
	}
}

// SignIn handles GET /api/auth/{provider}/signin
// Sets the OAuth CSRF cookie and redirects to the provider's consent screen.
func (h *OAuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if err := h.signIn(w, r); err != nil {
		writeServerError(w, r, h.logger, err)
	}
}

func (h *OAuthHandler) signIn(w http.ResponseWriter, r *http.Request) error {
	allowed, err := h.allow(r, auth.BucketOAuthSignIn)
	if err != nil {
		return err
	}
	query := r.URL.Query()
	lang := normalizeLang(query.Get("lang"), h.cfg.DefaultLanguage)
	if !allowed {
		h.logger.Warn("oauth signin: rate limited", "ip", clientIP(r))
		h.redirect(w, r, signInErrorURL(lang, signInErrorRateLimit))
		return nil
	}

	providerName := chi.URLParam(r, "provider")
	provider, ok := h.service.Provider(providerName)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown provider")
		return nil
	}

	csrf, err := auth.GenerateToken()
	if err != nil {
		return err
	}

	state := auth.OAuthState{CSRF: csrf, Lang: lang, Provider: provider.Name()}
	if origin, ok := parseOrigin(query.Get("redirect_origin")); ok {
		state.RedirectOrigin = origin.Scheme + "://" + origin.Host
	}
	if port := query.Get("redirect_port"); isValidPort(port) {
		state.RedirectPort = port
	}

	stateToken, err := h.state.Sign(state)
	if err != nil {
		return err
	}

	attrs := cookieAttrsFor(r, h.cfg.IsProduction(), state.RedirectOrigin)
	http.SetCookie(w, attrs.cookie(oauthCsrfCookieName, csrf, oauthCsrfCookieTTL, true))

	redirectURI := ComputeStateRedirectURI(state.RedirectOrigin, state.RedirectPort, redirectConfigFrom(h.cfg))
	h.redirect(w, r, provider.AuthURL(stateToken, redirectURI))
	return nil
}

// Callback handles GET {OAUTH_REDIRECT_PATH}
// Completes the authorization-code exchange and either starts registration or
// issues a session. Expected outcomes are 303 redirects; typed failures become
// a generic 500.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if err := h.callback(w, r); err != nil {
		writeServerError(w, r, h.logger, err)
	}
}

func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) error {
	allowed, err := h.allow(r, auth.BucketOAuthCallback)
	if err != nil {
		return err
	}
	if !allowed {
		h.logger.Warn("oauth callback: rate limited", "ip", clientIP(r))
		h.redirect(w, r, signInErrorURL(h.cfg.DefaultLanguage, signInErrorRateLimit))
		return nil
	}

	code, stateToken, ok := callbackParams(r.URL.Query())
	if !ok {
		h.logger.Warn("oauth callback: missing code or state")
		h.redirect(w, r, signInErrorURL(h.cfg.DefaultLanguage, signInErrorMissingData))
		return nil
	}

	state, err := h.state.Verify(stateToken)
	if err != nil {
		return err
	}
	state.Lang = normalizeLang(state.Lang, h.cfg.DefaultLanguage)

	attrs := cookieAttrsFor(r, h.cfg.IsProduction(), state.RedirectOrigin)

	if !csrfCookieMatches(r, state.CSRF) {
		h.logger.Warn("oauth callback: csrf check failed", "provider", state.Provider)
		h.redirect(w, r, signInErrorURL(state.Lang, signInErrorSecurityFailed))
		return nil
	}
	http.SetCookie(w, attrs.clear(oauthCsrfCookieName, true))

	redirectURI := ComputeStateRedirectURI(state.RedirectOrigin, state.RedirectPort, redirectConfigFrom(h.cfg))
	prepared, err := h.service.FetchAndPrepareUser(r.Context(), auth.FetchParams{
		Code:        code,
		Provider:    state.Provider,
		RedirectURI: redirectURI,
	})
	if errors.Is(err, auth.ErrEmailNotVerified) {
		h.logger.Warn("sign-in refused: provider email not verified", "provider", state.Provider)
		http.Redirect(w, r, signInErrorURL(state.Lang, signInErrorEmailUnverified), http.StatusSeeOther)
		return nil
	}
	if err != nil {
		return err
	}

	existing := prepared.ExistingUser
	switch {
	case existing == nil:
		return h.startRegistration(w, r, state, prepared.OAuthUserData, attrs)
	case !existing.HasLinkedProvider(state.Provider):
		if len(existing.LinkedProviders) == 0 {
			h.logger.Warn("oauth callback: account has no linked providers", "user_id", existing.ID)
		}
		h.logger.Info("oauth callback: provider mismatch", "user_id", existing.ID, "provider", state.Provider)
		h.redirect(w, r, signInErrorURL(state.Lang, signInErrorProviderMismatch, "provider", state.Provider))
		return nil
	default:
		return h.startSession(w, r, state, prepared.OAuthUserData, existing, attrs)
	}
}

func (h *OAuthHandler) startRegistration(w http.ResponseWriter, r *http.Request, state auth.OAuthState, data auth.OAuthUserData, attrs CookieAttrs) error {
	payload := auth.RegistrationPayload{OAuthUserData: data, OAuthState: state}
	if err := h.issuer.writeRegistration(w, payload, attrs); err != nil {
		return err
	}

	h.logger.Info("oauth callback: registration started", "provider", state.Provider)
	h.redirect(w, r, localizedPath(state.Lang, h.cfg.RegisterPath))
	return nil
}

func (h *OAuthHandler) startSession(w http.ResponseWriter, r *http.Request, state auth.OAuthState, data auth.OAuthUserData, user *auth.User, attrs CookieAttrs) error {
	public, err := h.service.ResolveUsername(r.Context(), user)
	if err != nil {
		return err
	}

	payload := auth.SessionPayload{
		User:          *user,
		UserPublic:    public,
		OAuthUserData: data,
		OAuthState:    state,
		IP:            clientIP(r),
	}
	if err := h.issuer.writeSession(w, payload, attrs); err != nil {
		return err
	}

	h.logger.Info("oauth login successful", "user_id", user.ID, "provider", state.Provider)
	h.redirect(w, r, buildDashboardRedirectURL(state, h.cfg, h.logger))
	return nil
}

// allow consults the rate limiter; limiter failures are database errors.
func (h *OAuthHandler) allow(r *http.Request, bucket string) (bool, error) {
	allowed, err := h.limiter.Allow(r.Context(), clientIP(r), bucket)
	if err != nil {
		return false, apperr.Database("rate limit check", err)
	}
	return allowed, nil
}

func (h *OAuthHandler) redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func callbackParams(values url.Values) (code, state string, ok bool) {
	code = values.Get(callbackCodeParam)
	state = values.Get(callbackStateParam)
	return code, state, code != "" && state != ""
}

// csrfCookieMatches compares the OAuth CSRF cookie with the value carried in state.
// A missing cookie and a mismatch are indistinguishable to the caller.
func csrfCookieMatches(r *http.Request, expected string) bool {
	cookie, err := r.Cookie(oauthCsrfCookieName)
	if err != nil || cookie.Value == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(expected)) == 1
}

// clientIP returns the caller address without port. chi's RealIP middleware
// has already applied X-Forwarded-For / X-Real-IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
