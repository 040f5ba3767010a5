package http

import (
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"setlist/internal/auth"
	"setlist/internal/config"
)

// DefaultCallbackPath is used when OAUTH_REDIRECT_PATH is not configured.
const DefaultCallbackPath = "/api/auth/callback"

const (
	dashboardPath     = "dashboard"
	signInErrorParam  = "signinError"
	justSignedInParam = "justSignedIn"
)

// Sign-in error tokens understood by the SPA.
const (
	signInErrorRateLimit        = "rateLimit"
	signInErrorMissingData      = "missingData"
	signInErrorSecurityFailed   = "securityFailed"
	signInErrorProviderMismatch = "providerMismatch"
	signInErrorEmailUnverified  = "emailUnverified"
)

var langPattern = regexp.MustCompile(`^[a-z]{2}(-[A-Za-z]{2,4})?$`)

// RedirectConfig is the configuration the redirect URI depends on.
type RedirectConfig struct {
	Origin string
	Path   string
}

func redirectConfigFrom(cfg config.Config) RedirectConfig {
	return RedirectConfig{Origin: cfg.OAuthRedirectOrigin, Path: cfg.OAuthRedirectPath}
}

// ComputeStateRedirectURI rebuilds the redirect_uri presented to the provider.
// The configured origin wins; otherwise the origin comes from OAuth state so a
// local dev server on any port round-trips correctly.
func ComputeStateRedirectURI(redirectOrigin, redirectPort string, cfg RedirectConfig) string {
	path := cfg.Path
	if path == "" {
		path = DefaultCallbackPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if origin := strings.TrimRight(cfg.Origin, "/"); origin != "" {
		return origin + path
	}
	return stateOrigin(redirectOrigin, redirectPort) + path
}

// stateOrigin derives scheme://host[:port] from state hints, defaulting to http://localhost.
func stateOrigin(redirectOrigin, redirectPort string) string {
	if !isValidPort(redirectPort) {
		redirectPort = ""
	}

	if origin, ok := parseOrigin(redirectOrigin); ok {
		if redirectPort == "" {
			return origin.Scheme + "://" + origin.Host
		}
		return origin.Scheme + "://" + net.JoinHostPort(origin.Hostname(), redirectPort)
	}

	if redirectPort != "" {
		return "http://localhost:" + redirectPort
	}
	return "http://localhost"
}

// parseOrigin accepts only http(s) URLs with a host and nothing but an optional "/" path.
func parseOrigin(raw string) (*url.URL, bool) {
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.User != nil {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	if u.Path != "" && u.Path != "/" {
		return nil, false
	}
	return u, true
}

func isValidPort(port string) bool {
	if port == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n > 0 && n <= 65535 && strconv.Itoa(n) == port
}

// normalizeLang returns lang when it looks like a locale tag, else fallback.
func normalizeLang(lang, fallback string) string {
	if langPattern.MatchString(lang) {
		return lang
	}
	return fallback
}

func localizedPath(lang, path string) string {
	return "/" + lang + "/" + path
}

func signInErrorURL(lang, token string, extra ...string) string {
	target := localizedPath(lang, "") + "?" + signInErrorParam + "=" + url.QueryEscape(token)
	for i := 0; i+1 < len(extra); i += 2 {
		target += "&" + url.QueryEscape(extra[i]) + "=" + url.QueryEscape(extra[i+1])
	}
	return target
}

// buildDashboardRedirectURL returns where a freshly signed-in user lands. An
// absolute URL is only produced for a redirect_port whose origin is allowed.
func buildDashboardRedirectURL(state auth.OAuthState, cfg config.Config, logger *slog.Logger) string {
	local := localizedPath(state.Lang, dashboardPath) + "?" + justSignedInParam + "=1"
	if !isValidPort(state.RedirectPort) {
		return local
	}

	origin := stateOrigin(state.RedirectOrigin, state.RedirectPort)
	if len(cfg.AllowedOrigins) == 0 {
		if cfg.IsProduction() {
			return local
		}
		logger.Warn("oauth callback: redirect origin accepted without ALLOWED_ORIGINS", "origin", origin)
		return origin + local
	}

	if slices.Contains(cfg.AllowedOrigins, origin) {
		return origin + local
	}
	logger.Warn("oauth callback: redirect origin not allowed", "origin", origin)
	return local
}
