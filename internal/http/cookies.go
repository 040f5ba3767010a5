package http

import (
	"net/http"
	"strings"
	"time"

	"setlist/internal/auth"
)

// Cookie names shared with the SPA.
const (
	oauthCsrfCookieName   = "oauth_csrf"
	registerCookieName    = "register_jwt"
	userSessionCookieName = "session_jwt"
	csrfTokenCookieName   = "csrf_token"
)

const oauthCsrfCookieTTL = auth.StateTTL

// CookieAttrs are the request-dependent attributes applied to auth cookies.
type CookieAttrs struct {
	// Domain is always empty: cookies are host-only.
	Domain   string
	SameSite http.SameSite
	Secure   bool
}

// ComputeCookieAttrs derives cookie attributes from the environment and the
// transport signals of the request. It is a pure function.
func ComputeCookieAttrs(isProd bool, redirectOrigin, requestScheme, forwardedProto string) CookieAttrs {
	secure := isProd ||
		strings.HasPrefix(redirectOrigin, "https://") ||
		strings.EqualFold(requestScheme, "https") ||
		strings.HasPrefix(strings.ToLower(forwardedProto), "https")

	sameSite := http.SameSiteLaxMode
	switch {
	case !isProd && strings.Contains(redirectOrigin, "localhost"):
		// The dev proxy serves the SPA from another origin.
		sameSite = http.SameSiteNoneMode
	case secure:
		sameSite = http.SameSiteNoneMode
	}

	return CookieAttrs{SameSite: sameSite, Secure: secure}
}

// DomainAttr returns the Domain fragment of a Set-Cookie header.
func (a CookieAttrs) DomainAttr() string {
	if a.Domain == "" {
		return ""
	}
	return "Domain=" + a.Domain + ";"
}

// SameSiteAttr returns the SameSite fragment of a Set-Cookie header.
func (a CookieAttrs) SameSiteAttr() string {
	switch a.SameSite {
	case http.SameSiteNoneMode:
		return "SameSite=None;"
	case http.SameSiteStrictMode:
		return "SameSite=Strict;"
	case http.SameSiteLaxMode:
		return "SameSite=Lax;"
	default:
		return ""
	}
}

// SecureString returns the Secure fragment of a Set-Cookie header.
func (a CookieAttrs) SecureString() string {
	if a.Secure {
		return "Secure;"
	}
	return ""
}

// cookie builds a Path=/ cookie carrying attrs.
func (a CookieAttrs) cookie(name, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   a.Domain,
		HttpOnly: httpOnly,
		SameSite: a.SameSite,
		Secure:   a.Secure,
		MaxAge:   int(ttl.Seconds()),
	}
}

func (a CookieAttrs) clear(name string, httpOnly bool) *http.Cookie {
	c := a.cookie(name, "", 0, httpOnly)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

// requestScheme reports the scheme the request arrived on at this hop.
func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if r.URL != nil && r.URL.Scheme != "" {
		return r.URL.Scheme
	}
	return "http"
}

// cookieAttrsFor computes attrs for r given the redirect origin carried in OAuth state.
func cookieAttrsFor(r *http.Request, isProd bool, redirectOrigin string) CookieAttrs {
	return ComputeCookieAttrs(isProd, redirectOrigin, requestScheme(r), r.Header.Get("X-Forwarded-Proto"))
}
