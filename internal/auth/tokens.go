package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"setlist/internal/apperr"
)

// SessionTTL is the lifetime of session and registration tokens and their cookies.
const SessionTTL = 7 * 24 * time.Hour

const tokenIssuer = "setlist"

// Audiences keep a registration token from being replayed as a session and vice versa.
const (
	sessionAudience      = "session"
	registrationAudience = "register"
)

// SessionPayload is embedded in the session JWT of a signed-in user.
type SessionPayload struct {
	User          User          `json:"user"`
	UserPublic    UserPublic    `json:"userPublic"`
	OAuthUserData OAuthUserData `json:"oauthUserData"`
	OAuthState    OAuthState    `json:"oauthState"`
	IP            string        `json:"ip"`
}

// Validate checks the payload shape before it is signed. jwt also calls it
// while parsing, so a token with a broken payload never verifies.
func (p SessionPayload) Validate() error {
	switch {
	case p.User.ID == uuid.Nil:
		return errors.New("user.id is required")
	case p.User.Email == "":
		return errors.New("user.email is required")
	case p.UserPublic.Username == "":
		return errors.New("userPublic.username is required")
	case p.OAuthUserData.Email == "":
		return errors.New("oauthUserData.email is required")
	case p.OAuthState.Provider == "":
		return errors.New("oauthState.provider is required")
	}
	if _, err := mail.ParseAddress(p.User.Email); err != nil {
		return fmt.Errorf("user.email: %w", err)
	}
	return nil
}

// RegistrationPayload is embedded in the registration JWT of a first-time user.
type RegistrationPayload struct {
	OAuthUserData OAuthUserData `json:"oauthUserData"`
	OAuthState    OAuthState    `json:"oauthState"`
}

type sessionClaims struct {
	SessionPayload
	jwt.RegisteredClaims
}

type registrationClaims struct {
	RegistrationPayload
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses session and registration tokens with JWT_SECRET.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer for secret. An empty secret is reported as
// a server error when a token is signed or parsed.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: SessionTTL, now: time.Now}
}

// SignSession validates payload and signs it as a session token.
func (i *TokenIssuer) SignSession(payload SessionPayload) (string, error) {
	if err := payload.Validate(); err != nil {
		return "", apperr.Validation("session payload", err)
	}
	return i.sign(sessionClaims{
		SessionPayload:   payload,
		RegisteredClaims: i.registered(sessionAudience, payload.User.ID.String()),
	})
}

// SignRegistration signs payload as a registration token.
func (i *TokenIssuer) SignRegistration(payload RegistrationPayload) (string, error) {
	if payload.OAuthUserData.Email == "" {
		return "", apperr.Validation("registration payload", errors.New("oauthUserData.email is required"))
	}
	return i.sign(registrationClaims{
		RegistrationPayload: payload,
		RegisteredClaims:    i.registered(registrationAudience, payload.OAuthUserData.Email),
	})
}

// ParseSession verifies a session token and returns its payload.
func (i *TokenIssuer) ParseSession(token string) (SessionPayload, error) {
	var claims sessionClaims
	if err := i.parse(token, &claims, sessionAudience); err != nil {
		return SessionPayload{}, err
	}
	return claims.SessionPayload, nil
}

// ParseRegistration verifies a registration token and returns its payload.
func (i *TokenIssuer) ParseRegistration(token string) (RegistrationPayload, error) {
	var claims registrationClaims
	if err := i.parse(token, &claims, registrationAudience); err != nil {
		return RegistrationPayload{}, err
	}
	return claims.RegistrationPayload, nil
}

func (i *TokenIssuer) registered(audience, subject string) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		ID:        uuid.NewString(),
	}
}

func (i *TokenIssuer) sign(claims jwt.Claims) (string, error) {
	if len(i.secret) == 0 {
		return "", apperr.Server("JWT_SECRET is not configured", nil)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", apperr.Server("sign token", err)
	}
	return signed, nil
}

func (i *TokenIssuer) parse(token string, claims jwt.Claims, audience string) error {
	if len(i.secret) == 0 {
		return apperr.Server("JWT_SECRET is not configured", nil)
	}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return fmt.Errorf("parse %s token: %w", audience, err)
	}
	return nil
}
