package auth

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"setlist/internal/apperr"
)

// StateTTL bounds how long a user may sit on the provider consent screen.
const StateTTL = 10 * time.Minute

// StateCodec signs and verifies OAuth state tokens (HS256 JWTs).
type StateCodec struct {
	secret      []byte
	defaultLang string
	now         func() time.Time
}

// NewStateCodec returns a codec for secret. An empty secret is accepted here and
// reported as a server error when the codec is used.
func NewStateCodec(secret, defaultLang string) *StateCodec {
	return &StateCodec{
		secret:      []byte(secret),
		defaultLang: defaultLang,
		now:         time.Now,
	}
}

type stateClaims struct {
	OAuthState
	jwt.RegisteredClaims
}

// Sign encodes state into a token that expires after StateTTL.
func (c *StateCodec) Sign(state OAuthState) (string, error) {
	if len(c.secret) == 0 {
		return "", apperr.Server("no state signing secret configured", nil)
	}

	now := c.now()
	claims := stateClaims{
		OAuthState: state,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", apperr.Server("sign oauth state", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry, then decodes the OAuthState.
// Signature or expiry failures are server errors; a verified token whose claims
// do not describe an OAuthState is a validation error.
func (c *StateCodec) Verify(token string) (OAuthState, error) {
	if len(c.secret) == 0 {
		return OAuthState{}, apperr.Server("no state signing secret configured", nil)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return OAuthState{}, apperr.Server("verify oauth state", err)
	}

	state, err := decodeState(claims)
	if err != nil {
		return OAuthState{}, apperr.Validation("decode oauth state", err)
	}

	if state.Lang == "" {
		state.Lang = c.defaultLang
	}
	return state, nil
}

func decodeState(claims jwt.MapClaims) (OAuthState, error) {
	raw, err := json.Marshal(claims)
	if err != nil {
		return OAuthState{}, err
	}

	var state OAuthState
	if err := json.Unmarshal(raw, &state); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return OAuthState{}, errors.New("field " + typeErr.Field + " has the wrong type")
		}
		return OAuthState{}, err
	}

	if err := state.validate(); err != nil {
		return OAuthState{}, err
	}
	return state, nil
}
