package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUsernameTaken is returned when a registration collides with an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken is returned when a registration collides with an existing account email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidUsername is returned when a username fails format checks.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrEmailNotVerified is returned when the provider does not vouch for the profile email.
	ErrEmailNotVerified = errors.New("provider email not verified")
)

// User is the account record owned by the persistence layer.
type User struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	LinkedProviders []string  `json:"linked_providers"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasLinkedProvider reports whether provider is among the account's linked providers.
// A nil slice never matches.
func (u *User) HasLinkedProvider(provider string) bool {
	for _, p := range u.LinkedProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// UserPublic is the publicly visible profile stored alongside a User.
type UserPublic struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
}

// OAuthUserData is the provider profile normalized across providers.
type OAuthUserData struct {
	Provider      string `json:"provider"`
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
}

// OAuthState is round-tripped through the identity provider inside a signed token.
type OAuthState struct {
	CSRF           string `json:"csrf"`
	Lang           string `json:"lang,omitempty"`
	Provider       string `json:"provider"`
	RedirectOrigin string `json:"redirect_origin,omitempty"`
	RedirectPort   string `json:"redirect_port,omitempty"`
}

func (s OAuthState) validate() error {
	if s.CSRF == "" {
		return errors.New("csrf is required")
	}
	if s.Provider == "" {
		return errors.New("provider is required")
	}
	return nil
}
