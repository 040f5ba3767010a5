package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"setlist/internal/apperr"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

// Service provides sign-in business logic on top of the providers and repository.
type Service struct {
	repo      Repository
	providers map[string]Provider
	logger    *slog.Logger
}

// NewService creates a new auth Service.
func NewService(repo Repository, providers []Provider, logger *slog.Logger) *Service {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, providers: byName, logger: logger}
}

// Provider returns the configured provider with the given name.
func (s *Service) Provider(name string) (Provider, bool) {
	p, ok := s.providers[name]
	return p, ok
}

// FetchParams are the inputs of FetchAndPrepareUser.
type FetchParams struct {
	Code        string
	Provider    string
	RedirectURI string
}

// PreparedUser is the provider profile plus the local account it maps to, if any.
type PreparedUser struct {
	OAuthUserData OAuthUserData
	ExistingUser  *User
}

// FetchAndPrepareUser exchanges the authorization code, fetches the provider
// profile and looks up a local account by email. Provider failures are
// validation errors and lookup failures are database errors. No retries.
// An address the provider has not verified never reaches the lookup.
func (s *Service) FetchAndPrepareUser(ctx context.Context, params FetchParams) (*PreparedUser, error) {
	provider, ok := s.providers[params.Provider]
	if !ok {
		return nil, apperr.Validation("unknown provider "+params.Provider, nil)
	}

	token, err := provider.Exchange(ctx, params.Code, params.RedirectURI)
	if err != nil {
		return nil, apperr.Validation("exchange authorization code", err)
	}

	data, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, apperr.Validation("fetch provider user info", err)
	}
	if data == nil || strings.TrimSpace(data.Email) == "" {
		return nil, apperr.Validation("provider user info has no email", nil)
	}
	data.Email = strings.TrimSpace(data.Email)
	if !data.EmailVerified {
		return nil, apperr.Validation("fetch provider user info", ErrEmailNotVerified)
	}

	existing, err := s.repo.FindUserByEmail(ctx, data.Email)
	if err != nil {
		return nil, apperr.Database("find user by email", err)
	}

	return &PreparedUser{OAuthUserData: *data, ExistingUser: existing}, nil
}

// ResolveUsername returns the user's public profile, falling back to the
// denormalized account name when no profile row exists.
func (s *Service) ResolveUsername(ctx context.Context, user *User) (UserPublic, error) {
	public, err := s.repo.FindUserPublic(ctx, user.ID)
	if err != nil {
		return UserPublic{}, apperr.Database("find public profile", err)
	}
	if public != nil && public.Username != "" {
		return *public, nil
	}

	s.logger.Warn("public profile missing; using account name", "user_id", user.ID)
	return UserPublic{
		UserID:      user.ID,
		Username:    user.Name,
		DisplayName: user.Name,
		AvatarURL:   user.AvatarURL,
	}, nil
}

// RegisterUser creates an account for a first-time sign-in and links the
// provider that authenticated it.
func (s *Service) RegisterUser(ctx context.Context, reg RegistrationPayload, username, displayName string) (*User, UserPublic, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(username) {
		return nil, UserPublic{}, fmt.Errorf("%w: use 3-30 lowercase letters, digits or underscores", ErrInvalidUsername)
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = reg.OAuthUserData.Name
	}

	now := time.Now().UTC()
	user := User{
		ID:              uuid.New(),
		Email:           reg.OAuthUserData.Email,
		Name:            reg.OAuthUserData.Name,
		AvatarURL:       reg.OAuthUserData.Picture,
		LinkedProviders: []string{reg.OAuthState.Provider},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	public := UserPublic{
		UserID:      user.ID,
		Username:    username,
		DisplayName: displayName,
		AvatarURL:   reg.OAuthUserData.Picture,
	}

	created, err := s.repo.CreateUser(ctx, user, public)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken) {
			return nil, UserPublic{}, err
		}
		return nil, UserPublic{}, apperr.Database("create user", err)
	}
	return &created, public, nil
}
