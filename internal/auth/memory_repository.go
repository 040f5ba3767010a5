package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InMemoryRepository stores accounts in process memory, for local development or tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]User
	publics map[uuid.UUID]UserPublic
}

// NewInMemoryRepository constructs a repository seeded with optional accounts.
func NewInMemoryRepository(initial ...User) *InMemoryRepository {
	repo := &InMemoryRepository{
		users:   make(map[uuid.UUID]User),
		publics: make(map[uuid.UUID]UserPublic),
	}
	for _, u := range initial {
		repo.users[u.ID] = u
	}
	return repo
}

// FindUserByEmail returns the account with a matching email, ignoring case.
func (r *InMemoryRepository) FindUserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			found.LinkedProviders = append([]string(nil), u.LinkedProviders...)
			return &found, nil
		}
	}
	return nil, nil
}

// FindUserPublic returns the public profile for userID.
func (r *InMemoryRepository) FindUserPublic(_ context.Context, userID uuid.UUID) (*UserPublic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	public, ok := r.publics[userID]
	if !ok {
		return nil, nil
	}
	return &public, nil
}

// CreateUser stores a new account and its public profile.
func (r *InMemoryRepository) CreateUser(_ context.Context, user User, public UserPublic) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return User{}, ErrEmailTaken
		}
	}
	for _, p := range r.publics {
		if strings.EqualFold(p.Username, public.Username) {
			return User{}, ErrUsernameTaken
		}
	}

	public.UserID = user.ID
	r.users[user.ID] = user
	r.publics[user.ID] = public
	return user, nil
}
