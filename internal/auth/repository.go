package auth

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for account persistence.
type Repository interface {
	// FindUserByEmail returns nil, nil when no account uses email.
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	// FindUserPublic returns nil, nil when the user has no public profile yet.
	FindUserPublic(ctx context.Context, userID uuid.UUID) (*UserPublic, error)
	// CreateUser stores the account and its public profile together.
	CreateUser(ctx context.Context, user User, public UserPublic) (User, error)
}
