package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"setlist/internal/auth"
)

// seedLocalAccounts creates demo accounts for local development, so the
// returning-user and provider-mismatch branches can be exercised without a database.
func seedLocalAccounts(ctx context.Context, repo *auth.InMemoryRepository, logger *slog.Logger) {
	now := time.Now().UTC()

	accounts := []struct {
		user   auth.User
		public auth.UserPublic
	}{
		{
			user: auth.User{
				Email:           "demo@setlist.local",
				Name:            "Demo Listener",
				LinkedProviders: []string{"google"},
			},
			public: auth.UserPublic{Username: "demo", DisplayName: "Demo Listener"},
		},
		{
			user: auth.User{
				Email:           "curator@setlist.local",
				Name:            "Playlist Curator",
				LinkedProviders: []string{"microsoft", "github"},
			},
			public: auth.UserPublic{Username: "curator", DisplayName: "Playlist Curator"},
		},
	}

	for _, a := range accounts {
		a.user.ID = uuid.New()
		a.user.CreatedAt = now
		a.user.UpdatedAt = now
		if _, err := repo.CreateUser(ctx, a.user, a.public); err != nil {
			logger.Warn("seed account skipped", "email", a.user.Email, "error", err)
		}
	}
}
