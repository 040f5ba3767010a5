package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindUserByEmail looks up a user by their email address, case-insensitively.
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	const query = `
		SELECT id, email, name, avatar_url, linked_providers, created_at, updated_at
		FROM users
		WHERE lower(email) = lower($1)
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toUser(), nil
}

// FindUserPublic returns the public profile for a user.
func (r *PostgresRepository) FindUserPublic(ctx context.Context, userID uuid.UUID) (*UserPublic, error) {
	const query = `
		SELECT user_id, username, display_name, avatar_url
		FROM user_public
		WHERE user_id = $1
	`

	var row userPublicRow
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &UserPublic{
		UserID:      row.UserID,
		Username:    row.Username,
		DisplayName: row.DisplayName,
		AvatarURL:   row.AvatarURL,
	}, nil
}

// CreateUser inserts the user and its public profile in one transaction.
func (r *PostgresRepository) CreateUser(ctx context.Context, user User, public UserPublic) (User, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return User{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertUser = `
		INSERT INTO users (id, email, name, avatar_url, linked_providers, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $6)
	`
	if _, err := tx.ExecContext(ctx, insertUser,
		user.ID,
		user.Email,
		user.Name,
		user.AvatarURL,
		pq.StringArray(user.LinkedProviders),
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		return User{}, mapUniqueViolation(err)
	}

	const insertPublic = `
		INSERT INTO user_public (user_id, username, display_name, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, insertPublic,
		user.ID,
		public.Username,
		public.DisplayName,
		public.AvatarURL,
		user.CreatedAt,
	); err != nil {
		return User{}, mapUniqueViolation(err)
	}

	if err := tx.Commit(); err != nil {
		return User{}, fmt.Errorf("commit: %w", err)
	}
	return user, nil
}

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return err
	}
	switch {
	case strings.Contains(pqErr.Constraint, "username"):
		return ErrUsernameTaken
	case strings.Contains(pqErr.Constraint, "email"):
		return ErrEmailTaken
	default:
		return err
	}
}

type userRow struct {
	ID              uuid.UUID      `db:"id"`
	Email           string         `db:"email"`
	Name            string         `db:"name"`
	AvatarURL       string         `db:"avatar_url"`
	LinkedProviders pq.StringArray `db:"linked_providers"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r *userRow) toUser() *User {
	var linked []string
	if r.LinkedProviders != nil {
		linked = []string(r.LinkedProviders)
	}
	return &User{
		ID:              r.ID,
		Email:           r.Email,
		Name:            r.Name,
		AvatarURL:       r.AvatarURL,
		LinkedProviders: linked,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type userPublicRow struct {
	UserID      uuid.UUID `db:"user_id"`
	Username    string    `db:"username"`
	DisplayName string    `db:"display_name"`
	AvatarURL   string    `db:"avatar_url"`
}
