package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sethvargo/go-retry"
)

const (
	connectAttempts    = 5
	connectBaseBackoff = 250 * time.Millisecond
	connectMaxBackoff  = 5 * time.Second
)

// NewPostgres connects to url, retrying with exponential backoff while the
// database is still starting, and sizes the pool for short auth queries.
func NewPostgres(ctx context.Context, url string, logger *slog.Logger) (*sqlx.DB, error) {
	backoff := retry.WithMaxRetries(connectAttempts-1,
		retry.WithCappedDuration(connectMaxBackoff, retry.NewExponential(connectBaseBackoff)))

	attempt := 0
	db, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (*sqlx.DB, error) {
		attempt++
		db, err := sqlx.ConnectContext(ctx, "postgres", url)
		if err != nil {
			logger.Warn("postgres not ready", "attempt", attempt, "error", err)
			return nil, retry.RetryableError(err)
		}
		return db, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres after %d attempts: %w", attempt, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
