package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"
)

// Rate-limit buckets used by the sign-in endpoints.
const (
	BucketOAuthCallback = "oauth_callback"
	BucketOAuthSignIn   = "oauth_signin"
)

// RateLimiter decides whether a caller (usually an IP) may proceed in a bucket.
// An error means the decision could not be made.
type RateLimiter interface {
	Allow(ctx context.Context, key, bucket string) (bool, error)
}

// MemoryRateLimiter is a per-process token bucket for each key and bucket.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	entries  map[string]*limiterEntry
	lastScan time.Time
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryRateLimiter allows requests per window, refilling evenly across the window.
// Windows shorter than requests nanoseconds still yield a finite refill rate.
func NewMemoryRateLimiter(requests int, window time.Duration) *MemoryRateLimiter {
	if requests < 1 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &MemoryRateLimiter{
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   requests,
		idleTTL: 2 * window,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

// Allow implements RateLimiter. It never returns an error.
func (l *MemoryRateLimiter) Allow(_ context.Context, key, bucket string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)

	id := bucket + "|" + key
	entry, ok := l.entries[id]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[id] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1), nil
}

// evictIdle drops entries not seen for idleTTL. At most one scan runs per idleTTL.
func (l *MemoryRateLimiter) evictIdle(now time.Time) {
	if now.Sub(l.lastScan) < l.idleTTL {
		return
	}
	l.lastScan = now
	for id, entry := range l.entries {
		if now.Sub(entry.lastSeen) >= l.idleTTL {
			delete(l.entries, id)
		}
	}
}

// PostgresRateLimiter counts hits per fixed window in the rate_limits table so
// limits hold across instances.
type PostgresRateLimiter struct {
	db       *sqlx.DB
	requests int
	window   time.Duration
	now      func() time.Time
}

// NewPostgresRateLimiter allows requests per window for each key and bucket.
func NewPostgresRateLimiter(db *sqlx.DB, requests int, window time.Duration) *PostgresRateLimiter {
	return &PostgresRateLimiter{db: db, requests: requests, window: window, now: time.Now}
}

// Allow implements RateLimiter.
func (l *PostgresRateLimiter) Allow(ctx context.Context, key, bucket string) (bool, error) {
	const query = `
		INSERT INTO rate_limits (bucket, key, window_start, hits)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (bucket, key, window_start)
		DO UPDATE SET hits = rate_limits.hits + 1
		RETURNING hits
	`

	windowStart := l.now().UTC().Truncate(l.window)
	var hits int
	if err := l.db.QueryRowxContext(ctx, query, bucket, key, windowStart).Scan(&hits); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", bucket, err)
	}
	return hits <= l.requests, nil
}

// Cleanup removes windows that can no longer affect a decision.
func (l *PostgresRateLimiter) Cleanup(ctx context.Context) (int64, error) {
	const query = `DELETE FROM rate_limits WHERE window_start < $1`
	result, err := l.db.ExecContext(ctx, query, l.now().UTC().Add(-l.window).Truncate(l.window))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
