package limiter

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed limiter keyed on fingerprint. State lives in
// the shared store so the policy holds across service instances.
type PG struct {
	pool   pgxQuerier
	window time.Duration
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(pool *pgxpool.Pool, window time.Duration) *PG {
	return &PG{pool: pool, window: window}
}

// NewPGWithQuerier constructs a PostgreSQL-backed limiter over any querier.
func NewPGWithQuerier(q pgxQuerier, window time.Duration) *PG {
	return &PG{pool: q, window: window}
}

// Check reports whether the fingerprint has no recorded creation within
// the window, with a retry-after hint when it does.
func (l *PG) Check(ctx context.Context, fingerprint string) (bool, time.Duration, error) {
	const q = `SELECT last_post_at FROM post_limiter WHERE fingerprint=$1`
	var lastPostAt time.Time
	err := l.pool.QueryRow(ctx, q, fingerprint).Scan(&lastPostAt)
	switch err {
	case nil:
		retryAt := lastPostAt.Add(l.window)
		if now := time.Now(); retryAt.After(now) {
			return false, retryAt.Sub(now), nil
		}
		return true, 0, nil
	case pgx.ErrNoRows:
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Record upserts the creation timestamp for the fingerprint.
func (l *PG) Record(ctx context.Context, fingerprint string) error {
	const q = `
INSERT INTO post_limiter (fingerprint, last_post_at)
VALUES ($1, now())
ON CONFLICT (fingerprint)
DO UPDATE SET last_post_at = now()`
	_, err := l.pool.Exec(ctx, q, fingerprint)
	return err
}
