package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/citywatch-app/citywatch/internal/errs"
	"github.com/citywatch-app/citywatch/internal/model"
)

// SubscriptionRepo implements SubscriptionRepository using PostgreSQL.
type SubscriptionRepo struct{ db *DB }

// NewSubscriptionRepo constructs a subscription repository.
func NewSubscriptionRepo(db *DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

// Create inserts a subscription.
func (r *SubscriptionRepo) Create(ctx context.Context, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (id, fingerprint, sw_lat, sw_lng, ne_lat, ne_lng, push_endpoint, push_p256dh, push_auth, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Pool.Exec(ctx, q, s.ID, s.Fingerprint,
		s.Box.SouthLat, s.Box.WestLng, s.Box.NorthLat, s.Box.EastLng,
		s.PushEndpoint, s.PushP256DH, s.PushAuth, s.CreatedAt)
	return err
}

const subscriptionColumns = `id, fingerprint, sw_lat, sw_lng, ne_lat, ne_lng, push_endpoint, push_p256dh, push_auth, created_at`

func scanSubscriptions(rows pgx.Rows) ([]model.Subscription, error) {
	defer rows.Close()
	var out []model.Subscription
	for rows.Next() {
		var s model.Subscription
		if err := rows.Scan(&s.ID, &s.Fingerprint,
			&s.Box.SouthLat, &s.Box.WestLng, &s.Box.NorthLat, &s.Box.EastLng,
			&s.PushEndpoint, &s.PushP256DH, &s.PushAuth, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByFingerprint returns the caller's subscriptions newest-first.
func (r *SubscriptionRepo) ListByFingerprint(ctx context.Context, fingerprint string) ([]model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE fingerprint=$1 ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, fingerprint)
	if err != nil {
		return nil, err
	}
	return scanSubscriptions(rows)
}

// Delete removes one subscription, scoped to its owner.
func (r *SubscriptionRepo) Delete(ctx context.Context, id uuid.UUID, fingerprint string) error {
	const q = `DELETE FROM subscriptions WHERE id=$1 AND fingerprint=$2`
	_, err := r.db.Pool.Exec(ctx, q, id, fingerprint)
	return err
}

// DeleteAll removes every subscription for the fingerprint.
func (r *SubscriptionRepo) DeleteAll(ctx context.Context, fingerprint string) error {
	const q = `DELETE FROM subscriptions WHERE fingerprint=$1`
	_, err := r.db.Pool.Exec(ctx, q, fingerprint)
	return err
}

// ListCovering returns subscriptions whose bounding box contains the point.
func (r *SubscriptionRepo) ListCovering(ctx context.Context, loc model.Location) ([]model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE sw_lat <= $1 AND ne_lat >= $1 AND sw_lng <= $2 AND ne_lng >= $2`
	rows, err := r.db.Pool.Query(ctx, q, loc.Lat, loc.Lng)
	if err != nil {
		return nil, err
	}
	return scanSubscriptions(rows)
}

// AdminRepo implements AdminRepository using PostgreSQL.
type AdminRepo struct{ db *DB }

// NewAdminRepo constructs an admin repository.
func NewAdminRepo(db *DB) *AdminRepo { return &AdminRepo{db: db} }

// GetByEmail loads an admin by email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	const q = `SELECT id, email, password_hash, created_at FROM admins WHERE email=$1`
	var a model.Admin
	if err := r.db.Pool.QueryRow(ctx, q, email).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
