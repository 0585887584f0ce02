package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/citywatch-app/citywatch/internal/errs"
	"github.com/citywatch-app/citywatch/internal/model"
)

// InteractionRepo implements InteractionRepository using PostgreSQL.
// Upserts and deletes are single statements, so the store's row
// atomicity is the concurrency contract.
type InteractionRepo struct{ db *DB }

// NewInteractionRepo constructs an interaction repository.
func NewInteractionRepo(db *DB) *InteractionRepo { return &InteractionRepo{db: db} }

// SetVote upserts the caller's vote value for the post.
func (r *InteractionRepo) SetVote(ctx context.Context, postID uuid.UUID, fingerprint string, value int) error {
	const q = `
INSERT INTO votes (post_id, fingerprint, value)
VALUES ($1, $2, $3)
ON CONFLICT (post_id, fingerprint)
DO UPDATE SET value = EXCLUDED.value`
	_, err := r.db.Pool.Exec(ctx, q, postID, fingerprint, value)
	return err
}

// ClearVote deletes the caller's vote; deleting an absent row is a no-op.
func (r *InteractionRepo) ClearVote(ctx context.Context, postID uuid.UUID, fingerprint string) error {
	const q = `DELETE FROM votes WHERE post_id=$1 AND fingerprint=$2`
	_, err := r.db.Pool.Exec(ctx, q, postID, fingerprint)
	return err
}

// VoteCount returns the read-time sum of vote values for the post.
func (r *InteractionRepo) VoteCount(ctx context.Context, postID uuid.UUID) (int64, error) {
	const q = `SELECT COALESCE(SUM(value), 0) FROM votes WHERE post_id=$1`
	var n int64
	if err := r.db.Pool.QueryRow(ctx, q, postID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// UserVote returns the caller's current vote value, or nil when unset.
func (r *InteractionRepo) UserVote(ctx context.Context, postID uuid.UUID, fingerprint string) (*int, error) {
	const q = `SELECT value FROM votes WHERE post_id=$1 AND fingerprint=$2`
	var v int
	if err := r.db.Pool.QueryRow(ctx, q, postID, fingerprint).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// AddFavorite inserts a favorite, ignoring duplicates.
func (r *InteractionRepo) AddFavorite(ctx context.Context, postID uuid.UUID, fingerprint string) error {
	const q = `
INSERT INTO favorites (post_id, fingerprint)
VALUES ($1, $2)
ON CONFLICT (post_id, fingerprint) DO NOTHING`
	_, err := r.db.Pool.Exec(ctx, q, postID, fingerprint)
	return err
}

// RemoveFavorite deletes a favorite; deleting an absent row is a no-op.
func (r *InteractionRepo) RemoveFavorite(ctx context.Context, postID uuid.UUID, fingerprint string) error {
	const q = `DELETE FROM favorites WHERE post_id=$1 AND fingerprint=$2`
	_, err := r.db.Pool.Exec(ctx, q, postID, fingerprint)
	return err
}

// IsFavorited reports whether the caller favorited the post.
func (r *InteractionRepo) IsFavorited(ctx context.Context, postID uuid.UUID, fingerprint string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM favorites WHERE post_id=$1 AND fingerprint=$2)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, postID, fingerprint).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// ListFavorites returns the caller's favorites whose posts are still active.
func (r *InteractionRepo) ListFavorites(ctx context.Context, fingerprint string, now time.Time) ([]model.FavoriteEntry, error) {
	const q = `
SELECT f.id, f.created_at,
       p.id, p.lat, p.lng, p.city, p.state, p.cross_street, p.summary, p.incident_type, p.created_at, p.expires_at
FROM favorites f
JOIN posts p ON p.id = f.post_id
WHERE f.fingerprint = $1 AND p.expires_at > $2
ORDER BY f.created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, fingerprint, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FavoriteEntry
	for rows.Next() {
		var (
			e   model.FavoriteEntry
			typ string
		)
		if err := rows.Scan(&e.ID, &e.CreatedAt,
			&e.Post.ID, &e.Post.Location.Lat, &e.Post.Location.Lng, &e.Post.City, &e.Post.State,
			&e.Post.CrossStreet, &e.Post.Summary, &typ, &e.Post.CreatedAt, &e.Post.ExpiresAt); err != nil {
			return nil, err
		}
		e.Post.IncidentType = model.IncidentType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateReport inserts the first report for (fingerprint, post). The
// unique constraint turns a duplicate into errs.ErrAlreadyReported so the
// suppression is visible to the caller.
func (r *InteractionRepo) CreateReport(ctx context.Context, postID uuid.UUID, fingerprint, reason string) error {
	const q = `
INSERT INTO reports (post_id, fingerprint, reason, status)
VALUES ($1, $2, $3, 'pending')`
	_, err := r.db.Pool.Exec(ctx, q, postID, fingerprint, reason)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyReported
	}
	return err
}

// CreateComment appends a comment.
func (r *InteractionRepo) CreateComment(ctx context.Context, c *model.Comment) error {
	const q = `
INSERT INTO comments (id, post_id, fingerprint, anonymous_id, content, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, c.ID, c.PostID, c.Fingerprint, c.Alias, c.Content, c.CreatedAt)
	return err
}

// ListComments returns the post's comments oldest-first.
func (r *InteractionRepo) ListComments(ctx context.Context, postID uuid.UUID) ([]model.Comment, error) {
	const q = `
SELECT id, post_id, fingerprint, anonymous_id, content, created_at
FROM comments
WHERE post_id = $1
ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Fingerprint, &c.Alias, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
