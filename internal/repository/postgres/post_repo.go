package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/citywatch-app/citywatch/internal/errs"
	"github.com/citywatch-app/citywatch/internal/model"
)

// PostRepo implements PostRepository using PostgreSQL.
type PostRepo struct{ db *DB }

// NewPostRepo constructs a post repository.
func NewPostRepo(db *DB) *PostRepo { return &PostRepo{db: db} }

// Create inserts a new post row.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	links, err := json.Marshal(p.Links)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO posts (id, lat, lng, city, state, cross_street, summary, incident_type, fingerprint, links, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.db.Pool.Exec(ctx, q,
		p.ID, p.Location.Lat, p.Location.Lng, p.City, p.State, p.CrossStreet,
		p.Summary, string(p.IncidentType), p.Fingerprint, links, p.CreatedAt, p.ExpiresAt)
	return err
}

const postColumns = `id, lat, lng, city, state, cross_street, summary, incident_type, fingerprint, links, created_at, expires_at`

func scanPost(row pgx.Row) (*model.Post, error) {
	var (
		p     model.Post
		typ   string
		links []byte
	)
	if err := row.Scan(&p.ID, &p.Location.Lat, &p.Location.Lng, &p.City, &p.State,
		&p.CrossStreet, &p.Summary, &typ, &p.Fingerprint, &links, &p.CreatedAt, &p.ExpiresAt); err != nil {
		return nil, err
	}
	p.IncidentType = model.IncidentType(typ)
	if len(links) > 0 {
		if err := json.Unmarshal(links, &p.Links); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// GetActive loads a post that is still visible at now.
func (r *PostRepo) GetActive(ctx context.Context, id uuid.UUID, now time.Time) (*model.Post, error) {
	const q = `SELECT ` + postColumns + ` FROM posts WHERE id=$1 AND expires_at > $2`
	p, err := scanPost(r.db.Pool.QueryRow(ctx, q, id, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Get loads a post regardless of expiry.
func (r *PostRepo) Get(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	const q = `SELECT ` + postColumns + ` FROM posts WHERE id=$1`
	p, err := scanPost(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Recent returns active posts newest-first.
func (r *PostRepo) Recent(ctx context.Context, now time.Time, limit int) ([]model.Post, error) {
	const q = `
SELECT ` + postColumns + `
FROM posts
WHERE expires_at > $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListExpiredIDs returns ids of posts whose TTL elapsed before now.
func (r *PostRepo) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	const q = `SELECT id FROM posts WHERE expires_at <= $1 LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes the post row; cascades remove comments, votes,
// favorites, reports, and media metadata rows.
func (r *PostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM posts WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id)
	return err
}
