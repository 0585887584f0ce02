package postgres

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/citywatch-app/citywatch/internal/model"
)

// MediaRepo implements MediaRepository using PostgreSQL.
type MediaRepo struct{ db *DB }

// NewMediaRepo constructs a media repository.
func NewMediaRepo(db *DB) *MediaRepo { return &MediaRepo{db: db} }

// Create inserts an unlinked asset row.
func (r *MediaRepo) Create(ctx context.Context, m *model.MediaAsset) error {
	const q = `
INSERT INTO media (id, storage_path, media_type, original_filename, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, m.ID, m.StoragePath, string(m.MediaType), m.OriginalFilename, m.CreatedAt)
	return err
}

// LinkToPost bulk-sets post_id on exactly the given assets. Only
// unlinked rows are claimed, so an asset cannot be stolen across posts.
func (r *MediaRepo) LinkToPost(ctx context.Context, postID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `UPDATE media SET post_id = $1 WHERE id = ANY($2) AND post_id IS NULL`
	_, err := r.db.Pool.Exec(ctx, q, postID, ids)
	return err
}

// ListByPost returns a post's assets oldest-first.
func (r *MediaRepo) ListByPost(ctx context.Context, postID uuid.UUID) ([]model.MediaAsset, error) {
	const q = `
SELECT id, post_id, storage_path, media_type, original_filename, created_at
FROM media
WHERE post_id = $1
ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MediaAsset
	for rows.Next() {
		var (
			m   model.MediaAsset
			typ string
		)
		if err := rows.Scan(&m.ID, &m.PostID, &m.StoragePath, &typ, &m.OriginalFilename, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.MediaType = model.MediaType(typ)
		out = append(out, m)
	}
	return out, rows.Err()
}

// StoragePathsByPost returns the storage paths of a post's assets.
func (r *MediaRepo) StoragePathsByPost(ctx context.Context, postID uuid.UUID) ([]string, error) {
	const q = `SELECT storage_path FROM media WHERE post_id = $1`
	rows, err := r.db.Pool.Query(ctx, q, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// ListUnlinkedBefore returns assets never linked to a post created before cutoff.
func (r *MediaRepo) ListUnlinkedBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.MediaAsset, error) {
	const q = `
SELECT id, post_id, storage_path, media_type, original_filename, created_at
FROM media
WHERE post_id IS NULL AND created_at < $1
LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MediaAsset
	for rows.Next() {
		var (
			m   model.MediaAsset
			typ string
		)
		if err := rows.Scan(&m.ID, &m.PostID, &m.StoragePath, &typ, &m.OriginalFilename, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.MediaType = model.MediaType(typ)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes an asset row by id.
func (r *MediaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM media WHERE id = $1`
	_, err := r.db.Pool.Exec(ctx, q, id)
	return err
}
