// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/citywatch-app/citywatch/internal/model"
)

// PostRepository provides access to ephemeral posts. Every read takes the
// caller's notion of now and applies the expires_at predicate itself;
// expiry never requires a write.
type PostRepository interface {
	// Create inserts a new post row.
	Create(ctx context.Context, p *model.Post) error
	// GetActive loads a post that is still visible at now.
	GetActive(ctx context.Context, id uuid.UUID, now time.Time) (*model.Post, error)
	// Get loads a post regardless of expiry (admin and sweep paths).
	Get(ctx context.Context, id uuid.UUID) (*model.Post, error)
	// Recent returns active posts newest-first, up to limit.
	Recent(ctx context.Context, now time.Time, limit int) ([]model.Post, error)
	// ListExpiredIDs returns ids of posts whose TTL elapsed before now.
	ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	// Delete removes the post row; dependent rows go with it via cascade.
	Delete(ctx context.Context, id uuid.UUID) error
}
