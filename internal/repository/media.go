package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/citywatch-app/citywatch/internal/model"
)

// MediaRepository tracks media metadata rows. Binary objects live in the
// durable object store; rows reference them by storage path.
type MediaRepository interface {
	// Create inserts an unlinked asset row (post_id NULL).
	Create(ctx context.Context, m *model.MediaAsset) error
	// LinkToPost bulk-sets post_id on exactly the given unlinked assets.
	LinkToPost(ctx context.Context, postID uuid.UUID, ids []uuid.UUID) error
	// ListByPost returns a post's assets oldest-first.
	ListByPost(ctx context.Context, postID uuid.UUID) ([]model.MediaAsset, error)
	// StoragePathsByPost returns the storage paths of a post's assets.
	StoragePathsByPost(ctx context.Context, postID uuid.UUID) ([]string, error)
	// ListUnlinkedBefore returns assets never linked to a post that were
	// created before the cutoff; sweep garbage-collects them.
	ListUnlinkedBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.MediaAsset, error)
	// Delete removes an asset row by id.
	Delete(ctx context.Context, id uuid.UUID) error
}
