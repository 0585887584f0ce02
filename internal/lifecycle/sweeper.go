// Package lifecycle reclaims expired content. Expiry itself needs no
// writes — every read path applies the expires_at predicate — so the
// sweeper's job is purely physical: removing rows and binary objects
// whose TTL has elapsed, and garbage-collecting media that was uploaded
// but never linked to a post.
package lifecycle

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/citywatch-app/citywatch/internal/repository"
	"github.com/citywatch-app/citywatch/internal/storage"
)

// batchSize bounds each sweep pass so one pass never holds the loop long.
const batchSize = 200

// Sweeper purges expired posts and unlinked media on an interval.
type Sweeper struct {
	posts     repository.PostRepository
	media     repository.MediaRepository
	store     storage.ObjectStore
	logger    *zap.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewSweeper constructs a sweeper. retention is how long an unlinked
// media asset survives before it is eligible for collection.
func NewSweeper(posts repository.PostRepository, media repository.MediaRepository, store storage.ObjectStore,
	logger *zap.Logger, interval, retention time.Duration) *Sweeper {
	return &Sweeper{
		posts:     posts,
		media:     media,
		store:     store,
		logger:    logger,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

// Run sweeps on the configured interval until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one reclamation pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()

	ids, err := s.posts.ListExpiredIDs(ctx, now, batchSize)
	if err != nil {
		s.logger.Error("list expired posts", zap.Error(err))
	}
	for _, id := range ids {
		if err := s.PurgePost(ctx, id); err != nil {
			s.logger.Error("purge expired post", zap.String("post_id", id.String()), zap.Error(err))
		}
	}

	assets, err := s.media.ListUnlinkedBefore(ctx, now.Add(-s.retention), batchSize)
	if err != nil {
		s.logger.Error("list unlinked media", zap.Error(err))
		return
	}
	for _, a := range assets {
		s.deleteObject(ctx, a.StoragePath)
		if err := s.media.Delete(ctx, a.ID); err != nil {
			s.logger.Error("delete unlinked media row", zap.String("media_id", a.ID.String()), zap.Error(err))
		}
	}
}

// PurgePost removes one post and everything hanging off it: binary
// objects first (best-effort, individual failures logged and skipped),
// then the post row, whose cascade removes comments, votes, favorites,
// reports and media metadata. Admin deletion uses the same path.
func (s *Sweeper) PurgePost(ctx context.Context, id uuid.UUID) error {
	paths, err := s.media.StoragePathsByPost(ctx, id)
	if err != nil {
		return err
	}
	for _, p := range paths {
		s.deleteObject(ctx, p)
	}
	return s.posts.Delete(ctx, id)
}

// deleteObject is best-effort: the store is eventually consistent for
// deletes and an orphaned object is preferable to an aborted purge.
func (s *Sweeper) deleteObject(ctx context.Context, path string) {
	if err := s.store.Delete(ctx, path); err != nil {
		s.logger.Warn("storage object delete failed", zap.String("path", path), zap.Error(err))
	}
}
