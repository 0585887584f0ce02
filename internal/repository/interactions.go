package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/citywatch-app/citywatch/internal/model"
)

// InteractionRepository holds the idempotent per-(fingerprint, post)
// ledgers: votes, favorites, reports, comments. Single-row atomicity of
// the underlying store is the only ordering guarantee; concurrent writers
// on one key see last-committed-write-wins.
type InteractionRepository interface {
	// SetVote upserts the caller's vote value (+1 or -1) for the post.
	SetVote(ctx context.Context, postID uuid.UUID, fingerprint string, value int) error
	// ClearVote deletes the caller's vote; absent rows are a no-op.
	ClearVote(ctx context.Context, postID uuid.UUID, fingerprint string) error
	// VoteCount returns the read-time sum of vote values for the post.
	VoteCount(ctx context.Context, postID uuid.UUID) (int64, error)
	// UserVote returns the caller's current vote value, or nil when unset.
	UserVote(ctx context.Context, postID uuid.UUID, fingerprint string) (*int, error)

	// AddFavorite inserts a favorite, ignoring duplicates.
	AddFavorite(ctx context.Context, postID uuid.UUID, fingerprint string) error
	// RemoveFavorite deletes a favorite; absent rows are a no-op.
	RemoveFavorite(ctx context.Context, postID uuid.UUID, fingerprint string) error
	// IsFavorited reports whether the caller favorited the post.
	IsFavorited(ctx context.Context, postID uuid.UUID, fingerprint string) (bool, error)
	// ListFavorites returns the caller's favorites whose posts are still active.
	ListFavorites(ctx context.Context, fingerprint string, now time.Time) ([]model.FavoriteEntry, error)

	// CreateReport inserts the first report for (fingerprint, post);
	// a second attempt returns errs.ErrAlreadyReported.
	CreateReport(ctx context.Context, postID uuid.UUID, fingerprint, reason string) error

	// CreateComment appends a comment.
	CreateComment(ctx context.Context, c *model.Comment) error
	// ListComments returns the post's comments oldest-first.
	ListComments(ctx context.Context, postID uuid.UUID) ([]model.Comment, error)
}
