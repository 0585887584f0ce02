// Package geo is the boundary to the geospatial query capability. The
// core never implements geospatial indexing; it asks this collaborator
// for active posts in a region and validates the typed responses it
// gets back.
package geo

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/citywatch-app/citywatch/internal/model"
)

// Result is one post as returned by a region query, with its read-time
// aggregates.
type Result struct {
	Post         model.Post `json:"post"`
	VoteCount    int64      `json:"vote_count"`
	CommentCount int64      `json:"comment_count"`
}

// validate rejects malformed collaborator responses instead of
// propagating undefined shapes into the core.
func (r *Result) validate() error {
	if r.Post.ID == uuid.Nil {
		return fmt.Errorf("geo: result missing post id")
	}
	if !r.Post.Location.Valid() {
		return fmt.Errorf("geo: post %s has out-of-range coordinates", r.Post.ID)
	}
	if !r.Post.IncidentType.Valid() {
		return fmt.Errorf("geo: post %s has unknown incident type %q", r.Post.ID, r.Post.IncidentType)
	}
	if r.Post.ExpiresAt.IsZero() {
		return fmt.Errorf("geo: post %s missing expiry", r.Post.ID)
	}
	return nil
}

// Querier answers region queries over active posts.
type Querier interface {
	// PostsInBounds lists posts active at now inside the bounding box.
	PostsInBounds(ctx context.Context, box model.BoundingBox, now time.Time) ([]Result, error)
	// PostsNearby lists posts active at now within radiusMeters of the
	// point, nearest first, excluding excludeID when non-nil.
	PostsNearby(ctx context.Context, center model.Location, radiusMeters float64, excludeID *uuid.UUID, limit int, now time.Time) ([]Result, error)
}
