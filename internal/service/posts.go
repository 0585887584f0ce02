package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/citywatch-app/citywatch/internal/errs"
	"github.com/citywatch-app/citywatch/internal/geo"
	"github.com/citywatch-app/citywatch/internal/limiter"
	"github.com/citywatch-app/citywatch/internal/model"
	"github.com/citywatch-app/citywatch/internal/repository"
)

const (
	maxSummaryLen = 500
	maxLinks      = 3
)

// milesToMeters converts the nearby-radius unit used by clients.
const milesToMeters = 1609.34

// Notifier receives new posts for subscriber fan-out.
type Notifier interface {
	NotifyPost(ctx context.Context, p *model.Post)
}

// CreatePostInput is the validated shape of a create request.
type CreatePostInput struct {
	Location     model.Location
	City         string
	State        string
	CrossStreet  string
	Summary      string
	IncidentType model.IncidentType
	Links        []model.PostLink
	MediaIDs     []uuid.UUID
}

// PostService covers post creation, listings, and detail assembly.
type PostService interface {
	// Create validates, rate-limits, and stores a new post, linking any
	// previously uploaded media and fanning out notifications.
	Create(ctx context.Context, fingerprint string, in CreatePostInput) (*model.Post, error)
	// InBounds lists active posts inside a bounding box.
	InBounds(ctx context.Context, box model.BoundingBox) ([]geo.Result, error)
	// Nearby lists active posts within radiusMiles of a point.
	Nearby(ctx context.Context, center model.Location, radiusMiles float64, excludeID *uuid.UUID, limit int) ([]geo.Result, error)
	// Recent lists active posts newest-first.
	Recent(ctx context.Context, limit int) ([]model.Post, error)
	// Detail assembles the full single-post view for the caller.
	Detail(ctx context.Context, id uuid.UUID, fingerprint string) (*model.PostDetail, error)
}

type PostServiceImpl struct {
	posts        repository.PostRepository
	media        repository.MediaRepository
	interactions repository.InteractionRepository
	geo          geo.Querier
	lim          limiter.Limiter
	notifier     Notifier
	logger       *zap.Logger

	ttl      time.Duration
	maxMedia int
	now      func() time.Time
}

// NewPostService constructs PostService.
func NewPostService(posts repository.PostRepository, media repository.MediaRepository,
	interactions repository.InteractionRepository, geoq geo.Querier, lim limiter.Limiter,
	notifier Notifier, logger *zap.Logger, ttl time.Duration, maxMedia int) *PostServiceImpl {
	return &PostServiceImpl{
		posts:        posts,
		media:        media,
		interactions: interactions,
		geo:          geoq,
		lim:          lim,
		notifier:     notifier,
		logger:       logger,
		ttl:          ttl,
		maxMedia:     maxMedia,
		now:          time.Now,
	}
}

// Create validates, rate-limits, and stores a new post.
//
// The limiter's check and record straddle the creation write and are not
// atomic as a pair; see limiter.Limiter for why that race is accepted.
func (s *PostServiceImpl) Create(ctx context.Context, fp string, in CreatePostInput) (*model.Post, error) {
	if err := validateCreate(in, s.maxMedia); err != nil {
		return nil, err
	}

	allowed, _, err := s.lim.Check(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		return nil, errs.ErrRateLimited
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	post := &model.Post{
		ID:           id,
		Location:     in.Location,
		City:         in.City,
		State:        in.State,
		CrossStreet:  in.CrossStreet,
		Summary:      in.Summary,
		IncidentType: in.IncidentType,
		Fingerprint:  fp,
		Links:        in.Links,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if len(in.MediaIDs) > 0 {
		if err := s.media.LinkToPost(ctx, post.ID, in.MediaIDs); err != nil {
			// The post exists; orphaned uploads will be swept. Log, don't fail.
			s.logger.Error("link media to post", zap.String("post_id", post.ID.String()), zap.Error(err))
		}
	}

	if err := s.lim.Record(ctx, fp); err != nil {
		s.logger.Error("record rate limit", zap.Error(err))
	}

	if s.notifier != nil {
		// Fire-and-forget; delivery must not hold up the response and
		// must survive the request context.
		go s.notifier.NotifyPost(context.WithoutCancel(ctx), post)
	}
	return post, nil
}

func validateCreate(in CreatePostInput, maxMedia int) error {
	if !in.Location.Valid() {
		return fmt.Errorf("%w: invalid coordinates", errs.ErrValidation)
	}
	if in.Summary == "" {
		return fmt.Errorf("%w: summary is required", errs.ErrValidation)
	}
	if len(in.Summary) > maxSummaryLen {
		return fmt.Errorf("%w: summary must be %d characters or less", errs.ErrValidation, maxSummaryLen)
	}
	if !in.IncidentType.Valid() {
		return fmt.Errorf("%w: unknown incident type %q", errs.ErrValidation, in.IncidentType)
	}
	if len(in.Links) > maxLinks {
		return fmt.Errorf("%w: maximum %d links allowed", errs.ErrValidation, maxLinks)
	}
	for _, l := range in.Links {
		u, err := url.Parse(l.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: invalid link url", errs.ErrValidation)
		}
	}
	if maxMedia > 0 && len(in.MediaIDs) > maxMedia {
		return fmt.Errorf("%w: maximum %d media attachments allowed", errs.ErrValidation, maxMedia)
	}
	return nil
}

// InBounds lists active posts inside a bounding box.
func (s *PostServiceImpl) InBounds(ctx context.Context, box model.BoundingBox) ([]geo.Result, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("%w: invalid bounding box", errs.ErrValidation)
	}
	return s.geo.PostsInBounds(ctx, box, s.now())
}

// Nearby lists active posts within radiusMiles of a point.
func (s *PostServiceImpl) Nearby(ctx context.Context, center model.Location, radiusMiles float64, excludeID *uuid.UUID, limit int) ([]geo.Result, error) {
	if !center.Valid() {
		return nil, fmt.Errorf("%w: invalid coordinates", errs.ErrValidation)
	}
	if radiusMiles <= 0 {
		radiusMiles = 100
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.geo.PostsNearby(ctx, center, radiusMiles*milesToMeters, excludeID, limit, s.now())
}

// Recent lists active posts newest-first.
func (s *PostServiceImpl) Recent(ctx context.Context, limit int) ([]model.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.posts.Recent(ctx, s.now(), limit)
}

// Detail assembles the full single-post view for the caller.
func (s *PostServiceImpl) Detail(ctx context.Context, id uuid.UUID, fp string) (*model.PostDetail, error) {
	post, err := s.posts.GetActive(ctx, id, s.now())
	if err != nil {
		return nil, err
	}

	detail := &model.PostDetail{Post: *post}

	if detail.Media, err = s.media.ListByPost(ctx, id); err != nil {
		return nil, err
	}
	if detail.Comments, err = s.interactions.ListComments(ctx, id); err != nil {
		return nil, err
	}
	if detail.VoteCount, err = s.interactions.VoteCount(ctx, id); err != nil {
		return nil, err
	}
	if detail.UserVote, err = s.interactions.UserVote(ctx, id, fp); err != nil {
		return nil, err
	}
	if detail.IsFavorited, err = s.interactions.IsFavorited(ctx, id, fp); err != nil {
		return nil, err
	}
	return detail, nil
}
