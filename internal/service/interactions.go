package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/citywatch-app/citywatch/internal/errs"
	"github.com/citywatch-app/citywatch/internal/model"
	"github.com/citywatch-app/citywatch/internal/repository"
)

const (
	maxReasonLen  = 500
	maxCommentLen = 1000
)

// ReportMailer notifies moderation about new reports.
type ReportMailer interface {
	Send(subject, body string) error
}

// InteractionService applies the per-(fingerprint, post) ledgers.
type InteractionService interface {
	// Vote applies the caller's target vote state (+1, -1, or 0 to
	// clear) and returns the post's fresh vote count. The ledger applies
	// whatever target it is given; toggling is the caller's concern.
	Vote(ctx context.Context, fingerprint string, postID uuid.UUID, target int) (int64, error)
	// AddFavorite favorites an active post; duplicates are a no-op.
	AddFavorite(ctx context.Context, fingerprint string, postID uuid.UUID) error
	// RemoveFavorite unfavorites regardless of post state, so stale
	// favorites pointing at gone content can always be cleaned up.
	RemoveFavorite(ctx context.Context, fingerprint string, postID uuid.UUID) error
	// ListFavorites returns the caller's favorites on still-active posts.
	ListFavorites(ctx context.Context, fingerprint string) ([]model.FavoriteEntry, error)
	// Report files the caller's one report for a post.
	Report(ctx context.Context, fingerprint string, postID uuid.UUID, reason string) error
	// Comment appends a comment to an active post.
	Comment(ctx context.Context, fingerprint string, postID uuid.UUID, content string) (*model.Comment, error)
	// ListComments returns a post's comments oldest-first.
	ListComments(ctx context.Context, postID uuid.UUID) ([]model.Comment, error)
}

type InteractionServiceImpl struct {
	posts        repository.PostRepository
	interactions repository.InteractionRepository
	identity     IdentityService
	mail         ReportMailer
	appURL       string
	logger       *zap.Logger
	now          func() time.Time
}

// NewInteractionService constructs InteractionService.
func NewInteractionService(posts repository.PostRepository, interactions repository.InteractionRepository,
	identity IdentityService, mail ReportMailer, appURL string, logger *zap.Logger) *InteractionServiceImpl {
	return &InteractionServiceImpl{
		posts:        posts,
		interactions: interactions,
		identity:     identity,
		mail:         mail,
		appURL:       appURL,
		logger:       logger,
		now:          time.Now,
	}
}

// requireActive re-checks the expiry predicate at write time.
func (s *InteractionServiceImpl) requireActive(ctx context.Context, postID uuid.UUID) (*model.Post, error) {
	return s.posts.GetActive(ctx, postID, s.now())
}

// Vote applies the target state and returns the fresh count.
func (s *InteractionServiceImpl) Vote(ctx context.Context, fp string, postID uuid.UUID, target int) (int64, error) {
	if target != 1 && target != -1 && target != 0 {
		return 0, fmt.Errorf("%w: vote_type must be 1, -1, or 0", errs.ErrValidation)
	}
	if _, err := s.requireActive(ctx, postID); err != nil {
		return 0, err
	}

	if target == 0 {
		if err := s.interactions.ClearVote(ctx, postID, fp); err != nil {
			return 0, err
		}
	} else {
		if err := s.interactions.SetVote(ctx, postID, fp, target); err != nil {
			return 0, err
		}
	}
	return s.interactions.VoteCount(ctx, postID)
}

// AddFavorite favorites an active post.
func (s *InteractionServiceImpl) AddFavorite(ctx context.Context, fp string, postID uuid.UUID) error {
	if _, err := s.requireActive(ctx, postID); err != nil {
		return err
	}
	return s.interactions.AddFavorite(ctx, postID, fp)
}

// RemoveFavorite unfavorites regardless of post state.
func (s *InteractionServiceImpl) RemoveFavorite(ctx context.Context, fp string, postID uuid.UUID) error {
	return s.interactions.RemoveFavorite(ctx, postID, fp)
}

// ListFavorites returns the caller's favorites on still-active posts.
func (s *InteractionServiceImpl) ListFavorites(ctx context.Context, fp string) ([]model.FavoriteEntry, error) {
	return s.interactions.ListFavorites(ctx, fp, s.now())
}

// Report files the caller's one report for a post. A duplicate surfaces
// as errs.ErrAlreadyReported rather than being silently absorbed.
func (s *InteractionServiceImpl) Report(ctx context.Context, fp string, postID uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: report reason is required", errs.ErrValidation)
	}
	if len(reason) > maxReasonLen {
		return fmt.Errorf("%w: reason must be %d characters or less", errs.ErrValidation, maxReasonLen)
	}
	post, err := s.requireActive(ctx, postID)
	if err != nil {
		return err
	}
	if err := s.interactions.CreateReport(ctx, postID, fp, reason); err != nil {
		return err
	}

	if s.mail != nil {
		// Best-effort notification; the report row is already committed.
		go func() {
			subject := fmt.Sprintf("Post reported: %s", post.IncidentType)
			body := fmt.Sprintf("Post ID: %s\nType: %s\nSummary: %s\n\nReport reason: %s\n\nView: %s/post/%s",
				post.ID, post.IncidentType, post.Summary, reason, s.appURL, post.ID)
			if err := s.mail.Send(subject, body); err != nil {
				s.logger.Warn("report mail failed", zap.Error(err))
			}
		}()
	}
	return nil
}

// Comment appends a comment to an active post, stamped with the
// caller's resolved alias.
func (s *InteractionServiceImpl) Comment(ctx context.Context, fp string, postID uuid.UUID, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment content is required", errs.ErrValidation)
	}
	if len(content) > maxCommentLen {
		return nil, fmt.Errorf("%w: comment must be %d characters or less", errs.ErrValidation, maxCommentLen)
	}
	if _, err := s.requireActive(ctx, postID); err != nil {
		return nil, err
	}

	alias, err := s.identity.Resolve(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("resolve alias: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	c := &model.Comment{
		ID:          id,
		PostID:      postID,
		Fingerprint: fp,
		Alias:       alias,
		Content:     content,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.interactions.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListComments returns a post's comments oldest-first.
func (s *InteractionServiceImpl) ListComments(ctx context.Context, postID uuid.UUID) ([]model.Comment, error) {
	return s.interactions.ListComments(ctx, postID)
}
