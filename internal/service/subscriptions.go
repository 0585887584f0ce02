package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/citywatch-app/citywatch/internal/errs"
	"github.com/citywatch-app/citywatch/internal/model"
	"github.com/citywatch-app/citywatch/internal/repository"
)

// SubscriptionService manages a fingerprint's area alert subscriptions.
type SubscriptionService interface {
	// Subscribe registers a bounding box, with optional push credentials.
	Subscribe(ctx context.Context, fingerprint string, box model.BoundingBox, endpoint, p256dh, auth string) (*model.Subscription, error)
	// List returns the caller's subscriptions newest-first.
	List(ctx context.Context, fingerprint string) ([]model.Subscription, error)
	// Unsubscribe removes one subscription by id, or all of the caller's
	// subscriptions when id is nil.
	Unsubscribe(ctx context.Context, fingerprint string, id *uuid.UUID) error
}

type SubscriptionServiceImpl struct {
	subs repository.SubscriptionRepository
	now  func() time.Time
}

// NewSubscriptionService constructs SubscriptionService.
func NewSubscriptionService(subs repository.SubscriptionRepository) *SubscriptionServiceImpl {
	return &SubscriptionServiceImpl{subs: subs, now: time.Now}
}

// Subscribe registers a bounding box for the fingerprint.
func (s *SubscriptionServiceImpl) Subscribe(ctx context.Context, fp string, box model.BoundingBox, endpoint, p256dh, auth string) (*model.Subscription, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("%w: invalid bounding box", errs.ErrValidation)
	}
	if box.SouthLat > box.NorthLat || box.WestLng > box.EastLng {
		return nil, fmt.Errorf("%w: bounding box corners are swapped", errs.ErrValidation)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	sub := &model.Subscription{
		ID:           id,
		Fingerprint:  fp,
		Box:          box,
		PushEndpoint: endpoint,
		PushP256DH:   p256dh,
		PushAuth:     auth,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// List returns the caller's subscriptions newest-first.
func (s *SubscriptionServiceImpl) List(ctx context.Context, fp string) ([]model.Subscription, error) {
	return s.subs.ListByFingerprint(ctx, fp)
}

// Unsubscribe removes one subscription, or all when id is nil.
func (s *SubscriptionServiceImpl) Unsubscribe(ctx context.Context, fp string, id *uuid.UUID) error {
	if id == nil {
		return s.subs.DeleteAll(ctx, fp)
	}
	return s.subs.Delete(ctx, *id, fp)
}
