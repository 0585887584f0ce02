package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/citywatch-app/citywatch/internal/model"
)

// SubscriptionRepository stores bounding-box alert subscriptions.
type SubscriptionRepository interface {
	// Create inserts a subscription.
	Create(ctx context.Context, s *model.Subscription) error
	// ListByFingerprint returns the caller's subscriptions newest-first.
	ListByFingerprint(ctx context.Context, fingerprint string) ([]model.Subscription, error)
	// Delete removes one subscription, scoped to its owner.
	Delete(ctx context.Context, id uuid.UUID, fingerprint string) error
	// DeleteAll removes every subscription for the fingerprint.
	DeleteAll(ctx context.Context, fingerprint string) error
	// ListCovering returns subscriptions whose bounding box contains the point.
	ListCovering(ctx context.Context, loc model.Location) ([]model.Subscription, error)
}

// AdminRepository loads moderation accounts.
type AdminRepository interface {
	// GetByEmail loads an admin by email.
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
}
