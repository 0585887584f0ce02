// Package service contains application services over repositories and collaborators.
package service

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/citywatch-app/citywatch/internal/repository"
)

// IdentityService resolves fingerprints to stable display aliases.
type IdentityService interface {
	// Resolve returns the fingerprint's alias, creating it on first use.
	Resolve(ctx context.Context, fingerprint string) (string, error)
}

type IdentityServiceImpl struct {
	identities repository.IdentityRepository
}

// NewIdentityService constructs IdentityService.
func NewIdentityService(identities repository.IdentityRepository) *IdentityServiceImpl {
	return &IdentityServiceImpl{identities: identities}
}

// Resolve returns the alias for the fingerprint. On first use a random
// candidate is offered; the store's atomic insert-if-absent decides the
// winner, so concurrent first-use calls converge on one alias.
func (s *IdentityServiceImpl) Resolve(ctx context.Context, fp string) (string, error) {
	if fp == "" {
		return "", fmt.Errorf("identity: empty fingerprint")
	}
	candidate, err := newAlias()
	if err != nil {
		return "", err
	}
	return s.identities.GetOrCreateAlias(ctx, fp, candidate)
}

// newAlias generates a fresh display alias.
func newAlias() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return "anon-" + hex.EncodeToString(id.Bytes()[:6]), nil
}
