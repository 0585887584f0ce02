package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/citywatch-app/citywatch/internal/errs"
	"github.com/citywatch-app/citywatch/internal/repository"
)

// adminTokenTTL bounds an admin session.
const adminTokenTTL = 24 * time.Hour

// Purger physically removes one post and its dependents.
type Purger interface {
	PurgePost(ctx context.Context, id uuid.UUID) error
}

// AdminService handles moderation authentication and actions.
type AdminService interface {
	// Login verifies credentials and issues a session token.
	Login(ctx context.Context, email, password string) (string, error)
	// VerifyToken checks a session token and returns the admin id.
	VerifyToken(token string) (string, error)
	// DeletePost purges a post regardless of expiry.
	DeletePost(ctx context.Context, id uuid.UUID) error
}

type AdminServiceImpl struct {
	admins  repository.AdminRepository
	purger  Purger
	signKey []byte
}

// NewAdminService constructs AdminService.
func NewAdminService(admins repository.AdminRepository, purger Purger, signKey []byte) *AdminServiceImpl {
	return &AdminServiceImpl{admins: admins, purger: purger, signKey: signKey}
}

// Login verifies credentials and issues an HS256 session token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AdminServiceImpl) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", fmt.Errorf("%w: email and password are required", errs.ErrValidation)
	}
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", errs.ErrUnauthorized
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword(admin.PasswordHash, []byte(password)) != nil {
		return "", errs.ErrUnauthorized
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   admin.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenTTL)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.signKey)
}

// VerifyToken checks a session token and returns the admin id.
func (s *AdminServiceImpl) VerifyToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return "", errs.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errs.ErrUnauthorized
	}
	return claims.Subject, nil
}

// DeletePost purges a post and everything hanging off it.
func (s *AdminServiceImpl) DeletePost(ctx context.Context, id uuid.UUID) error {
	return s.purger.PurgePost(ctx, id)
}
