package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/citywatch-app/citywatch/internal/errs"
	"github.com/citywatch-app/citywatch/internal/model"
	"github.com/citywatch-app/citywatch/internal/repository"
)

type fakeAdmins struct {
	byEmail map[string]*model.Admin
	getErr  error
}

var _ repository.AdminRepository = (*fakeAdmins)(nil)

func (f *fakeAdmins) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *a
	return &c, nil
}

type fakePurger struct {
	purged []uuid.UUID
	err    error
}

func (f *fakePurger) PurgePost(_ context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.purged = append(f.purged, id)
	return nil
}

func TestAdmin_Login(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	admin := &model.Admin{ID: uuid.Must(uuid.NewV4()), Email: "mod@example.com", PasswordHash: hash}
	admins := &fakeAdmins{byEmail: map[string]*model.Admin{"mod@example.com": admin}}
	s := NewAdminService(admins, &fakePurger{}, []byte("sign-key"))
	ctx := context.Background()

	if _, err := s.Login(ctx, "", "x"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation on empty email, got %v", err)
	}
	if _, err := s.Login(ctx, "nobody@example.com", "x"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on unknown email, got %v", err)
	}
	if _, err := s.Login(ctx, "mod@example.com", "wrong"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on bad password, got %v", err)
	}

	admins.getErr = errors.New("db down")
	if _, err := s.Login(ctx, "mod@example.com", "correct-horse"); err == nil || errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("infrastructure error must not look like bad credentials, got %v", err)
	}
	admins.getErr = nil

	tok, err := s.Login(ctx, "mod@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	sub, err := s.VerifyToken(tok)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if sub != admin.ID.String() {
		t.Fatalf("token subject = %q, want admin id", sub)
	}
}

func TestAdmin_VerifyToken_Rejects(t *testing.T) {
	t.Parallel()
	s := NewAdminService(&fakeAdmins{}, &fakePurger{}, []byte("key-a"))

	if _, err := s.VerifyToken("not-a-token"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on garbage, got %v", err)
	}

	// A token signed with another key fails verification.
	other := NewAdminService(&fakeAdmins{byEmail: map[string]*model.Admin{}}, &fakePurger{}, []byte("key-b"))
	hash, _ := bcrypt.GenerateFromPassword([]byte("p"), bcrypt.MinCost)
	other.admins = &fakeAdmins{byEmail: map[string]*model.Admin{
		"a@b.c": {ID: uuid.Must(uuid.NewV4()), Email: "a@b.c", PasswordHash: hash},
	}}
	tok, err := other.Login(context.Background(), "a@b.c", "p")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := s.VerifyToken(tok); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on foreign signature, got %v", err)
	}
}

func TestAdmin_DeletePost(t *testing.T) {
	t.Parallel()
	purger := &fakePurger{}
	s := NewAdminService(&fakeAdmins{}, purger, []byte("k"))

	id := uuid.Must(uuid.NewV4())
	if err := s.DeletePost(context.Background(), id); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if len(purger.purged) != 1 || purger.purged[0] != id {
		t.Fatalf("purge not delegated: %v", purger.purged)
	}

	purger.err = errors.New("boom")
	if err := s.DeletePost(context.Background(), id); err == nil {
		t.Fatalf("want purge error propagated")
	}
}
