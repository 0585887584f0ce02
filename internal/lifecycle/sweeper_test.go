package lifecycle

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citywatch-app/citywatch/internal/model"
)

type fakePosts struct {
	expired []uuid.UUID
	deleted []uuid.UUID
}

func (f *fakePosts) Create(context.Context, *model.Post) error { return nil }
func (f *fakePosts) GetActive(context.Context, uuid.UUID, time.Time) (*model.Post, error) {
	return nil, nil
}
func (f *fakePosts) Get(context.Context, uuid.UUID) (*model.Post, error) { return nil, nil }
func (f *fakePosts) Recent(context.Context, time.Time, int) ([]model.Post, error) {
	return nil, nil
}
func (f *fakePosts) ListExpiredIDs(context.Context, time.Time, int) ([]uuid.UUID, error) {
	return f.expired, nil
}
func (f *fakePosts) Delete(_ context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeMedia struct {
	pathsByPost map[uuid.UUID][]string
	unlinked    []model.MediaAsset
	deletedRows []uuid.UUID
}

func (f *fakeMedia) Create(context.Context, *model.MediaAsset) error            { return nil }
func (f *fakeMedia) LinkToPost(context.Context, uuid.UUID, []uuid.UUID) error   { return nil }
func (f *fakeMedia) ListByPost(context.Context, uuid.UUID) ([]model.MediaAsset, error) {
	return nil, nil
}
func (f *fakeMedia) StoragePathsByPost(_ context.Context, id uuid.UUID) ([]string, error) {
	return f.pathsByPost[id], nil
}
func (f *fakeMedia) ListUnlinkedBefore(context.Context, time.Time, int) ([]model.MediaAsset, error) {
	return f.unlinked, nil
}
func (f *fakeMedia) Delete(_ context.Context, id uuid.UUID) error {
	f.deletedRows = append(f.deletedRows, id)
	return nil
}

type fakeObjects struct {
	failPaths map[string]bool
	deleted   []string
}

func (f *fakeObjects) Put(context.Context, string, []byte, string) error { return nil }
func (f *fakeObjects) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("unused")
}
func (f *fakeObjects) Delete(_ context.Context, path string) error {
	if f.failPaths[path] {
		return errors.New("storage unavailable")
	}
	f.deleted = append(f.deleted, path)
	return nil
}

func TestSweep_PurgesExpiredPostsAndObjects(t *testing.T) {
	postID := uuid.Must(uuid.NewV4())
	posts := &fakePosts{expired: []uuid.UUID{postID}}
	media := &fakeMedia{pathsByPost: map[uuid.UUID][]string{
		postID: {"uploads/a.jpg", "uploads/b.mp4"},
	}}
	objects := &fakeObjects{}

	s := NewSweeper(posts, media, objects, zap.NewNop(), time.Minute, time.Hour)
	s.Sweep(context.Background())

	require.Equal(t, []string{"uploads/a.jpg", "uploads/b.mp4"}, objects.deleted)
	require.Equal(t, []uuid.UUID{postID}, posts.deleted)
}

func TestSweep_ObjectDeleteFailureDoesNotAbortPurge(t *testing.T) {
	postID := uuid.Must(uuid.NewV4())
	posts := &fakePosts{expired: []uuid.UUID{postID}}
	media := &fakeMedia{pathsByPost: map[uuid.UUID][]string{
		postID: {"uploads/broken.jpg", "uploads/ok.jpg"},
	}}
	objects := &fakeObjects{failPaths: map[string]bool{"uploads/broken.jpg": true}}

	s := NewSweeper(posts, media, objects, zap.NewNop(), time.Minute, time.Hour)
	s.Sweep(context.Background())

	// The failing object is skipped; the post row still goes.
	require.Equal(t, []string{"uploads/ok.jpg"}, objects.deleted)
	require.Equal(t, []uuid.UUID{postID}, posts.deleted)
}

func TestSweep_CollectsUnlinkedMedia(t *testing.T) {
	assetID := uuid.Must(uuid.NewV4())
	posts := &fakePosts{}
	media := &fakeMedia{unlinked: []model.MediaAsset{
		{ID: assetID, StoragePath: "uploads/orphan.jpg"},
	}}
	objects := &fakeObjects{}

	s := NewSweeper(posts, media, objects, zap.NewNop(), time.Minute, time.Hour)
	s.Sweep(context.Background())

	require.Equal(t, []string{"uploads/orphan.jpg"}, objects.deleted)
	require.Equal(t, []uuid.UUID{assetID}, media.deletedRows)
}

func TestRun_StopsOnCancel(t *testing.T) {
	posts := &fakePosts{}
	media := &fakeMedia{}
	objects := &fakeObjects{}

	s := NewSweeper(posts, media, objects, zap.NewNop(), 10*time.Millisecond, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
