package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/citywatch-app/citywatch/internal/errs"
	"github.com/citywatch-app/citywatch/internal/geo"
	"github.com/citywatch-app/citywatch/internal/limiter"
	"github.com/citywatch-app/citywatch/internal/model"
	"github.com/citywatch-app/citywatch/internal/repository"
)

type fakePosts struct {
	byID map[uuid.UUID]*model.Post

	createErr error
}

var _ repository.PostRepository = (*fakePosts)(nil)

func (f *fakePosts) Create(_ context.Context, p *model.Post) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byID == nil {
		f.byID = map[uuid.UUID]*model.Post{}
	}
	cpy := *p
	f.byID[p.ID] = &cpy
	return nil
}
func (f *fakePosts) GetActive(_ context.Context, id uuid.UUID, now time.Time) (*model.Post, error) {
	p, ok := f.byID[id]
	if !ok || !p.Active(now) {
		return nil, errs.ErrNotFound
	}
	c := *p
	return &c, nil
}
func (f *fakePosts) Get(_ context.Context, id uuid.UUID) (*model.Post, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *p
	return &c, nil
}
func (f *fakePosts) Recent(_ context.Context, now time.Time, limit int) ([]model.Post, error) {
	var out []model.Post
	for _, p := range f.byID {
		if p.Active(now) && len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}
func (f *fakePosts) ListExpiredIDs(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id, p := range f.byID {
		if !p.Active(now) && len(out) < limit {
			out = append(out, id)
		}
	}
	return out, nil
}
func (f *fakePosts) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	return nil
}

type fakeMediaRepo struct {
	linked    map[uuid.UUID][]uuid.UUID
	assets    map[uuid.UUID][]model.MediaAsset
	linkErr   error
	linkCalls int
}

var _ repository.MediaRepository = (*fakeMediaRepo)(nil)

func (f *fakeMediaRepo) Create(context.Context, *model.MediaAsset) error { return nil }
func (f *fakeMediaRepo) LinkToPost(_ context.Context, postID uuid.UUID, ids []uuid.UUID) error {
	f.linkCalls++
	if f.linkErr != nil {
		return f.linkErr
	}
	if f.linked == nil {
		f.linked = map[uuid.UUID][]uuid.UUID{}
	}
	f.linked[postID] = append(f.linked[postID], ids...)
	return nil
}
func (f *fakeMediaRepo) ListByPost(_ context.Context, postID uuid.UUID) ([]model.MediaAsset, error) {
	return f.assets[postID], nil
}
func (f *fakeMediaRepo) StoragePathsByPost(_ context.Context, postID uuid.UUID) ([]string, error) {
	var paths []string
	for _, a := range f.assets[postID] {
		paths = append(paths, a.StoragePath)
	}
	return paths, nil
}
func (f *fakeMediaRepo) ListUnlinkedBefore(context.Context, time.Time, int) ([]model.MediaAsset, error) {
	return nil, nil
}
func (f *fakeMediaRepo) Delete(context.Context, uuid.UUID) error { return nil }

type voteKey struct {
	post uuid.UUID
	fp   string
}

type fakeInteractions struct {
	votes     map[voteKey]int
	favorites map[voteKey]bool
	reports   map[voteKey]string
	comments  map[uuid.UUID][]model.Comment
}

var _ repository.InteractionRepository = (*fakeInteractions)(nil)

func newFakeInteractions() *fakeInteractions {
	return &fakeInteractions{
		votes:     map[voteKey]int{},
		favorites: map[voteKey]bool{},
		reports:   map[voteKey]string{},
		comments:  map[uuid.UUID][]model.Comment{},
	}
}

func (f *fakeInteractions) SetVote(_ context.Context, postID uuid.UUID, fp string, value int) error {
	f.votes[voteKey{postID, fp}] = value
	return nil
}
func (f *fakeInteractions) ClearVote(_ context.Context, postID uuid.UUID, fp string) error {
	delete(f.votes, voteKey{postID, fp})
	return nil
}
func (f *fakeInteractions) VoteCount(_ context.Context, postID uuid.UUID) (int64, error) {
	var sum int64
	for k, v := range f.votes {
		if k.post == postID {
			sum += int64(v)
		}
	}
	return sum, nil
}
func (f *fakeInteractions) UserVote(_ context.Context, postID uuid.UUID, fp string) (*int, error) {
	if v, ok := f.votes[voteKey{postID, fp}]; ok {
		return &v, nil
	}
	return nil, nil
}
func (f *fakeInteractions) AddFavorite(_ context.Context, postID uuid.UUID, fp string) error {
	f.favorites[voteKey{postID, fp}] = true
	return nil
}
func (f *fakeInteractions) RemoveFavorite(_ context.Context, postID uuid.UUID, fp string) error {
	delete(f.favorites, voteKey{postID, fp})
	return nil
}
func (f *fakeInteractions) IsFavorited(_ context.Context, postID uuid.UUID, fp string) (bool, error) {
	return f.favorites[voteKey{postID, fp}], nil
}
func (f *fakeInteractions) ListFavorites(context.Context, string, time.Time) ([]model.FavoriteEntry, error) {
	return nil, nil
}
func (f *fakeInteractions) CreateReport(_ context.Context, postID uuid.UUID, fp, reason string) error {
	k := voteKey{postID, fp}
	if _, exists := f.reports[k]; exists {
		return errs.ErrAlreadyReported
	}
	f.reports[k] = reason
	return nil
}
func (f *fakeInteractions) CreateComment(_ context.Context, c *model.Comment) error {
	f.comments[c.PostID] = append(f.comments[c.PostID], *c)
	return nil
}
func (f *fakeInteractions) ListComments(_ context.Context, postID uuid.UUID) ([]model.Comment, error) {
	return f.comments[postID], nil
}

type fakeGeo struct {
	inBounds []geo.Result
	nearby   []geo.Result

	lastRadius float64
	lastLimit  int
}

var _ geo.Querier = (*fakeGeo)(nil)

func (f *fakeGeo) PostsInBounds(context.Context, model.BoundingBox, time.Time) ([]geo.Result, error) {
	return f.inBounds, nil
}
func (f *fakeGeo) PostsNearby(_ context.Context, _ model.Location, radiusMeters float64, _ *uuid.UUID, limit int, _ time.Time) ([]geo.Result, error) {
	f.lastRadius = radiusMeters
	f.lastLimit = limit
	return f.nearby, nil
}

type fakePostLimiter struct {
	allowed  bool
	checkErr error

	recordCalls int
}

var _ limiter.Limiter = (*fakePostLimiter)(nil)

func (l *fakePostLimiter) Check(context.Context, string) (bool, time.Duration, error) {
	return l.allowed, 0, l.checkErr
}
func (l *fakePostLimiter) Record(context.Context, string) error {
	l.recordCalls++
	return nil
}

type fakeNotifier struct {
	got chan *model.Post
}

func (n *fakeNotifier) NotifyPost(_ context.Context, p *model.Post) {
	if n.got != nil {
		n.got <- p
	}
}

func newPostService(posts *fakePosts, media *fakeMediaRepo, inter *fakeInteractions,
	g *fakeGeo, lim *fakePostLimiter, n Notifier) *PostServiceImpl {
	return NewPostService(posts, media, inter, g, lim, n, zap.NewNop(), 8*time.Hour, 5)
}

func validInput() CreatePostInput {
	return CreatePostInput{
		Location:     model.Location{Lat: 37.77, Lng: -122.42},
		Summary:      "stalled truck blocking the right lane",
		IncidentType: model.IncidentTrafficAccident,
	}
}

func TestPosts_Create_Validation(t *testing.T) {
	t.Parallel()
	s := newPostService(&fakePosts{}, &fakeMediaRepo{}, newFakeInteractions(), &fakeGeo{}, &fakePostLimiter{allowed: true}, nil)

	cases := []struct {
		name   string
		mutate func(*CreatePostInput)
	}{
		{"bad latitude", func(in *CreatePostInput) { in.Location.Lat = 91 }},
		{"bad longitude", func(in *CreatePostInput) { in.Location.Lng = -181 }},
		{"empty summary", func(in *CreatePostInput) { in.Summary = "" }},
		{"long summary", func(in *CreatePostInput) { in.Summary = strings.Repeat("a", maxSummaryLen+1) }},
		{"unknown type", func(in *CreatePostInput) { in.IncidentType = "volcano" }},
		{"too many links", func(in *CreatePostInput) {
			for i := 0; i < maxLinks+1; i++ {
				in.Links = append(in.Links, model.PostLink{URL: "https://example.com"})
			}
		}},
		{"relative link", func(in *CreatePostInput) { in.Links = []model.PostLink{{URL: "/no-scheme"}} }},
		{"too many media", func(in *CreatePostInput) {
			for i := 0; i < 6; i++ {
				in.MediaIDs = append(in.MediaIDs, uuid.Must(uuid.NewV4()))
			}
		}},
	}
	for _, tc := range cases {
		in := validInput()
		tc.mutate(&in)
		if _, err := s.Create(context.Background(), "fp", in); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("%s: want ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestPosts_Create_RateLimited(t *testing.T) {
	t.Parallel()
	posts := &fakePosts{}
	lim := &fakePostLimiter{allowed: false}
	s := newPostService(posts, &fakeMediaRepo{}, newFakeInteractions(), &fakeGeo{}, lim, nil)

	if _, err := s.Create(context.Background(), "fp", validInput()); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	if len(posts.byID) != 0 {
		t.Fatalf("rate-limited create must not store a post")
	}
	if lim.recordCalls != 0 {
		t.Fatalf("rate-limited create must not record")
	}

	lim.checkErr = errors.New("db down")
	lim.allowed = true
	if _, err := s.Create(context.Background(), "fp", validInput()); err == nil {
		t.Fatalf("want limiter error propagated")
	}
}

func TestPosts_Create_Success(t *testing.T) {
	t.Parallel()
	posts := &fakePosts{}
	media := &fakeMediaRepo{}
	lim := &fakePostLimiter{allowed: true}
	notif := &fakeNotifier{got: make(chan *model.Post, 1)}
	s := newPostService(posts, media, newFakeInteractions(), &fakeGeo{}, lim, notif)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	in := validInput()
	mediaID := uuid.Must(uuid.NewV4())
	in.MediaIDs = []uuid.UUID{mediaID}
	in.Links = []model.PostLink{{URL: "https://news.example.com/story", Title: "coverage"}}

	p, err := s.Create(context.Background(), "fp-1", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !p.ExpiresAt.Equal(base.Add(8 * time.Hour)) {
		t.Fatalf("expires_at = %v, want created_at+ttl", p.ExpiresAt)
	}
	if p.Fingerprint != "fp-1" {
		t.Fatalf("fingerprint not stamped")
	}
	if got := media.linked[p.ID]; len(got) != 1 || got[0] != mediaID {
		t.Fatalf("media not linked: %v", got)
	}
	if lim.recordCalls != 1 {
		t.Fatalf("limiter Record calls = %d, want 1", lim.recordCalls)
	}

	select {
	case np := <-notif.got:
		if np.ID != p.ID {
			t.Fatalf("notifier got wrong post")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("notifier was not called")
	}
}

func TestPosts_Create_MediaLinkFailureIsNonFatal(t *testing.T) {
	t.Parallel()
	posts := &fakePosts{}
	media := &fakeMediaRepo{linkErr: errors.New("boom")}
	s := newPostService(posts, media, newFakeInteractions(), &fakeGeo{}, &fakePostLimiter{allowed: true}, nil)

	in := validInput()
	in.MediaIDs = []uuid.UUID{uuid.Must(uuid.NewV4())}
	p, err := s.Create(context.Background(), "fp", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := posts.byID[p.ID]; !ok {
		t.Fatalf("post must survive media link failure")
	}
}

func TestPosts_Nearby_DefaultsAndValidation(t *testing.T) {
	t.Parallel()
	g := &fakeGeo{}
	s := newPostService(&fakePosts{}, &fakeMediaRepo{}, newFakeInteractions(), g, &fakePostLimiter{allowed: true}, nil)

	if _, err := s.Nearby(context.Background(), model.Location{Lat: 95}, 0, nil, 0); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation on bad center, got %v", err)
	}

	if _, err := s.Nearby(context.Background(), model.Location{Lat: 37, Lng: -122}, 0, nil, 0); err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if g.lastRadius != 100*milesToMeters {
		t.Fatalf("default radius = %v", g.lastRadius)
	}
	if g.lastLimit != 10 {
		t.Fatalf("default limit = %d", g.lastLimit)
	}

	if _, err := s.Nearby(context.Background(), model.Location{Lat: 37, Lng: -122}, 5, nil, 500); err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if g.lastLimit != 10 {
		t.Fatalf("out-of-range limit must fall back to default, got %d", g.lastLimit)
	}
}

func TestPosts_InBounds_RejectsInvalidBox(t *testing.T) {
	t.Parallel()
	s := newPostService(&fakePosts{}, &fakeMediaRepo{}, newFakeInteractions(), &fakeGeo{}, &fakePostLimiter{allowed: true}, nil)

	box := model.BoundingBox{SouthLat: -95, WestLng: 0, NorthLat: 10, EastLng: 10}
	if _, err := s.InBounds(context.Background(), box); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestPosts_Detail(t *testing.T) {
	t.Parallel()
	posts := &fakePosts{byID: map[uuid.UUID]*model.Post{}}
	media := &fakeMediaRepo{assets: map[uuid.UUID][]model.MediaAsset{}}
	inter := newFakeInteractions()
	s := newPostService(posts, media, inter, &fakeGeo{}, &fakePostLimiter{allowed: true}, nil)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	id := uuid.Must(uuid.NewV4())
	posts.byID[id] = &model.Post{ID: id, Summary: "x", ExpiresAt: base.Add(time.Hour)}
	media.assets[id] = []model.MediaAsset{{ID: uuid.Must(uuid.NewV4()), StoragePath: "uploads/a.jpg"}}
	_ = inter.SetVote(context.Background(), id, "fp-a", 1)
	_ = inter.SetVote(context.Background(), id, "fp-b", 1)
	_ = inter.AddFavorite(context.Background(), id, "fp-a")

	d, err := s.Detail(context.Background(), id, "fp-a")
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if d.VoteCount != 2 {
		t.Fatalf("vote count = %d, want 2", d.VoteCount)
	}
	if d.UserVote == nil || *d.UserVote != 1 {
		t.Fatalf("user vote = %v, want 1", d.UserVote)
	}
	if !d.IsFavorited {
		t.Fatalf("want is_favorited")
	}
	if len(d.Media) != 1 {
		t.Fatalf("media len = %d", len(d.Media))
	}

	// The boundary is strict: visible one second before expiry, gone at
	// the exact expiry instant.
	s.now = func() time.Time { return base.Add(time.Hour - time.Second) }
	if _, err := s.Detail(context.Background(), id, "fp-a"); err != nil {
		t.Fatalf("post must be visible just before expiry: %v", err)
	}
	s.now = func() time.Time { return base.Add(time.Hour) }
	if _, err := s.Detail(context.Background(), id, "fp-a"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound at exactly expires_at, got %v", err)
	}
	s.now = func() time.Time { return base.Add(time.Hour + time.Second) }
	if _, err := s.Detail(context.Background(), id, "fp-a"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound after expiry, got %v", err)
	}
}
