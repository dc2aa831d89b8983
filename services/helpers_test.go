package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"kavyalok/cache"
	"kavyalok/database"
	"kavyalok/database/memory"
	"kavyalok/mail"
	"kavyalok/media"
	"kavyalok/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordingChannel struct {
	mu        sync.Mutex
	delivered []models.NotificationView
	targets   []string
	err       error
}

func (r *recordingChannel) Deliver(_ context.Context, email string, n models.NotificationView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, email)
	r.delivered = append(r.delivered, n)
	return r.err
}

func (r *recordingChannel) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delivered)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

type fakeUploader struct {
	uploads   []string
	destroyed []string
}

func (f *fakeUploader) Upload(_ context.Context, file io.Reader, kind media.Kind, publicID string) (*media.Asset, error) {
	if _, err := io.ReadAll(file); err != nil {
		return nil, err
	}
	id := string(kind) + "/" + publicID
	f.uploads = append(f.uploads, id)
	return &media.Asset{URL: "https://res.cloudinary.com/demo/image/upload/" + id + ".jpg", PublicID: id}, nil
}

func (f *fakeUploader) Destroy(_ context.Context, publicID string) error {
	f.destroyed = append(f.destroyed, publicID)
	return nil
}

var errStoreDown = errors.New("server selection error: context deadline exceeded")

type setWrite struct {
	op    string
	email string
	field database.UserSetField
}

// flakyUsers records set writes and fails the ones matching failOn.
type flakyUsers struct {
	UserStore
	failOn func(w setWrite) bool
	writes []setWrite
}

func (u *flakyUsers) record(w setWrite) error {
	u.writes = append(u.writes, w)
	if u.failOn != nil && u.failOn(w) {
		return errStoreDown
	}
	return nil
}

func (u *flakyUsers) AddToUserSet(ctx context.Context, email string, field database.UserSetField, value interface{}) error {
	if err := u.record(setWrite{"add", email, field}); err != nil {
		return err
	}
	return u.UserStore.AddToUserSet(ctx, email, field, value)
}

func (u *flakyUsers) PullFromUserSet(ctx context.Context, email string, field database.UserSetField, value interface{}) error {
	if err := u.record(setWrite{"pull", email, field}); err != nil {
		return err
	}
	return u.UserStore.PullFromUserSet(ctx, email, field, value)
}

// flakyPosts fails every like counter change while failLikes is set.
type flakyPosts struct {
	PostStore
	failLikes  bool
	increments []int
}

func (p *flakyPosts) IncrementLikes(ctx context.Context, id primitive.ObjectID, delta int) (int, error) {
	p.increments = append(p.increments, delta)
	if p.failLikes {
		return 0, errStoreDown
	}
	return p.PostStore.IncrementLikes(ctx, id, delta)
}

// countingCache wraps a cache and counts traffic, optionally failing every
// call.
type countingCache struct {
	inner      cache.Cache
	gets, sets int
	fail       bool
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.gets++
	if c.fail {
		return nil, false, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
	}
	return c.inner.Get(ctx, key)
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.sets++
	if c.fail {
		return errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
	}
	return c.inner.Set(ctx, key, value, ttl)
}

type fixture struct {
	store         *memory.Store
	redis         *miniredis.Miniredis
	cache         *countingCache
	live          *recordingChannel
	mailer        *recordingMailer
	uploader      *fakeUploader
	feed          *FeedService
	notifications *NotificationService
	interactions  *InteractionService
	comments      *CommentService
	posts         *PostService
	users         *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	server := miniredis.RunT(t)
	rc, err := cache.NewRedis(context.Background(), server.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	f := &fixture{
		store:    memory.New(),
		redis:    server,
		cache:    &countingCache{inner: rc},
		live:     &recordingChannel{},
		mailer:   &recordingMailer{},
		uploader: &fakeUploader{},
	}
	ttl := 300 * time.Second
	f.feed = NewFeedService(f.store, f.cache, ttl)
	f.notifications = NewNotificationService(f.store, f.live)
	f.interactions = NewInteractionService(f.store, f.store, f.notifications, f.cache, ttl)
	f.comments = NewCommentService(f.store, f.store, f.store)
	f.posts = NewPostService(f.store, f.store, f.comments, f.uploader)
	f.users = NewUserService(f.store, f.feed, f.uploader, f.mailer)
	return f
}

func (f *fixture) user(t *testing.T, email, username string) *models.User {
	t.Helper()
	u, err := f.users.newUser(email, RegisterInput{Username: username, Name: username})
	require.NoError(t, err)
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) post(t *testing.T, author *models.User, title string, createdAt time.Time, tags ...string) *models.Post {
	t.Helper()
	p := &models.Post{
		ID:        primitive.NewObjectID(),
		Author:    author.ID,
		Title:     title,
		Content:   "<p>" + title + "</p>",
		Tags:      tags,
		Comments:  []primitive.ObjectID{},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	ctx := context.Background()
	require.NoError(t, f.store.CreatePost(ctx, p))
	require.NoError(t, f.store.AddToUserSet(ctx, author.Email, database.FieldPosts, p.ID))
	return p
}

func (f *fixture) reload(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.store.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}
