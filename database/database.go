package database

import (
	"context"
	"time"

	"kavyalok/logger"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection             = "users"
	PostsCollection             = "posts"
	CommentsCollection          = "comments"
	CompetitionsCollection      = "competitions"
	PaymentsCollection          = "payments"
	PushSubscriptionsCollection = "push_subscriptions"

	defaultTimeout = 10 * time.Second
)

// Store is the MongoDB backed document store.
type Store struct {
	Client *mongo.Client
	DB     *mongo.Database

	users        *mongo.Collection
	posts        *mongo.Collection
	comments     *mongo.Collection
	competitions *mongo.Collection
	payments     *mongo.Collection
	pushSubs     *mongo.Collection
}

// Connect dials MongoDB and pings it, retrying a few times so the API can
// start alongside a database that is still booting.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		store, err := connectOnce(ctx, uri, dbName)
		if err == nil {
			return store, nil
		}
		lastErr = err
		logger.Log.WithError(err).WithField("attempt", attempt).Warn("MongoDB connection attempt failed")

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "connect mongo")
		case <-time.After(2 * time.Second):
		}
	}
	return nil, errors.Wrap(lastErr, "connect mongo")
}

func connectOnce(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return NewStore(client, dbName), nil
}

// NewStore wraps an already connected client.
func NewStore(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		Client:       client,
		DB:           db,
		users:        db.Collection(UsersCollection),
		posts:        db.Collection(PostsCollection),
		comments:     db.Collection(CommentsCollection),
		competitions: db.Collection(CompetitionsCollection),
		payments:     db.Collection(PaymentsCollection),
		pushSubs:     db.Collection(PushSubscriptionsCollection),
	}
}

// EnsureIndexes creates the indexes the queries and uniqueness rules rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.posts: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "tags", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "content", Value: "text"}}},
		},
		s.comments: {
			{Keys: bson.D{{Key: "post", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		s.payments: {
			{Keys: bson.D{{Key: "txnid", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.pushSubs: {
			{Keys: bson.D{{Key: "sub.endpoint", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
	}

	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return errors.Wrapf(err, "create indexes on %s", coll.Name())
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.Client.Ping(ctx, nil)
}

func (s *Store) Disconnect(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.Client.Disconnect(ctx); err != nil {
		return err
	}
	logger.Log.Info("Disconnected from MongoDB")
	return nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultTimeout)
}

// translate maps driver errors onto the store's sentinel errors.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return errors.Wrap(ErrNotFound, what)
	case mongo.IsDuplicateKeyError(err):
		return errors.Wrap(ErrDuplicate, what)
	default:
		return errors.Wrap(err, what)
	}
}
