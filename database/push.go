package database

import (
	"context"

	"kavyalok/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SavePushSubscription stores sub, replacing any earlier subscription that
// used the same endpoint.
func (s *Store) SavePushSubscription(ctx context.Context, sub *models.PushSubscription) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{"sub.endpoint": sub.Sub.Endpoint}
	update := bson.M{
		"$set":         bson.M{"email": sub.Email, "sub": sub.Sub},
		"$setOnInsert": bson.M{"createdAt": sub.CreatedAt},
	}
	_, err := s.pushSubs.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return translate(err, "save push subscription")
}

func (s *Store) ListPushSubscriptions(ctx context.Context, email string) ([]models.PushSubscription, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := s.pushSubs.Find(ctx, bson.M{"email": email})
	if err != nil {
		return nil, errors.Wrap(err, "find push subscriptions")
	}
	defer cursor.Close(ctx)

	subs := []models.PushSubscription{}
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, errors.Wrap(err, "decode push subscriptions")
	}
	return subs, nil
}

func (s *Store) DeletePushSubscription(ctx context.Context, endpoint string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.pushSubs.DeleteOne(ctx, bson.M{"sub.endpoint": endpoint})
	return translate(err, "delete push subscription")
}
