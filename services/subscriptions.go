package services

import (
	"context"
	"time"

	"kavyalok/models"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"
)

// Subscribe stores a browser push subscription for email. Re-subscribing the
// same endpoint updates it in place.
func Subscribe(ctx context.Context, store PushStore, email string, sub webpush.Subscription) error {
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return Validationf("subscription endpoint and keys are required")
	}
	err := store.SavePushSubscription(ctx, &models.PushSubscription{
		Email:     email,
		Sub:       sub,
		CreatedAt: time.Now(),
	})
	return errors.Wrap(err, "save push subscription")
}
