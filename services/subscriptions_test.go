package services

import (
	"context"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := webpush.Subscription{
		Endpoint: "https://fcm.googleapis.com/fcm/send/abc",
		Keys:     webpush.Keys{P256dh: "p256", Auth: "auth"},
	}

	require.NoError(t, Subscribe(ctx, f.store, "asha@example.com", sub))
	require.NoError(t, Subscribe(ctx, f.store, "asha@example.com", sub))

	subs, err := f.store.ListPushSubscriptions(ctx, "asha@example.com")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, sub.Endpoint, subs[0].Sub.Endpoint)

	err = Subscribe(ctx, f.store, "asha@example.com", webpush.Subscription{Endpoint: "https://x"})
	assert.ErrorIs(t, err, ErrValidation)
}
