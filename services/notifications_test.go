package services

import (
	"context"
	"testing"
	"time"

	"kavyalok/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnreadThenClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")
	ravi := f.user(t, "ravi@example.com", "ravi")
	post := f.post(t, asha, "Monsoon", time.Now())

	require.NoError(t, f.interactions.Follow(ctx, ravi.Email, asha.Email, ActionFollow))
	_, err := f.interactions.ToggleLike(ctx, ravi.Email, post.ID.Hex())
	require.NoError(t, err)
	require.NoError(t, f.store.PushNotification(ctx, asha.Email, models.Notification{
		Type: models.NotificationNewFollower,
		From: "old@example.com",
		Read: true,
	}))

	unread, err := f.notifications.Unread(ctx, asha.Email)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, models.NotificationNewFollower, unread[0].Type)
	assert.Equal(t, "started following you", unread[0].Message)
	assert.Equal(t, models.NotificationPostLike, unread[1].Type)
	for _, n := range unread {
		require.NotNil(t, n.FromUser)
		assert.Equal(t, "ravi", n.FromUser.Username)
	}

	require.NoError(t, f.notifications.Clear(ctx, asha.Email))
	after, err := f.notifications.Unread(ctx, asha.Email)
	require.NoError(t, err)
	assert.Empty(t, after)
	assert.NotNil(t, after)
	assert.Empty(t, f.reload(t, asha.Email).Notifications)
}

func TestUnreadKeepsEntriesFromDeletedUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")
	require.NoError(t, f.store.PushNotification(ctx, asha.Email, models.Notification{
		Type:      models.NotificationNewFollower,
		From:      "gone@example.com",
		CreatedAt: time.Now(),
	}))

	unread, err := f.notifications.Unread(ctx, asha.Email)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Nil(t, unread[0].FromUser)
}

func TestNotificationsUnknownUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.notifications.Unread(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.notifications.Clear(ctx, "ghost@example.com"), ErrNotFound)

	err = f.notifications.Notify(ctx, "ghost@example.com", models.Notification{Type: models.NotificationPostLike}, nil)
	assert.Error(t, err)
	f.notifications.Wait()
	assert.Zero(t, f.live.count())
}
