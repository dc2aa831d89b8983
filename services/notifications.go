package services

import (
	"context"
	"sync"
	"time"

	"kavyalok/logger"
	"kavyalok/models"

	"github.com/pkg/errors"
)

const liveDeliveryTimeout = 10 * time.Second

// LiveChannel pushes a freshly stored notification to the recipient while
// they are away from the inbox (websocket hub, web push).
type LiveChannel interface {
	Deliver(ctx context.Context, email string, n models.NotificationView) error
}

// NotificationService owns the embedded inbox: append, list unread, clear.
type NotificationService struct {
	users    UserStore
	channels []LiveChannel
	wg       sync.WaitGroup
}

func NewNotificationService(users UserStore, channels ...LiveChannel) *NotificationService {
	return &NotificationService{users: users, channels: channels}
}

// Notify appends n to the inbox of target and then fans it out to the live
// channels in the background. Only the inbox write can fail the call.
func (s *NotificationService) Notify(ctx context.Context, target string, n models.Notification, from *models.Author) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if err := s.users.PushNotification(ctx, target, n); err != nil {
		return errors.Wrap(err, "append notification")
	}
	if len(s.channels) == 0 {
		return nil
	}

	view := models.NotificationView{Notification: n, FromUser: from, Message: n.Message()}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), liveDeliveryTimeout)
		defer cancel()

		for _, ch := range s.channels {
			if err := ch.Deliver(ctx, target, view); err != nil {
				logger.Log.WithError(err).WithField("email", target).Warn("Live notification delivery failed")
			}
		}
	}()
	return nil
}

// Wait blocks until background deliveries started so far have finished.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

// Unread lists the entries with read=false, oldest first, each joined with
// the author projection of its source user.
func (s *NotificationService) Unread(ctx context.Context, email string) ([]models.NotificationView, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load inbox")
	}

	unread := []models.Notification{}
	var sources []string
	seen := map[string]bool{}
	for _, n := range user.Notifications {
		if n.Read {
			continue
		}
		unread = append(unread, n)
		if !seen[n.From] {
			seen[n.From] = true
			sources = append(sources, n.From)
		}
	}

	authors := map[string]*models.Author{}
	if len(sources) > 0 {
		users, err := s.users.GetUsersByEmails(ctx, sources)
		if err != nil {
			return nil, errors.Wrap(err, "load notification sources")
		}
		for i := range users {
			authors[users[i].Email] = users[i].ToAuthor()
		}
	}

	views := make([]models.NotificationView, 0, len(unread))
	for _, n := range unread {
		views = append(views, models.NotificationView{
			Notification: n,
			FromUser:     authors[n.From],
			Message:      n.Message(),
		})
	}
	return views, nil
}

// Clear replaces the whole inbox with an empty list. Entries are discarded,
// not marked read.
func (s *NotificationService) Clear(ctx context.Context, email string) error {
	if err := s.users.ClearNotifications(ctx, email); err != nil {
		return notFoundOr(err, "user not found", "clear inbox")
	}
	return nil
}
