// Package push delivers web push notifications to stored browser subscriptions.
package push

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"kavyalok/logger"
	"kavyalok/models"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"
)

const ttlSeconds = 60

// SubscriptionStore is the part of the store the sender reads and prunes.
type SubscriptionStore interface {
	ListPushSubscriptions(ctx context.Context, email string) ([]models.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// Payload is the JSON body the service worker receives.
type Payload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

type Sender struct {
	store      SubscriptionStore
	publicKey  string
	privateKey string
	subject    string
	client     webpush.HTTPClient
}

// NewSender returns a sender signing with the given VAPID key pair. subject
// is the contact address, with or without a mailto: prefix.
func NewSender(store SubscriptionStore, publicKey, privateKey, subject string) *Sender {
	return &Sender{
		store:      store,
		publicKey:  publicKey,
		privateKey: privateKey,
		subject:    strings.TrimPrefix(subject, "mailto:"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Sender) PublicKey() string {
	return s.publicKey
}

// Send pushes payload to every subscription of email. Subscriptions the push
// service reports as gone are deleted. The first delivery error is returned
// after all subscriptions were tried.
func (s *Sender) Send(ctx context.Context, email string, payload Payload) error {
	subs, err := s.store.ListPushSubscriptions(ctx, email)
	if err != nil {
		return errors.Wrap(err, "list push subscriptions")
	}
	if len(subs) == 0 {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal push payload")
	}

	var firstErr error
	for i := range subs {
		if err := s.sendOne(ctx, &subs[i].Sub, body); err != nil {
			logger.Log.WithError(err).WithField("email", email).Warn("Web push delivery failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Sender) sendOne(ctx context.Context, sub *webpush.Subscription, body []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, body, sub, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             ttlSeconds,
	})
	if err != nil {
		return errors.Wrap(err, "send web push")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		logger.Log.WithField("endpoint", sub.Endpoint).Info("Push subscription expired, deleting")
		if err := s.store.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			return errors.Wrap(err, "delete expired push subscription")
		}
		return nil
	case resp.StatusCode >= 400:
		return errors.Errorf("push service responded %d", resp.StatusCode)
	}
	return nil
}

// Deliver pushes a notification summary. It lets the sender act as one of the
// live notification channels.
func (s *Sender) Deliver(ctx context.Context, email string, n models.NotificationView) error {
	actor := n.From
	if n.FromUser != nil && n.FromUser.Username != "" {
		actor = n.FromUser.Username
	}

	data := map[string]interface{}{"type": n.Type}
	if n.Post != nil {
		data["post"] = n.Post.Hex()
	}
	return s.Send(ctx, email, Payload{
		Title: "Kavyalok",
		Body:  actor + " " + n.Message,
		Data:  data,
	})
}
