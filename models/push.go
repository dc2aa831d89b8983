package models

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PushSubscription is a browser web-push subscription owned by a user.
type PushSubscription struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email     string               `bson:"email" json:"email"`
	Sub       webpush.Subscription `bson:"sub" json:"sub"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
}
