package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationNewFollower NotificationType = "new_follower"
	NotificationPostLike    NotificationType = "post_like"
)

// Notification is embedded in the receiving user's document.
type Notification struct {
	Type      NotificationType    `bson:"type" json:"type"`
	From      string              `bson:"from" json:"from"` // source email
	Post      *primitive.ObjectID `bson:"post,omitempty" json:"post,omitempty"`
	Read      bool                `bson:"read" json:"read"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
}

// NotificationView is a notification joined with the author projection of its source.
type NotificationView struct {
	Notification
	FromUser *Author `json:"fromUser,omitempty"`
	Message  string  `json:"message"`
}

func (n *Notification) Message() string {
	switch n.Type {
	case NotificationNewFollower:
		return "started following you"
	case NotificationPostLike:
		return "liked your post"
	default:
		return "interacted with your content"
	}
}
