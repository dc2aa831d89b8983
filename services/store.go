package services

import (
	"context"

	"kavyalok/database"
	"kavyalok/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The store interfaces are satisfied by both *database.Store and
// *memory.Store.

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsersByEmails(ctx context.Context, emails []string) ([]models.User, error)
	UpdateProfile(ctx context.Context, email string, update database.ProfileUpdate) (*models.User, error)
	AddToUserSet(ctx context.Context, email string, field database.UserSetField, value interface{}) error
	PullFromUserSet(ctx context.Context, email string, field database.UserSetField, value interface{}) error
	PushNotification(ctx context.Context, email string, n models.Notification) error
	ClearNotifications(ctx context.Context, email string) error
}

type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	UpdatePost(ctx context.Context, id primitive.ObjectID, update database.PostUpdate) (*models.Post, error)
	DeletePost(ctx context.Context, id primitive.ObjectID) error
	IncrementLikes(ctx context.Context, id primitive.ObjectID, delta int) (int, error)
	AppendComment(ctx context.Context, postID, commentID primitive.ObjectID) error
	ListPosts(ctx context.Context, filter models.PostFilter, skip, limit int64) ([]models.PostView, error)
	CountPosts(ctx context.Context, filter models.PostFilter) (int64, error)
}

type CommentStore interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	ListComments(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error)
	DeleteCommentsByPost(ctx context.Context, postID primitive.ObjectID) (int64, error)
}

type CompetitionStore interface {
	ListCompetitions(ctx context.Context) ([]models.Competition, error)
	GetCompetition(ctx context.Context, id primitive.ObjectID) (*models.Competition, error)
	AddParticipant(ctx context.Context, id primitive.ObjectID, email string) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByTxnID(ctx context.Context, txnID string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, txnID string, status models.PaymentStatus, gatewayID string) (*models.Payment, error)
	HasSettledPayment(ctx context.Context, competitionID primitive.ObjectID, email string) (bool, error)
}

type PushStore interface {
	SavePushSubscription(ctx context.Context, sub *models.PushSubscription) error
	ListPushSubscriptions(ctx context.Context, email string) ([]models.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// Store is everything the services need from persistence.
type Store interface {
	UserStore
	PostStore
	CommentStore
	CompetitionStore
	PushStore
}

// parseID parses a hex ObjectID supplied by a client.
func parseID(hex, field string) (primitive.ObjectID, error) {
	if hex == "" {
		return primitive.NilObjectID, Validationf("%s is required", field)
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, Validationf("invalid %s", field)
	}
	return id, nil
}
