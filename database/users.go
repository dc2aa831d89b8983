package database

import (
	"context"
	"time"

	"kavyalok/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.users.InsertOne(ctx, user)
	return translate(err, "insert user")
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user models.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err, "find user")
	}
	return &user, nil
}

// GetUsersByEmails returns the author projection of the users whose email is
// in emails, in no particular order. Unknown emails are skipped.
func (s *Store) GetUsersByEmails(ctx context.Context, emails []string) ([]models.User, error) {
	if len(emails) == 0 {
		return []models.User{}, nil
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetProjection(authorExclusion(""))
	cursor, err := s.users.Find(ctx, bson.M{"email": bson.M{"$in": emails}}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find users")
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	return users, nil
}

func (s *Store) UpdateProfile(ctx context.Context, email string, update ProfileUpdate) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{"updatedAt": time.Now()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}
	if update.Avatar != nil {
		set["avatar"] = *update.Avatar
	}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.SocialLinks != nil {
		set["socialLinks"] = update.SocialLinks
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := s.users.FindOneAndUpdate(ctx, bson.M{"email": email}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		return nil, translate(err, "update profile")
	}
	return &user, nil
}

// AddToUserSet adds value to one of the user's set-valued arrays. Adding a
// value that is already present is a no-op.
func (s *Store) AddToUserSet(ctx context.Context, email string, field UserSetField, value interface{}) error {
	return s.updateUser(ctx, email, bson.M{"$addToSet": bson.M{string(field): value}}, "add to "+string(field))
}

// PullFromUserSet removes value from one of the user's set-valued arrays.
func (s *Store) PullFromUserSet(ctx context.Context, email string, field UserSetField, value interface{}) error {
	return s.updateUser(ctx, email, bson.M{"$pull": bson.M{string(field): value}}, "pull from "+string(field))
}

// PushNotification appends n to the user's embedded inbox.
func (s *Store) PushNotification(ctx context.Context, email string, n models.Notification) error {
	return s.updateUser(ctx, email, bson.M{"$push": bson.M{"notifications": n}}, "push notification")
}

// ClearNotifications replaces the whole inbox with an empty array.
func (s *Store) ClearNotifications(ctx context.Context, email string) error {
	return s.updateUser(ctx, email, bson.M{"$set": bson.M{"notifications": []models.Notification{}}}, "clear notifications")
}

func (s *Store) updateUser(ctx context.Context, email string, update bson.M, what string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := s.users.UpdateOne(ctx, bson.M{"email": email}, update)
	if err != nil {
		return errors.Wrap(err, what)
	}
	if result.MatchedCount == 0 {
		return errors.Wrap(ErrNotFound, what)
	}
	return nil
}

// authorExclusion builds the projection removing models.AuthorExcludedFields,
// optionally below a prefix such as "author".
func authorExclusion(prefix string) bson.M {
	projection := bson.M{}
	for _, field := range models.AuthorExcludedFields {
		if prefix != "" {
			field = prefix + "." + field
		}
		projection[field] = 0
	}
	return projection
}
