package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"kavyalok/cache"
	"kavyalok/database"
	"kavyalok/logger"
	"kavyalok/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ActionFollow   = "follow"
	ActionUnfollow = "unfollow"
)

type LikeResult struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// Interactions is the actor-side state a client needs to render toggles.
type Interactions struct {
	Likes     []primitive.ObjectID `json:"likes"`
	Bookmarks []primitive.ObjectID `json:"bookmarks"`
	Following []string             `json:"following"`
}

// InteractionService applies like, bookmark and follow toggles. Each toggle
// writes the actor side and the target side as separate store operations;
// a failure between them is returned and the two sides stay out of step.
type InteractionService struct {
	users         UserStore
	posts         PostStore
	notifications *NotificationService
	cache         cache.Cache
	ttl           time.Duration
}

func NewInteractionService(users UserStore, posts PostStore, notifications *NotificationService, c cache.Cache, ttl time.Duration) *InteractionService {
	return &InteractionService{
		users:         users,
		posts:         posts,
		notifications: notifications,
		cache:         c,
		ttl:           ttl,
	}
}

// ToggleLike flips the actor's like on a post and returns the new state and
// counter. Only the absent to present transition notifies the post author,
// and never when the actor wrote the post.
func (s *InteractionService) ToggleLike(ctx context.Context, email, postHex string) (*LikeResult, error) {
	postID, err := parseID(postHex, "postId")
	if err != nil {
		return nil, err
	}
	actor, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load actor")
	}
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, notFoundOr(err, "post not found", "load post")
	}

	log := logger.Log.WithField("email", email).WithField("post", postHex)

	if models.HasObjectID(actor.Likes, postID) {
		if err := s.users.PullFromUserSet(ctx, email, database.FieldLikes, postID); err != nil {
			return nil, errors.Wrap(err, "unlike: actor side")
		}
		likes, err := s.posts.IncrementLikes(ctx, postID, -1)
		if err != nil {
			log.WithError(err).Error("Unlike left actor and post out of step")
			return nil, errors.Wrap(err, "unlike: post counter")
		}
		return &LikeResult{Liked: false, Likes: likes}, nil
	}

	if err := s.users.AddToUserSet(ctx, email, database.FieldLikes, postID); err != nil {
		return nil, errors.Wrap(err, "like: actor side")
	}
	likes, err := s.posts.IncrementLikes(ctx, postID, 1)
	if err != nil {
		log.WithError(err).Error("Like left actor and post out of step")
		return nil, errors.Wrap(err, "like: post counter")
	}

	if post.Author != actor.ID {
		author, err := s.users.GetUserByID(ctx, post.Author)
		if err != nil {
			log.WithError(err).Error("Like recorded but post author could not be loaded")
			return nil, errors.Wrap(err, "like: load author")
		}
		n := models.Notification{
			Type: models.NotificationPostLike,
			From: email,
			Post: &postID,
		}
		if err := s.notifications.Notify(ctx, author.Email, n, actor.ToAuthor()); err != nil {
			log.WithError(err).Error("Like recorded but author notification failed")
			return nil, err
		}
	}
	return &LikeResult{Liked: true, Likes: likes}, nil
}

// ToggleBookmark flips the bookmark and reports whether the post is now
// bookmarked.
func (s *InteractionService) ToggleBookmark(ctx context.Context, email, postHex string) (bool, error) {
	postID, err := parseID(postHex, "postId")
	if err != nil {
		return false, err
	}
	actor, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return false, notFoundOr(err, "user not found", "load actor")
	}
	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return false, notFoundOr(err, "post not found", "load post")
	}

	if models.HasObjectID(actor.Bookmarks, postID) {
		if err := s.users.PullFromUserSet(ctx, email, database.FieldBookmarks, postID); err != nil {
			return false, errors.Wrap(err, "remove bookmark")
		}
		return false, nil
	}
	if err := s.users.AddToUserSet(ctx, email, database.FieldBookmarks, postID); err != nil {
		return false, errors.Wrap(err, "add bookmark")
	}
	return true, nil
}

// Follow applies action ("follow" or "unfollow") from actor to target.
// Following appends a new_follower notification to the target every time.
func (s *InteractionService) Follow(ctx context.Context, actorEmail, targetEmail, action string) error {
	if action != ActionFollow && action != ActionUnfollow {
		return Validationf("action must be %q or %q", ActionFollow, ActionUnfollow)
	}
	if targetEmail == "" {
		return Validationf("targetEmail is required")
	}
	if strings.EqualFold(actorEmail, targetEmail) {
		return Validationf("you cannot follow yourself")
	}

	actor, err := s.users.GetUserByEmail(ctx, actorEmail)
	if err != nil {
		return notFoundOr(err, "user not found", "load actor")
	}
	if _, err := s.users.GetUserByEmail(ctx, targetEmail); err != nil {
		return notFoundOr(err, "target user not found", "load target")
	}

	log := logger.Log.WithField("actor", actorEmail).WithField("target", targetEmail)

	if action == ActionUnfollow {
		if err := s.users.PullFromUserSet(ctx, actorEmail, database.FieldFollowing, targetEmail); err != nil {
			return errors.Wrap(err, "unfollow: actor side")
		}
		if err := s.users.PullFromUserSet(ctx, targetEmail, database.FieldFollowers, actorEmail); err != nil {
			log.WithError(err).Error("Unfollow left following and followers out of step")
			return errors.Wrap(err, "unfollow: target side")
		}
		return nil
	}

	if err := s.users.AddToUserSet(ctx, actorEmail, database.FieldFollowing, targetEmail); err != nil {
		return errors.Wrap(err, "follow: actor side")
	}
	if err := s.users.AddToUserSet(ctx, targetEmail, database.FieldFollowers, actorEmail); err != nil {
		log.WithError(err).Error("Follow left following and followers out of step")
		return errors.Wrap(err, "follow: target side")
	}
	n := models.Notification{Type: models.NotificationNewFollower, From: actorEmail}
	if err := s.notifications.Notify(ctx, targetEmail, n, actor.ToAuthor()); err != nil {
		log.WithError(err).Error("Follow recorded but notification failed")
		return err
	}
	return nil
}

// Lookup returns the actor's likes, bookmarks and following, served from the
// cache when possible. Like feed pages, entries are never invalidated.
func (s *InteractionService) Lookup(ctx context.Context, email string) (*Interactions, error) {
	key := cache.InteractionsKey(email)
	log := logger.Log.WithField("key", key)

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		log.WithError(err).Warn("Interactions cache read failed, querying store")
	} else if ok {
		var out Interactions
		if err := json.Unmarshal(raw, &out); err == nil {
			return &out, nil
		}
		log.Warn("Discarding undecodable interactions cache entry")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load interactions")
	}
	out := &Interactions{
		Likes:     nonNilIDs(user.Likes),
		Bookmarks: nonNilIDs(user.Bookmarks),
		Following: nonNilStrings(user.Following),
	}

	if raw, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			log.WithError(err).Warn("Interactions cache write failed")
		}
	}
	return out, nil
}

func nonNilIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
