package services

import (
	"context"
	"io"
	"regexp"
	"strings"
	"time"

	"kavyalok/auth"
	"kavyalok/database"
	"kavyalok/logger"
	"kavyalok/mail"
	"kavyalok/media"
	"kavyalok/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const (
	maxBioLength     = 500
	maxNameLength    = 80
	friendsFetchSize = 8
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,30}$`)

type RegisterInput struct {
	Username string
	Name     string
	Bio      string
}

// ProfileInput holds the profile fields a user may change. Nil means
// unchanged. Avatar, when set, is uploaded and replaces the current one.
type ProfileInput struct {
	Name        *string
	Bio         *string
	Username    *string
	SocialLinks map[string]string
	Avatar      io.Reader
}

type UserService struct {
	users  UserStore
	feed   *FeedService
	media  media.Uploader
	mailer mail.Mailer
}

func NewUserService(users UserStore, feed *FeedService, uploader media.Uploader, mailer mail.Mailer) *UserService {
	return &UserService{users: users, feed: feed, media: uploader, mailer: mailer}
}

// Register creates the profile of a verified identity.
func (s *UserService) Register(ctx context.Context, id *auth.Identity, in RegisterInput) (*models.Profile, error) {
	user, err := s.newUser(id.Email, in)
	if err != nil {
		return nil, err
	}
	user.FirebaseUID = id.UID
	user.AuthProvider = "firebase"
	if err := s.create(ctx, user); err != nil {
		return nil, err
	}
	return user.ToProfile(), nil
}

// newUser validates in and returns a user document with every array set, so
// later $addToSet and $push updates find an array and not null.
func (s *UserService) newUser(email string, in RegisterInput) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, Validationf("email is required")
	}
	in.Username = strings.TrimSpace(in.Username)
	if !usernamePattern.MatchString(in.Username) {
		return nil, Validationf("username must be 3-30 letters, digits, dots or underscores")
	}
	if len(in.Name) > maxNameLength {
		return nil, Validationf("name must be at most %d characters", maxNameLength)
	}
	if len(in.Bio) > maxBioLength {
		return nil, Validationf("bio must be at most %d characters", maxBioLength)
	}

	now := time.Now()
	return &models.User{
		ID:            primitive.NewObjectID(),
		Email:         email,
		Username:      in.Username,
		Name:          strings.TrimSpace(in.Name),
		Bio:           in.Bio,
		Posts:         []primitive.ObjectID{},
		Bookmarks:     []primitive.ObjectID{},
		Likes:         []primitive.ObjectID{},
		Followers:     []string{},
		Following:     []string{},
		Notifications: []models.Notification{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *UserService) create(ctx context.Context, user *models.User) error {
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return Conflictf("email or username already registered")
		}
		return errors.Wrap(err, "create user")
	}

	if err := s.mailer.Send(ctx, mail.Welcome(user.Email, user.Name)); err != nil {
		logger.Log.WithError(err).WithField("email", user.Email).Warn("Welcome mail not sent")
	}
	return nil
}

// Profile looks a user up by username, or by email when username is empty.
func (s *UserService) Profile(ctx context.Context, username, email string) (*models.Profile, error) {
	var (
		user *models.User
		err  error
	)
	switch {
	case username != "":
		user, err = s.users.GetUserByUsername(ctx, username)
	case email != "":
		user, err = s.users.GetUserByEmail(ctx, email)
	default:
		return nil, Validationf("username or email is required")
	}
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load profile")
	}
	return user.ToProfile(), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, email string, in ProfileInput) (*models.Profile, error) {
	current, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load profile")
	}

	update := database.ProfileUpdate{SocialLinks: in.SocialLinks}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if len(name) > maxNameLength {
			return nil, Validationf("name must be at most %d characters", maxNameLength)
		}
		update.Name = &name
	}
	if in.Bio != nil {
		if len(*in.Bio) > maxBioLength {
			return nil, Validationf("bio must be at most %d characters", maxBioLength)
		}
		update.Bio = in.Bio
	}
	if in.Username != nil && *in.Username != current.Username {
		username := strings.TrimSpace(*in.Username)
		if !usernamePattern.MatchString(username) {
			return nil, Validationf("username must be 3-30 letters, digits, dots or underscores")
		}
		if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
			return nil, Conflictf("username already taken")
		} else if !isStoreNotFound(err) {
			return nil, errors.Wrap(err, "check username")
		}
		update.Username = &username
	}
	if in.Avatar != nil {
		asset, err := s.media.Upload(ctx, in.Avatar, media.KindAvatar, current.ID.Hex())
		if err != nil {
			return nil, errors.Wrap(err, "upload avatar")
		}
		update.Avatar = &asset.URL
	}
	if update.Empty() {
		return current.ToProfile(), nil
	}

	user, err := s.users.UpdateProfile(ctx, email, update)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, Conflictf("username already taken")
		}
		return nil, notFoundOr(err, "user not found", "update profile")
	}
	return user.ToProfile(), nil
}

// Posts lists a user's own posts, newest first.
func (s *UserService) Posts(ctx context.Context, email string, page, limit int) (*models.FeedPage, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load user posts")
	}
	return s.feed.List(ctx, FeedQuery{Kind: FeedIDs, Page: page, Limit: limit, PostIDs: user.Posts})
}

// Bookmarks lists the posts a user bookmarked, newest first.
func (s *UserService) Bookmarks(ctx context.Context, email string, page, limit int) (*models.FeedPage, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load bookmarks")
	}
	return s.feed.List(ctx, FeedQuery{Kind: FeedIDs, Page: page, Limit: limit, PostIDs: user.Bookmarks})
}

// Friends returns the profiles of the users email follows, in following
// order. Each profile is fetched separately and all lookups are awaited;
// users that no longer exist are skipped.
func (s *UserService) Friends(ctx context.Context, email string) ([]*models.Profile, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load friends")
	}

	found := make([]*models.Profile, len(user.Following))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(friendsFetchSize)
	for i, friend := range user.Following {
		i, friend := i, friend
		g.Go(func() error {
			u, err := s.users.GetUserByEmail(gctx, friend)
			if err != nil {
				if isStoreNotFound(err) {
					return nil
				}
				return errors.Wrapf(err, "load friend %s", friend)
			}
			found[i] = u.ToProfile()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	friends := make([]*models.Profile, 0, len(found))
	for _, p := range found {
		if p != nil {
			friends = append(friends, p)
		}
	}
	return friends, nil
}
