// Package memory is an in-process document store with the same semantics as
// the MongoDB store. It backs STORE=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"kavyalok/database"
	"kavyalok/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu           sync.RWMutex
	users        map[string]*models.User // by email
	posts        map[primitive.ObjectID]*models.Post
	comments     map[primitive.ObjectID]*models.Comment
	competitions map[primitive.ObjectID]*models.Competition
	payments     map[string]*models.Payment          // by txnid
	pushSubs     map[string]*models.PushSubscription // by endpoint
}

func New() *Store {
	return &Store{
		users:        map[string]*models.User{},
		posts:        map[primitive.ObjectID]*models.Post{},
		comments:     map[primitive.ObjectID]*models.Comment{},
		competitions: map[primitive.ObjectID]*models.Competition{},
		payments:     map[string]*models.Payment{},
		pushSubs:     map[string]*models.PushSubscription{},
	}
}

func notFound(what string) error {
	return errors.Wrap(database.ErrNotFound, what)
}

// Users

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Email]; ok {
		return errors.Wrap(database.ErrDuplicate, "insert user")
	}
	for _, u := range s.users {
		if u.Username == user.Username {
			return errors.Wrap(database.ErrDuplicate, "insert user")
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.Email] = copyUser(user)
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return nil, notFound("find user")
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			return copyUser(u), nil
		}
	}
	return nil, notFound("find user")
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, notFound("find user")
}

func (s *Store) GetUsersByEmails(_ context.Context, emails []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := []models.User{}
	seen := map[string]bool{}
	for _, email := range emails {
		u, ok := s.users[email]
		if !ok || seen[email] {
			continue
		}
		seen[email] = true
		a := u.ToAuthor()
		users = append(users, models.User{
			ID:        a.ID,
			Email:     a.Email,
			Username:  a.Username,
			Name:      a.Name,
			Bio:       a.Bio,
			Avatar:    a.Avatar,
			CreatedAt: a.CreatedAt,
		})
	}
	return users, nil
}

func (s *Store) UpdateProfile(_ context.Context, email string, update database.ProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return nil, notFound("update profile")
	}
	if update.Username != nil && *update.Username != u.Username {
		for _, other := range s.users {
			if other.Username == *update.Username {
				return nil, errors.Wrap(database.ErrDuplicate, "update profile")
			}
		}
		u.Username = *update.Username
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Bio != nil {
		u.Bio = *update.Bio
	}
	if update.Avatar != nil {
		u.Avatar = *update.Avatar
	}
	if update.SocialLinks != nil {
		u.SocialLinks = copyLinks(update.SocialLinks)
	}
	u.UpdatedAt = time.Now()
	return copyUser(u), nil
}

func (s *Store) AddToUserSet(_ context.Context, email string, field database.UserSetField, value interface{}) error {
	return s.mutateUser(email, "add to "+string(field), func(u *models.User) error {
		switch field {
		case database.FieldPosts, database.FieldBookmarks, database.FieldLikes:
			id, ok := value.(primitive.ObjectID)
			if !ok {
				return errors.Errorf("%s holds object ids, got %T", field, value)
			}
			ids := objectIDSet(u, field)
			if !models.HasObjectID(*ids, id) {
				*ids = append(*ids, id)
			}
		case database.FieldFollowers, database.FieldFollowing:
			email, ok := value.(string)
			if !ok {
				return errors.Errorf("%s holds emails, got %T", field, value)
			}
			emails := stringSet(u, field)
			if !models.HasString(*emails, email) {
				*emails = append(*emails, email)
			}
		default:
			return errors.Errorf("unknown user set %q", field)
		}
		return nil
	})
}

func (s *Store) PullFromUserSet(_ context.Context, email string, field database.UserSetField, value interface{}) error {
	return s.mutateUser(email, "pull from "+string(field), func(u *models.User) error {
		switch field {
		case database.FieldPosts, database.FieldBookmarks, database.FieldLikes:
			id, ok := value.(primitive.ObjectID)
			if !ok {
				return errors.Errorf("%s holds object ids, got %T", field, value)
			}
			ids := objectIDSet(u, field)
			kept := (*ids)[:0]
			for _, v := range *ids {
				if v != id {
					kept = append(kept, v)
				}
			}
			*ids = kept
		case database.FieldFollowers, database.FieldFollowing:
			email, ok := value.(string)
			if !ok {
				return errors.Errorf("%s holds emails, got %T", field, value)
			}
			emails := stringSet(u, field)
			kept := (*emails)[:0]
			for _, v := range *emails {
				if v != email {
					kept = append(kept, v)
				}
			}
			*emails = kept
		default:
			return errors.Errorf("unknown user set %q", field)
		}
		return nil
	})
}

func (s *Store) PushNotification(_ context.Context, email string, n models.Notification) error {
	return s.mutateUser(email, "push notification", func(u *models.User) error {
		u.Notifications = append(u.Notifications, n)
		return nil
	})
}

func (s *Store) ClearNotifications(_ context.Context, email string) error {
	return s.mutateUser(email, "clear notifications", func(u *models.User) error {
		u.Notifications = []models.Notification{}
		return nil
	})
}

func (s *Store) mutateUser(email, what string, fn func(*models.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return notFound(what)
	}
	return fn(u)
}

func objectIDSet(u *models.User, field database.UserSetField) *[]primitive.ObjectID {
	switch field {
	case database.FieldPosts:
		return &u.Posts
	case database.FieldBookmarks:
		return &u.Bookmarks
	default:
		return &u.Likes
	}
}

func stringSet(u *models.User, field database.UserSetField) *[]string {
	if field == database.FieldFollowers {
		return &u.Followers
	}
	return &u.Following
}

// Posts

func (s *Store) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if _, ok := s.posts[post.ID]; ok {
		return errors.Wrap(database.ErrDuplicate, "insert post")
	}
	s.posts[post.ID] = copyPost(post)
	return nil
}

func (s *Store) GetPost(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, notFound("find post")
	}
	return copyPost(p), nil
}

func (s *Store) UpdatePost(_ context.Context, id primitive.ObjectID, update database.PostUpdate) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, notFound("update post")
	}
	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Content != nil {
		p.Content = *update.Content
	}
	if update.Tags != nil {
		p.Tags = append([]string{}, update.Tags...)
	}
	if update.CoverImage != nil {
		p.CoverImage = *update.CoverImage
	}
	if update.CoverImageID != nil {
		p.CoverImageID = *update.CoverImageID
	}
	p.UpdatedAt = time.Now()
	return copyPost(p), nil
}

func (s *Store) DeletePost(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return notFound("delete post")
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) IncrementLikes(_ context.Context, id primitive.ObjectID, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return 0, notFound("increment likes")
	}
	p.Likes += delta
	if p.Likes < 0 {
		p.Likes = 0
	}
	return p.Likes, nil
}

func (s *Store) AppendComment(_ context.Context, postID, commentID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return notFound("append comment")
	}
	p.Comments = append(p.Comments, commentID)
	return nil
}

func (s *Store) ListPosts(_ context.Context, filter models.PostFilter, skip, limit int64) ([]models.PostView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchPosts(filter)
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.Hex() > b.ID.Hex()
	})

	views := []models.PostView{}
	for i := skip; i < int64(len(matched)) && i < skip+limit; i++ {
		p := matched[i]
		views = append(views, copyPost(p).ToView(s.authorByID(p.Author)))
	}
	return views, nil
}

func (s *Store) CountPosts(_ context.Context, filter models.PostFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.matchPosts(filter))), nil
}

func (s *Store) matchPosts(filter models.PostFilter) []*models.Post {
	byIDs := filter.ByIDs || len(filter.IDs) > 0
	search := strings.ToLower(filter.Search)

	matched := []*models.Post{}
	for _, p := range s.posts {
		if byIDs && !models.HasObjectID(filter.IDs, p.ID) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Content), search) {
			continue
		}
		if filter.Tag != "" && !models.HasString(p.Tags, filter.Tag) {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}

func (s *Store) authorByID(id primitive.ObjectID) *models.Author {
	for _, u := range s.users {
		if u.ID == id {
			return u.ToAuthor()
		}
	}
	return nil
}

// Comments

func (s *Store) CreateComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	c := *comment
	c.AuthorInfo = nil
	s.comments[c.ID] = &c
	return nil
}

func (s *Store) GetComment(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, notFound("find comment")
	}
	out := *c
	return &out, nil
}

func (s *Store) ListComments(_ context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := []models.Comment{}
	for _, c := range s.comments {
		if c.Post != postID {
			continue
		}
		out := *c
		out.AuthorInfo = s.authorByID(c.Author)
		comments = append(comments, out)
	}
	sort.Slice(comments, func(i, j int) bool {
		a, b := comments[i], comments[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.Hex() < b.ID.Hex()
	})
	return comments, nil
}

func (s *Store) DeleteCommentsByPost(_ context.Context, postID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, c := range s.comments {
		if c.Post == postID {
			delete(s.comments, id)
			n++
		}
	}
	return n, nil
}

// Competitions and payments

func (s *Store) ListCompetitions(_ context.Context) ([]models.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	competitions := []models.Competition{}
	for _, c := range s.competitions {
		out := *c
		out.Participants = append([]string{}, c.Participants...)
		competitions = append(competitions, out)
	}
	sort.Slice(competitions, func(i, j int) bool {
		return competitions[i].Deadline.Before(competitions[j].Deadline)
	})
	return competitions, nil
}

func (s *Store) CreateCompetition(_ context.Context, competition *models.Competition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if competition.ID.IsZero() {
		competition.ID = primitive.NewObjectID()
	}
	c := *competition
	c.Participants = append([]string{}, competition.Participants...)
	s.competitions[c.ID] = &c
	return nil
}

func (s *Store) GetCompetition(_ context.Context, id primitive.ObjectID) (*models.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.competitions[id]
	if !ok {
		return nil, notFound("find competition")
	}
	out := *c
	out.Participants = append([]string{}, c.Participants...)
	return &out, nil
}

func (s *Store) AddParticipant(_ context.Context, id primitive.ObjectID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.competitions[id]
	if !ok {
		return notFound("add participant")
	}
	if !models.HasString(c.Participants, email) {
		c.Participants = append(c.Participants, email)
	}
	return nil
}

func (s *Store) CreatePayment(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[payment.TxnID]; ok {
		return errors.Wrap(database.ErrDuplicate, "insert payment")
	}
	if payment.ID.IsZero() {
		payment.ID = primitive.NewObjectID()
	}
	p := *payment
	s.payments[p.TxnID] = &p
	return nil
}

func (s *Store) GetPaymentByTxnID(_ context.Context, txnID string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[txnID]
	if !ok {
		return nil, notFound("find payment")
	}
	out := *p
	return &out, nil
}

func (s *Store) HasSettledPayment(_ context.Context, competitionID primitive.ObjectID, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.payments {
		if p.CompetitionID == competitionID && p.Email == email && p.Status == models.PaymentSuccess {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdatePaymentStatus(_ context.Context, txnID string, status models.PaymentStatus, gatewayID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[txnID]
	if !ok || p.Status != models.PaymentPending {
		return nil, notFound("update payment")
	}
	p.Status = status
	p.GatewayID = gatewayID
	p.UpdatedAt = time.Now()
	out := *p
	return &out, nil
}

// Push subscriptions

func (s *Store) SavePushSubscription(_ context.Context, sub *models.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.pushSubs[sub.Sub.Endpoint]; ok {
		existing.Email = sub.Email
		existing.Sub = sub.Sub
		return nil
	}
	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	cp := *sub
	s.pushSubs[cp.Sub.Endpoint] = &cp
	return nil
}

func (s *Store) ListPushSubscriptions(_ context.Context, email string) ([]models.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := []models.PushSubscription{}
	for _, sub := range s.pushSubs {
		if sub.Email == email {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (s *Store) DeletePushSubscription(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pushSubs, endpoint)
	return nil
}

func copyUser(u *models.User) *models.User {
	out := *u
	out.SocialLinks = copyLinks(u.SocialLinks)
	out.Posts = append([]primitive.ObjectID{}, u.Posts...)
	out.Bookmarks = append([]primitive.ObjectID{}, u.Bookmarks...)
	out.Likes = append([]primitive.ObjectID{}, u.Likes...)
	out.Followers = append([]string{}, u.Followers...)
	out.Following = append([]string{}, u.Following...)
	out.Notifications = append([]models.Notification{}, u.Notifications...)
	return &out
}

func copyPost(p *models.Post) *models.Post {
	out := *p
	out.Tags = append([]string{}, p.Tags...)
	out.Comments = append([]primitive.ObjectID{}, p.Comments...)
	return &out
}

func copyLinks(links map[string]string) map[string]string {
	if links == nil {
		return nil
	}
	out := make(map[string]string, len(links))
	for k, v := range links {
		out[k] = v
	}
	return out
}
