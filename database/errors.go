package database

import "errors"

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// UserSetField names a set-valued array on the user document.
type UserSetField string

const (
	FieldPosts     UserSetField = "posts"
	FieldBookmarks UserSetField = "bookmarks"
	FieldLikes     UserSetField = "likes"
	FieldFollowers UserSetField = "followers"
	FieldFollowing UserSetField = "following"
)

// ProfileUpdate holds the optional profile fields a user may change.
type ProfileUpdate struct {
	Name        *string
	Bio         *string
	Avatar      *string
	Username    *string
	SocialLinks map[string]string
}

func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Bio == nil && u.Avatar == nil && u.Username == nil && u.SocialLinks == nil
}

// PostUpdate holds the optional post fields an author may change.
type PostUpdate struct {
	Title        *string
	Content      *string
	Tags         []string
	CoverImage   *string
	CoverImageID *string
}
