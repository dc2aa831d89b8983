package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	Username     string             `bson:"username" json:"username"`
	FirebaseUID  string             `bson:"firebaseUid,omitempty" json:"-"`
	PasswordHash *string            `bson:"passwordHash,omitempty" json:"-"`
	AuthProvider string             `bson:"authProvider" json:"-"`

	// Profile fields
	Name        string            `bson:"name" json:"name"`
	Bio         string            `bson:"bio" json:"bio"`
	Avatar      string            `bson:"avatar" json:"avatar"`
	SocialLinks map[string]string `bson:"socialLinks,omitempty" json:"socialLinks,omitempty"`

	Posts         []primitive.ObjectID `bson:"posts" json:"posts"`
	Bookmarks     []primitive.ObjectID `bson:"bookmarks" json:"bookmarks"`
	Likes         []primitive.ObjectID `bson:"likes" json:"likes"`
	Followers     []string             `bson:"followers" json:"followers"`
	Following     []string             `bson:"following" json:"following"`
	Notifications []Notification       `bson:"notifications" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// AuthorExcludedFields lists the user fields stripped whenever a user is
// embedded into another payload (feeds, comments, notifications).
var AuthorExcludedFields = []string{
	"firebaseUid",
	"passwordHash",
	"authProvider",
	"socialLinks",
	"posts",
	"bookmarks",
	"likes",
	"followers",
	"following",
	"notifications",
	"updatedAt",
}

// Author is the projected shape of a User once AuthorExcludedFields are removed.
type Author struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Username  string             `bson:"username" json:"username"`
	Name      string             `bson:"name" json:"name"`
	Bio       string             `bson:"bio" json:"bio"`
	Avatar    string             `bson:"avatar" json:"avatar"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

func (u *User) ToAuthor() *Author {
	return &Author{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Name:      u.Name,
		Bio:       u.Bio,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

// Profile is the public view of a user: the author projection plus counts.
type Profile struct {
	Author
	SocialLinks    map[string]string `json:"socialLinks,omitempty"`
	PostCount      int               `json:"postCount"`
	FollowerCount  int               `json:"followerCount"`
	FollowingCount int               `json:"followingCount"`
}

func (u *User) ToProfile() *Profile {
	return &Profile{
		Author:         *u.ToAuthor(),
		SocialLinks:    u.SocialLinks,
		PostCount:      len(u.Posts),
		FollowerCount:  len(u.Followers),
		FollowingCount: len(u.Following),
	}
}

// HasObjectID reports whether id is present in ids.
func HasObjectID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// HasString reports whether s is present in values.
func HasString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
