package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Author       primitive.ObjectID   `bson:"author" json:"author"`
	Title        string               `bson:"title" json:"title"`
	Content      string               `bson:"content" json:"content"` // rich text (HTML)
	CoverImage   string               `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	CoverImageID string               `bson:"coverImageId,omitempty" json:"-"`
	Tags         []string             `bson:"tags" json:"tags"`
	Likes        int                  `bson:"likes" json:"likes"`
	Comments     []primitive.ObjectID `bson:"comments" json:"comments"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// PostView is a post joined with its author projection, as returned by listings.
type PostView struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Title        string             `bson:"title" json:"title"`
	Content      string             `bson:"content" json:"content"`
	CoverImage   string             `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	Tags         []string           `bson:"tags" json:"tags"`
	Likes        int                `bson:"likes" json:"likes"`
	CommentCount int                `bson:"commentCount" json:"commentCount"`
	Author       *Author            `bson:"author,omitempty" json:"author"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (p *Post) ToView(author *Author) PostView {
	return PostView{
		ID:           p.ID,
		Title:        p.Title,
		Content:      p.Content,
		CoverImage:   p.CoverImage,
		Tags:         p.Tags,
		Likes:        p.Likes,
		CommentCount: len(p.Comments),
		Author:       author,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// FeedPage is one page of a post listing. It is also the cached payload.
type FeedPage struct {
	Items   []PostView `json:"items"`
	Total   int64      `json:"total"`
	HasMore bool       `json:"hasMore"`
	Page    int        `json:"page"`
	Limit   int        `json:"limit"`
}

// PostFilter narrows a post listing. The zero value matches every post.
type PostFilter struct {
	IDs    []primitive.ObjectID
	ByIDs  bool // restrict to IDs even when empty
	Search string
	Tag    string
}
