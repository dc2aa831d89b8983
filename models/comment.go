package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Comment struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Post          primitive.ObjectID  `bson:"post" json:"post"`
	Author        primitive.ObjectID  `bson:"author" json:"-"`
	AuthorInfo    *Author             `bson:"authorInfo,omitempty" json:"author,omitempty"` // populated on read only
	Content       string              `bson:"content" json:"content"`
	ParentComment *primitive.ObjectID `bson:"parentComment" json:"parentComment"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
}
