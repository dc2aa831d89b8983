package database

import (
	"context"
	"time"

	"kavyalok/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.posts.InsertOne(ctx, post)
	return translate(err, "insert post")
}

func (s *Store) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var post models.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, translate(err, "find post")
	}
	return &post, nil
}

func (s *Store) UpdatePost(ctx context.Context, id primitive.ObjectID, update PostUpdate) (*models.Post, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{"updatedAt": time.Now()}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Content != nil {
		set["content"] = *update.Content
	}
	if update.Tags != nil {
		set["tags"] = update.Tags
	}
	if update.CoverImage != nil {
		set["coverImage"] = *update.CoverImage
	}
	if update.CoverImageID != nil {
		set["coverImageId"] = *update.CoverImageID
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post models.Post
	if err := s.posts.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&post); err != nil {
		return nil, translate(err, "update post")
	}
	return &post, nil
}

func (s *Store) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete post")
	}
	if result.DeletedCount == 0 {
		return errors.Wrap(ErrNotFound, "delete post")
	}
	return nil
}

// IncrementLikes adds delta to the post's like counter and returns the new
// value. Decrements never take the counter below zero.
func (s *Store) IncrementLikes(ctx context.Context, id primitive.ObjectID, delta int) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["likes"] = bson.M{"$gte": -delta}
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likes": 1})
	var post models.Post
	err := s.posts.FindOneAndUpdate(ctx, filter, bson.M{"$inc": bson.M{"likes": delta}}, opts).Decode(&post)
	if err == nil {
		return post.Likes, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) || delta >= 0 {
		return 0, translate(err, "increment likes")
	}

	// Either the post is gone or the counter is already below |delta|.
	err = s.posts.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"likes": 0}}, opts).Decode(&post)
	if err != nil {
		return 0, translate(err, "floor likes")
	}
	return post.Likes, nil
}

// AppendComment records commentID at the end of the post's comment list.
func (s *Store) AppendComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := s.posts.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$push": bson.M{"comments": commentID}})
	if err != nil {
		return errors.Wrap(err, "append comment")
	}
	if result.MatchedCount == 0 {
		return errors.Wrap(ErrNotFound, "append comment")
	}
	return nil
}

// ListPosts returns one window of posts matching filter, newest first, each
// joined with its author projection.
func (s *Store) ListPosts(ctx context.Context, filter models.PostFilter, skip, limit int64) ([]models.PostView, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	project := authorExclusion("author")
	project["comments"] = 0
	project["coverImageId"] = 0

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: postMatch(filter)}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$skip", Value: skip}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$addFields", Value: bson.M{
			"commentCount": bson.M{"$size": bson.M{"$ifNull": bson.A{"$comments", bson.A{}}}},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: UsersCollection},
			{Key: "localField", Value: "author"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "author"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$author"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		{{Key: "$project", Value: project}},
	}

	cursor, err := s.posts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate posts")
	}
	defer cursor.Close(ctx)

	posts := []models.PostView{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, errors.Wrap(err, "decode posts")
	}
	return posts, nil
}

func (s *Store) CountPosts(ctx context.Context, filter models.PostFilter) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	total, err := s.posts.CountDocuments(ctx, postMatch(filter))
	if err != nil {
		return 0, errors.Wrap(err, "count posts")
	}
	return total, nil
}

func postMatch(filter models.PostFilter) bson.M {
	match := bson.M{}
	if filter.ByIDs || len(filter.IDs) > 0 {
		ids := filter.IDs
		if ids == nil {
			ids = []primitive.ObjectID{}
		}
		match["_id"] = bson.M{"$in": ids}
	}
	if filter.Search != "" {
		match["$text"] = bson.M{"$search": filter.Search}
	}
	if filter.Tag != "" {
		match["tags"] = filter.Tag
	}
	return match
}
