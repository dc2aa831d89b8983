package database

import (
	"context"

	"kavyalok/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.comments.InsertOne(ctx, comment)
	return translate(err, "insert comment")
}

func (s *Store) GetComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var comment models.Comment
	if err := s.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&comment); err != nil {
		return nil, translate(err, "find comment")
	}
	return &comment, nil
}

// ListComments returns the comments of a post in creation order, each with
// its author projection in AuthorInfo.
func (s *Store) ListComments(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"post": postID}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: UsersCollection},
			{Key: "localField", Value: "author"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "authorInfo"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$authorInfo"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		{{Key: "$project", Value: authorExclusion("authorInfo")}},
	}

	cursor, err := s.comments.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate comments")
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, errors.Wrap(err, "decode comments")
	}
	return comments, nil
}

func (s *Store) DeleteCommentsByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := s.comments.DeleteMany(ctx, bson.M{"post": postID})
	if err != nil {
		return 0, errors.Wrap(err, "delete comments")
	}
	return result.DeletedCount, nil
}
