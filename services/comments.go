package services

import (
	"context"
	"strings"
	"time"

	"kavyalok/commenttree"
	"kavyalok/logger"
	"kavyalok/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxCommentLength = 5000

type CommentService struct {
	users    UserStore
	posts    PostStore
	comments CommentStore
}

func NewCommentService(users UserStore, posts PostStore, comments CommentStore) *CommentService {
	return &CommentService{users: users, posts: posts, comments: comments}
}

// Create stores a comment or reply. A reply's parent must exist and belong to
// the same post, so stored parent chains never point outside their post.
func (s *CommentService) Create(ctx context.Context, email, postHex, content, parentHex string) (*models.Comment, error) {
	postID, err := parseID(postHex, "postId")
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, Validationf("content is required")
	}
	if len(content) > maxCommentLength {
		return nil, Validationf("content must be at most %d characters", maxCommentLength)
	}

	author, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load comment author")
	}
	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return nil, notFoundOr(err, "post not found", "load post")
	}

	var parent *primitive.ObjectID
	if parentHex != "" {
		parentID, err := parseID(parentHex, "parentComment")
		if err != nil {
			return nil, err
		}
		p, err := s.comments.GetComment(ctx, parentID)
		if err != nil {
			if isStoreNotFound(err) {
				return nil, Validationf("parent comment does not exist")
			}
			return nil, errors.Wrap(err, "load parent comment")
		}
		if p.Post != postID {
			return nil, Validationf("parent comment belongs to another post")
		}
		parent = &parentID
	}

	comment := &models.Comment{
		ID:            primitive.NewObjectID(),
		Post:          postID,
		Author:        author.ID,
		Content:       content,
		ParentComment: parent,
		CreatedAt:     time.Now(),
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, errors.Wrap(err, "insert comment")
	}
	if err := s.posts.AppendComment(ctx, postID, comment.ID); err != nil {
		logger.Log.WithError(err).WithField("comment", comment.ID.Hex()).Error("Comment stored but not linked to its post")
		return nil, errors.Wrap(err, "link comment")
	}

	comment.AuthorInfo = author.ToAuthor()
	return comment, nil
}

// Tree returns the comments of a post as a reply forest.
func (s *CommentService) Tree(ctx context.Context, postHex string) ([]*commenttree.Node, error) {
	postID, err := parseID(postHex, "postId")
	if err != nil {
		return nil, err
	}
	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return nil, notFoundOr(err, "post not found", "load post")
	}
	return s.tree(ctx, postID)
}

func (s *CommentService) tree(ctx context.Context, postID primitive.ObjectID) ([]*commenttree.Node, error) {
	comments, err := s.comments.ListComments(ctx, postID)
	if err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	return commenttree.Build(comments), nil
}
