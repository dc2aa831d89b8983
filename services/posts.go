package services

import (
	"context"
	"io"
	"strings"
	"time"

	"kavyalok/commenttree"
	"kavyalok/database"
	"kavyalok/logger"
	"kavyalok/media"
	"kavyalok/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxTitleLength = 200
	maxTags        = 10
)

type PostInput struct {
	Title        string
	Content      string
	Tags         []string
	CoverImage   string
	CoverImageID string
}

// PostEdit holds the fields an author changes. Nil means unchanged.
type PostEdit struct {
	Title        *string
	Content      *string
	Tags         []string
	CoverImage   *string
	CoverImageID *string
}

// PostDetail is a single post with its author and comment forest.
type PostDetail struct {
	Post     models.PostView     `json:"post"`
	Comments []*commenttree.Node `json:"comments"`
}

type PostService struct {
	users    UserStore
	posts    PostStore
	comments *CommentService
	media    media.Uploader
}

func NewPostService(users UserStore, posts PostStore, comments *CommentService, uploader media.Uploader) *PostService {
	return &PostService{users: users, posts: posts, comments: comments, media: uploader}
}

func (s *PostService) Create(ctx context.Context, email string, in PostInput) (*models.PostView, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, Validationf("title is required")
	}
	if len(in.Title) > maxTitleLength {
		return nil, Validationf("title must be at most %d characters", maxTitleLength)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, Validationf("content is required")
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	author, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load post author")
	}
	if err := checkCover(author, in.CoverImageID); err != nil {
		return nil, err
	}

	now := time.Now()
	post := &models.Post{
		ID:           primitive.NewObjectID(),
		Author:       author.ID,
		Title:        in.Title,
		Content:      in.Content,
		CoverImage:   in.CoverImage,
		CoverImageID: in.CoverImageID,
		Tags:         tags,
		Likes:        0,
		Comments:     []primitive.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, errors.Wrap(err, "insert post")
	}
	if err := s.users.AddToUserSet(ctx, email, database.FieldPosts, post.ID); err != nil {
		logger.Log.WithError(err).WithField("post", post.ID.Hex()).Error("Post stored but not linked to its author")
		return nil, errors.Wrap(err, "link post")
	}

	view := post.ToView(author.ToAuthor())
	return &view, nil
}

func (s *PostService) Get(ctx context.Context, postHex string) (*PostDetail, error) {
	postID, err := parseID(postHex, "postId")
	if err != nil {
		return nil, err
	}
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, notFoundOr(err, "post not found", "load post")
	}

	var author *models.Author
	if u, err := s.users.GetUserByID(ctx, post.Author); err == nil {
		author = u.ToAuthor()
	} else if !isStoreNotFound(err) {
		return nil, errors.Wrap(err, "load post author")
	}

	tree, err := s.comments.tree(ctx, postID)
	if err != nil {
		return nil, err
	}
	view := post.ToView(author)
	view.CommentCount = commenttree.Count(tree)
	return &PostDetail{Post: view, Comments: tree}, nil
}

func (s *PostService) Update(ctx context.Context, email, postHex string, edit PostEdit) (*models.PostView, error) {
	author, post, err := s.owned(ctx, email, postHex)
	if err != nil {
		return nil, err
	}

	if edit.CoverImageID != nil {
		if err := checkCover(author, *edit.CoverImageID); err != nil {
			return nil, err
		}
	}

	update := database.PostUpdate{
		Content:      edit.Content,
		CoverImage:   edit.CoverImage,
		CoverImageID: edit.CoverImageID,
	}
	if edit.Title != nil {
		title := strings.TrimSpace(*edit.Title)
		if title == "" || len(title) > maxTitleLength {
			return nil, Validationf("title must be 1 to %d characters", maxTitleLength)
		}
		update.Title = &title
	}
	if edit.Content != nil && strings.TrimSpace(*edit.Content) == "" {
		return nil, Validationf("content cannot be empty")
	}
	if edit.Tags != nil {
		tags, err := normalizeTags(edit.Tags)
		if err != nil {
			return nil, err
		}
		update.Tags = tags
	}

	updated, err := s.posts.UpdatePost(ctx, post.ID, update)
	if err != nil {
		return nil, notFoundOr(err, "post not found", "update post")
	}
	if edit.CoverImageID != nil && post.CoverImageID != "" && post.CoverImageID != *edit.CoverImageID {
		s.destroyCover(ctx, post.CoverImageID)
	}

	view := updated.ToView(author.ToAuthor())
	return &view, nil
}

// Delete removes a post with its comments and cover image. Likes and
// bookmarks other users hold on it are left in place.
func (s *PostService) Delete(ctx context.Context, email, postHex string) error {
	_, post, err := s.owned(ctx, email, postHex)
	if err != nil {
		return err
	}

	if err := s.posts.DeletePost(ctx, post.ID); err != nil {
		return notFoundOr(err, "post not found", "delete post")
	}
	log := logger.Log.WithField("post", postHex)
	if n, err := s.comments.comments.DeleteCommentsByPost(ctx, post.ID); err != nil {
		log.WithError(err).Error("Post deleted but its comments were not")
		return errors.Wrap(err, "delete comments")
	} else if n > 0 {
		log.WithField("comments", n).Debug("Deleted post comments")
	}
	if err := s.users.PullFromUserSet(ctx, email, database.FieldPosts, post.ID); err != nil {
		log.WithError(err).Error("Post deleted but still listed on its author")
		return errors.Wrap(err, "unlink post")
	}
	if post.CoverImageID != "" {
		s.destroyCover(ctx, post.CoverImageID)
	}
	return nil
}

// UploadCover stores a cover image for a post the caller is about to create
// or edit.
func (s *PostService) UploadCover(ctx context.Context, email string, file io.Reader) (*media.Asset, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load uploader")
	}
	publicID := user.ID.Hex() + "_" + time.Now().Format("20060102150405")
	asset, err := s.media.Upload(ctx, file, media.KindCover, publicID)
	if err != nil {
		return nil, errors.Wrap(err, "upload cover")
	}
	return asset, nil
}

func (s *PostService) owned(ctx context.Context, email, postHex string) (*models.User, *models.Post, error) {
	postID, err := parseID(postHex, "postId")
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, notFoundOr(err, "user not found", "load user")
	}
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, nil, notFoundOr(err, "post not found", "load post")
	}
	if post.Author != user.ID {
		return nil, nil, Forbiddenf("only the author can change this post")
	}
	return user, post, nil
}

// checkCover accepts an empty id or a cover image the author uploaded.
func checkCover(author *models.User, publicID string) error {
	if publicID == "" || media.OwnedBy(publicID, media.KindCover, author.ID.Hex()) {
		return nil
	}
	return Validationf("coverImageId must name a cover you uploaded")
}

func (s *PostService) destroyCover(ctx context.Context, publicID string) {
	if err := s.media.Destroy(ctx, publicID); err != nil {
		logger.Log.WithError(err).WithField("publicId", publicID).Warn("Cover image not destroyed")
	}
}

// normalizeTags lowercases, trims and de-duplicates tags, keeping first-seen
// order.
func normalizeTags(tags []string) ([]string, error) {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) > maxTags {
		return nil, Validationf("at most %d tags are allowed", maxTags)
	}
	return out, nil
}
