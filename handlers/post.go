package handlers

import (
	"net/http"
	"strings"

	"kavyalok/services"

	"github.com/gin-gonic/gin"
)

type CreatePostRequest struct {
	Title        string   `json:"title" binding:"required"`
	Content      string   `json:"content" binding:"required"`
	Tags         []string `json:"tags"`
	CoverImage   string   `json:"coverImage"`
	CoverImageID string   `json:"coverImageId"`
	Email        string   `json:"email"`
}

type UpdatePostRequest struct {
	PostID       string   `json:"postId" binding:"required"`
	Title        *string  `json:"title"`
	Content      *string  `json:"content"`
	Tags         []string `json:"tags"`
	CoverImage   *string  `json:"coverImage"`
	CoverImageID *string  `json:"coverImageId"`
	Email        string   `json:"email"`
}

type PostActionRequest struct {
	PostID string `json:"postId" binding:"required"`
	Email  string `json:"email"`
}

type CommentRequest struct {
	PostID        string `json:"postId" binding:"required"`
	Email         string `json:"email"`
	Content       string `json:"content" binding:"required"`
	ParentComment string `json:"parentComment"`
}

func (h *Handler) GetFeed(c *gin.Context) {
	page, limit := pageParams(c)
	h.listFeed(c, services.FeedQuery{Kind: services.FeedAll, Page: page, Limit: limit})
}

func (h *Handler) SearchPosts(c *gin.Context) {
	page, limit := pageParams(c)
	q := strings.TrimSpace(c.Query("q"))
	h.listFeed(c, services.FeedQuery{Kind: services.FeedSearch, Page: page, Limit: limit, Search: q})
}

func (h *Handler) GetPostsByTag(c *gin.Context) {
	page, limit := pageParams(c)
	tag := strings.ToLower(strings.TrimSpace(c.Param("tag")))
	h.listFeed(c, services.FeedQuery{Kind: services.FeedTag, Page: page, Limit: limit, Tag: tag})
}

func (h *Handler) listFeed(c *gin.Context, q services.FeedQuery) {
	page, err := h.Feed.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetPost(c *gin.Context) {
	detail, err := h.Posts.Get(c.Request.Context(), c.Query("postId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	email, ok := actingEmail(c, req.Email)
	if !ok {
		return
	}

	post, err := h.Posts.Create(c.Request.Context(), email, services.PostInput{
		Title:        req.Title,
		Content:      req.Content,
		Tags:         req.Tags,
		CoverImage:   req.CoverImage,
		CoverImageID: req.CoverImageID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *Handler) UpdatePost(c *gin.Context) {
	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	email, ok := actingEmail(c, req.Email)
	if !ok {
		return
	}

	post, err := h.Posts.Update(c.Request.Context(), email, req.PostID, services.PostEdit{
		Title:        req.Title,
		Content:      req.Content,
		Tags:         req.Tags,
		CoverImage:   req.CoverImage,
		CoverImageID: req.CoverImageID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) DeletePost(c *gin.Context) {
	email, ok := actingEmail(c, c.Query("email"))
	if !ok {
		return
	}
	if err := h.Posts.Delete(c.Request.Context(), email, c.Query("postId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (h *Handler) ToggleLike(c *gin.Context) {
	var req PostActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	email, ok := actingEmail(c, req.Email)
	if !ok {
		return
	}

	result, err := h.Interactions.ToggleLike(c.Request.Context(), email, req.PostID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ToggleBookmark(c *gin.Context) {
	var req PostActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	email, ok := actingEmail(c, req.Email)
	if !ok {
		return
	}

	bookmarked, err := h.Interactions.ToggleBookmark(c.Request.Context(), email, req.PostID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarked": bookmarked})
}

func (h *Handler) AddComment(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	email, ok := actingEmail(c, req.Email)
	if !ok {
		return
	}

	comment, err := h.Comments.Create(c.Request.Context(), email, req.PostID, req.Content, req.ParentComment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) GetComments(c *gin.Context) {
	tree, err := h.Comments.Tree(c.Request.Context(), c.Query("postId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": tree})
}

func (h *Handler) UploadCover(c *gin.Context) {
	email, ok := actingEmail(c, c.PostForm("email"))
	if !ok {
		return
	}
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded"})
		return
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image must be at most 10MB"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable image"})
		return
	}
	defer src.Close()

	asset, err := h.Posts.UploadCover(c.Request.Context(), email, src)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": asset.URL, "publicId": asset.PublicID})
}
