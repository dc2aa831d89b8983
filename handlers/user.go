package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"kavyalok/middleware"
	"kavyalok/services"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name"`
	Bio      string `json:"bio"`
}

type UpdateProfileRequest struct {
	Name        *string           `json:"name" form:"name"`
	Bio         *string           `json:"bio" form:"bio"`
	Username    *string           `json:"username" form:"username"`
	SocialLinks map[string]string `json:"socialLinks" form:"-"`
}

type FollowRequest struct {
	CurrentUserEmail string `json:"currentUserEmail"`
	TargetEmail      string `json:"targetEmail" binding:"required"`
	Action           string `json:"action" binding:"required"`
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id := middleware.CurrentIdentity(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	profile, err := h.Users.Register(c.Request.Context(), id, services.RegisterInput{
		Username: req.Username,
		Name:     req.Name,
		Bio:      req.Bio,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (h *Handler) GetUser(c *gin.Context) {
	profile, err := h.Users.Profile(c.Request.Context(), c.Query("username"), c.Query("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateUser accepts JSON, or a multipart form when an avatar file is sent.
// In the form, socialLinks is a JSON object string.
func (h *Handler) UpdateUser(c *gin.Context) {
	email, ok := actingEmail(c, c.Query("email"))
	if !ok {
		return
	}

	var req UpdateProfileRequest
	var avatar io.Reader
	if c.ContentType() == "multipart/form-data" {
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err)
			return
		}
		if raw := c.PostForm("socialLinks"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.SocialLinks); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "socialLinks must be a JSON object"})
				return
			}
		}
		if file, err := c.FormFile("avatar"); err == nil {
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
			avatar = src
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	profile, err := h.Users.UpdateProfile(c.Request.Context(), email, services.ProfileInput{
		Name:        req.Name,
		Bio:         req.Bio,
		Username:    req.Username,
		SocialLinks: req.SocialLinks,
		Avatar:      avatar,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) GetUserPosts(c *gin.Context) {
	page, limit := pageParams(c)
	if c.Query("email") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	posts, err := h.Users.Posts(c.Request.Context(), c.Query("email"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handler) GetBookmarks(c *gin.Context) {
	email, ok := actingEmail(c, c.Query("email"))
	if !ok {
		return
	}
	page, limit := pageParams(c)
	posts, err := h.Users.Bookmarks(c.Request.Context(), email, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handler) GetInteractions(c *gin.Context) {
	email, ok := actingEmail(c, c.Query("email"))
	if !ok {
		return
	}
	out, err := h.Interactions.Lookup(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Follow(c *gin.Context) {
	var req FollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	email, ok := actingEmail(c, req.CurrentUserEmail)
	if !ok {
		return
	}

	if err := h.Interactions.Follow(c.Request.Context(), email, req.TargetEmail, req.Action); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok", "action": req.Action, "targetEmail": req.TargetEmail})
}

func (h *Handler) GetFriends(c *gin.Context) {
	email, ok := actingEmail(c, c.Query("email"))
	if !ok {
		return
	}
	friends, err := h.Users.Friends(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

func (h *Handler) GetNotifications(c *gin.Context) {
	email, ok := actingEmail(c, c.Query("email"))
	if !ok {
		return
	}
	unread, err := h.Notifications.Unread(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": unread})
}

func (h *Handler) MarkNotificationsRead(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		badRequest(c, err)
		return
	}
	email, ok := actingEmail(c, req.Email)
	if !ok {
		return
	}
	if err := h.Notifications.Clear(c.Request.Context(), email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notifications cleared"})
}
