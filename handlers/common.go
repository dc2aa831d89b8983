package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"kavyalok/logger"
	"kavyalok/middleware"
	"kavyalok/push"
	"kavyalok/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const maxUploadSize = 10 << 20

// Handler carries the services every endpoint works with. Accounts is nil
// unless the local auth provider is enabled; Push is nil when no VAPID keys
// are configured.
type Handler struct {
	Feed          *services.FeedService
	Posts         *services.PostService
	Comments      *services.CommentService
	Interactions  *services.InteractionService
	Notifications *services.NotificationService
	Users         *services.UserService
	Accounts      *services.AccountService
	Competitions  *services.CompetitionService
	PushStore     services.PushStore
	Push          *push.Sender
	Ping          func(ctx context.Context) error
}

// respondError maps service error kinds onto status codes. Anything
// unclassified is logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrPaymentsDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	default:
		logger.Log.WithError(err).
			WithField("method", c.Request.Method).
			WithField("path", c.Request.URL.Path).
			Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// actingEmail resolves the email a request acts for. An email in the request
// must match the token's; an omitted one defaults to it.
func actingEmail(c *gin.Context, claimed string) (string, bool) {
	id := middleware.CurrentIdentity(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return "", false
	}
	claimed = strings.TrimSpace(claimed)
	if claimed != "" && !strings.EqualFold(claimed, id.Email) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only act on your own account"})
		return "", false
	}
	return id.Email, true
}

// pageParams reads page and limit; malformed values fall back to the
// defaults.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return page, limit
}

func (h *Handler) Health(c *gin.Context) {
	status := gin.H{"status": "ok", "service": logger.ServiceName}
	if h.Ping != nil {
		if err := h.Ping(c.Request.Context()); err != nil {
			logger.Log.WithError(err).Warn("Health check: store unreachable")
			status["status"] = "degraded"
			status["store"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["store"] = "ok"
	}
	c.JSON(http.StatusOK, status)
}
