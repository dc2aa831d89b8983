package handlers

import (
	"net/http"

	"kavyalok/services"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
)

func (h *Handler) GetVapidPublicKey(c *gin.Context) {
	if h.Push == nil || h.Push.PublicKey() == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Web push is not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.Push.PublicKey()})
}

func (h *Handler) SubscribePush(c *gin.Context) {
	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
		Keys     struct {
			P256dh string `json:"p256dh" binding:"required"`
			Auth   string `json:"auth" binding:"required"`
		} `json:"keys" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	email, ok := actingEmail(c, "")
	if !ok {
		return
	}

	sub := webpush.Subscription{
		Endpoint: req.Endpoint,
		Keys:     webpush.Keys{P256dh: req.Keys.P256dh, Auth: req.Keys.Auth},
	}
	if err := services.Subscribe(c.Request.Context(), h.PushStore, email, sub); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Subscribed to push notifications"})
}
