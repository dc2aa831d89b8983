package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type CompetitionRequest struct {
	Email         string `json:"email"`
	CompetitionID string `json:"competitionId" binding:"required"`
}

func (h *Handler) ListCompetitions(c *gin.Context) {
	competitions, err := h.Competitions.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"competitions": competitions})
}

func (h *Handler) JoinCompetition(c *gin.Context) {
	var req CompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	email, ok := actingEmail(c, req.Email)
	if !ok {
		return
	}

	if err := h.Competitions.Register(c.Request.Context(), email, req.CompetitionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Registered for competition"})
}

func (h *Handler) InitiatePayment(c *gin.Context) {
	var req CompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	email, ok := actingEmail(c, req.Email)
	if !ok {
		return
	}

	form, err := h.Competitions.InitiatePayment(c.Request.Context(), email, req.CompetitionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

// PaymentCallback receives the form PayU posts to surl and furl and sends
// the browser on to the matching frontend page.
func (h *Handler) PaymentCallback(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		badRequest(c, err)
		return
	}
	redirect, err := h.Competitions.HandleCallback(c.Request.Context(), c.Request.PostForm)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, redirect)
}
