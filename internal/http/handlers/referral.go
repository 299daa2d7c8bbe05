package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetReferrals returns the caller's referral code and the users who used it
func (h *Handler) GetReferrals(c *gin.Context) {
	summary, err := h.referrals.Summary(c.Request.Context(), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
