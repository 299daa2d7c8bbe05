package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type TradeRequest struct {
	UserID string          `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

type BonusClaimRequest struct {
	UserID string `json:"userId"`
}

// CompleteTrade accrues a client-reported trade into the trading volume
func (h *Handler) CompleteTrade(c *gin.Context) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid trade payload")
		return
	}
	userID, err := h.targetUser(c, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	u, err := h.ledger.ReportTrade(c.Request.Context(), userID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"newTradingVolume": jsonNumber(u.TradingVolume),
		"tradingVolume":    u.TradingVolume,
		"user":             u,
	})
}

func (h *Handler) ClaimBonus(c *gin.Context) {
	var req BonusClaimRequest
	// an empty body claims for the session user
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid claim payload")
			return
		}
	}
	userID, err := h.targetUser(c, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	claim, err := h.ledger.ClaimBonus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"bonusClaimed":  jsonNumber(claim.Claimed),
		"claimedAmount": claim.Claimed,
		"user":          claim.User,
	})
}

// jsonNumber writes d as a bare JSON number, for clients doing arithmetic on the field
func jsonNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
