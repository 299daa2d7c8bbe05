package handlers

import (
	"net/http"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreateWithdrawalRequest struct {
	UserID  string           `json:"userId"`
	Amount  decimal.Decimal  `json:"amount"`
	Address string           `json:"address"`
	Network domain.Network   `json:"network"`
	Fee     *decimal.Decimal `json:"fee"`
}

func (h *Handler) CreateWithdrawal(c *gin.Context) {
	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid withdrawal payload")
		return
	}
	userID, err := h.targetUser(c, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	w, err := h.ledger.CreateWithdrawal(c.Request.Context(), service.WithdrawalInput{
		UserID:  userID,
		Amount:  req.Amount,
		Address: req.Address,
		Network: req.Network,
		Fee:     req.Fee,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *Handler) ListWithdrawals(c *gin.Context) {
	userID, err := h.listScope(c)
	if err != nil {
		respondError(c, err)
		return
	}
	withdrawals, err := h.ledger.ListWithdrawals(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, withdrawals)
}

func (h *Handler) GetWithdrawal(c *gin.Context) {
	w, err := h.ledger.GetWithdrawal(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.policy.CanActFor(actor(c), w.UserID) {
		respondError(c, service.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, w)
}

// UpdateWithdrawal completes or rejects a pending withdrawal (admin)
func (h *Handler) UpdateWithdrawal(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}

	w, err := h.ledger.SetWithdrawalStatus(c.Request.Context(), c.Param("id"), domain.WithdrawalStatus(req.Status), req.TxHash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
