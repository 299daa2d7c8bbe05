package handlers

import (
	"net/http"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreateDepositRequest struct {
	UserID  string          `json:"userId"`
	Amount  decimal.Decimal `json:"amount"`
	Network domain.Network  `json:"network"`
	TxHash  *string         `json:"txHash"`
}

type UpdateStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	TxHash *string `json:"txHash"`
}

func (h *Handler) CreateDeposit(c *gin.Context) {
	var req CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid deposit payload")
		return
	}
	userID, err := h.targetUser(c, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	d, err := h.ledger.CreateDeposit(c.Request.Context(), service.DepositInput{
		UserID:  userID,
		Amount:  req.Amount,
		Network: req.Network,
		TxHash:  req.TxHash,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// ListDeposits returns the caller's deposits. Admins get every deposit, or one user's with ?userId=.
func (h *Handler) ListDeposits(c *gin.Context) {
	userID, err := h.listScope(c)
	if err != nil {
		respondError(c, err)
		return
	}
	deposits, err := h.ledger.ListDeposits(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deposits)
}

func (h *Handler) GetDeposit(c *gin.Context) {
	d, err := h.ledger.GetDeposit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.policy.CanActFor(actor(c), d.UserID) {
		respondError(c, service.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, d)
}

// UpdateDeposit confirms or rejects a pending deposit (admin)
func (h *Handler) UpdateDeposit(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}

	d, err := h.ledger.SetDepositStatus(c.Request.Context(), c.Param("id"), domain.DepositStatus(req.Status), req.TxHash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// listScope picks whose records a list endpoint returns; "" means all
func (h *Handler) listScope(c *gin.Context) (string, error) {
	u := actor(c)
	if u == nil {
		return "", service.ErrUnauthorized
	}
	requested := c.Query("userId")
	if h.policy.IsAdmin(u) {
		return requested, nil
	}
	if requested != "" && requested != u.ID {
		return "", service.ErrForbidden
	}
	return u.ID, nil
}
