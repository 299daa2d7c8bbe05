package handlers

import (
	"errors"
	"net/http"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/http/middleware"
	"earn_webapp/internal/logger"
	"earn_webapp/internal/repository"
	"earn_webapp/internal/service"

	"github.com/gin-gonic/gin"
)

// Deps are the services behind the REST surface
type Deps struct {
	Auth         *service.AuthService
	Tokens       *service.TokenIssuer
	Ledger       *service.LedgerService
	Settings     *service.SettingsService
	Admin        *service.AdminService
	Referrals    *service.ReferralService
	Policy       service.Policy
	CookieSecure bool
}

type Handler struct {
	auth         *service.AuthService
	tokens       *service.TokenIssuer
	ledger       *service.LedgerService
	settings     *service.SettingsService
	admin        *service.AdminService
	referrals    *service.ReferralService
	policy       service.Policy
	cookieSecure bool
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		auth:         d.Auth,
		tokens:       d.Tokens,
		ledger:       d.Ledger,
		settings:     d.Settings,
		admin:        d.Admin,
		referrals:    d.Referrals,
		policy:       d.Policy,
		cookieSecure: d.CookieSecure,
	}
}

// actor returns the authenticated user; Auth guarantees it on protected routes
func actor(c *gin.Context) *domain.User {
	u, _ := middleware.CurrentUser(c)
	return u
}

// targetUser resolves the optional body userId against the session user
func (h *Handler) targetUser(c *gin.Context, bodyUserID string) (string, error) {
	u := actor(c)
	if u == nil {
		return "", service.ErrUnauthorized
	}
	if bodyUserID == "" {
		return u.ID, nil
	}
	if !h.policy.CanActFor(u, bodyUserID) {
		return "", service.ErrForbidden
	}
	return bodyUserID, nil
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// respondError maps service and repository errors onto HTTP responses
func respondError(c *gin.Context, err error) {
	var shortfall *service.VolumeShortfallError

	switch {
	case errors.As(err, &shortfall):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "insufficient trading volume",
			"reason":         "insufficient_trading_volume",
			"current":        jsonNumber(shortfall.Current),
			"required":       jsonNumber(shortfall.Required),
			"currentVolume":  shortfall.Current,
			"requiredVolume": shortfall.Required,
		})
	case errors.Is(err, service.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "insufficient_balance"})
	case errors.Is(err, service.ErrNoBonus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "no_bonus"})
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidNetwork),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidReferral),
		errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, repository.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.FromContext(c.Request.Context()).Error("request failed",
			"path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) Policy() service.Policy {
	return h.policy
}
