package handlers

import (
	"net/http"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/http/middleware"
	"earn_webapp/internal/service"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Email      string  `json:"email" binding:"required"`
	Password   string  `json:"password" binding:"required"`
	Username   *string `json:"username"`
	ReferredBy string  `json:"referredBy"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	u, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Username:   req.Username,
		ReferredBy: req.ReferredBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, http.StatusCreated, u)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	u, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, http.StatusOK, u)
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.cookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CurrentUser returns the session user's row
func (h *Handler) CurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, actor(c))
}

func (h *Handler) startSession(c *gin.Context, status int, u *domain.User) {
	token, err := h.tokens.Generate(u.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, int(h.tokens.TTL().Seconds()), "/", "", h.cookieSecure, true)
	c.JSON(status, AuthResponse{Token: token, User: u})
}
