package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type UpsertSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ListSettings reveals credential values to admins only
func (h *Handler) ListSettings(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context(), h.policy.IsAdmin(actor(c)))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) GetSetting(c *gin.Context) {
	st, err := h.settings.Get(c.Request.Context(), c.Param("key"), h.policy.IsAdmin(actor(c)))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// UpsertSetting takes the key from the path when present, else from the body
func (h *Handler) UpsertSetting(c *gin.Context) {
	var req UpsertSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid setting payload")
		return
	}
	if key := c.Param("key"); key != "" {
		req.Key = key
	}

	st, err := h.settings.Upsert(c.Request.Context(), req.Key, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
