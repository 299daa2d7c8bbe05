package handlers

import (
	"earn_webapp/internal/logger"
	"earn_webapp/internal/ws"

	"github.com/gin-gonic/gin"
)

// WS subscribes the session user to balance pushes
func (h *Handler) WS(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := actor(c)
		if err := hub.Serve(c.Writer, c.Request, u.ID); err != nil {
			logger.Warn("ws upgrade error", "user_id", u.ID, "error", err)
		}
	}
}
