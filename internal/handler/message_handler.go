package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/deskroute/internal/pkg/response"
	"github.com/xxxsen/deskroute/internal/service"
)

type MessageHandler struct {
	stats *service.StatsService
}

func NewMessageHandler(stats *service.StatsService) *MessageHandler {
	return &MessageHandler{stats: stats}
}

// List returns assigned messages, optionally filtered by dept_id.
func (h *MessageHandler) List(c *gin.Context) {
	limit := parseLimit(c, 50, 500)
	items, err := h.stats.ListAssigned(c.Request.Context(), c.Query("dept_id"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}
