package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/deskroute/internal/pkg/response"
	"github.com/xxxsen/deskroute/internal/service"
)

type DashboardHandler struct {
	stats *service.StatsService
}

func NewDashboardHandler(stats *service.StatsService) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

func (h *DashboardHandler) Recent(c *gin.Context) {
	limit := parseLimit(c, 20, 200)
	items, err := h.stats.Recent(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}

func (h *DashboardHandler) TopDepartments(c *gin.Context) {
	limit := parseLimit(c, 10, 100)
	items, err := h.stats.TopDepartments(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}

func (h *DashboardHandler) Queue(c *gin.Context) {
	limit := parseLimit(c, 50, 500)
	items, err := h.stats.Queue(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}

func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}
