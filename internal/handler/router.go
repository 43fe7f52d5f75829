package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Webhook     *WebhookHandler
	Departments *DepartmentHandler
	Messages    *MessageHandler
	Dashboard   *DashboardHandler
	// ImportLimiter throttles catalog imports; nil disables the limit.
	ImportLimiter gin.HandlerFunc
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/webhook", deps.Webhook.Receive)

	importHandlers := make([]gin.HandlerFunc, 0, 2)
	if deps.ImportLimiter != nil {
		importHandlers = append(importHandlers, deps.ImportLimiter)
	}
	importHandlers = append(importHandlers, deps.Departments.Import)
	api.POST("/departments/import", importHandlers...)
	api.GET("/departments", deps.Departments.List)
	api.GET("/departments/:id/queue", deps.Dashboard.Queue)
	api.GET("/departments/:id/stats", deps.Dashboard.Stats)

	api.GET("/messages", deps.Messages.List)

	api.GET("/dashboard/recent", deps.Dashboard.Recent)
	api.GET("/dashboard/top", deps.Dashboard.TopDepartments)
}
