// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler, health *HealthHandler, hub *Hub) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", health.HandleHealth)

	// Dashboard view
	apiGroup.GET("/dashboard", h.HandleDashboard)
	apiGroup.GET("/dashboard/msgpack", h.HandleDashboardMsgpack)
	apiGroup.GET("/layout", h.HandleLayout)

	// Raw data
	apiGroup.GET("/series", h.HandleSeries)
	apiGroup.GET("/latest", h.HandleLatest)
	apiGroup.GET("/records/:source", h.HandleRecords)
	apiGroup.GET("/history/:source", h.HandleHistory)
	apiGroup.GET("/export/:source", h.HandleExport)

	apiGroup.POST("/refresh", h.HandleRefresh)

	if hub != nil {
		apiGroup.GET("/ws", hub.HandleWebSocket)
	}
}
