// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// CRUDRouteHandler defines the interface for resource handlers.
// Every resource with a registry lifecycle implements these methods.
type CRUDRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// HistoryRouteHandler is an optional interface for resources with an audit trail.
type HistoryRouteHandler interface {
	History(c *gin.Context)
}

// RegisterCRUDRoutes registers standard CRUD routes for a resource.
// If the handler also implements HistoryRouteHandler, GET /:id/history is
// registered as well.
//
// Usage:
//
//	handler := handlers.NewLocationHandler(baseHandler, services.Locations, services.Items, history)
//	RegisterCRUDRoutes(api.Group("/locations"), handler)
func RegisterCRUDRoutes(group *gin.RouterGroup, handler CRUDRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.PATCH("/:id", handler.Update)
	group.DELETE("/:id", handler.Delete)

	if historyHandler, ok := handler.(HistoryRouteHandler); ok {
		group.GET("/:id/history", historyHandler.History)
	}
}
