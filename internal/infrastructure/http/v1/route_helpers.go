// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// ReadRouteHandler is implemented by handlers of listable resources.
type ReadRouteHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
}

// CreateRouteHandler is implemented by handlers that create a resource
// with POST on the collection.
type CreateRouteHandler interface {
	Create(c *gin.Context)
}

// RegisterReadRoutes registers GET on the collection and on /:id.
func RegisterReadRoutes(group *gin.RouterGroup, handler ReadRouteHandler) {
	group.GET("", handler.List)
	group.GET("/:id", handler.Get)
}

// RegisterResourceRoutes registers read routes plus POST on the collection.
func RegisterResourceRoutes(group *gin.RouterGroup, handler interface {
	ReadRouteHandler
	CreateRouteHandler
}) {
	group.POST("", handler.Create)
	RegisterReadRoutes(group, handler)
}
