package ports

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar is implemented by every HTTP handler mounted under /api/v1.
type RouteRegistrar interface {
	SetupRoutes(api *gin.RouterGroup)
}
