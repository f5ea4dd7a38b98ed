package http

import (
	"net/http"

	"giftcast/internal/core/ports"
	"giftcast/internal/infrastructure/middleware"
	"giftcast/pkg/config"
	"giftcast/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Config        *config.Config
	Logger        *zap.SugaredLogger
	ContextLogger *logger.ContextLogger
	Clock         clockwork.Clock

	// Verifier enables bearer-token identity; nil trusts identity headers.
	Verifier *middleware.TokenVerifier
	Health   *HealthHandler
	// Metrics is mounted at Config.Monitoring.MetricsPath when set.
	Metrics  http.Handler
	Handlers []ports.RouteRegistrar
}

// NewRouter assembles the gin engine: global middleware first, then health
// and metrics, then every API handler under /api/v1.
func NewRouter(rc RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(rc.Logger))
	if rc.ContextLogger != nil {
		router.Use(middleware.RequestLoggerMiddleware(rc.ContextLogger, rc.Clock))
	}
	if rc.Config.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.ErrorHandlerMiddleware(rc.Logger))
	router.Use(middleware.NewHTTPRateLimitMiddleware(rc.Config, rc.Clock))

	if rc.Health != nil {
		rc.Health.Register(router)
	}
	if rc.Metrics != nil {
		router.GET(rc.Config.Monitoring.MetricsPath, gin.WrapH(rc.Metrics))
	}

	api := router.Group("/api/v1")
	api.Use(middleware.IdentityMiddleware(rc.Verifier))
	for _, h := range rc.Handlers {
		h.SetupRoutes(api)
	}
	return router
}
