package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"text2sql-console/internal/config"
	"text2sql-console/internal/middleware"
	"text2sql-console/internal/repository"
	"text2sql-console/internal/service"
	"text2sql-console/pkg/response"
)

// Dependencies is everything the router needs
type Dependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	Console     repository.ConsoleRepository
	Sessions    *service.SessionStore
	DataSources service.DataSourceService
	RateLimiter *middleware.RateLimiter
	Version     string
}

// NewRouter builds the gateway. The rate limiter applies to /api/v1 only,
// and only when deps.RateLimiter is set.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.Cors(deps.Config.Security.AllowedOrigins))
	router.Use(middleware.PrometheusMiddleware())

	healthController := NewHealthController(deps.Console, deps.Sessions, deps.RateLimiter, deps.Version)
	router.GET("/health", healthController.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.RateLimit())
	}

	NewSessionController(deps.Sessions).RegisterRoutes(api)
	NewDataSourceController(deps.DataSources).RegisterRoutes(api)
	NewParseController().RegisterRoutes(api)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.NotFoundResponse("Route not found", middleware.GetCorrelationID(c)))
	})

	return router
}
