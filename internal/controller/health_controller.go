package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"text2sql-console/internal/middleware"
	"text2sql-console/internal/repository"
	"text2sql-console/internal/service"
)

type HealthResponse struct {
	Status    string                     `json:"status"`
	Timestamp time.Time                  `json:"timestamp"`
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Backend   BackendStatus              `json:"backend"`
	Sessions  service.SessionStoreStats  `json:"sessions"`
	RateLimit *middleware.RateLimitStats `json:"rateLimit,omitempty"`
}

type BackendStatus struct {
	Status  string `json:"status"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Message string `json:"message,omitempty"`
}

type HealthController struct {
	console repository.ConsoleRepository
	store   *service.SessionStore
	limiter *middleware.RateLimiter
	version string
	timeout time.Duration
}

func NewHealthController(console repository.ConsoleRepository, store *service.SessionStore, limiter *middleware.RateLimiter, version string) *HealthController {
	return &HealthController{
		console: console,
		store:   store,
		limiter: limiter,
		version: version,
		timeout: 5 * time.Second,
	}
}

// HealthCheck reports the gateway as degraded with a 503 when the backend
// does not answer server-info.
func (hc *HealthController) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   "text2sql-console",
		Version:   hc.version,
		Sessions:  hc.store.Stats(),
	}
	if hc.limiter != nil {
		stats := hc.limiter.GetStats()
		response.RateLimit = &stats
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), hc.timeout)
	defer cancel()

	info, err := hc.console.ServerInfo(ctx)
	if err != nil {
		response.Status = "degraded"
		response.Backend = BackendStatus{
			Status:  "unreachable",
			Message: err.Error(),
		}
	} else {
		response.Backend = BackendStatus{
			Status:  "reachable",
			Name:    info.Name,
			Version: info.Version,
			Message: info.Message,
		}
	}

	statusCode := http.StatusOK
	if response.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
