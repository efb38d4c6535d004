package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"fleetrent/internal/caching"
	"fleetrent/internal/jobs/background"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	db        *pgxpool.Pool
	cacheSvc  caching.CacheService
	scheduler *background.JobScheduler
}

// NewHealthHandlers creates a new health handlers instance
func NewHealthHandlers(db *pgxpool.Pool, cacheSvc caching.CacheService, scheduler *background.JobScheduler) *HealthHandlers {
	return &HealthHandlers{
		db:        db,
		cacheSvc:  cacheSvc,
		scheduler: scheduler,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Services  map[string]string      `json:"services"`
	Jobs      map[string]interface{} `json:"jobs,omitempty"`
}

// HealthCheck handles GET /health
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
	}

	if err := h.checkDatabase(ctx); err != nil {
		health.Services["database"] = "unhealthy"
		health.Status = "degraded"
	} else {
		health.Services["database"] = "healthy"
	}

	if err := h.checkRedis(ctx); err != nil {
		health.Services["redis"] = "unhealthy"
		health.Status = "degraded"
	} else {
		health.Services["redis"] = "healthy"
	}

	if h.scheduler != nil {
		health.Jobs = h.scheduler.GetJobStatus()
	}

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, health)
}

func (h *HealthHandlers) checkDatabase(ctx context.Context) error {
	_, err := h.db.Exec(ctx, "SELECT 1")
	return err
}

func (h *HealthHandlers) checkRedis(ctx context.Context) error {
	if h.cacheSvc == nil {
		return nil
	}
	return h.cacheSvc.Ping(ctx)
}

// ReadinessCheck handles GET /ready
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.checkDatabase(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "Database unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// LivenessCheck handles GET /live
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "alive",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"goroutines": runtime.NumGoroutine(),
	})
}
