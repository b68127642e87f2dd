package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	pool      *pgxpool.Pool
	redis     *redis.Client
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(pool *pgxpool.Pool, redisClient *redis.Client, version string) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		redis:     redisClient,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse is the readiness payload with per-dependency detail.
type ReadinessResponse struct {
	Ready     bool              `json:"ready"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

// Health is the liveness probe: the process is up.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	})
}

// Ready is the readiness probe: the database must answer; the cache is
// reported but does not gate readiness, because transfers degrade to the
// database path without it.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	checks := make(map[string]string)
	ready := true

	if err := h.pool.Ping(ctx); err != nil {
		checks["postgres"] = "unavailable: " + err.Error()
		ready = false
	} else {
		checks["postgres"] = "ok"
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = "unavailable: " + err.Error()
	} else {
		checks["redis"] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, ReadinessResponse{
		Ready:     ready,
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	})
}
