package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"mailroom/internal/caching"
	"mailroom/internal/services"
	"mailroom/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	db      database.Pinger
	cache   caching.CacheService
	minio   services.MinioService
	bucket  string
	variant database.SchemaVariant
	version string
	started time.Time
}

// NewHealthHandlers creates a new health handlers instance. minio may be nil
// when signature offload is disabled.
func NewHealthHandlers(db database.Pinger, cache caching.CacheService, minio services.MinioService, bucket string,
	variant database.SchemaVariant, version string) *HealthHandlers {
	return &HealthHandlers{
		db:      db,
		cache:   cache,
		minio:   minio,
		bucket:  bucket,
		variant: variant,
		version: version,
		started: time.Now(),
	}
}

// LivenessCheck reports that the process is serving requests.
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessCheck requires the database and the cache.
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "failing": "database"})
	}
	if err := h.cache.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "failing": "cache"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// DetailedHealthCheck reports each dependency plus pool statistics.
func (h *HealthHandlers) DetailedHealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	overall := "healthy"
	checks := map[string]interface{}{}
	record := func(name string, err error) {
		check := map[string]string{"status": "healthy"}
		if err != nil {
			check["status"] = "unhealthy"
			check["message"] = err.Error()
			overall = "degraded"
		}
		checks[name] = check
	}

	record("database", h.db.Ping(ctx))
	record("cache", h.cache.Ping(ctx))
	if h.minio != nil {
		record("storage", h.minio.Ping(ctx, h.bucket))
	}

	detail := map[string]interface{}{
		"status":         overall,
		"checks":         checks,
		"schema_variant": h.variant,
		"version":        h.version,
		"uptime":         time.Since(h.started).Round(time.Second).String(),
		"goroutines":     runtime.NumGoroutine(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
	if statter, ok := h.db.(interface{ Stat() *pgxpool.Stat }); ok {
		s := statter.Stat()
		detail["database_pool"] = map[string]int32{
			"max":      s.MaxConns(),
			"total":    s.TotalConns(),
			"idle":     s.IdleConns(),
			"acquired": s.AcquiredConns(),
		}
	}

	status := http.StatusOK
	if overall != "healthy" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, detail)
}
