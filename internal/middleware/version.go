package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
)

// APIVersion describes one mounted API version.
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // "active" or "deprecated"
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
}

// VersionMiddleware mounts versioned route groups and tags their responses.
type VersionMiddleware struct {
	supportedVersions map[string]APIVersion
}

func NewVersionMiddleware() *VersionMiddleware {
	return &VersionMiddleware{
		supportedVersions: map[string]APIVersion{
			"v1": {Version: "v1", Status: "active"},
		},
	}
}

// VersionHeader sets X-API-Version and, for deprecated versions, the sunset
// headers.
func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-API-Version", version)
			if ver, ok := vm.supportedVersions[version]; ok && ver.Status == "deprecated" {
				c.Response().Header().Set("X-API-Deprecated", "true")
				if ver.SunsetDate != nil {
					c.Response().Header().Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
					c.Response().Header().Set("Warning", "299 mailroom \"This API version is deprecated and will be removed on "+ver.SunsetDate.Format("2006-01-02")+"\"")
				}
			}
			return next(c)
		}
	}
}

// VersionRoute creates the /<version> group with the version header applied.
func (vm *VersionMiddleware) VersionRoute(e *echo.Echo, version string, m ...echo.MiddlewareFunc) *echo.Group {
	group := e.Group("/"+version, vm.VersionHeader(version))
	group.Use(m...)
	return group
}

// Deprecate marks version as deprecated with an optional sunset date.
func (vm *VersionMiddleware) Deprecate(version string, sunset *time.Time) {
	ver, ok := vm.supportedVersions[version]
	if !ok {
		return
	}
	ver.Status = "deprecated"
	ver.SunsetDate = sunset
	vm.supportedVersions[version] = ver
}
