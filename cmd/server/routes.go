package main

import (
	"time"

	"mailroom/internal/common"
	"mailroom/internal/config"
	"mailroom/internal/handlers"
	"mailroom/internal/middleware"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type routeHandlers struct {
	health     *handlers.HealthHandlers
	mailboxes  *handlers.MailboxHandlers
	tenants    *handlers.TenantHandlers
	packages   *handlers.PackageHandlers
	pickups    *handlers.PickupHandlers
	signatures *handlers.SignatureHandlers
	reports    *handlers.ReportHandlers
	// jobs is nil when background jobs are disabled.
	jobs *handlers.JobHandlers
}

// apiVersions marks v1 deprecated when configured, so its responses carry
// the sunset headers.
func apiVersions(cfg config.APIConfig) *middleware.VersionMiddleware {
	versions := middleware.NewVersionMiddleware()
	if cfg.V1Deprecated {
		var sunset *time.Time
		if !cfg.V1Sunset.IsZero() {
			s := cfg.V1Sunset
			sunset = &s
		}
		versions.Deprecate("v1", sunset)
	}
	return versions
}

func registerRoutes(e *echo.Echo, h routeHandlers, versions *middleware.VersionMiddleware, auth middleware.AuthConfig, logger *zap.Logger) {
	// Health endpoints (no auth required)
	e.GET("/health", h.health.LivenessCheck)
	e.GET("/health/ready", h.health.ReadinessCheck)
	e.GET("/health/detailed", h.health.DetailedHealthCheck)

	v1 := versions.VersionRoute(e, "v1", middleware.JWTAuth(auth), middleware.AuditWrites(logger))
	admin := middleware.RequireRole(common.RoleAdmin)

	v1.GET("/mailboxes", h.mailboxes.SearchMailboxes)
	v1.POST("/mailboxes", h.mailboxes.CreateMailbox)
	v1.GET("/mailboxes/:id", h.mailboxes.GetMailbox)
	v1.PUT("/mailboxes/:id", h.mailboxes.UpdateMailbox)
	v1.DELETE("/mailboxes/:id", h.mailboxes.DeleteMailbox, admin)
	v1.PUT("/mailboxes/:id/default-tenant", h.mailboxes.SetDefaultTenant)
	v1.GET("/mailboxes/:id/tenants", h.mailboxes.ListTenants)
	v1.GET("/mailboxes/:id/packages", h.mailboxes.ListPackages)

	v1.POST("/tenants", h.tenants.CreateTenant)
	v1.GET("/tenants/:id", h.tenants.GetTenant)
	v1.PUT("/tenants/:id", h.tenants.UpdateTenant)
	v1.DELETE("/tenants/:id", h.tenants.DeactivateTenant)

	v1.GET("/packages", h.packages.ListPackages)
	v1.POST("/packages", h.packages.IntakePackage)
	v1.GET("/packages/tracking/:tracking", h.packages.GetPackageByTracking)
	v1.GET("/packages/:id", h.packages.GetPackage)
	v1.PUT("/packages/:id", h.packages.UpdatePackage)
	v1.DELETE("/packages/:id", h.packages.DeletePackage, admin)
	v1.POST("/packages/:id/reset-status", h.packages.ResetStatus, admin)

	v1.POST("/pickups", h.pickups.ProcessPickup)
	v1.GET("/pickups", h.pickups.ListPickups)
	v1.POST("/pickups/bulk-status", h.pickups.BulkUpdateStatus)

	v1.GET("/signatures/image/:id", h.signatures.GetSignatureImage)
	v1.GET("/signatures/:id", h.signatures.GetSignature)
	v1.DELETE("/signatures/:id", h.signatures.DeleteSignature, admin)

	v1.GET("/reports/statistics", h.reports.Statistics)
	v1.GET("/reports/audit-trail", h.reports.AuditTrail)
	v1.GET("/reports/mailboxes/:id/summary", h.reports.MailboxSummary)
	v1.GET("/reports/aging", h.reports.AgingPackages)

	if h.jobs != nil {
		v1.GET("/admin/jobs", h.jobs.ListJobs, admin)
		v1.POST("/admin/jobs/:name/run", h.jobs.RunJob, admin)
	}
}
