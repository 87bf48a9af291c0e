package jobs

import (
	"context"
	"time"

	"mailroom/internal/services"

	"go.uber.org/zap"
)

// AgingScanner reports packages still waiting for pickup after the
// threshold.
type AgingScanner struct {
	reports       services.ReportService
	thresholdDays int
	logger        *zap.Logger
	now           func() time.Time
}

func NewAgingScanner(reports services.ReportService, thresholdDays int, logger *zap.Logger) *AgingScanner {
	return &AgingScanner{reports: reports, thresholdDays: thresholdDays, logger: logger, now: time.Now}
}

// Run logs one warning per aging package and returns how many were found.
func (a *AgingScanner) Run(ctx context.Context) (int, error) {
	packages, err := a.reports.AgingPackages(ctx, a.thresholdDays)
	if err != nil {
		a.logger.Error("aging scan failed", zap.Error(err))
		return 0, err
	}

	for _, p := range packages {
		a.logger.Warn("package awaiting pickup",
			zap.Int64("package_id", p.ID),
			zap.String("tracking_number", p.TrackingNumber),
			zap.String("mailbox_number", p.MailboxNumber),
			zap.Int("days_waiting", int(a.now().Sub(p.ReceivedAt).Hours()/24)),
		)
	}
	a.logger.Info("aging scan completed", zap.Int("threshold_days", a.thresholdDays), zap.Int("aging_packages", len(packages)))
	return len(packages), nil
}
