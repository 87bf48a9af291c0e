package jobs

import (
	"context"
	"fmt"

	"mailroom/internal/models"
	"mailroom/internal/services"

	"go.uber.org/zap"
)

// warmWindows are the statistics windows the dashboard asks for by default.
var warmWindows = []int{7, 30}

// ReportWarmer precomputes the default statistics windows into the cache.
type ReportWarmer struct {
	reports services.ReportService
	logger  *zap.Logger
}

func NewReportWarmer(reports services.ReportService, logger *zap.Logger) *ReportWarmer {
	return &ReportWarmer{reports: reports, logger: logger}
}

// Run computes every warm window. A failing window does not stop the others.
func (w *ReportWarmer) Run(ctx context.Context) error {
	var failed int
	for _, days := range warmWindows {
		if _, err := w.reports.Statistics(ctx, models.StatisticsFilter{Days: days}); err != nil {
			failed++
			w.logger.Warn("report warm-up failed", zap.Int("days", days), zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d report windows failed", failed, len(warmWindows))
	}
	w.logger.Debug("report cache warmed", zap.Ints("days", warmWindows))
	return nil
}
