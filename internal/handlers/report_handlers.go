package handlers

import (
	"net/http"

	"mailroom/internal/models"
	"mailroom/internal/services"

	"github.com/labstack/echo/v4"
)

type ReportHandlers struct {
	reportService      services.ReportService
	agingThresholdDays int
}

func NewReportHandlers(reportService services.ReportService, agingThresholdDays int) *ReportHandlers {
	return &ReportHandlers{reportService: reportService, agingThresholdDays: agingThresholdDays}
}

// Statistics handles GET /reports/statistics?mailbox_id=&days=
func (h *ReportHandlers) Statistics(c echo.Context) error {
	var (
		filter models.StatisticsFilter
		err    error
	)
	if filter.MailboxID, err = queryID(c, "mailbox_id"); err != nil {
		return err
	}
	if filter.Days, err = queryInt(c, "days"); err != nil {
		return err
	}
	stats, err := h.reportService.Statistics(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// AuditTrail handles GET /reports/audit-trail?mailbox_id=&limit=&offset=
func (h *ReportHandlers) AuditTrail(c echo.Context) error {
	var (
		filter models.AuditFilter
		err    error
	)
	if filter.MailboxID, err = queryID(c, "mailbox_id"); err != nil {
		return err
	}
	if filter.Limit, filter.Offset, err = pagination(c); err != nil {
		return err
	}
	page, err := h.reportService.AuditTrail(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// MailboxSummary handles GET /reports/mailboxes/:id/summary?days=
func (h *ReportHandlers) MailboxSummary(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	days, err := queryInt(c, "days")
	if err != nil {
		return err
	}
	summary, err := h.reportService.MailboxSummary(c.Request().Context(), id, days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// AgingPackages handles GET /reports/aging?days=, defaulting to the
// configured threshold.
func (h *ReportHandlers) AgingPackages(c echo.Context) error {
	days, err := queryInt(c, "days")
	if err != nil {
		return err
	}
	if days <= 0 {
		days = h.agingThresholdDays
	}
	packages, err := h.reportService.AgingPackages(c.Request().Context(), days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"older_than_days": days,
		"packages":        packages,
	})
}
