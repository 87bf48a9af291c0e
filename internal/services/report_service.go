package services

import (
	"context"
	"fmt"
	"time"

	"mailroom/internal/caching"
	"mailroom/internal/common"
	"mailroom/internal/models"
	"mailroom/internal/repositories"

	"go.uber.org/zap"
)

const (
	defaultReportDays  = 30
	maxStatisticsDays  = 365
	maxSummaryDays     = 90
	defaultAuditLimit  = 50
	maxAuditLimit      = 200
	agingScanBatchSize = 500
)

type ReportService interface {
	Statistics(ctx context.Context, filter models.StatisticsFilter) (*models.PackageStatistics, error)
	AuditTrail(ctx context.Context, filter models.AuditFilter) (*models.AuditPage, error)
	MailboxSummary(ctx context.Context, mailboxID int64, days int) (*models.MailboxSummary, error)
	AgingPackages(ctx context.Context, olderThanDays int) ([]*models.AgingPackage, error)
}

type reportService struct {
	reportRepo   repositories.ReportRepository
	cacheService caching.CacheService
	cacheTTL     time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewReportService(reportRepo repositories.ReportRepository, cacheService caching.CacheService, cacheTTL time.Duration, logger *zap.Logger) ReportService {
	return &reportService{
		reportRepo:   reportRepo,
		cacheService: cacheService,
		cacheTTL:     cacheTTL,
		logger:       logger,
		now:          time.Now,
	}
}

func reportDays(days, maxDays int) (int, error) {
	if days == 0 {
		return defaultReportDays, nil
	}
	if days < 1 || days > maxDays {
		return 0, common.NewValidationError(fmt.Sprintf("days must be between 1 and %d", maxDays))
	}
	return days, nil
}

func (s *reportService) Statistics(ctx context.Context, filter models.StatisticsFilter) (*models.PackageStatistics, error) {
	days, err := reportDays(filter.Days, maxStatisticsDays)
	if err != nil {
		return nil, err
	}

	if cached, err := s.cacheService.GetStatistics(ctx, filter.MailboxID, days); err != nil {
		s.logger.Warn("statistics cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	byStatus, err := s.reportRepo.CountByStatus(ctx, filter.MailboxID, days)
	if err != nil {
		return nil, storeError("count packages by status", err)
	}
	byCarrier, err := s.reportRepo.CountByCarrier(ctx, filter.MailboxID, days)
	if err != nil {
		return nil, storeError("count packages by carrier", err)
	}
	perDay, err := s.reportRepo.ReceivedPerDay(ctx, filter.MailboxID, days)
	if err != nil {
		return nil, storeError("count packages per day", err)
	}
	pending, err := s.reportRepo.HighValuePending(ctx, filter.MailboxID)
	if err != nil {
		return nil, storeError("count high-value packages", err)
	}

	stats := &models.PackageStatistics{
		ByStatus:         byStatus,
		ByCarrier:        byCarrier,
		ReceivedPerDay:   perDay,
		HighValuePending: pending,
		Days:             days,
		MailboxID:        filter.MailboxID,
		GeneratedAt:      s.now().UTC(),
	}
	for _, n := range byStatus {
		stats.Total += n
	}

	if err := s.cacheService.SetStatistics(ctx, stats, s.cacheTTL); err != nil {
		s.logger.Warn("statistics cache write failed", zap.Error(err))
	}
	return stats, nil
}

func (s *reportService) AuditTrail(ctx context.Context, filter models.AuditFilter) (*models.AuditPage, error) {
	filter.Limit, filter.Offset = common.ValidatePaginationParams(filter.Limit, filter.Offset, defaultAuditLimit, maxAuditLimit)
	entries, err := s.reportRepo.AuditTrail(ctx, filter)
	if err != nil {
		return nil, storeError("load audit trail", err)
	}
	return &models.AuditPage{Entries: entries, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *reportService) MailboxSummary(ctx context.Context, mailboxID int64, days int) (*models.MailboxSummary, error) {
	days, err := reportDays(days, maxSummaryDays)
	if err != nil {
		return nil, err
	}

	if cached, err := s.cacheService.GetMailboxSummary(ctx, mailboxID, days); err != nil {
		s.logger.Warn("summary cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	summary, err := s.reportRepo.MailboxSummary(ctx, mailboxID, days)
	if err != nil {
		return nil, repoError(err, "mailbox", "build mailbox summary")
	}
	if err := s.cacheService.SetMailboxSummary(ctx, summary, s.cacheTTL); err != nil {
		s.logger.Warn("summary cache write failed", zap.Error(err))
	}
	return summary, nil
}

func (s *reportService) AgingPackages(ctx context.Context, olderThanDays int) ([]*models.AgingPackage, error) {
	packages, err := s.reportRepo.AgingPackages(ctx, olderThanDays, agingScanBatchSize)
	if err != nil {
		return nil, storeError("list aging packages", err)
	}
	return packages, nil
}
