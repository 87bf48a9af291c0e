package services

import (
	"context"
	"strings"

	"mailroom/internal/caching"
	"mailroom/internal/common"
	"mailroom/internal/models"
	"mailroom/internal/repositories"

	"go.uber.org/zap"
)

const (
	maxTrackingNumber   = 100
	maxCarrier          = 50
	defaultPackageLimit = 50
	maxPackageLimit     = 200
)

type PackageService interface {
	Intake(ctx context.Context, req *IntakeRequest) (*models.Package, error)
	GetByID(ctx context.Context, id int64) (*models.Package, error)
	GetByTracking(ctx context.Context, trackingNumber string) (*models.Package, error)
	List(ctx context.Context, filter models.PackageFilter) ([]*models.Package, error)
	Update(ctx context.Context, id int64, req *UpdatePackageRequest) (*models.Package, error)
	Delete(ctx context.Context, id int64) error
	ResetStatus(ctx context.Context, id int64) (*models.Package, error)
}

type IntakeRequest struct {
	MailboxID      int64   `json:"mailbox_id"`
	TenantID       *int64  `json:"tenant_id"`
	TrackingNumber string  `json:"tracking_number"`
	HighValue      bool    `json:"high_value"`
	Carrier        *string `json:"carrier"`
	SizeCategory   *string `json:"size_category"`
	Notes          *string `json:"notes"`
}

type UpdatePackageRequest struct {
	TenantID     *int64  `json:"tenant_id"`
	HighValue    *bool   `json:"high_value"`
	Carrier      *string `json:"carrier"`
	SizeCategory *string `json:"size_category"`
	Notes        *string `json:"notes"`
}

type packageService struct {
	packageRepo  repositories.PackageRepository
	mailboxRepo  repositories.MailboxRepository
	tenantRepo   repositories.TenantRepository
	cacheService caching.CacheService
	logger       *zap.Logger
}

func NewPackageService(packageRepo repositories.PackageRepository, mailboxRepo repositories.MailboxRepository, tenantRepo repositories.TenantRepository,
	cacheService caching.CacheService, logger *zap.Logger) PackageService {
	return &packageService{
		packageRepo:  packageRepo,
		mailboxRepo:  mailboxRepo,
		tenantRepo:   tenantRepo,
		cacheService: cacheService,
		logger:       logger,
	}
}

func validatePackageFields(carrier, size, notes *string) error {
	if err := common.ValidateOptionalString(carrier, "carrier", maxCarrier); err != nil {
		return common.NewValidationError(err.Error())
	}
	if err := common.ValidateOptionalString(notes, "notes", maxNotes); err != nil {
		return common.NewValidationError(err.Error())
	}
	if size != nil {
		*size = strings.ToLower(strings.TrimSpace(*size))
		if !models.ValidSizeCategory(*size) {
			return common.NewValidationError("size_category must be one of small, medium, large, oversized")
		}
	}
	return nil
}

// checkTenant verifies the tenant is active and lives in mailboxID.
func (s *packageService) checkTenant(ctx context.Context, tenantID, mailboxID int64) error {
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		if common.IsKind(repoError(err, "tenant", ""), common.KindNotFound) {
			return common.NewValidationError("tenant does not exist")
		}
		return storeError("load tenant", err)
	}
	if tenant.MailboxID != mailboxID {
		return common.NewValidationError("tenant does not belong to this mailbox")
	}
	if !tenant.IsActive {
		return common.NewValidationError("tenant is inactive")
	}
	return nil
}

// Intake records a newly received package. Without an explicit tenant the
// package is assigned to the mailbox's default tenant.
func (s *packageService) Intake(ctx context.Context, req *IntakeRequest) (*models.Package, error) {
	tracking := strings.TrimSpace(req.TrackingNumber)
	if err := common.ValidateRequiredString(tracking, "tracking_number", maxTrackingNumber); err != nil {
		return nil, common.NewValidationError(err.Error())
	}
	if req.MailboxID <= 0 {
		return nil, common.NewValidationError("mailbox_id is required")
	}
	if err := validatePackageFields(req.Carrier, req.SizeCategory, req.Notes); err != nil {
		return nil, err
	}

	if _, err := s.packageRepo.GetByTracking(ctx, tracking); err == nil {
		return nil, common.NewConflictError("tracking number " + tracking + " already exists")
	} else if !common.IsKind(repoError(err, "package", ""), common.KindNotFound) {
		return nil, storeError("check tracking number", err)
	}

	mailbox, err := s.mailboxRepo.GetByID(ctx, req.MailboxID)
	if err != nil {
		return nil, repoError(err, "mailbox", "load mailbox")
	}
	if !mailbox.IsActive {
		return nil, common.NewValidationError("mailbox is inactive")
	}

	tenantID := req.TenantID
	if tenantID != nil {
		if err := s.checkTenant(ctx, *tenantID, mailbox.ID); err != nil {
			return nil, err
		}
	} else {
		tenantID = mailbox.DefaultTenantID
	}

	pkg := &models.Package{
		MailboxID:      mailbox.ID,
		TenantID:       tenantID,
		TrackingNumber: tracking,
		Status:         models.StatusReceived,
		HighValue:      req.HighValue,
		Carrier:        req.Carrier,
		SizeCategory:   req.SizeCategory,
		Notes:          req.Notes,
		MailboxNumber:  mailbox.MailboxNumber,
	}
	if err := s.packageRepo.Create(ctx, pkg); err != nil {
		return nil, repoError(err, "package", "create package")
	}

	s.logger.Info("package received",
		zap.Int64("package_id", pkg.ID),
		zap.Int64("mailbox_id", pkg.MailboxID),
		zap.Bool("high_value", pkg.HighValue),
	)
	s.invalidate(ctx)
	return pkg, nil
}

func (s *packageService) GetByID(ctx context.Context, id int64) (*models.Package, error) {
	pkg, err := s.packageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "package", "load package")
	}
	return pkg, nil
}

func (s *packageService) GetByTracking(ctx context.Context, trackingNumber string) (*models.Package, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, common.NewValidationError("tracking number is required")
	}
	pkg, err := s.packageRepo.GetByTracking(ctx, trackingNumber)
	if err != nil {
		return nil, repoError(err, "package", "load package")
	}
	return pkg, nil
}

func (s *packageService) List(ctx context.Context, filter models.PackageFilter) ([]*models.Package, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, common.NewValidationError("status is not a known package status")
	}
	if filter.Carrier != nil {
		c := common.SanitizeSearchQuery(*filter.Carrier)
		filter.Carrier = &c
	}
	filter.Query = common.SanitizeSearchQuery(filter.Query)
	filter.Limit, filter.Offset = common.ValidatePaginationParams(filter.Limit, filter.Offset, defaultPackageLimit, maxPackageLimit)

	packages, err := s.packageRepo.List(ctx, filter)
	if err != nil {
		return nil, storeError("list packages", err)
	}
	return packages, nil
}

// Update changes descriptive fields only; status moves through pickups,
// bulk transitions and the reset operation.
func (s *packageService) Update(ctx context.Context, id int64, req *UpdatePackageRequest) (*models.Package, error) {
	pkg, err := s.packageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "package", "load package")
	}
	if err := validatePackageFields(req.Carrier, req.SizeCategory, req.Notes); err != nil {
		return nil, err
	}

	if req.TenantID != nil {
		if err := s.checkTenant(ctx, *req.TenantID, pkg.MailboxID); err != nil {
			return nil, err
		}
		pkg.TenantID = req.TenantID
	}
	if req.HighValue != nil {
		pkg.HighValue = *req.HighValue
	}
	if req.Carrier != nil {
		pkg.Carrier = req.Carrier
	}
	if req.SizeCategory != nil {
		pkg.SizeCategory = req.SizeCategory
	}
	if req.Notes != nil {
		pkg.Notes = req.Notes
	}

	if err := s.packageRepo.Update(ctx, pkg); err != nil {
		return nil, repoError(err, "package", "update package")
	}
	s.invalidate(ctx)
	return pkg, nil
}

func (s *packageService) Delete(ctx context.Context, id int64) error {
	if err := s.packageRepo.Delete(ctx, id); err != nil {
		return repoError(err, "package", "delete package")
	}
	s.invalidate(ctx)
	return nil
}

// ResetStatus returns a package to received. It is the only way back from
// picked_up or returned_to_sender.
func (s *packageService) ResetStatus(ctx context.Context, id int64) (*models.Package, error) {
	if err := s.packageRepo.ResetStatus(ctx, id); err != nil {
		return nil, repoError(err, "package", "reset package status")
	}
	s.logger.Info("package status reset", zap.Int64("package_id", id))
	s.invalidate(ctx)
	return s.GetByID(ctx, id)
}

func (s *packageService) invalidate(ctx context.Context) {
	if err := s.cacheService.InvalidateReports(ctx); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.Error(err))
	}
	if err := s.cacheService.InvalidateMailboxSearch(ctx); err != nil {
		s.logger.Warn("failed to invalidate mailbox search cache", zap.Error(err))
	}
}
