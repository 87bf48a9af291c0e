package services

import (
	"context"
	"strings"
	"time"

	"mailroom/internal/caching"
	"mailroom/internal/common"
	"mailroom/internal/config"
	"mailroom/internal/models"
	"mailroom/internal/repositories"

	"go.uber.org/zap"
)

const (
	maxMailboxNumber      = 20
	defaultMailboxLimit   = 50
	maxMailboxLimit       = 200
	mailboxSearchCacheTTL = 30 * time.Second
)

type MailboxService interface {
	Search(ctx context.Context, filter models.MailboxFilter) ([]*models.Mailbox, error)
	Create(ctx context.Context, req *MailboxRequest) (*models.Mailbox, error)
	GetByID(ctx context.Context, id int64) (*models.Mailbox, error)
	Update(ctx context.Context, id int64, req *MailboxRequest) (*models.Mailbox, error)
	Delete(ctx context.Context, id int64) error
	SetDefaultTenant(ctx context.Context, id int64, tenantID *int64) (*models.Mailbox, error)
	ListTenants(ctx context.Context, id int64, includeInactive bool) ([]*models.Tenant, error)
}

type MailboxRequest struct {
	MailboxNumber string  `json:"mailbox_number"`
	Notes         *string `json:"notes"`
	IsActive      *bool   `json:"is_active"`
}

type mailboxService struct {
	mailboxRepo  repositories.MailboxRepository
	tenantRepo   repositories.TenantRepository
	cacheService caching.CacheService
	deletePolicy config.DeletePolicy
	logger       *zap.Logger
}

func NewMailboxService(mailboxRepo repositories.MailboxRepository, tenantRepo repositories.TenantRepository, cacheService caching.CacheService,
	deletePolicy config.DeletePolicy, logger *zap.Logger) MailboxService {
	return &mailboxService{
		mailboxRepo:  mailboxRepo,
		tenantRepo:   tenantRepo,
		cacheService: cacheService,
		deletePolicy: deletePolicy,
		logger:       logger,
	}
}

// Search serves the front end's directory lookup. Results are cached briefly
// and dropped on every directory write.
func (s *mailboxService) Search(ctx context.Context, filter models.MailboxFilter) ([]*models.Mailbox, error) {
	filter.Query = common.SanitizeSearchQuery(filter.Query)
	filter.Limit, filter.Offset = common.ValidatePaginationParams(filter.Limit, filter.Offset, defaultMailboxLimit, maxMailboxLimit)

	if cached, err := s.cacheService.GetMailboxSearch(ctx, filter); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		s.logger.Warn("mailbox search cache read failed", zap.Error(err))
	}

	mailboxes, err := s.mailboxRepo.Search(ctx, filter)
	if err != nil {
		return nil, storeError("search mailboxes", err)
	}
	if err := s.cacheService.SetMailboxSearch(ctx, filter, mailboxes, mailboxSearchCacheTTL); err != nil {
		s.logger.Warn("mailbox search cache write failed", zap.Error(err))
	}
	return mailboxes, nil
}

func validateMailboxNumber(number string) (string, error) {
	number = strings.TrimSpace(number)
	if err := common.ValidateRequiredString(number, "mailbox_number", maxMailboxNumber); err != nil {
		return "", common.NewValidationError(err.Error())
	}
	if !common.IsDigits(number) {
		return "", common.NewValidationError("mailbox_number must contain only digits")
	}
	return number, nil
}

// ensureNumberFree checks uniqueness before writing so the caller gets a
// clear conflict instead of a constraint error.
func (s *mailboxService) ensureNumberFree(ctx context.Context, number string, self int64) error {
	existing, err := s.mailboxRepo.GetByNumber(ctx, number)
	if err == nil && existing.ID != self {
		return common.NewConflictError("mailbox number " + number + " already exists")
	}
	if err != nil && !common.IsKind(repoError(err, "mailbox", "check mailbox number"), common.KindNotFound) {
		return storeError("check mailbox number", err)
	}
	return nil
}

func (s *mailboxService) Create(ctx context.Context, req *MailboxRequest) (*models.Mailbox, error) {
	number, err := validateMailboxNumber(req.MailboxNumber)
	if err != nil {
		return nil, err
	}
	if err := common.ValidateOptionalString(req.Notes, "notes", maxNotes); err != nil {
		return nil, common.NewValidationError(err.Error())
	}
	if err := s.ensureNumberFree(ctx, number, 0); err != nil {
		return nil, err
	}

	mailbox := &models.Mailbox{MailboxNumber: number, Notes: req.Notes, IsActive: true}
	if req.IsActive != nil {
		mailbox.IsActive = *req.IsActive
	}
	if err := s.mailboxRepo.Create(ctx, mailbox); err != nil {
		return nil, repoError(err, "mailbox", "create mailbox")
	}

	s.invalidate(ctx)
	return mailbox, nil
}

func (s *mailboxService) GetByID(ctx context.Context, id int64) (*models.Mailbox, error) {
	mailbox, err := s.mailboxRepo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "mailbox", "load mailbox")
	}
	tenants, err := s.tenantRepo.ListByMailbox(ctx, id, false)
	if err != nil {
		return nil, storeError("load tenants", err)
	}
	mailbox.Tenants = make([]models.Tenant, 0, len(tenants))
	for _, t := range tenants {
		mailbox.Tenants = append(mailbox.Tenants, *t)
		if mailbox.DefaultTenantID != nil && *mailbox.DefaultTenantID == t.ID {
			name := t.Name
			mailbox.DefaultTenantName = &name
		}
	}
	mailbox.TenantCount = len(tenants)
	return mailbox, nil
}

func (s *mailboxService) Update(ctx context.Context, id int64, req *MailboxRequest) (*models.Mailbox, error) {
	existing, err := s.mailboxRepo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "mailbox", "load mailbox")
	}

	if strings.TrimSpace(req.MailboxNumber) != "" {
		number, err := validateMailboxNumber(req.MailboxNumber)
		if err != nil {
			return nil, err
		}
		if number != existing.MailboxNumber {
			if err := s.ensureNumberFree(ctx, number, id); err != nil {
				return nil, err
			}
			existing.MailboxNumber = number
		}
	}
	if req.Notes != nil {
		if err := common.ValidateOptionalString(req.Notes, "notes", maxNotes); err != nil {
			return nil, common.NewValidationError(err.Error())
		}
		existing.Notes = req.Notes
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if err := s.mailboxRepo.Update(ctx, existing); err != nil {
		return nil, repoError(err, "mailbox", "update mailbox")
	}
	s.invalidate(ctx)
	return existing, nil
}

// Delete follows the configured policy: soft deactivates the mailbox and its
// tenants, hard removes the mailbox and cascades.
func (s *mailboxService) Delete(ctx context.Context, id int64) error {
	var err error
	if s.deletePolicy == config.DeleteHard {
		err = s.mailboxRepo.Delete(ctx, id)
	} else {
		err = s.mailboxRepo.Deactivate(ctx, id)
	}
	if err != nil {
		return repoError(err, "mailbox", "delete mailbox")
	}

	s.logger.Info("mailbox deleted", zap.Int64("mailbox_id", id), zap.String("policy", string(s.deletePolicy)))
	s.invalidate(ctx)
	return nil
}

func (s *mailboxService) SetDefaultTenant(ctx context.Context, id int64, tenantID *int64) (*models.Mailbox, error) {
	if _, err := s.mailboxRepo.GetByID(ctx, id); err != nil {
		return nil, repoError(err, "mailbox", "load mailbox")
	}
	if tenantID != nil {
		tenant, err := s.tenantRepo.GetByID(ctx, *tenantID)
		if err != nil {
			if common.IsKind(repoError(err, "tenant", ""), common.KindNotFound) {
				return nil, common.NewValidationError("tenant does not exist")
			}
			return nil, storeError("load tenant", err)
		}
		if tenant.MailboxID != id {
			return nil, common.NewValidationError("tenant does not belong to this mailbox")
		}
		if !tenant.IsActive {
			return nil, common.NewValidationError("tenant is inactive")
		}
	}

	if err := s.mailboxRepo.SetDefaultTenant(ctx, id, tenantID); err != nil {
		return nil, repoError(err, "mailbox", "set default tenant")
	}
	s.invalidate(ctx)
	return s.GetByID(ctx, id)
}

func (s *mailboxService) ListTenants(ctx context.Context, id int64, includeInactive bool) ([]*models.Tenant, error) {
	if _, err := s.mailboxRepo.GetByID(ctx, id); err != nil {
		return nil, repoError(err, "mailbox", "load mailbox")
	}
	tenants, err := s.tenantRepo.ListByMailbox(ctx, id, includeInactive)
	if err != nil {
		return nil, storeError("list tenants", err)
	}
	return tenants, nil
}

func (s *mailboxService) invalidate(ctx context.Context) {
	if err := s.cacheService.InvalidateMailboxSearch(ctx); err != nil {
		s.logger.Warn("failed to invalidate mailbox search cache", zap.Error(err))
	}
	if err := s.cacheService.InvalidateReports(ctx); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.Error(err))
	}
}
