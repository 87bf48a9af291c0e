package services

import (
	"context"
	"net/mail"
	"strings"

	"mailroom/internal/caching"
	"mailroom/internal/common"
	"mailroom/internal/models"
	"mailroom/internal/repositories"

	"go.uber.org/zap"
)

type TenantService interface {
	Create(ctx context.Context, req *CreateTenantRequest) (*models.Tenant, error)
	GetByID(ctx context.Context, id int64) (*models.Tenant, error)
	Update(ctx context.Context, req *UpdateTenantRequest) (*models.Tenant, error)
	Deactivate(ctx context.Context, id int64) error
}

type tenantService struct {
	tenantRepo   repositories.TenantRepository
	mailboxRepo  repositories.MailboxRepository
	cacheService caching.CacheService
	logger       *zap.Logger
}

func NewTenantService(tenantRepo repositories.TenantRepository, mailboxRepo repositories.MailboxRepository, cacheService caching.CacheService, logger *zap.Logger) TenantService {
	return &tenantService{tenantRepo: tenantRepo, mailboxRepo: mailboxRepo, cacheService: cacheService, logger: logger}
}

type CreateTenantRequest struct {
	MailboxID   int64        `json:"mailbox_id"`
	Name        string       `json:"name"`
	Phone       *string      `json:"phone"`
	Email       *string      `json:"email"`
	ContactInfo models.JSONB `json:"contact_info"`
}

type UpdateTenantRequest struct {
	ID          int64        `json:"-"`
	Name        *string      `json:"name"`
	Phone       *string      `json:"phone"`
	Email       *string      `json:"email"`
	ContactInfo models.JSONB `json:"contact_info"`
	IsActive    *bool        `json:"is_active"`
}

func validateContact(phone, email *string) error {
	if err := common.ValidateOptionalString(phone, "phone", 50); err != nil {
		return common.NewValidationError(err.Error())
	}
	if err := common.ValidateOptionalString(email, "email", 255); err != nil {
		return common.NewValidationError(err.Error())
	}
	if email != nil && *email != "" {
		if _, err := mail.ParseAddress(*email); err != nil {
			return common.NewValidationError("email is not a valid address")
		}
	}
	return nil
}

func (s *tenantService) Create(ctx context.Context, req *CreateTenantRequest) (*models.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if err := common.ValidateRequiredString(name, "name", 255); err != nil {
		return nil, common.NewValidationError(err.Error())
	}
	if req.MailboxID <= 0 {
		return nil, common.NewValidationError("mailbox_id is required")
	}
	if err := validateContact(req.Phone, req.Email); err != nil {
		return nil, err
	}

	mailbox, err := s.mailboxRepo.GetByID(ctx, req.MailboxID)
	if err != nil {
		return nil, repoError(err, "mailbox", "load mailbox")
	}
	if !mailbox.IsActive {
		return nil, common.NewValidationError("mailbox is inactive")
	}

	tenant := &models.Tenant{
		MailboxID:   req.MailboxID,
		Name:        name,
		Phone:       req.Phone,
		Email:       req.Email,
		ContactInfo: req.ContactInfo,
		IsActive:    true,
	}
	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, repoError(err, "tenant", "create tenant")
	}

	s.invalidate(ctx)
	return tenant, nil
}

func (s *tenantService) GetByID(ctx context.Context, id int64) (*models.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "tenant", "load tenant")
	}
	return tenant, nil
}

func (s *tenantService) Update(ctx context.Context, req *UpdateTenantRequest) (*models.Tenant, error) {
	existing, err := s.tenantRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, repoError(err, "tenant", "load tenant")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := common.ValidateRequiredString(name, "name", 255); err != nil {
			return nil, common.NewValidationError(err.Error())
		}
		existing.Name = name
	}
	if err := validateContact(req.Phone, req.Email); err != nil {
		return nil, err
	}
	if req.Phone != nil {
		existing.Phone = req.Phone
	}
	if req.Email != nil {
		existing.Email = req.Email
	}
	if req.ContactInfo != nil {
		existing.ContactInfo = req.ContactInfo
	}
	if req.IsActive != nil {
		if !*req.IsActive && existing.IsActive {
			// Deactivation also clears the mailbox default.
			if err := s.Deactivate(ctx, existing.ID); err != nil {
				return nil, err
			}
		}
		existing.IsActive = *req.IsActive
	}

	if err := s.tenantRepo.Update(ctx, existing); err != nil {
		return nil, repoError(err, "tenant", "update tenant")
	}
	s.invalidate(ctx)
	return existing, nil
}

func (s *tenantService) Deactivate(ctx context.Context, id int64) error {
	if err := s.tenantRepo.Deactivate(ctx, id); err != nil {
		return repoError(err, "tenant", "deactivate tenant")
	}
	s.invalidate(ctx)
	return nil
}

func (s *tenantService) invalidate(ctx context.Context) {
	if err := s.cacheService.InvalidateMailboxSearch(ctx); err != nil {
		s.logger.Warn("failed to invalidate mailbox search cache", zap.Error(err))
	}
}
