package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mailroom/internal/caching"
	"mailroom/internal/common"
	"mailroom/internal/models"
	"mailroom/internal/repositories"
	"mailroom/pkg/database"

	"go.uber.org/zap"
)

const (
	maxPickupPersonName = 255
	maxStaffInitials    = 10
	maxNotes            = 1000

	defaultPickupDays  = repositories.DefaultPickupWindowDays
	maxPickupDays      = 365
	defaultPickupLimit = 50
	maxPickupLimit     = 200
)

type PickupService interface {
	ProcessPickup(ctx context.Context, req *models.PickupRequest) (*models.PickupSummary, error)
	ListPickups(ctx context.Context, filter models.PickupFilter) (*models.PickupPage, error)
	BulkUpdateStatus(ctx context.Context, req *models.BulkStatusRequest) (*models.BulkStatusResult, error)
}

type pickupService struct {
	store        repositories.PickupStore
	tenantRepo   repositories.TenantRepository
	packageRepo  repositories.PackageRepository
	signatures   SignatureService
	cacheService caching.CacheService
	logger       *zap.Logger
	now          func() time.Time
}

func NewPickupService(store repositories.PickupStore, tenantRepo repositories.TenantRepository, packageRepo repositories.PackageRepository,
	signatures SignatureService, cacheService caching.CacheService, logger *zap.Logger) PickupService {
	return &pickupService{
		store:        store,
		tenantRepo:   tenantRepo,
		packageRepo:  packageRepo,
		signatures:   signatures,
		cacheService: cacheService,
		logger:       logger,
		now:          time.Now,
	}
}

// ProcessPickup checks every precondition before touching the database, then
// marks the whole batch picked up in one transaction. Signatures are written
// after commit and never fail the pickup.
func (s *pickupService) ProcessPickup(ctx context.Context, req *models.PickupRequest) (*models.PickupSummary, error) {
	ids, err := common.ValidateIDList(req.PackageIDs, "package_ids")
	if err != nil {
		return nil, common.NewValidationError(err.Error())
	}
	req.PickupPersonName = strings.TrimSpace(req.PickupPersonName)
	if err := common.ValidateRequiredString(req.PickupPersonName, "pickup_person_name", maxPickupPersonName); err != nil {
		return nil, common.NewValidationError(err.Error())
	}
	if err := common.ValidateOptionalString(req.StaffInitials, "staff_initials", maxStaffInitials); err != nil {
		return nil, common.NewValidationError(err.Error())
	}
	if err := common.ValidateOptionalString(req.Notes, "notes", maxNotes); err != nil {
		return nil, common.NewValidationError(err.Error())
	}
	signature := ""
	if req.SignatureData != nil {
		signature = strings.TrimSpace(*req.SignatureData)
	}
	if signature != "" {
		kind, err := ClassifySignature(signature)
		if err != nil || kind == SignatureObject {
			return nil, common.NewValidationError("signature_data must be a base64 image data URI or an http(s) URL")
		}
		if kind == SignatureDataURI {
			if _, _, err := DecodeDataURI(signature); err != nil {
				return nil, common.NewValidationError("signature_data is not valid base64 image data")
			}
		}
	}

	mailboxID, tenant, err := s.resolveMailbox(ctx, req)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.LoadCandidates(ctx, ids, mailboxID)
	if err != nil {
		return nil, storeError("load packages", err)
	}
	if len(candidates) != len(ids) {
		return nil, common.NewValidationError("some packages were not found in this mailbox").
			WithDetail("requested", strconv.Itoa(len(ids))).
			WithDetail("found", strconv.Itoa(len(candidates))).
			WithDetail("missing_ids", joinIDs(missingIDs(ids, candidates)))
	}

	if err := checkAvailable(candidates); err != nil {
		return nil, err
	}

	var highValue []string
	for _, c := range candidates {
		if c.HighValue {
			highValue = append(highValue, c.TrackingNumber)
		}
	}
	signatureRequired := len(highValue) > 0
	if signatureRequired && signature == "" {
		return nil, common.NewValidationError("signature required for high-value packages").
			WithDetail("high_value_tracking_numbers", strings.Join(highValue, ","))
	}

	rec := &models.PickupRecord{
		Packages:         candidates,
		TenantID:         req.TenantID,
		PickupPersonName: req.PickupPersonName,
		StaffInitials:    req.StaffInitials,
		Notes:            req.Notes,
		PickedUpAt:       s.now().UTC(),
	}
	recorded, err := s.store.RecordPickup(ctx, rec)
	if err != nil {
		if errors.Is(err, repositories.ErrPickupRace) {
			return nil, common.NewConflictError("packages were modified by another pickup, please retry")
		}
		return nil, storeError("record pickup", err)
	}

	s.logger.Info("pickup recorded",
		zap.Int64("mailbox_id", mailboxID),
		zap.Int64s("package_ids", ids),
		zap.String("schema", string(s.store.Variant())),
	)

	var signatureIDs []int64
	if signature != "" {
		owners := ids
		if s.store.Variant() == database.SchemaRelational {
			owners = recorded.EventIDs
		}
		signatureIDs = s.signatures.Persist(ctx, owners, signature)
	}

	if err := s.cacheService.InvalidateReports(ctx); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.Error(err))
	}

	return buildSummary(rec, recorded, tenant, signatureRequired, signatureIDs, s.store.Variant()), nil
}

// resolveMailbox returns the mailbox the batch must belong to. A tenant id
// alone is enough; when both are given they must agree.
func (s *pickupService) resolveMailbox(ctx context.Context, req *models.PickupRequest) (int64, *models.Tenant, error) {
	if req.TenantID == nil {
		if req.MailboxID <= 0 {
			return 0, nil, common.NewValidationError("mailbox_id or tenant_id is required")
		}
		return req.MailboxID, nil, nil
	}
	if *req.TenantID <= 0 {
		return 0, nil, common.NewValidationError("tenant_id must be a positive integer")
	}

	tenant, err := s.tenantRepo.GetByID(ctx, *req.TenantID)
	if err != nil {
		return 0, nil, repoError(err, "tenant", "load tenant")
	}
	if req.MailboxID > 0 && tenant.MailboxID != req.MailboxID {
		return 0, nil, common.NewValidationError("tenant does not belong to this mailbox")
	}
	return tenant.MailboxID, tenant, nil
}

func checkAvailable(candidates []*models.PickupCandidate) error {
	var pickedUp, returned []string
	for _, c := range candidates {
		switch c.Status {
		case models.StatusPickedUp:
			pickedUp = append(pickedUp, c.TrackingNumber)
		case models.StatusReturnedToSender:
			returned = append(returned, c.TrackingNumber)
		}
	}
	if len(pickedUp) > 0 {
		err := common.NewConflictError("some packages have already been picked up").
			WithDetail("tracking_numbers", strings.Join(pickedUp, ","))
		err.Status = http.StatusBadRequest
		return err
	}
	if len(returned) > 0 {
		err := common.NewConflictError("some packages were returned to sender").
			WithDetail("tracking_numbers", strings.Join(returned, ","))
		err.Status = http.StatusBadRequest
		return err
	}
	return nil
}

func buildSummary(rec *models.PickupRecord, recorded *models.PickupRecorded, tenant *models.Tenant, signatureRequired bool,
	signatureIDs []int64, variant database.SchemaVariant) *models.PickupSummary {
	summary := &models.PickupSummary{
		PackagesPickedUp:  len(rec.Packages),
		PackageIDs:        make([]int64, 0, len(rec.Packages)),
		TrackingNumbers:   make([]string, 0, len(rec.Packages)),
		SignatureRequired: signatureRequired,
		SignatureCaptured: len(signatureIDs) > 0,
		SignatureIDs:      signatureIDs,
		PickupEventIDs:    recorded.EventIDs,
		PickupPersonName:  rec.PickupPersonName,
		PickedUpAt:        rec.PickedUpAt,
		Schema:            string(variant),
	}
	if summary.SignatureIDs == nil {
		summary.SignatureIDs = []int64{}
	}

	tenants := make(map[int64]*string)
	for _, p := range rec.Packages {
		summary.PackageIDs = append(summary.PackageIDs, p.ID)
		summary.TrackingNumbers = append(summary.TrackingNumbers, p.TrackingNumber)
		if p.TenantID != nil {
			tenants[*p.TenantID] = p.TenantName
		}
	}

	summary.TenantCount = len(tenants)
	summary.CrossTenantPickup = len(tenants) > 1
	switch {
	case len(tenants) == 1:
		for _, name := range tenants {
			summary.TenantName = name
		}
	case len(tenants) == 0 && tenant != nil:
		summary.TenantName = &tenant.Name
		summary.TenantCount = 1
	}
	return summary
}

func missingIDs(requested []int64, found []*models.PickupCandidate) []int64 {
	present := make(map[int64]bool, len(found))
	for _, c := range found {
		present[c.ID] = true
	}
	var missing []int64
	for _, id := range requested {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// ListPickups applies each default on its own: a missing days, limit or
// offset never changes how the others are read.
func (s *pickupService) ListPickups(ctx context.Context, filter models.PickupFilter) (*models.PickupPage, error) {
	days := defaultPickupDays
	if filter.Days != nil {
		days = *filter.Days
		if days < 1 || days > maxPickupDays {
			return nil, common.NewValidationError(fmt.Sprintf("days must be between 1 and %d", maxPickupDays))
		}
	}
	filter.Days = &days
	filter.Limit, filter.Offset = common.ValidatePaginationParams(filter.Limit, filter.Offset, defaultPickupLimit, maxPickupLimit)

	events, total, err := s.store.ListPickups(ctx, filter)
	if err != nil {
		return nil, storeError("list pickups", err)
	}
	return &models.PickupPage{Events: events, Total: total, Days: days, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *pickupService) BulkUpdateStatus(ctx context.Context, req *models.BulkStatusRequest) (*models.BulkStatusResult, error) {
	ids, err := common.ValidateIDList(req.PackageIDs, "package_ids")
	if err != nil {
		return nil, common.NewValidationError(err.Error())
	}
	if req.Status != models.StatusReadyForPickup && req.Status != models.StatusReturnedToSender {
		return nil, common.NewValidationError("status must be ready_for_pickup or returned_to_sender")
	}
	if err := common.ValidateOptionalString(req.Notes, "notes", maxNotes); err != nil {
		return nil, common.NewValidationError(err.Error())
	}

	updated, err := s.packageRepo.BulkUpdateStatus(ctx, ids, req.Status, req.Notes)
	if err != nil {
		return nil, storeError("update package status", err)
	}
	if err := s.cacheService.InvalidateReports(ctx); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.Error(err))
	}

	return &models.BulkStatusResult{
		Updated:    int(updated),
		Requested:  len(ids),
		NotUpdated: len(ids) - int(updated),
		Status:     req.Status,
	}, nil
}
