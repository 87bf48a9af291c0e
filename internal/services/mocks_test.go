package services

import (
	"context"
	"io"
	"time"

	"mailroom/internal/models"
	"mailroom/pkg/database"

	"github.com/stretchr/testify/mock"
)

type MockPickupStore struct {
	mock.Mock
	variant database.SchemaVariant
}

func (m *MockPickupStore) Variant() database.SchemaVariant {
	return m.variant
}

func (m *MockPickupStore) LoadCandidates(ctx context.Context, ids []int64, mailboxID int64) ([]*models.PickupCandidate, error) {
	args := m.Called(ctx, ids, mailboxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PickupCandidate), args.Error(1)
}

func (m *MockPickupStore) RecordPickup(ctx context.Context, rec *models.PickupRecord) (*models.PickupRecorded, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PickupRecorded), args.Error(1)
}

func (m *MockPickupStore) SaveSignature(ctx context.Context, sig models.SignatureWrite) (int64, error) {
	args := m.Called(ctx, sig)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPickupStore) ListPickups(ctx context.Context, filter models.PickupFilter) ([]*models.PickupEvent, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.PickupEvent), args.Int(1), args.Error(2)
}

func (m *MockPickupStore) GetSignature(ctx context.Context, id int64) (*models.Signature, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Signature), args.Error(1)
}

func (m *MockPickupStore) DeleteSignature(ctx context.Context, id int64) (*models.Signature, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Signature), args.Error(1)
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id int64) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTenantRepository) ListByMailbox(ctx context.Context, mailboxID int64, includeInactive bool) ([]*models.Tenant, error) {
	args := m.Called(ctx, mailboxID, includeInactive)
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

type MockMailboxRepository struct {
	mock.Mock
}

func (m *MockMailboxRepository) Create(ctx context.Context, mailbox *models.Mailbox) error {
	args := m.Called(ctx, mailbox)
	return args.Error(0)
}

func (m *MockMailboxRepository) GetByID(ctx context.Context, id int64) (*models.Mailbox, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mailbox), args.Error(1)
}

func (m *MockMailboxRepository) GetByNumber(ctx context.Context, number string) (*models.Mailbox, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mailbox), args.Error(1)
}

func (m *MockMailboxRepository) Update(ctx context.Context, mailbox *models.Mailbox) error {
	args := m.Called(ctx, mailbox)
	return args.Error(0)
}

func (m *MockMailboxRepository) SetDefaultTenant(ctx context.Context, id int64, tenantID *int64) error {
	args := m.Called(ctx, id, tenantID)
	return args.Error(0)
}

func (m *MockMailboxRepository) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMailboxRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMailboxRepository) Search(ctx context.Context, filter models.MailboxFilter) ([]*models.Mailbox, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.Mailbox), args.Error(1)
}

type MockPackageRepository struct {
	mock.Mock
}

func (m *MockPackageRepository) Create(ctx context.Context, pkg *models.Package) error {
	args := m.Called(ctx, pkg)
	return args.Error(0)
}

func (m *MockPackageRepository) GetByID(ctx context.Context, id int64) (*models.Package, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Package), args.Error(1)
}

func (m *MockPackageRepository) GetByTracking(ctx context.Context, trackingNumber string) (*models.Package, error) {
	args := m.Called(ctx, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Package), args.Error(1)
}

func (m *MockPackageRepository) Update(ctx context.Context, pkg *models.Package) error {
	args := m.Called(ctx, pkg)
	return args.Error(0)
}

func (m *MockPackageRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPackageRepository) List(ctx context.Context, filter models.PackageFilter) ([]*models.Package, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.Package), args.Error(1)
}

func (m *MockPackageRepository) ResetStatus(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPackageRepository) BulkUpdateStatus(ctx context.Context, ids []int64, status models.PackageStatus, notes *string) (int64, error) {
	args := m.Called(ctx, ids, status, notes)
	return args.Get(0).(int64), args.Error(1)
}

type MockSignatureService struct {
	mock.Mock
}

func (m *MockSignatureService) Persist(ctx context.Context, ownerIDs []int64, data string) []int64 {
	args := m.Called(ctx, ownerIDs, data)
	return args.Get(0).([]int64)
}

func (m *MockSignatureService) Get(ctx context.Context, id int64) (*models.Signature, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Signature), args.Error(1)
}

func (m *MockSignatureService) Image(ctx context.Context, id int64) (*SignatureImage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SignatureImage), args.Error(1)
}

func (m *MockSignatureService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMinioService struct {
	mock.Mock
}

func (m *MockMinioService) UploadImage(ctx context.Context, bucket, key, contentType string, reader io.Reader, size int64) error {
	args := m.Called(ctx, bucket, key, contentType, reader, size)
	return args.Error(0)
}

func (m *MockMinioService) GetPresignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockMinioService) DeleteImage(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *MockMinioService) EnsureBucketExists(ctx context.Context, bucket string) error {
	args := m.Called(ctx, bucket)
	return args.Error(0)
}

func (m *MockMinioService) Ping(ctx context.Context, bucket string) error {
	args := m.Called(ctx, bucket)
	return args.Error(0)
}

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) CountByStatus(ctx context.Context, mailboxID *int64, days int) (map[string]int, error) {
	args := m.Called(ctx, mailboxID, days)
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockReportRepository) CountByCarrier(ctx context.Context, mailboxID *int64, days int) (map[string]int, error) {
	args := m.Called(ctx, mailboxID, days)
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockReportRepository) ReceivedPerDay(ctx context.Context, mailboxID *int64, days int) ([]models.DailyCount, error) {
	args := m.Called(ctx, mailboxID, days)
	return args.Get(0).([]models.DailyCount), args.Error(1)
}

func (m *MockReportRepository) HighValuePending(ctx context.Context, mailboxID *int64) (int, error) {
	args := m.Called(ctx, mailboxID)
	return args.Int(0), args.Error(1)
}

func (m *MockReportRepository) AuditTrail(ctx context.Context, filter models.AuditFilter) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.AuditEntry), args.Error(1)
}

func (m *MockReportRepository) MailboxSummary(ctx context.Context, mailboxID int64, days int) (*models.MailboxSummary, error) {
	args := m.Called(ctx, mailboxID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MailboxSummary), args.Error(1)
}

func (m *MockReportRepository) AgingPackages(ctx context.Context, olderThanDays, limit int) ([]*models.AgingPackage, error) {
	args := m.Called(ctx, olderThanDays, limit)
	return args.Get(0).([]*models.AgingPackage), args.Error(1)
}

func int64Ptr(v int64) *int64 { return &v }

func stringPtr(v string) *string { return &v }
