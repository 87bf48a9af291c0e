package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"mailroom/internal/middleware"
	"mailroom/internal/models"
	"mailroom/internal/services"
	"mailroom/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newTestServer() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zap.NewNop())
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type MockPickupService struct {
	mock.Mock
}

func (m *MockPickupService) ProcessPickup(ctx context.Context, req *models.PickupRequest) (*models.PickupSummary, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PickupSummary), args.Error(1)
}

func (m *MockPickupService) ListPickups(ctx context.Context, filter models.PickupFilter) (*models.PickupPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PickupPage), args.Error(1)
}

func (m *MockPickupService) BulkUpdateStatus(ctx context.Context, req *models.BulkStatusRequest) (*models.BulkStatusResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BulkStatusResult), args.Error(1)
}

// fakeSignatureStore serves signatures from memory; only the signature
// methods are meaningful.
type fakeSignatureStore struct {
	signatures map[int64]*models.Signature
}

func (f *fakeSignatureStore) Variant() database.SchemaVariant { return database.SchemaRelational }

func (f *fakeSignatureStore) LoadCandidates(context.Context, []int64, int64) ([]*models.PickupCandidate, error) {
	return nil, nil
}

func (f *fakeSignatureStore) RecordPickup(context.Context, *models.PickupRecord) (*models.PickupRecorded, error) {
	return &models.PickupRecorded{}, nil
}

func (f *fakeSignatureStore) SaveSignature(_ context.Context, sig models.SignatureWrite) (int64, error) {
	id := int64(len(f.signatures) + 1)
	owner := sig.OwnerID
	f.signatures[id] = &models.Signature{ID: id, PickupEventID: &owner, SignatureData: sig.Data}
	return id, nil
}

func (f *fakeSignatureStore) ListPickups(context.Context, models.PickupFilter) ([]*models.PickupEvent, int, error) {
	return nil, 0, nil
}

func (f *fakeSignatureStore) GetSignature(_ context.Context, id int64) (*models.Signature, error) {
	sig, ok := f.signatures[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *sig
	return &copied, nil
}

func (f *fakeSignatureStore) DeleteSignature(_ context.Context, id int64) (*models.Signature, error) {
	sig, ok := f.signatures[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	delete(f.signatures, id)
	return sig, nil
}

type MockMailboxService struct {
	mock.Mock
}

func (m *MockMailboxService) Search(ctx context.Context, filter models.MailboxFilter) ([]*models.Mailbox, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.Mailbox), args.Error(1)
}

func (m *MockMailboxService) Create(ctx context.Context, req *services.MailboxRequest) (*models.Mailbox, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mailbox), args.Error(1)
}

func (m *MockMailboxService) GetByID(ctx context.Context, id int64) (*models.Mailbox, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mailbox), args.Error(1)
}

func (m *MockMailboxService) Update(ctx context.Context, id int64, req *services.MailboxRequest) (*models.Mailbox, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mailbox), args.Error(1)
}

func (m *MockMailboxService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMailboxService) SetDefaultTenant(ctx context.Context, id int64, tenantID *int64) (*models.Mailbox, error) {
	args := m.Called(ctx, id, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mailbox), args.Error(1)
}

func (m *MockMailboxService) ListTenants(ctx context.Context, id int64, includeInactive bool) ([]*models.Tenant, error) {
	args := m.Called(ctx, id, includeInactive)
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

type MockPackageService struct {
	mock.Mock
}

func (m *MockPackageService) Intake(ctx context.Context, req *services.IntakeRequest) (*models.Package, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Package), args.Error(1)
}

func (m *MockPackageService) GetByID(ctx context.Context, id int64) (*models.Package, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Package), args.Error(1)
}

func (m *MockPackageService) GetByTracking(ctx context.Context, trackingNumber string) (*models.Package, error) {
	args := m.Called(ctx, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Package), args.Error(1)
}

func (m *MockPackageService) List(ctx context.Context, filter models.PackageFilter) ([]*models.Package, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.Package), args.Error(1)
}

func (m *MockPackageService) Update(ctx context.Context, id int64, req *services.UpdatePackageRequest) (*models.Package, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Package), args.Error(1)
}

func (m *MockPackageService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPackageService) ResetStatus(ctx context.Context, id int64) (*models.Package, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Package), args.Error(1)
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }
