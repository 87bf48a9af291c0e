package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"mailroom/internal/caching"
	"mailroom/internal/common"
	"mailroom/internal/models"
	"mailroom/internal/repositories"
	"mailroom/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const pngSignature = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

type PickupServiceTestSuite struct {
	suite.Suite
	store      *MockPickupStore
	tenants    *MockTenantRepository
	packages   *MockPackageRepository
	signatures *MockSignatureService
	service    *pickupService
	ctx        context.Context
	now        time.Time
}

func (suite *PickupServiceTestSuite) SetupTest() {
	suite.store = &MockPickupStore{variant: database.SchemaRelational}
	suite.tenants = &MockTenantRepository{}
	suite.packages = &MockPackageRepository{}
	suite.signatures = &MockSignatureService{}
	suite.ctx = context.Background()
	suite.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	svc := NewPickupService(suite.store, suite.tenants, suite.packages, suite.signatures, caching.NewNopCacheService(), zap.NewNop())
	suite.service = svc.(*pickupService)
	suite.service.now = func() time.Time { return suite.now }
}

func (suite *PickupServiceTestSuite) TearDownTest() {
	suite.store.AssertExpectations(suite.T())
	suite.tenants.AssertExpectations(suite.T())
	suite.packages.AssertExpectations(suite.T())
	suite.signatures.AssertExpectations(suite.T())
}

func TestPickupServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PickupServiceTestSuite))
}

func candidate(id, tenantID int64, tenantName, tracking string, status models.PackageStatus, highValue bool) *models.PickupCandidate {
	c := &models.PickupCandidate{ID: id, MailboxID: 7, TrackingNumber: tracking, Status: status, HighValue: highValue}
	if tenantID > 0 {
		c.TenantID = int64Ptr(tenantID)
		c.TenantName = stringPtr(tenantName)
	}
	return c
}

func appErr(t *testing.T, err error) *common.AppError {
	t.Helper()
	require.Error(t, err)
	ae, ok := common.AsAppError(err)
	require.True(t, ok, "expected *common.AppError, got %T", err)
	return ae
}

func (suite *PickupServiceTestSuite) TestProcessPickup_RelationalWithSignature() {
	candidates := []*models.PickupCandidate{
		candidate(1, 3, "Ada Lovelace", "1ZA", models.StatusReceived, true),
		candidate(2, 3, "Ada Lovelace", "1ZB", models.StatusReadyForPickup, false),
	}
	suite.store.On("LoadCandidates", suite.ctx, []int64{1, 2}, int64(7)).Return(candidates, nil).Once()
	suite.store.On("RecordPickup", suite.ctx, mock.AnythingOfType("*models.PickupRecord")).
		Return(&models.PickupRecorded{EventIDs: []int64{101, 102}}, nil).
		Run(func(args mock.Arguments) {
			rec := args.Get(1).(*models.PickupRecord)
			assert.Equal(suite.T(), "Dana Whitfield", rec.PickupPersonName)
			assert.Equal(suite.T(), suite.now, rec.PickedUpAt)
			assert.Len(suite.T(), rec.Packages, 2)
		}).Once()
	suite.signatures.On("Persist", suite.ctx, []int64{101, 102}, pngSignature).Return([]int64{11, 12}).Once()

	summary, err := suite.service.ProcessPickup(suite.ctx, &models.PickupRequest{
		PackageIDs:       []int64{1, 2},
		MailboxID:        7,
		PickupPersonName: "  Dana Whitfield ",
		SignatureData:    stringPtr(pngSignature),
	})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 2, summary.PackagesPickedUp)
	assert.Equal(suite.T(), []int64{1, 2}, summary.PackageIDs)
	assert.Equal(suite.T(), []string{"1ZA", "1ZB"}, summary.TrackingNumbers)
	assert.Equal(suite.T(), "Ada Lovelace", *summary.TenantName)
	assert.Equal(suite.T(), 1, summary.TenantCount)
	assert.False(suite.T(), summary.CrossTenantPickup)
	assert.True(suite.T(), summary.SignatureRequired)
	assert.True(suite.T(), summary.SignatureCaptured)
	assert.Equal(suite.T(), []int64{11, 12}, summary.SignatureIDs)
	assert.Equal(suite.T(), []int64{101, 102}, summary.PickupEventIDs)
	assert.Equal(suite.T(), "relational", summary.Schema)
	assert.Equal(suite.T(), suite.now, summary.PickedUpAt)
}

func (suite *PickupServiceTestSuite) TestProcessPickup_LegacyKeysSignaturesByPackage() {
	suite.store.variant = database.SchemaLegacy
	candidates := []*models.PickupCandidate{candidate(5, 3, "Ada", "1ZE", models.StatusReceived, false)}
	suite.store.On("LoadCandidates", suite.ctx, []int64{5}, int64(7)).Return(candidates, nil).Once()
	suite.store.On("RecordPickup", suite.ctx, mock.Anything).Return(&models.PickupRecorded{}, nil).Once()
	suite.signatures.On("Persist", suite.ctx, []int64{5}, "https://cdn.example.com/s.png").Return([]int64{40}).Once()

	summary, err := suite.service.ProcessPickup(suite.ctx, &models.PickupRequest{
		PackageIDs:       []int64{5},
		MailboxID:        7,
		PickupPersonName: "Dana",
		SignatureData:    stringPtr("https://cdn.example.com/s.png"),
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "legacy", summary.Schema)
	assert.Empty(suite.T(), summary.PickupEventIDs)
	assert.False(suite.T(), summary.SignatureRequired)
	assert.True(suite.T(), summary.SignatureCaptured)
}

func (suite *PickupServiceTestSuite) TestProcessPickup_SignatureFailureDoesNotFailPickup() {
	candidates := []*models.PickupCandidate{candidate(1, 3, "Ada", "1ZA", models.StatusReceived, true)}
	suite.store.On("LoadCandidates", suite.ctx, []int64{1}, int64(7)).Return(candidates, nil).Once()
	suite.store.On("RecordPickup", suite.ctx, mock.Anything).Return(&models.PickupRecorded{EventIDs: []int64{101}}, nil).Once()
	suite.signatures.On("Persist", suite.ctx, []int64{101}, pngSignature).Return([]int64{}).Once()

	summary, err := suite.service.ProcessPickup(suite.ctx, &models.PickupRequest{
		PackageIDs: []int64{1}, MailboxID: 7, PickupPersonName: "Dana", SignatureData: stringPtr(pngSignature),
	})
	require.NoError(suite.T(), err)
	assert.True(suite.T(), summary.SignatureRequired)
	assert.False(suite.T(), summary.SignatureCaptured)
	assert.Empty(suite.T(), summary.SignatureIDs)
}

func (suite *PickupServiceTestSuite) TestProcessPickup_HighValueWithoutSignature() {
	candidates := []*models.PickupCandidate{
		candidate(1, 3, "Ada", "1ZHV", models.StatusReceived, true),
		candidate(2, 3, "Ada", "1ZLOW", models.StatusReceived, false),
	}
	suite.store.On("LoadCandidates", suite.ctx, []int64{1, 2}, int64(7)).Return(candidates, nil).Once()

	_, err := suite.service.ProcessPickup(suite.ctx, &models.PickupRequest{
		PackageIDs: []int64{1, 2}, MailboxID: 7, PickupPersonName: "Dana",
	})
	ae := appErr(suite.T(), err)
	assert.Equal(suite.T(), common.KindValidation, ae.Kind)
	assert.Equal(suite.T(), http.StatusBadRequest, ae.HTTPStatus())
	assert.Equal(suite.T(), "1ZHV", ae.Details["high_value_tracking_numbers"])
	suite.store.AssertNotCalled(suite.T(), "RecordPickup", mock.Anything, mock.Anything)
}

func (suite *PickupServiceTestSuite) TestProcessPickup_AlreadyPickedUpIsBadRequest() {
	candidates := []*models.PickupCandidate{
		candidate(1, 3, "Ada", "1ZA", models.StatusPickedUp, false),
		candidate(2, 3, "Ada", "1ZB", models.StatusReceived, false),
	}
	suite.store.On("LoadCandidates", suite.ctx, []int64{1, 2}, int64(7)).Return(candidates, nil).Once()

	_, err := suite.service.ProcessPickup(suite.ctx, &models.PickupRequest{
		PackageIDs: []int64{1, 2}, MailboxID: 7, PickupPersonName: "Dana",
	})
	ae := appErr(suite.T(), err)
	assert.Equal(suite.T(), common.KindConflict, ae.Kind)
	assert.Equal(suite.T(), http.StatusBadRequest, ae.HTTPStatus())
	assert.Equal(suite.T(), "1ZA", ae.Details["tracking_numbers"])
	suite.store.AssertNotCalled(suite.T(), "RecordPickup", mock.Anything, mock.Anything)
}

func (suite *PickupServiceTestSuite) TestProcessPickup_ResubmissionIsRejected() {
	req := func() *models.PickupRequest {
		return &models.PickupRequest{PackageIDs: []int64{1}, MailboxID: 7, PickupPersonName: "Dana"}
	}
	suite.store.On("LoadCandidates", suite.ctx, []int64{1}, int64(7)).
		Return([]*models.PickupCandidate{candidate(1, 3, "Ada", "1ZA", models.StatusReceived, false)}, nil).Once()
	suite.store.On("RecordPickup", suite.ctx, mock.Anything).Return(&models.PickupRecorded{EventIDs: []int64{101}}, nil).Once()
	suite.store.On("LoadCandidates", suite.ctx, []int64{1}, int64(7)).
		Return([]*models.PickupCandidate{candidate(1, 3, "Ada", "1ZA", models.StatusPickedUp, false)}, nil).Once()

	_, err := suite.service.ProcessPickup(suite.ctx, req())
	require.NoError(suite.T(), err)

	_, err = suite.service.ProcessPickup(suite.ctx, req())
	assert.True(suite.T(), common.IsKind(err, common.KindConflict))
}

func (suite *PickupServiceTestSuite) TestProcessPickup_MissingPackages() {
	suite.store.On("LoadCandidates", suite.ctx, []int64{1, 2, 3}, int64(7)).
		Return([]*models.PickupCandidate{candidate(2, 0, "", "1ZB", models.StatusReceived, false)}, nil).Once()

	_, err := suite.service.ProcessPickup(suite.ctx, &models.PickupRequest{
		PackageIDs: []int64{1, 2, 3}, MailboxID: 7, PickupPersonName: "Dana",
	})
	ae := appErr(suite.T(), err)
	assert.Equal(suite.T(), common.KindValidation, ae.Kind)
	assert.Equal(suite.T(), "3", ae.Details["requested"])
	assert.Equal(suite.T(), "1", ae.Details["found"])
	assert.Equal(suite.T(), "1,3", ae.Details["missing_ids"])
}

func (suite *PickupServiceTestSuite) TestProcessPickup_DuplicateIDsCollapse() {
	suite.store.On("LoadCandidates", suite.ctx, []int64{4, 2}, int64(7)).Return([]*models.PickupCandidate{
		candidate(2, 3, "Ada", "1ZB", models.StatusReceived, false),
		candidate(4, 3, "Ada", "1ZD", models.StatusReceived, false),
	}, nil).Once()
	suite.store.On("RecordPickup", suite.ctx, mock.Anything).Return(&models.PickupRecorded{EventIDs: []int64{1, 2}}, nil).Once()

	summary, err := suite.service.ProcessPickup(suite.ctx, &models.PickupRequest{
		PackageIDs: []int64{4, 2, 4, 2}, MailboxID: 7, PickupPersonName: "Dana",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, summary.PackagesPickedUp)
	assert.False(suite.T(), summary.SignatureCaptured)
	assert.NotNil(suite.T(), summary.SignatureIDs)
}

func (suite *PickupServiceTestSuite) TestProcessPickup_ConcurrentPickupIsConflict() {
	suite.store.On("LoadCandidates", suite.ctx, []int64{1}, int64(7)).
		Return([]*models.PickupCandidate{candidate(1, 3, "Ada", "1ZA", models.StatusReceived, false)}, nil).Once()
	suite.store.On("RecordPickup", suite.ctx, mock.Anything).Return(nil, repositories.ErrPickupRace).Once()

	_, err := suite.service.ProcessPickup(suite.ctx, &models.PickupRequest{
		PackageIDs: []int64{1}, MailboxID: 7, PickupPersonName: "Dana",
	})
	ae := appErr(suite.T(), err)
	assert.Equal(suite.T(), common.KindConflict, ae.Kind)
	assert.Equal(suite.T(), http.StatusConflict, ae.HTTPStatus())
}

func (suite *PickupServiceTestSuite) TestProcessPickup_StoreFailureIsUnexpected() {
	suite.store.On("LoadCandidates", suite.ctx, []int64{1}, int64(7)).
		Return([]*models.PickupCandidate{candidate(1, 3, "Ada", "1ZA", models.StatusReceived, false)}, nil).Once()
	suite.store.On("RecordPickup", suite.ctx, mock.Anything).Return(nil, errors.New("connection reset")).Once()

	_, err := suite.service.ProcessPickup(suite.ctx, &models.PickupRequest{
		PackageIDs: []int64{1}, MailboxID: 7, PickupPersonName: "Dana",
	})
	ae := appErr(suite.T(), err)
	assert.Equal(suite.T(), common.KindUnexpected, ae.Kind)
	assert.NotContains(suite.T(), ae.Message, "connection reset")
}

func (suite *PickupServiceTestSuite) TestProcessPickup_MissingTableIsSchemaError() {
	suite.store.On("LoadCandidates", suite.ctx, []int64{1}, int64(7)).
		Return([]*models.PickupCandidate{candidate(1, 3, "Ada", "1ZA", models.StatusReceived, false)}, nil).Once()
	suite.store.On("RecordPickup", suite.ctx, mock.Anything).Return(nil, database.ErrSchemaMissing).Once()

	_, err := suite.service.ProcessPickup(suite.ctx, &models.PickupRequest{
		PackageIDs: []int64{1}, MailboxID: 7, PickupPersonName: "Dana",
	})
	ae := appErr(suite.T(), err)
	assert.Equal(suite.T(), common.KindSchemaCompatibility, ae.Kind)
	assert.Equal(suite.T(), http.StatusInternalServerError, ae.HTTPStatus())
	assert.ErrorIs(suite.T(), err, database.ErrSchemaMissing)
}

func (suite *PickupServiceTestSuite) TestProcessPickup_CrossTenant() {
	suite.store.On("LoadCandidates", suite.ctx, []int64{1, 2}, int64(7)).Return([]*models.PickupCandidate{
		candidate(1, 3, "Ada", "1ZA", models.StatusReceived, false),
		candidate(2, 4, "Grace", "1ZB", models.StatusReceived, false),
	}, nil).Once()
	suite.store.On("RecordPickup", suite.ctx, mock.Anything).Return(&models.PickupRecorded{EventIDs: []int64{1, 2}}, nil).Once()

	summary, err := suite.service.ProcessPickup(suite.ctx, &models.PickupRequest{
		PackageIDs: []int64{1, 2}, MailboxID: 7, PickupPersonName: "Dana",
	})
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), summary.TenantName)
	assert.Equal(suite.T(), 2, summary.TenantCount)
	assert.True(suite.T(), summary.CrossTenantPickup)
}

func (suite *PickupServiceTestSuite) TestProcessPickup_TenantResolvesMailbox() {
	suite.tenants.On("GetByID", suite.ctx, int64(3)).Return(&models.Tenant{ID: 3, MailboxID: 7, Name: "Ada", IsActive: true}, nil).Once()
	suite.store.On("LoadCandidates", suite.ctx, []int64{1}, int64(7)).
		Return([]*models.PickupCandidate{candidate(1, 0, "", "1ZA", models.StatusReceived, false)}, nil).Once()
	suite.store.On("RecordPickup", suite.ctx, mock.Anything).Return(&models.PickupRecorded{EventIDs: []int64{9}}, nil).Once()

	summary, err := suite.service.ProcessPickup(suite.ctx, &models.PickupRequest{
		PackageIDs: []int64{1}, TenantID: int64Ptr(3), PickupPersonName: "Dana",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Ada", *summary.TenantName)
}

func (suite *PickupServiceTestSuite) TestProcessPickup_TenantOutsideMailbox() {
	suite.tenants.On("GetByID", suite.ctx, int64(3)).Return(&models.Tenant{ID: 3, MailboxID: 8}, nil).Once()

	_, err := suite.service.ProcessPickup(suite.ctx, &models.PickupRequest{
		PackageIDs: []int64{1}, MailboxID: 7, TenantID: int64Ptr(3), PickupPersonName: "Dana",
	})
	assert.True(suite.T(), common.IsKind(err, common.KindValidation))
}

func (suite *PickupServiceTestSuite) TestProcessPickup_InputValidation() {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'x'
	}
	tests := []struct {
		name string
		req  models.PickupRequest
	}{
		{"no packages", models.PickupRequest{MailboxID: 7, PickupPersonName: "Dana"}},
		{"non-positive id", models.PickupRequest{PackageIDs: []int64{1, 0}, MailboxID: 7, PickupPersonName: "Dana"}},
		{"blank name", models.PickupRequest{PackageIDs: []int64{1}, MailboxID: 7, PickupPersonName: "   "}},
		{"long name", models.PickupRequest{PackageIDs: []int64{1}, MailboxID: 7, PickupPersonName: string(long)}},
		{"long initials", models.PickupRequest{PackageIDs: []int64{1}, MailboxID: 7, PickupPersonName: "Dana", StaffInitials: stringPtr("ABCDEFGHIJK")}},
		{"no mailbox", models.PickupRequest{PackageIDs: []int64{1}, PickupPersonName: "Dana"}},
		{"bad signature", models.PickupRequest{PackageIDs: []int64{1}, MailboxID: 7, PickupPersonName: "Dana", SignatureData: stringPtr("not-a-signature")}},
		{"object signature", models.PickupRequest{PackageIDs: []int64{1}, MailboxID: 7, PickupPersonName: "Dana", SignatureData: stringPtr("s3://b/k.png")}},
		{"corrupt data uri", models.PickupRequest{PackageIDs: []int64{1}, MailboxID: 7, PickupPersonName: "Dana", SignatureData: stringPtr("data:image/png;base64,!!!not-base64!!!")}},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			req := tt.req
			_, err := suite.service.ProcessPickup(suite.ctx, &req)
			assert.True(suite.T(), common.IsKind(err, common.KindValidation), "got %v", err)
		})
	}
	suite.store.AssertNotCalled(suite.T(), "LoadCandidates", mock.Anything, mock.Anything, mock.Anything)
	suite.store.AssertNotCalled(suite.T(), "RecordPickup", mock.Anything, mock.Anything)
}

func (suite *PickupServiceTestSuite) TestListPickups_Defaults() {
	suite.store.On("ListPickups", suite.ctx, mock.MatchedBy(func(f models.PickupFilter) bool {
		return f.Days != nil && *f.Days == 30 && f.Limit == 50 && f.Offset == 0
	})).Return([]*models.PickupEvent{{ID: 1}}, 1, nil).Once()

	page, err := suite.service.ListPickups(suite.ctx, models.PickupFilter{})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, page.Total)
	assert.Equal(suite.T(), 30, page.Days)
	assert.Equal(suite.T(), 50, page.Limit)
}

func (suite *PickupServiceTestSuite) TestListPickups_DefaultsApplyIndependently() {
	days := 7
	suite.store.On("ListPickups", suite.ctx, mock.MatchedBy(func(f models.PickupFilter) bool {
		return *f.Days == 7 && f.Limit == 200 && f.Offset == 40
	})).Return([]*models.PickupEvent{}, 0, nil).Once()

	page, err := suite.service.ListPickups(suite.ctx, models.PickupFilter{Days: &days, Limit: 1000, Offset: 40})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 200, page.Limit)
	assert.Equal(suite.T(), 40, page.Offset)
}

func (suite *PickupServiceTestSuite) TestListPickups_DaysOutOfRange() {
	for _, d := range []int{0, -1, 366} {
		days := d
		_, err := suite.service.ListPickups(suite.ctx, models.PickupFilter{Days: &days})
		assert.True(suite.T(), common.IsKind(err, common.KindValidation), "days=%d", d)
	}
}

func (suite *PickupServiceTestSuite) TestBulkUpdateStatus_ReportsExcluded() {
	suite.packages.On("BulkUpdateStatus", suite.ctx, []int64{1, 2, 3}, models.StatusReturnedToSender, (*string)(nil)).
		Return(int64(2), nil).Once()

	result, err := suite.service.BulkUpdateStatus(suite.ctx, &models.BulkStatusRequest{
		PackageIDs: []int64{1, 2, 3},
		Status:     models.StatusReturnedToSender,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), &models.BulkStatusResult{Updated: 2, Requested: 3, NotUpdated: 1, Status: models.StatusReturnedToSender}, result)
}

func (suite *PickupServiceTestSuite) TestBulkUpdateStatus_RejectsTerminalTarget() {
	for _, status := range []models.PackageStatus{models.StatusPickedUp, models.StatusReceived, "lost"} {
		_, err := suite.service.BulkUpdateStatus(suite.ctx, &models.BulkStatusRequest{PackageIDs: []int64{1}, Status: status})
		assert.True(suite.T(), common.IsKind(err, common.KindValidation), "status=%s", status)
	}
}
