package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"mailroom/internal/common"
	"mailroom/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type PickupHandlersTestSuite struct {
	suite.Suite
	service *MockPickupService
	e       *echo.Echo
}

func (suite *PickupHandlersTestSuite) SetupTest() {
	suite.service = &MockPickupService{}
	h := NewPickupHandlers(suite.service)
	suite.e = newTestServer()
	suite.e.POST("/v1/pickups", h.ProcessPickup)
	suite.e.GET("/v1/pickups", h.ListPickups)
	suite.e.POST("/v1/pickups/bulk-status", h.BulkUpdateStatus)
}

func (suite *PickupHandlersTestSuite) TearDownTest() {
	suite.service.AssertExpectations(suite.T())
}

func TestPickupHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(PickupHandlersTestSuite))
}

func (suite *PickupHandlersTestSuite) TestProcessPickup_OK() {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	suite.service.On("ProcessPickup", mock.Anything, mock.MatchedBy(func(r *models.PickupRequest) bool {
		return len(r.PackageIDs) == 2 && r.MailboxID == 101 && r.PickupPersonName == "Dana" && r.SignatureData == nil
	})).Return(&models.PickupSummary{
		PackagesPickedUp:  2,
		PackageIDs:        []int64{1, 2},
		TrackingNumbers:   []string{"A", "B"},
		TenantCount:       2,
		CrossTenantPickup: true,
		SignatureIDs:      []int64{},
		PickupPersonName:  "Dana",
		PickedUpAt:        at,
		Schema:            "relational",
	}, nil).Once()

	rec := do(suite.e, http.MethodPost, "/v1/pickups", `{"package_ids":[1,2],"mailbox_id":101,"pickup_person_name":"Dana"}`)

	require.Equal(suite.T(), http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(suite.T(), float64(2), body["packages_picked_up"])
	assert.Equal(suite.T(), true, body["cross_tenant_pickup"])
	assert.Equal(suite.T(), false, body["signature_captured"])
	assert.Equal(suite.T(), []interface{}{}, body["signature_ids"])
}

func (suite *PickupHandlersTestSuite) TestProcessPickup_HighValueWithoutSignature() {
	suite.service.On("ProcessPickup", mock.Anything, mock.Anything).
		Return(nil, common.NewValidationError("signature required for high-value packages").
			WithDetail("high_value_tracking_numbers", "1ZHV")).Once()

	rec := do(suite.e, http.MethodPost, "/v1/pickups", `{"package_ids":[1],"mailbox_id":101,"pickup_person_name":"Dana"}`)

	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	var body common.ErrorResponse
	require.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(suite.T(), "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(suite.T(), "1ZHV", body.Error.Details["high_value_tracking_numbers"])
}

func (suite *PickupHandlersTestSuite) TestProcessPickup_AlreadyPickedUp() {
	conflict := common.NewConflictError("some packages have already been picked up")
	conflict.Status = http.StatusBadRequest
	suite.service.On("ProcessPickup", mock.Anything, mock.Anything).Return(nil, conflict).Once()

	rec := do(suite.e, http.MethodPost, "/v1/pickups", `{"package_ids":[1],"mailbox_id":101,"pickup_person_name":"Dana"}`)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), `"code":"CONFLICT"`)
}

func (suite *PickupHandlersTestSuite) TestProcessPickup_MalformedBody() {
	rec := do(suite.e, http.MethodPost, "/v1/pickups", `{"package_ids":"oops"`)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	suite.service.AssertNotCalled(suite.T(), "ProcessPickup", mock.Anything, mock.Anything)
}

func (suite *PickupHandlersTestSuite) TestListPickups_ParsesQuery() {
	suite.service.On("ListPickups", mock.Anything, mock.MatchedBy(func(f models.PickupFilter) bool {
		return *f.TenantID == 3 && f.MailboxID == nil && *f.Days == 7 && f.Limit == 10 && f.Offset == 20
	})).Return(&models.PickupPage{Events: []*models.PickupEvent{}, Days: 7, Limit: 10, Offset: 20}, nil).Once()

	rec := do(suite.e, http.MethodGet, "/v1/pickups?tenant_id=3&days=7&limit=10&offset=20", "")
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), `"pickups":[]`)
}

func (suite *PickupHandlersTestSuite) TestListPickups_OmittedDaysIsNil() {
	suite.service.On("ListPickups", mock.Anything, mock.MatchedBy(func(f models.PickupFilter) bool {
		return f.Days == nil && f.Limit == 5
	})).Return(&models.PickupPage{Days: 30, Limit: 5}, nil).Once()

	rec := do(suite.e, http.MethodGet, "/v1/pickups?limit=5", "")
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
}

func (suite *PickupHandlersTestSuite) TestListPickups_BadParams() {
	for _, q := range []string{"days=abc", "tenant_id=-1", "limit=x"} {
		rec := do(suite.e, http.MethodGet, "/v1/pickups?"+q, "")
		assert.Equal(suite.T(), http.StatusBadRequest, rec.Code, q)
	}
}

func (suite *PickupHandlersTestSuite) TestBulkUpdateStatus() {
	suite.service.On("BulkUpdateStatus", mock.Anything, mock.MatchedBy(func(r *models.BulkStatusRequest) bool {
		return r.Status == models.StatusReturnedToSender && len(r.PackageIDs) == 3
	})).Return(&models.BulkStatusResult{Updated: 2, Requested: 3, NotUpdated: 1, Status: models.StatusReturnedToSender}, nil).Once()

	rec := do(suite.e, http.MethodPost, "/v1/pickups/bulk-status", `{"package_ids":[1,2,3],"status":"returned_to_sender"}`)
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	var body models.BulkStatusResult
	require.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(suite.T(), 1, body.NotUpdated)
}
