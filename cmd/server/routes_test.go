package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mailroom/internal/common"
	"mailroom/internal/config"
	"mailroom/internal/handlers"
	"mailroom/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const routesSecret = "routes-test-secret"

type noJobs struct{}

func (noJobs) GetJobStatus() map[string]interface{} { return map[string]interface{}{} }
func (noJobs) RunNow(string) error                  { return nil }

// newRouter registers every route. Services are nil, so only requests
// stopped by middleware may be sent.
func newRouter(withJobs bool) *echo.Echo {
	return newVersionedRouter(withJobs, config.APIConfig{})
}

func newVersionedRouter(withJobs bool, api config.APIConfig) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zap.NewNop())
	h := routeHandlers{
		health:     handlers.NewHealthHandlers(nil, nil, nil, "", "", version),
		mailboxes:  handlers.NewMailboxHandlers(nil, nil),
		tenants:    handlers.NewTenantHandlers(nil),
		packages:   handlers.NewPackageHandlers(nil),
		pickups:    handlers.NewPickupHandlers(nil),
		signatures: handlers.NewSignatureHandlers(nil),
		reports:    handlers.NewReportHandlers(nil, 14),
	}
	if withJobs {
		h.jobs = handlers.NewJobHandlers(noJobs{})
	}
	registerRoutes(e, h, apiVersions(api), middleware.AuthConfig{Secret: routesSecret}, zap.NewNop())
	return e
}

func token(t *testing.T, role string) string {
	t.Helper()
	claims := middleware.StaffClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(routesSecret))
	require.NoError(t, err)
	return signed
}

func request(e *echo.Echo, method, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_RequireToken(t *testing.T) {
	e := newRouter(false)

	for _, target := range []string{"/v1/mailboxes", "/v1/pickups", "/v1/signatures/image/1", "/v1/reports/aging"} {
		rec := request(e, http.MethodGet, target, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestRoutes_AdminOnly(t *testing.T) {
	e := newRouter(true)
	staff := token(t, common.RoleStaff)

	cases := []struct{ method, target string }{
		{http.MethodDelete, "/v1/mailboxes/1"},
		{http.MethodDelete, "/v1/packages/1"},
		{http.MethodPost, "/v1/packages/1/reset-status"},
		{http.MethodDelete, "/v1/signatures/1"},
		{http.MethodGet, "/v1/admin/jobs"},
	}
	for _, tc := range cases {
		rec := request(e, tc.method, tc.target, staff)
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.method+" "+tc.target)
	}

	rec := request(e, http.MethodGet, "/v1/admin/jobs", token(t, common.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))
}

func TestRoutes_JobsOnlyWhenEnabled(t *testing.T) {
	registered := func(e *echo.Echo) map[string]bool {
		out := map[string]bool{}
		for _, r := range e.Routes() {
			out[r.Method+" "+r.Path] = true
		}
		return out
	}

	without := registered(newRouter(false))
	assert.False(t, without["GET /v1/admin/jobs"])
	assert.True(t, without["GET /v1/reports/aging"])
	assert.True(t, without["POST /v1/pickups/bulk-status"])
	assert.True(t, without["GET /v1/packages/tracking/:tracking"])

	with := registered(newRouter(true))
	assert.True(t, with["POST /v1/admin/jobs/:name/run"])
}

func TestRoutes_VersionHeaders(t *testing.T) {
	rec := request(newRouter(false), http.MethodGet, "/v1/mailboxes", "")
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))
	assert.Empty(t, rec.Header().Get("X-API-Deprecated"))

	sunset := time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC)
	e := newVersionedRouter(false, config.APIConfig{V1Deprecated: true, V1Sunset: sunset})
	rec = request(e, http.MethodGet, "/v1/mailboxes", "")
	assert.Equal(t, "true", rec.Header().Get("X-API-Deprecated"))
	assert.Equal(t, "2027-06-30T00:00:00Z", rec.Header().Get("X-API-Sunset"))
	assert.Contains(t, rec.Header().Get("Warning"), "2027-06-30")
}

func TestRoutes_DeprecatedWithoutSunset(t *testing.T) {
	e := newVersionedRouter(false, config.APIConfig{V1Deprecated: true})
	rec := request(e, http.MethodGet, "/v1/mailboxes", "")
	assert.Equal(t, "true", rec.Header().Get("X-API-Deprecated"))
	assert.Empty(t, rec.Header().Get("X-API-Sunset"))
}
