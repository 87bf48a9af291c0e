package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"mailroom/internal/common"

	"github.com/labstack/echo/v4"
)

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewValidationError(name+" must be a positive integer").WithDetail(name, raw)
	}
	return id, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.NewValidationError(name+" must be an integer").WithDetail(name, raw)
	}
	return v, nil
}

// queryIntPtr returns nil when the parameter is absent so callers can tell
// "not given" from zero.
func queryIntPtr(c echo.Context, name string) (*int, error) {
	if strings.TrimSpace(c.QueryParam(name)) == "" {
		return nil, nil
	}
	v, err := queryInt(c, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func queryID(c echo.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, common.NewValidationError(name+" must be a positive integer").WithDetail(name, raw)
	}
	return &id, nil
}

func queryBool(c echo.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, common.NewValidationError(name+" must be true or false").WithDetail(name, raw)
	}
	return &v, nil
}

func pagination(c echo.Context) (limit, offset int, err error) {
	if limit, err = queryInt(c, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(c, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// bindJSON decodes the body into dst.
func bindJSON(c echo.Context, dst interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format").SetInternal(err)
	}
	return nil
}
