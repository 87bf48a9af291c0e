package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"mailroom/internal/common"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorHandler renders every error as an ErrorResponse envelope. Causes of
// unexpected errors are logged and never sent to the client.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := renderError(err)
		if status >= http.StatusInternalServerError {
			msg := "request failed"
			if common.IsKind(err, common.KindSchemaCompatibility) {
				msg = "request failed on schema mismatch, check SCHEMA_VARIANT"
			}
			logger.Error(msg,
				zap.String("request_id", common.GetRequestIDFromContext(c.Request().Context())),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Warn("failed to write error response", zap.Error(err))
		}
	}
}

func renderError(err error) (int, *common.ErrorResponse) {
	if appErr, ok := common.AsAppError(err); ok {
		if errors.Is(appErr.Cause, context.DeadlineExceeded) {
			return http.StatusServiceUnavailable, common.CreateErrorResponse("TIMEOUT", "request timed out", nil)
		}
		status := appErr.HTTPStatus()
		if appErr.Kind == common.KindSchemaCompatibility {
			return http.StatusInternalServerError, common.CreateErrorResponse(string(common.KindUnexpected), "internal server error", nil)
		}
		return status, common.CreateErrorResponse(string(appErr.Kind), appErr.Message, appErr.Details)
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, common.CreateErrorResponse(codeForStatus(he.Code), messageOf(he), nil)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, common.CreateErrorResponse("TIMEOUT", "request timed out", nil)
	}
	return http.StatusInternalServerError, common.CreateErrorResponse(string(common.KindUnexpected), "internal server error", nil)
}

func messageOf(he *echo.HTTPError) string {
	if m, ok := he.Message.(string); ok {
		return m
	}
	return strings.ToLower(http.StatusText(he.Code))
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(common.KindValidation)
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return string(common.KindNotFound)
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	}
	if status >= http.StatusInternalServerError {
		return string(common.KindUnexpected)
	}
	return fmt.Sprintf("HTTP_%d", status)
}
