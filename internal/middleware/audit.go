package middleware

import (
	"context"
	"net/http"

	"mailroom/internal/common"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestID assigns every request a uuid, echoes it in X-Request-ID and
// stores it in the request context.
func RequestID() echo.MiddlewareFunc {
	return echoMiddleware.RequestIDWithConfig(echoMiddleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := context.WithValue(c.Request().Context(), common.RequestIDKey, id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	})
}

// RequestLogger writes one structured line per request. Server errors log at
// error level, client errors at warn.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			level := zapcore.InfoLevel
			switch {
			case v.Status >= http.StatusInternalServerError:
				level = zapcore.ErrorLevel
			case v.Status >= http.StatusBadRequest:
				level = zapcore.WarnLevel
			}
			fields := []zap.Field{
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.String("route", v.RoutePath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			logger.Log(level, "request", fields...)
			return nil
		},
	})
}

// AuditWrites records which staff member performed each state-changing
// request. Reads are not audited.
func AuditWrites(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			switch c.Request().Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return err
			}

			ctx := c.Request().Context()
			staffID, _ := common.GetStaffIDFromContext(ctx)
			role, _ := common.GetStaffRoleFromContext(ctx)
			fields := []zap.Field{
				zap.String("request_id", common.GetRequestIDFromContext(ctx)),
				zap.String("staff_id", staffID),
				zap.String("role", role),
				zap.String("action", c.Request().Method+" "+c.Path()),
				zap.Strings("params", paramValues(c)),
			}
			if err != nil {
				fields = append(fields, zap.NamedError("outcome", err))
			}
			logger.Info("audit", fields...)
			return err
		}
	}
}

func paramValues(c echo.Context) []string {
	names := c.ParamNames()
	out := make([]string, 0, len(names))
	for i, name := range names {
		if i < len(c.ParamValues()) {
			out = append(out, name+"="+c.ParamValues()[i])
		}
	}
	return out
}
