package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mailroom/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/random"
	"go.uber.org/zap"
)

// StaffClaims are the claims carried by staff tokens. Role defaults to
// staff when absent.
type StaffClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthConfig configures JWTAuth. Keyfunc, when set, takes precedence over
// Secret.
type AuthConfig struct {
	Disabled bool
	Secret   string
	Keyfunc  jwt.Keyfunc
}

// anonymousStaff is the identity attached to requests when auth is disabled.
const anonymousStaff = "anonymous"

// DevSecret returns secret, or a random one for local runs when none is set.
func DevSecret(secret string, logger *zap.Logger) string {
	if secret != "" {
		return secret
	}
	generated := random.String(32)
	logger.Warn("JWT_SECRET not set, using a generated secret; tokens will not survive a restart")
	return generated
}

// NewJWKSKeyfunc fetches the key set at url and keeps it refreshed in the
// background. The returned stop func ends the refresh goroutine.
func NewJWKSKeyfunc(url string, logger *zap.Logger) (jwt.Keyfunc, func(), error) {
	jwks, err := keyfunc.Get(url, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("jwks refresh failed", zap.String("url", url), zap.Error(err))
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load jwks from %s: %w", url, err)
	}
	return jwks.Keyfunc, jwks.EndBackground, nil
}

// JWTAuth validates the bearer token and puts the staff subject and role
// into the request context.
func JWTAuth(cfg AuthConfig) echo.MiddlewareFunc {
	if cfg.Disabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				setStaff(c, anonymousStaff, common.RoleAdmin)
				return next(c)
			}
		}
	}

	config := echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(StaffClaims)
		},
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			claims, ok := token.Claims.(*StaffClaims)
			if !ok {
				return
			}
			role := claims.Role
			if role == "" {
				role = common.RoleStaff
			}
			setStaff(c, claims.Subject, role)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if errors.Is(err, echojwt.ErrJWTMissing) {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token").SetInternal(err)
		},
	}
	if cfg.Keyfunc != nil {
		config.KeyFunc = cfg.Keyfunc
	} else {
		config.SigningKey = []byte(cfg.Secret)
	}
	return echojwt.WithConfig(config)
}

func setStaff(c echo.Context, subject, role string) {
	ctx := context.WithValue(c.Request().Context(), common.StaffIDKey, subject)
	ctx = context.WithValue(ctx, common.StaffRoleKey, role)
	c.SetRequest(c.Request().WithContext(ctx))
}
