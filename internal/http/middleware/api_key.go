package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/renubu/renubu/internal/model"
)

const (
	ctxUser    = "user"
	ctxUserRPS = "user_rps"
)

// UserLookup resolves an API key to its owner; (nil, nil) when unknown.
type UserLookup interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.User, error)
}

// UserFromCtx returns the user set by APIKeyMiddleware.
func UserFromCtx(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(ctxUser).(*model.User)
	return u, ok && u != nil
}

// APIKeyMiddleware authenticates requests by the X-API-Key header and rejects
// unknown keys and suspended users.
func APIKeyMiddleware(users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			u, err := users.GetByAPIKey(c.Request().Context(), key)
			if err != nil {
				c.Logger().Errorf("api key lookup: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if u == nil || !u.Active() {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			c.Set(ctxUser, u)
			if u.RateLimitRPS != nil {
				c.Set(ctxUserRPS, *u.RateLimitRPS)
			}
			return next(c)
		}
	}
}
