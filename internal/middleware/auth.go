package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mkorchagin/product-catalog/internal/service"
)

const usernameKey = "username"

// RequireAuth validates the Authorization bearer token once per request
// and puts the verified username into the echo context. Every owner-scoped
// handler reads it back with Username.
func RequireAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			username, err := service.ValidateAccessToken(strings.TrimPrefix(header, prefix), secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(usernameKey, username)
			return next(c)
		}
	}
}

func Username(c echo.Context) string {
	username, _ := c.Get(usernameKey).(string)
	return username
}
