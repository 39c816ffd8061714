package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/jmehdipour/paywall/internal/auth"
)

const ctxAdminID = "admin_id"

// AdminIDFromCtx extracts the admin id set by AdminAuth.
func AdminIDFromCtx(c echo.Context) (int64, bool) {
	id, ok := c.Get(ctxAdminID).(int64)
	return id, ok
}

type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// AdminAuth requires a valid "Authorization: Bearer <jwt>" header.
func AdminAuth(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing token"})
			}
			claims, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			c.Set(ctxAdminID, claims.AdminID)
			return next(c)
		}
	}
}

// GatewayTokenHeader authenticates payment gateway callbacks.
const GatewayTokenHeader = "X-Gateway-Token"

// GatewayToken checks the shared callback token. An empty configured token
// disables the check; callbacks carry no trusted data either way.
func GatewayToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}
			got := strings.TrimSpace(c.Request().Header.Get(GatewayTokenHeader))
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid gateway token"})
			}
			return next(c)
		}
	}
}
