package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iradmi/vidstream-backend/internal/auth"
)

// Context keys populated by RequireAccessToken.
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
)

// RequireAccessToken validates an access token taken from the
// Authorization header (Bearer) or the accessToken cookie, in that order,
// and injects the authenticated user's id and username into the request
// context. Refresh tokens are signed with a different secret and are
// rejected here.
func RequireAccessToken(codec *auth.Codec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if h := c.Request().Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				raw = strings.TrimPrefix(h, "Bearer ")
			} else if ck, err := c.Cookie("accessToken"); err == nil {
				raw = ck.Value
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing access token"})
			}

			claims, err := codec.VerifyAccess(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxUsername, claims.Username)
			return next(c)
		}
	}
}

// UserID returns the authenticated user id set by RequireAccessToken, or
// zero when the request is unauthenticated.
func UserID(c echo.Context) uint64 {
	if v, ok := c.Get(CtxUserID).(uint64); ok {
		return v
	}
	return 0
}
