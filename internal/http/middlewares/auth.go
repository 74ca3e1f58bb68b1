package middleware

import (
	"regexp"

	"github.com/labstack/echo/v4"

	apperrors "notegrid.app/notegrid/internal/errors"
	"notegrid.app/notegrid/internal/identity"
)

const identityKey = "identity"

var bearerPattern = regexp.MustCompile(`(?i)^Bearer\s+(.+)$`)

// Auth requires "Authorization: Bearer <uuid>" and stores the normalized
// identity on the context.
func Auth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m := bearerPattern.FindStringSubmatch(c.Request().Header.Get(echo.HeaderAuthorization))
			if m == nil || !identity.Validate(m[1]) {
				return apperrors.ErrUnauthorized
			}
			c.Set(identityKey, identity.Normalize(m[1]))
			return next(c)
		}
	}
}

// Identity returns the identity stored by Auth, or "".
func Identity(c echo.Context) string {
	id, _ := c.Get(identityKey).(string)
	return id
}
