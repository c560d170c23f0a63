package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/equiplend/frontend/internal/models"
	"github.com/equiplend/frontend/pkg/logging"
)

// RequireLogin sends visitors without a valid session to the login page.
func (m *Middleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !Current(c).Valid() {
			return c.Redirect(http.StatusSeeOther, m.loginPath)
		}
		return next(c)
	}
}

// RequireRole rejects sessions whose role is not listed.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !Current(c).HasRole(roles...) {
				logging.FromContext(c.Request().Context()).Warn("access_denied", "status", 403, "path", c.Path())
				return echo.NewHTTPError(http.StatusForbidden, "this page is for staff and administrators")
			}
			return next(c)
		}
	}
}
