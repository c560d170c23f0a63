package auth

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/equiplend/frontend/internal/session"
	"github.com/equiplend/frontend/pkg/logging"
)

// AutoRefresh resolves the session cookie on every request. Resume refreshes
// an expiring access token; a session that is gone or could not be refreshed
// clears the cookie and the request continues anonymously.
func (m *Middleware) AutoRefresh(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ck, err := c.Cookie(CookieName)
		if err != nil || ck.Value == "" {
			return next(c)
		}
		ctx := c.Request().Context()
		sess, err := m.sessions.Resume(ctx, ck.Value)
		switch {
		case err == nil:
			c.Set(contextKey, sess)
			c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx,
				logging.FromContext(ctx).With("user_id", sess.UserID, "role", sess.Role))))
		case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionExpired):
			m.ClearCookie(c)
		default:
			logging.FromContext(ctx).Error("session_load_failed", "error", err)
		}
		return next(c)
	}
}
