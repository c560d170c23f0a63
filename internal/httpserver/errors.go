package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/middleware/auth"
	"github.com/equiplend/frontend/pkg/logging"
)

func errorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "Something went wrong. Please try again."
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		v := View{Title: http.StatusText(code), Session: auth.Current(c), Error: msg, Data: code}
		if rerr := c.Render(code, "error", v); rerr != nil {
			e.DefaultHTTPErrorHandler(err, c)
		}
	}
}

// sessionLost handles a token the API no longer accepts: the session is
// dropped and the user starts over at the login page.
func (h *handlers) sessionLost(c echo.Context) error {
	ctx := c.Request().Context()
	logging.FromContext(ctx).Info("session_rejected_by_api", "status", 401)
	h.sessions.Drop(ctx, auth.Current(c))
	h.auth.ClearCookie(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

func isAuthError(err error) bool {
	return errors.Is(err, apiclient.ErrUnauthorized)
}
