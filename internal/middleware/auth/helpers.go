// Package auth gates the web front-end on the server-side session behind the
// opaque session cookie.
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/equiplend/frontend/internal/session"
)

const (
	CookieName = "equiplend_session"
	contextKey = "session"
)

// Resumer turns a cookie value back into a live session.
type Resumer interface {
	Resume(ctx context.Context, id string) (*session.Session, error)
}

type Middleware struct {
	sessions  Resumer
	secure    bool
	ttl       time.Duration
	loginPath string
}

func New(sessions Resumer, secure bool, ttl time.Duration) *Middleware {
	return &Middleware{sessions: sessions, secure: secure, ttl: ttl, loginPath: "/login"}
}

func (m *Middleware) SetCookie(c echo.Context, id string) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
	})
}

func (m *Middleware) ClearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Current is the session AutoRefresh resolved for this request, or nil.
func Current(c echo.Context) *session.Session {
	if s, ok := c.Get(contextKey).(*session.Session); ok {
		return s
	}
	return nil
}
