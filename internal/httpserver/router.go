// Package httpserver is the server-rendered web front-end.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/borrow"
	"github.com/equiplend/frontend/internal/dashboard"
	"github.com/equiplend/frontend/internal/events"
	"github.com/equiplend/frontend/internal/lifecycle"
	"github.com/equiplend/frontend/internal/middleware/auth"
	"github.com/equiplend/frontend/internal/middleware/csrf"
	"github.com/equiplend/frontend/internal/models"
	"github.com/equiplend/frontend/internal/obs"
	"github.com/equiplend/frontend/internal/session"
	loggingmw "github.com/equiplend/frontend/pkg/middleware/logging"
)

type Deps struct {
	API      *apiclient.Client
	Sessions *session.Manager
	Events   events.Publisher
	Logger   *slog.Logger

	Location     *time.Location
	CookieSecure bool
	SessionTTL   time.Duration
	CSRFConfig   csrf.Config

	// Ready reports backend health for /health/ready; nil means always ready.
	Ready func() error
}

type handlers struct {
	api       *apiclient.Client
	sessions  *session.Manager
	events    events.Publisher
	dashboard *dashboard.Loader
	runner    *lifecycle.Runner
	// one borrow submission per user at a time
	submitGuard *lifecycle.Guard
	validator   borrow.Validator
	loc         *time.Location
	auth        *auth.Middleware
}

// Register wires every route of the web front-end onto e.
func Register(e *echo.Echo, d *Deps) error {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	renderer, err := NewRenderer()
	if err != nil {
		return err
	}
	e.Renderer = renderer
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler(e)

	h := &handlers{
		api:         d.API,
		sessions:    d.Sessions,
		events:      d.Events,
		dashboard:   dashboard.NewLoader(d.API),
		runner:      lifecycle.NewRunner(d.API, lifecycle.NewGuard(), d.Events),
		submitGuard: lifecycle.NewGuard(),
		validator:   borrow.NewValidator(d.Location),
		loc:         d.Location,
		auth:        auth.New(d.Sessions, d.CookieSecure, d.SessionTTL),
	}

	obs.Init()
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				return c.String(http.StatusServiceUnavailable, err.Error())
			}
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", obs.Handler())

	for _, m := range Common() {
		e.Use(m)
	}
	e.Use(loggingmw.RequestLogger(d.Logger, "/health", "/metrics"))
	csrfCfg := d.CSRFConfig
	csrfCfg.Secure = d.CookieSecure
	csrfCfg.SkipPrefixes = append(csrfCfg.SkipPrefixes, "/health", "/metrics")
	e.Use(csrf.Middleware(csrfCfg))
	e.Use(h.auth.AutoRefresh)

	e.GET("/", h.home)
	limiter := AuthRateLimiter()
	e.GET("/login", h.loginPage)
	e.POST("/login", h.login, limiter)
	e.GET("/signup", h.signupPage)
	e.POST("/signup", h.signup, limiter)
	e.POST("/logout", h.logout)

	student := e.Group("/student", h.auth.RequireLogin)
	student.GET("/dashboard", h.studentDashboard)
	student.GET("/equipment/:id/borrow", h.borrowPage)
	student.POST("/equipment/:id/borrow", h.borrowSubmit)
	student.GET("/requests", h.studentRequests)

	admin := e.Group("/admin", h.auth.RequireLogin, auth.RequireRole(models.RoleAdmin, models.RoleStaff))
	admin.GET("/dashboard", h.adminDashboard)
	admin.GET("/requests", h.adminRequests)
	admin.POST("/requests/:id/:action", h.adminTransition)
	admin.GET("/equipment", h.adminEquipment)
	admin.GET("/equipment/new", h.equipmentNewPage)
	admin.POST("/equipment", h.equipmentCreate)
	admin.GET("/equipment/:id/edit", h.equipmentEditPage)
	admin.POST("/equipment/:id", h.equipmentUpdate)
	admin.POST("/equipment/:id/delete", h.equipmentDelete)

	return nil
}
