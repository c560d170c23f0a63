package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/middleware/auth"
	"github.com/equiplend/frontend/internal/models"
	"github.com/equiplend/frontend/pkg/logging"
)

type loginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type signupForm struct {
	Username   string `form:"username" validate:"required,min=3,max=150"`
	Email      string `form:"email" validate:"required,email"`
	Password   string `form:"password" validate:"required,min=8"`
	Confirm    string `form:"password_confirm" validate:"required,eqfield=Password"`
	FirstName  string `form:"first_name" validate:"max=150"`
	LastName   string `form:"last_name" validate:"max=150"`
	Role       string `form:"role" validate:"required,oneof=student staff admin"`
	Department string `form:"department" validate:"max=100"`
}

type authPage struct {
	Form   any
	Fields map[string]string
}

func (h *handlers) home(c echo.Context) error {
	if sess := auth.Current(c); sess.Valid() {
		return c.Redirect(http.StatusSeeOther, sess.HomePath())
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *handlers) loginPage(c echo.Context) error {
	if sess := auth.Current(c); sess.Valid() {
		return c.Redirect(http.StatusSeeOther, sess.HomePath())
	}
	return h.render(c, http.StatusOK, "login", View{Title: "Sign in", Data: authPage{Form: loginForm{}}})
}

func (h *handlers) login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "login")

	var form loginForm
	if err := c.Bind(&form); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	form.Username = strings.TrimSpace(form.Username)
	if err := c.Validate(&form); err != nil {
		return h.render(c, http.StatusBadRequest, "login", View{
			Title: "Sign in",
			Error: "Please enter your username and password.",
			Data:  authPage{Form: loginForm{Username: form.Username}, Fields: fieldErrors(err)},
		})
	}

	sess, err := h.sessions.Login(ctx, apiclient.Credentials{Username: form.Username, Password: form.Password})
	if err != nil {
		status, msg := http.StatusBadGateway, apiclient.UserMessage(err)
		if errors.Is(err, apiclient.ErrInvalidCredentials) {
			status, msg = http.StatusUnauthorized, "Invalid username or password."
			l.Warn("login_failed", "status", status, "reason", "invalid credentials", "username", form.Username)
		} else {
			l.Error("login_failed", "status", status, "reason", "api error", "error", err)
		}
		return h.render(c, status, "login", View{
			Title: "Sign in",
			Error: msg,
			Data:  authPage{Form: loginForm{Username: form.Username}},
		})
	}

	h.auth.SetCookie(c, sess.ID)
	l.Info("login_success", "user_id", sess.UserID, "role", sess.Role)
	return c.Redirect(http.StatusSeeOther, sess.HomePath())
}

func (h *handlers) signupPage(c echo.Context) error {
	if sess := auth.Current(c); sess.Valid() {
		return c.Redirect(http.StatusSeeOther, sess.HomePath())
	}
	return h.render(c, http.StatusOK, "signup", View{
		Title: "Create account",
		Data:  authPage{Form: signupForm{Role: string(models.RoleStudent)}},
	})
}

func (h *handlers) signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "signup")

	var form signupForm
	if err := c.Bind(&form); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)

	redisplay := form
	redisplay.Password, redisplay.Confirm = "", ""

	if err := c.Validate(&form); err != nil {
		fields := fieldErrors(err)
		if _, ok := fields["password_confirm"]; ok {
			fields["password_confirm"] = "passwords do not match"
		}
		return h.render(c, http.StatusBadRequest, "signup", View{
			Title: "Create account",
			Error: "Please fix the highlighted fields.",
			Data:  authPage{Form: redisplay, Fields: fields},
		})
	}

	sess, err := h.sessions.Signup(ctx, apiclient.Registration{
		Username:   form.Username,
		Email:      form.Email,
		Password:   form.Password,
		FirstName:  strings.TrimSpace(form.FirstName),
		LastName:   strings.TrimSpace(form.LastName),
		Role:       models.Role(form.Role),
		Department: strings.TrimSpace(form.Department),
	})
	if err != nil {
		l.Warn("signup_failed", "status", 400, "error", err)
		return h.render(c, http.StatusBadRequest, "signup", View{
			Title: "Create account",
			Error: apiclient.UserMessage(err),
			Data:  authPage{Form: redisplay},
		})
	}

	h.auth.SetCookie(c, sess.ID)
	l.Info("signup_success", "user_id", sess.UserID, "role", sess.Role)
	return c.Redirect(http.StatusSeeOther, sess.HomePath())
}

func (h *handlers) logout(c echo.Context) error {
	ctx := c.Request().Context()
	if sess := auth.Current(c); sess != nil {
		var err error
		if c.FormValue("everywhere") == "1" {
			err = h.sessions.LogoutEverywhere(ctx, sess)
		} else {
			err = h.sessions.Logout(ctx, sess.ID)
		}
		if err != nil {
			logging.FromContext(ctx).Error("logout_failed", "user_id", sess.UserID, "error", err)
		}
	}
	h.auth.ClearCookie(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}
