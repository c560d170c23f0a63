package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/catalog"
	"github.com/equiplend/frontend/internal/dashboard"
	"github.com/equiplend/frontend/internal/lifecycle"
	"github.com/equiplend/frontend/internal/middleware/auth"
	"github.com/equiplend/frontend/internal/models"
	"github.com/equiplend/frontend/pkg/logging"
)

func (h *handlers) adminDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	sess := auth.Current(c)

	var loadErr string
	summary, err := h.dashboard.Load(ctx, sess.AccessToken, dashboard.ScopeAll)
	if isAuthError(err) {
		return h.sessionLost(c)
	}
	if err != nil {
		logging.FromContext(ctx).Error("dashboard_load_failed", "handler", "admin_dashboard", "error", err)
		loadErr = "Could not load dashboard data. " + apiclient.UserMessage(err)
	}
	return h.render(c, http.StatusOK, "admin_dashboard", View{Title: "Admin dashboard", Error: loadErr, Data: summary})
}

// adminRequests always fetches the full list so the tab counts stay
// meaningful, then narrows it locally.
func (h *handlers) adminRequests(c echo.Context) error {
	ctx := c.Request().Context()
	sess := auth.Current(c)

	var loadErr string
	reqs, err := h.api.ListRequests(ctx, sess.AccessToken, "")
	if isAuthError(err) {
		return h.sessionLost(c)
	}
	if err != nil {
		logging.FromContext(ctx).Error("requests_load_failed", "handler", "admin_requests", "error", err)
		loadErr = "Could not load requests. " + apiclient.UserMessage(err)
	}
	return h.render(c, http.StatusOK, "admin_requests", View{
		Title: "Requests",
		Error: loadErr,
		Data:  newRequestsPage(reqs, statusParam(c)),
	})
}

func (h *handlers) adminTransition(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_transition")
	sess := auth.Current(c)

	back := "/admin/requests"
	if tab := models.Status(c.FormValue("tab")); tab.Valid() {
		back += "?" + url.Values{"status": {string(tab)}}.Encode()
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusNotFound, "request not found")
	}
	action := models.Action(c.Param("action"))
	if !action.Valid() {
		return echo.NewHTTPError(http.StatusNotFound, "unknown action")
	}
	current := models.Status(c.FormValue("status"))

	actor := lifecycle.Actor{Token: sess.AccessToken, UserID: sess.UserID, Role: sess.Role}
	updated, err := h.runner.Fire(ctx, actor, id, current, action, strings.TrimSpace(c.FormValue("reason")))
	switch {
	case err == nil:
	case isAuthError(err):
		return h.sessionLost(c)
	case errors.Is(err, lifecycle.ErrInFlight):
		setFlash(c, fmt.Sprintf("Request #%04d is already being updated.", id), true)
		return c.Redirect(http.StatusSeeOther, back)
	case errors.Is(err, lifecycle.ErrNotPermitted):
		l.Warn("transition_refused", "status", 409, "request_id", id, "action", action, "current", current)
		msg := fmt.Sprintf("Cannot %s a %s request.", action, current)
		if current == "" {
			msg = fmt.Sprintf("Cannot %s request #%04d in its current state. Reload and try again.", action, id)
		}
		setFlash(c, msg, true)
		return c.Redirect(http.StatusSeeOther, back)
	default:
		setFlash(c, fmt.Sprintf("Could not %s request #%04d: %s", action, id, apiclient.UserMessage(err)), true)
		return c.Redirect(http.StatusSeeOther, back)
	}

	setFlash(c, fmt.Sprintf("Request #%04d is now %s.", id, lifecycle.Present(updated.Status).Label), false)
	return c.Redirect(http.StatusSeeOther, back)
}

type adminEquipmentPage struct {
	Items      []models.EquipmentItem
	Categories []string
	Query      string
	Category   string
	Total      int
}

func (h *handlers) adminEquipment(c echo.Context) error {
	ctx := c.Request().Context()
	sess := auth.Current(c)

	var loadErr string
	items, err := h.api.ListEquipment(ctx, sess.AccessToken, apiclient.EquipmentFilter{})
	if isAuthError(err) {
		return h.sessionLost(c)
	}
	if err != nil {
		logging.FromContext(ctx).Error("equipment_load_failed", "handler", "admin_equipment", "error", err)
		loadErr = "Could not load equipment. " + apiclient.UserMessage(err)
	}

	q := strings.TrimSpace(c.QueryParam("q"))
	cat := strings.TrimSpace(c.QueryParam("category"))
	return h.render(c, http.StatusOK, "admin_equipment", View{
		Title: "Equipment",
		Error: loadErr,
		Data: adminEquipmentPage{
			Items:      catalog.Filter(items, q, cat),
			Categories: catalog.Categories(items),
			Query:      q,
			Category:   cat,
			Total:      len(items),
		},
	})
}

type equipmentForm struct {
	Name          string `form:"name" validate:"required,max=200"`
	Category      int64  `form:"category" validate:"required,gt=0"`
	Description   string `form:"description" validate:"max=2000"`
	Condition     string `form:"condition" validate:"required,oneof=excellent good fair poor"`
	TotalQuantity int    `form:"total_quantity" validate:"gte=0"`
}

func (f equipmentForm) input() apiclient.EquipmentInput {
	return apiclient.EquipmentInput{
		Name:          strings.TrimSpace(f.Name),
		Category:      f.Category,
		Description:   strings.TrimSpace(f.Description),
		Condition:     models.Condition(f.Condition),
		TotalQuantity: f.TotalQuantity,
	}
}

type equipmentFormPage struct {
	ID         int64
	Form       equipmentForm
	Fields     map[string]string
	Categories []models.Category
	Conditions []models.Condition
}

var conditions = []models.Condition{models.ConditionExcellent, models.ConditionGood, models.ConditionFair, models.ConditionPoor}

func (h *handlers) equipmentFormView(c echo.Context, status int, page equipmentFormPage, errMsg string) error {
	cats, err := h.api.ListCategories(c.Request().Context(), auth.Current(c).AccessToken)
	if isAuthError(err) {
		return h.sessionLost(c)
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).Warn("categories_load_failed", "error", err)
	}
	page.Categories = cats
	page.Conditions = conditions
	title := "New equipment"
	if page.ID > 0 {
		title = "Edit " + page.Form.Name
	}
	return h.render(c, status, "equipment_form", View{Title: title, Error: errMsg, Data: page})
}

func (h *handlers) equipmentNewPage(c echo.Context) error {
	return h.equipmentFormView(c, http.StatusOK, equipmentFormPage{
		Form: equipmentForm{Condition: string(models.ConditionGood), TotalQuantity: 1},
	}, "")
}

func (h *handlers) equipmentEditPage(c echo.Context) error {
	item, err := h.loadItem(c)
	if isAuthError(err) {
		return h.sessionLost(c)
	}
	if err != nil {
		return apiReadError(c, err)
	}
	return h.equipmentFormView(c, http.StatusOK, equipmentFormPage{
		ID: item.ID,
		Form: equipmentForm{
			Name:          item.Name,
			Category:      item.Category.ID,
			Description:   item.Description,
			Condition:     string(item.Condition),
			TotalQuantity: item.TotalQuantity,
		},
	}, "")
}

func (h *handlers) equipmentCreate(c echo.Context) error {
	return h.saveEquipment(c, 0)
}

func (h *handlers) equipmentUpdate(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusNotFound, "equipment not found")
	}
	return h.saveEquipment(c, id)
}

func (h *handlers) saveEquipment(c echo.Context, id int64) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "equipment_save", "equipment_id", id)
	sess := auth.Current(c)

	var form equipmentForm
	if err := c.Bind(&form); err != nil {
		l.Warn("equipment_save_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	if err := c.Validate(&form); err != nil {
		return h.equipmentFormView(c, http.StatusBadRequest, equipmentFormPage{ID: id, Form: form, Fields: fieldErrors(err)},
			"Please fix the highlighted fields.")
	}

	var (
		saved *models.EquipmentItem
		err   error
	)
	if id == 0 {
		saved, err = h.api.CreateEquipment(ctx, sess.AccessToken, form.input())
	} else {
		saved, err = h.api.UpdateEquipment(ctx, sess.AccessToken, id, form.input())
	}
	if isAuthError(err) {
		return h.sessionLost(c)
	}
	if err != nil {
		l.Warn("equipment_save_failed", "status", 502, "error", err)
		return h.equipmentFormView(c, http.StatusBadGateway, equipmentFormPage{ID: id, Form: form}, apiclient.UserMessage(err))
	}

	l.Info("equipment_saved", "saved_id", saved.ID)
	setFlash(c, fmt.Sprintf("%s saved.", saved.Name), false)
	return c.Redirect(http.StatusSeeOther, "/admin/equipment")
}

func (h *handlers) equipmentDelete(c echo.Context) error {
	ctx := c.Request().Context()
	sess := auth.Current(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusNotFound, "equipment not found")
	}
	err = h.api.DeleteEquipment(ctx, sess.AccessToken, id)
	switch {
	case err == nil:
		logging.FromContext(ctx).Info("equipment_deleted", "equipment_id", id)
		setFlash(c, "Equipment deleted.", false)
	case isAuthError(err):
		return h.sessionLost(c)
	default:
		logging.FromContext(ctx).Warn("equipment_delete_failed", "equipment_id", id, "error", err)
		setFlash(c, "Could not delete equipment: "+apiclient.UserMessage(err), true)
	}
	return c.Redirect(http.StatusSeeOther, "/admin/equipment")
}
