package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/borrow"
	"github.com/equiplend/frontend/internal/dashboard"
	"github.com/equiplend/frontend/internal/events"
	"github.com/equiplend/frontend/internal/lifecycle"
	"github.com/equiplend/frontend/internal/middleware/auth"
	"github.com/equiplend/frontend/internal/models"
	"github.com/equiplend/frontend/pkg/logging"
)

type catalogFilter struct {
	Search     string
	CategoryID int64
}

type studentDashboardPage struct {
	Summary    *dashboard.Summary
	Items      []models.EquipmentItem
	Categories []models.Category
	Filter     catalogFilter
}

func parseCatalogFilter(c echo.Context) catalogFilter {
	f := catalogFilter{Search: strings.TrimSpace(c.QueryParam("search"))}
	if id, err := strconv.ParseInt(c.QueryParam("category"), 10, 64); err == nil && id > 0 {
		f.CategoryID = id
	}
	return f
}

func (h *handlers) studentDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "student_dashboard")
	sess := auth.Current(c)

	page := studentDashboardPage{Filter: parseCatalogFilter(c)}
	var loadErr string

	summary, err := h.dashboard.Load(ctx, sess.AccessToken, dashboard.ScopeOwn)
	if isAuthError(err) {
		return h.sessionLost(c)
	}
	if err != nil {
		l.Error("dashboard_load_failed", "error", err)
		loadErr = "Could not load your dashboard. " + apiclient.UserMessage(err)
	}
	page.Summary = summary

	items, err := h.api.ListEquipment(ctx, sess.AccessToken, apiclient.EquipmentFilter{
		AvailableOnly: true,
		Search:        page.Filter.Search,
		CategoryID:    page.Filter.CategoryID,
	})
	if isAuthError(err) {
		return h.sessionLost(c)
	}
	if err != nil {
		l.Error("catalog_load_failed", "error", err)
		loadErr = "Could not load equipment. " + apiclient.UserMessage(err)
	}
	page.Items = items

	cats, err := h.api.ListCategories(ctx, sess.AccessToken)
	if err != nil {
		l.Warn("categories_load_failed", "error", err)
	}
	page.Categories = cats

	return h.render(c, http.StatusOK, "student_dashboard", View{Title: "Dashboard", Error: loadErr, Data: page})
}

type borrowPage struct {
	Item   models.EquipmentItem
	Input  borrow.Input
	Errors borrow.Errors
	Today  string
	MaxDay string
}

func (h *handlers) borrowView(item models.EquipmentItem, form *borrow.Form) borrowPage {
	today := time.Now().In(h.loc)
	return borrowPage{
		Item:   item,
		Input:  form.Input,
		Errors: form.Errors,
		Today:  today.Format("2006-01-02"),
		MaxDay: today.AddDate(0, 0, borrow.DefaultRules.LookaheadDays).Format("2006-01-02"),
	}
}

func (h *handlers) loadItem(c echo.Context) (*models.EquipmentItem, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return nil, echo.NewHTTPError(http.StatusNotFound, "equipment not found")
	}
	item, err := h.api.GetEquipment(c.Request().Context(), auth.Current(c).AccessToken, id)
	if errors.Is(err, apiclient.ErrNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "equipment not found")
	}
	return item, err
}

func (h *handlers) borrowPage(c echo.Context) error {
	item, err := h.loadItem(c)
	if isAuthError(err) {
		return h.sessionLost(c)
	}
	if err != nil {
		return apiReadError(c, err)
	}
	form := borrow.NewForm(*item)
	return h.render(c, http.StatusOK, "borrow", View{Title: "Borrow " + item.Name, Data: h.borrowView(*item, form)})
}

func (h *handlers) borrowSubmit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "borrow_submit")
	sess := auth.Current(c)

	item, err := h.loadItem(c)
	if isAuthError(err) {
		return h.sessionLost(c)
	}
	if err != nil {
		return apiReadError(c, err)
	}

	release, err := h.submitGuard.Acquire(sess.UserID)
	if err != nil {
		setFlash(c, "Your previous request is still being submitted.", true)
		return c.Redirect(http.StatusSeeOther, "/student/requests")
	}
	defer release()

	form := borrow.NewForm(*item)
	for _, f := range []string{borrow.FieldQuantity, borrow.FieldPurpose, borrow.FieldBorrowFrom, borrow.FieldBorrowUntil, borrow.FieldNotes} {
		form.Edit(f, c.FormValue(f))
	}

	created, err := form.Submit(ctx, h.validator, h.api, sess.AccessToken)
	switch {
	case err == nil:
	case errors.Is(err, borrow.ErrValidation):
		return h.render(c, http.StatusUnprocessableEntity, "borrow", View{
			Title: "Borrow " + item.Name,
			Data:  h.borrowView(*item, form),
		})
	case isAuthError(err):
		return h.sessionLost(c)
	default:
		l.Warn("borrow_submit_failed", "status", 502, "equipment_id", item.ID, "error", err)
		return h.render(c, http.StatusBadGateway, "borrow", View{
			Title: "Borrow " + item.Name,
			Error: form.Message,
			Data:  h.borrowView(*item, form),
		})
	}

	if err := h.events.Publish(ctx, events.Event{
		Type:        events.TypeRequestCreated,
		RequestID:   created.ID,
		EquipmentID: item.ID,
		Status:      created.Status,
		ActorID:     sess.UserID,
		ActorRole:   sess.Role,
	}); err != nil {
		l.Warn("event_publish_failed", "error", err)
	}
	l.Info("borrow_submitted", "request_id", created.ID, "equipment_id", item.ID)
	setFlash(c, "Request submitted. Staff will review it shortly.", false)
	return c.Redirect(http.StatusSeeOther, "/student/requests")
}

type requestsPage struct {
	Requests []models.BorrowRequest
	Counts   map[models.Status]int
	Total    int
	Status   models.Status
	Statuses []models.Status
}

func statusParam(c echo.Context) models.Status {
	s := models.Status(c.QueryParam("status"))
	if s.Valid() {
		return s
	}
	return ""
}

func newRequestsPage(all []models.BorrowRequest, status models.Status) requestsPage {
	return requestsPage{
		Requests: lifecycle.Filter(all, status),
		Counts:   lifecycle.StatusCounts(all),
		Total:    len(all),
		Status:   status,
		Statuses: models.Statuses,
	}
}

func (h *handlers) studentRequests(c echo.Context) error {
	ctx := c.Request().Context()
	sess := auth.Current(c)

	var loadErr string
	reqs, err := h.api.MyRequests(ctx, sess.AccessToken)
	if isAuthError(err) {
		return h.sessionLost(c)
	}
	if err != nil {
		logging.FromContext(ctx).Error("requests_load_failed", "handler", "student_requests", "error", err)
		loadErr = "Could not load your requests. " + apiclient.UserMessage(err)
	}
	return h.render(c, http.StatusOK, "student_requests", View{
		Title: "My requests",
		Error: loadErr,
		Data:  newRequestsPage(reqs, statusParam(c)),
	})
}

func apiReadError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	logging.FromContext(c.Request().Context()).Error("api_read_failed", "error", err)
	return echo.NewHTTPError(http.StatusBadGateway, apiclient.UserMessage(err))
}
