package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/events"
	"github.com/equiplend/frontend/internal/middleware/auth"
	"github.com/equiplend/frontend/internal/models"
	"github.com/equiplend/frontend/internal/session"
)

const testCSRF = "csrf-test-token-0123456789abcdef"

// fakeBackend is a small in-memory lending API.
type fakeBackend struct {
	mu          sync.Mutex
	requests    []models.BorrowRequest
	created     []apiclient.CreateBorrowRequest
	transitions []string
	registered  int
}

var testUsers = map[string]models.Profile{
	"jane": {ID: 7, Username: "jane", FirstName: "Jane", Role: models.RoleStudent},
	"root": {ID: 1, Username: "root", FirstName: "Ada", Role: models.RoleAdmin},
	"gone": {ID: 9, Username: "gone", Role: models.RoleStudent},
}

var tripod = models.EquipmentItem{
	ID: 7, Name: "Tripod", Category: models.Category{ID: 3, Name: "Video"},
	Condition: models.ConditionGood, TotalQuantity: 4, AvailableQuantity: 3, IsActive: true,
}

func newFakeBackend() *fakeBackend {
	now := time.Now().UTC()
	mk := func(id int64, st models.Status) models.BorrowRequest {
		return models.BorrowRequest{
			ID:          id,
			Equipment:   models.EquipmentRef{ID: 7, Name: "Tripod"},
			Requester:   models.UserRef{ID: 7, Username: "jane"},
			Quantity:    1,
			Purpose:     "Film the science fair",
			Status:      st,
			BorrowFrom:  now.AddDate(0, 0, 1),
			BorrowUntil: now.AddDate(0, 0, 3),
			CreatedAt:   now.Add(-time.Duration(id) * time.Minute),
		}
	}
	return &fakeBackend{requests: []models.BorrowRequest{
		mk(42, models.StatusPending),
		mk(43, models.StatusPending),
		mk(44, models.StatusIssued),
	}}
}

func (b *fakeBackend) user(r *http.Request) (models.Profile, bool) {
	name := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer acc-")
	p, ok := testUsers[name]
	return p, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token/", func(w http.ResponseWriter, r *http.Request) {
		var c apiclient.Credentials
		_ = json.NewDecoder(r.Body).Decode(&c)
		if _, ok := testUsers[c.Username]; !ok || c.Password != "secret-pw" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": "acc-" + c.Username, "refresh": "ref-" + c.Username})
	})
	mux.HandleFunc("POST /api/users/register/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.registered++
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /api/users/me/", func(w http.ResponseWriter, r *http.Request) {
		p, ok := b.user(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid"})
			return
		}
		writeJSON(w, http.StatusOK, p)
	})
	mux.HandleFunc("GET /api/equipment/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": 1, "results": []models.EquipmentItem{tripod}})
	})
	mux.HandleFunc("GET /api/equipment/{id}/", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "7" {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
			return
		}
		writeJSON(w, http.StatusOK, tripod)
	})
	mux.HandleFunc("GET /api/categories/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Category{{ID: 3, Name: "Video"}})
	})
	mux.HandleFunc("GET /api/requests/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.requests)
	})
	mux.HandleFunc("GET /api/requests/my_requests/", func(w http.ResponseWriter, r *http.Request) {
		p, ok := b.user(r)
		if !ok || p.Username == "gone" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid"})
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		var mine []models.BorrowRequest
		for _, req := range b.requests {
			if req.Requester.ID == p.ID {
				mine = append(mine, req)
			}
		}
		writeJSON(w, http.StatusOK, mine)
	})
	mux.HandleFunc("POST /api/requests/", func(w http.ResponseWriter, r *http.Request) {
		var in apiclient.CreateBorrowRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.created = append(b.created, in)
		writeJSON(w, http.StatusCreated, models.BorrowRequest{ID: 50, Status: models.StatusPending, Quantity: in.Quantity})
	})
	mux.HandleFunc("POST /api/requests/{id}/{action}/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.transitions = append(b.transitions, r.URL.Path)
		next := map[string]models.Status{
			"approve": models.StatusApproved,
			"reject":  models.StatusRejected,
			"issue":   models.StatusIssued,
			"return":  models.StatusReturned,
		}[r.PathValue("action")]
		for i := range b.requests {
			if fmt.Sprint(b.requests[i].ID) == r.PathValue("id") {
				b.requests[i].Status = next
				writeJSON(w, http.StatusOK, b.requests[i])
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	})
	return mux
}

type captureEvents struct {
	mu  sync.Mutex
	got []events.Event
}

func (c *captureEvents) Publish(_ context.Context, ev events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, ev)
	return nil
}

func (c *captureEvents) Close() error { return nil }

func (c *captureEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.got))
	for _, ev := range c.got {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	e       *echo.Echo
	backend *fakeBackend
	events  *captureEvents
	store   *session.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	api := apiclient.NewClient(srv.URL, 2*time.Second)
	store := session.NewMemoryStore(time.Hour)
	ev := &captureEvents{}

	e := echo.New()
	e.HideBanner = true
	require.NoError(t, Register(e, &Deps{
		API:        api,
		Sessions:   session.NewManager(api, store),
		Events:     ev,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Location:   time.UTC,
		SessionTTL: time.Hour,
	}))
	return &testEnv{e: e, backend: backend, events: ev, store: store}
}

// browser carries cookies between requests the way a user agent would.
type browser struct {
	t       *testing.T
	env     *testEnv
	cookies map[string]string
}

func (env *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, env: env, cookies: map[string]string{"equiplend_csrf": testCSRF}}
}

func (b *browser) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		if form.Get("csrf_token") == "" {
			form.Set("csrf_token", testCSRF)
		}
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		req.Header.Set("Origin", "http://example.com")
	}
	for name, v := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: v})
	}
	rec := httptest.NewRecorder()
	b.env.e.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(b.cookies, ck.Name)
			continue
		}
		b.cookies[ck.Name] = ck.Value
	}
	return rec
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, target, nil)
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, target, form)
}

func (b *browser) login(username string) {
	b.t.Helper()
	rec := b.post("/login", url.Values{"username": {username}, "password": {"secret-pw"}})
	require.Equal(b.t, http.StatusSeeOther, rec.Code, rec.Body.String())
}

func TestLogin_StudentLandsOnDashboard(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rec := b.get("/login")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), testCSRF)

	rec = b.post("/login", url.Values{"username": {"jane"}, "password": {"secret-pw"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/student/dashboard", rec.Header().Get(echo.HeaderLocation))
	require.NotEmpty(t, b.cookies[auth.CookieName])

	rec = b.get("/student/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Welcome, Jane")
	assert.Contains(t, body, "Tripod")
	assert.Contains(t, body, `/student/equipment/7/borrow`)

	rec = b.get("/")
	assert.Equal(t, "/student/dashboard", rec.Header().Get(echo.HeaderLocation))
}

func TestLogin_AdminLandsOnAdminDashboard(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rec := b.post("/login", url.Values{"username": {"root"}, "password": {"secret-pw"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/dashboard", rec.Header().Get(echo.HeaderLocation))

	rec = b.get("/admin/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pending review")
}

func TestLogin_BadPassword(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rec := b.post("/login", url.Values{"username": {"jane"}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password.")
	assert.Empty(t, b.cookies[auth.CookieName])
}

func TestLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rec := b.post("/login", url.Values{"username": {"jane"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")
}

func TestCSRF_RejectsForgedPost(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rec := b.post("/login", url.Values{"username": {"jane"}, "password": {"secret-pw"}, "csrf_token": {"forged"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	form := url.Values{
		"username":         {"jane"},
		"email":            {"jane@example.edu"},
		"password":         {"secret-pw"},
		"password_confirm": {"different"},
		"role":             {"student"},
	}
	rec := b.post("/signup", form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "passwords do not match")
	assert.Equal(t, 0, env.backend.registered)

	form.Set("password_confirm", "secret-pw")
	rec = b.post("/signup", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/student/dashboard", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, 1, env.backend.registered)
	assert.NotEmpty(t, b.cookies[auth.CookieName])
}

func TestRequireSession_RedirectsToLogin(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	for _, path := range []string{"/student/dashboard", "/student/requests", "/admin/requests"} {
		rec := b.get(path)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation), path)
	}
}

func TestRequireRole_StudentForbiddenFromAdmin(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("jane")

	rec := b.get("/admin/requests")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "staff and administrators")

	rec = b.post("/admin/requests/42/approve", url.Values{"status": {"pending"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, env.backend.transitions)
}

func TestLogout_EndsSession(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("jane")
	sid := b.cookies[auth.CookieName]

	rec := b.post("/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, b.cookies[auth.CookieName])

	_, err := env.store.Load(context.Background(), sid)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	rec = b.get("/student/dashboard")
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestLogout_Everywhere(t *testing.T) {
	env := newTestEnv(t)
	laptop := env.browser(t)
	laptop.login("jane")
	phone := env.browser(t)
	phone.login("jane")
	phoneSID := phone.cookies[auth.CookieName]
	require.NotEqual(t, laptop.cookies[auth.CookieName], phoneSID)

	rec := laptop.post("/logout", url.Values{"everywhere": {"1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	_, err := env.store.Load(context.Background(), phoneSID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	rec = phone.get("/student/dashboard")
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestSessionRejectedByAPI_DropsSession(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("gone")
	sid := b.cookies[auth.CookieName]

	rec := b.get("/student/requests")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	assert.Empty(t, b.cookies[auth.CookieName])

	_, err := env.store.Load(context.Background(), sid)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestBorrow_ValidationKeepsInput(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("jane")

	rec := b.get("/student/equipment/7/borrow")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Borrow Tripod")

	rec = b.post("/student/equipment/7/borrow", url.Values{
		"quantity":     {"9"},
		"purpose":      {"short"},
		"borrow_from":  {""},
		"borrow_until": {""},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "field-error")
	assert.Contains(t, body, `value="9"`)
	assert.Contains(t, body, ">short</textarea>")
	assert.Empty(t, env.backend.created)
}

func TestBorrow_SubmitCreatesRequest(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("jane")

	today := time.Now().UTC()
	rec := b.post("/student/equipment/7/borrow", url.Values{
		"quantity":     {"2"},
		"purpose":      {"Record the robotics club demo"},
		"borrow_from":  {today.AddDate(0, 0, 1).Format("2006-01-02")},
		"borrow_until": {today.AddDate(0, 0, 4).Format("2006-01-02")},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/student/requests", rec.Header().Get(echo.HeaderLocation))

	require.Len(t, env.backend.created, 1)
	got := env.backend.created[0]
	assert.EqualValues(t, 7, got.Equipment)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, []string{events.TypeRequestCreated}, env.events.types())

	rec = b.get("/student/requests")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Request submitted.")
}

func TestBorrow_UnknownItem(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("jane")

	rec := b.get("/student/equipment/99/borrow")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudentRequests_TabsAndCounts(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("jane")

	rec := b.get("/student/requests?status=issued")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "All (3)")
	assert.Contains(t, body, "Pending (2)")
	assert.Contains(t, body, `data-request-id="44"`)
	assert.NotContains(t, body, `data-request-id="42"`)
	assert.NotContains(t, body, `action="/admin/requests`)
}

// An admin approves #42 from the pending tab; after the redirect the pending
// tab no longer lists it.
func TestAdminApprove_RemovesFromPendingTab(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("root")

	rec := b.get("/admin/requests?status=pending")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-request-id="42"`)
	assert.Contains(t, body, `data-request-id="43"`)
	assert.Contains(t, body, `action="/admin/requests/42/approve"`)

	rec = b.post("/admin/requests/42/approve", url.Values{"status": {"pending"}, "tab": {"pending"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/requests?status=pending", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, []string{"/api/requests/42/approve/"}, env.backend.transitions)
	assert.Equal(t, []string{events.TypeRequestApproved}, env.events.types())

	rec = b.get("/admin/requests?status=pending")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "Request #0042 is now Approved.")
	assert.NotContains(t, body, `data-request-id="42"`)
	assert.Contains(t, body, `data-request-id="43"`)
	assert.Contains(t, body, "Approved (1)")
}

func TestAdminTransition_NotOfferedForStatus(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("root")

	rec := b.post("/admin/requests/44/approve", url.Values{"status": {"issued"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, env.backend.transitions)

	rec = b.get("/admin/requests")
	assert.Contains(t, rec.Body.String(), "Cannot approve a issued request.")
}

func TestAdminTransition_MissingStatusField(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("root")

	rec := b.post("/admin/requests/42/approve", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, env.backend.transitions)

	body := b.get("/admin/requests").Body.String()
	assert.Contains(t, body, "Cannot approve request #0042 in its current state.")
	assert.NotContains(t, body, "a  request")
}

func TestAdminEquipment_ListAndValidate(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("root")

	rec := b.get("/admin/equipment?q=tri")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tripod")

	rec = b.get("/admin/equipment?q=microscope")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No equipment matches.")

	rec = b.post("/admin/equipment", url.Values{"name": {""}, "category": {"3"}, "condition": {"good"}, "total_quantity": {"2"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please fix the highlighted fields.")
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	assert.Equal(t, http.StatusOK, b.get("/health/live").Code)
	assert.Equal(t, http.StatusOK, b.get("/health/ready").Code)
	rec := b.get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "equiplend_http_requests_total")
}
