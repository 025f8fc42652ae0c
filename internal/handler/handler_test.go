package handler_test

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timesheet-api/internal/auth"
	"github.com/timesheet-api/internal/config"
	"github.com/timesheet-api/internal/domain"
	"github.com/timesheet-api/internal/dto"
	"github.com/timesheet-api/internal/handler"
	"github.com/timesheet-api/internal/repository"
	"github.com/timesheet-api/internal/service"
	"github.com/timesheet-api/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "correct horse battery"

type testApp struct {
	server *httptest.Server
	db     *gorm.DB
	hasher auth.PasswordHasher
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	lockout := service.Lockout{FailureLimit: 3}

	authService := service.NewAuthService(store, hasher, lockout, logger)
	sessions := auth.NewSessionManager(config.SessionConfig{Secret: "0123456789abcdef0123456789abcdef", MaxAge: 3600})

	router := handler.NewRouter(handler.Handlers{
		Auth:      handler.NewAuthHandler(authService, sessions, logger),
		Timesheet: handler.NewTimesheetHandler(service.NewTimesheetService(store, logger), logger),
		Employee:  handler.NewEmployeeHandler(service.NewEmployeeService(store, logger), logger),
		User:      handler.NewUserHandler(service.NewUserService(store, hasher, lockout, logger), logger),
	}, sessions, authService, logger)

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)

	return &testApp{server: srv, db: db, hasher: hasher}
}

func (a *testApp) user(t *testing.T, username string, groups ...string) *domain.User {
	t.Helper()
	u := testutil.CreateUser(t, a.db, username, groups...)
	hash, err := a.hasher.Hash(testPassword)
	require.NoError(t, err)
	require.NoError(t, a.db.Model(u).Update("password_hash", hash).Error)
	return u
}

func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (a *testApp) login(t *testing.T, username string) *http.Client {
	t.Helper()
	c := a.client(t)
	resp := a.do(t, c, http.MethodPost, "/auth/login", dto.LoginRequest{Username: username, Password: testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	return c
}

func (a *testApp) do(t *testing.T, c *http.Client, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
		contentType = "application/json"
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func currentWeek() string {
	return domain.WeekStartFor(time.Now()).Format(time.DateOnly)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, app.client(t), http.MethodGet, "/health", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAuth_LoginMeLogout(t *testing.T) {
	app := newTestApp(t)
	app.user(t, "foreman", domain.GroupUser)
	c := app.client(t)

	resp := app.do(t, c, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = app.do(t, c, http.MethodPost, "/auth/login", dto.LoginRequest{Username: "foreman", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = app.do(t, c, http.MethodPost, "/auth/login", dto.LoginRequest{Username: "foreman", Password: testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	me := decodeBody[dto.MeResponse](t, app.do(t, c, http.MethodGet, "/auth/me", nil))
	assert.Equal(t, "foreman", me.User.Username)
	assert.True(t, me.IsCrewManager)
	assert.False(t, me.IsAdmin)

	resp = app.do(t, c, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = app.do(t, c, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_LockoutAfterFailures(t *testing.T) {
	app := newTestApp(t)
	app.user(t, "foreman", domain.GroupUser)
	c := app.client(t)

	for range 3 {
		resp := app.do(t, c, http.MethodPost, "/auth/login", dto.LoginRequest{Username: "foreman", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}

	resp := app.do(t, c, http.MethodPost, "/auth/login", dto.LoginRequest{Username: "foreman", Password: testPassword})
	body := decodeBody[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "account is locked", body.Error)
}

func TestTimesheet_Lifecycle(t *testing.T) {
	app := newTestApp(t)
	foreman := app.user(t, "foreman", domain.GroupUser)
	app.user(t, "boss", domain.GroupAdmin)
	emp := testutil.CreateEmployee(t, app.db, "Rosa Diaz", foreman)

	fc := app.login(t, "foreman")
	week := currentWeek()

	form := url.Values{
		"week_start":       {week},
		"additional_notes": {"rain on friday"},
		"rows_count":       {"2"},
		"employee_0":       {fmt.Sprint(emp.ID)},
		"hours_0_0":        {"8"},
		"hours_0_1":        {"7.5"},
		"jobsite_name_0":   {"Main St"},
	}

	resp := app.do(t, fc, http.MethodPost, "/timesheets", form)
	saved := decodeBody[dto.SaveTimesheetResponse](t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Timesheet saved (1 rows)", saved.Message)
	assert.Equal(t, "15.5", saved.Timesheet.TotalHours)
	require.Len(t, saved.Timesheet.Rows, 1)
	assert.Equal(t, "Rosa Diaz", saved.Timesheet.Rows[0].EmployeeName)
	assert.True(t, saved.Timesheet.Editable)
	id := saved.Timesheet.ID

	resp = app.do(t, fc, http.MethodPost, "/timesheets", form)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	update := url.Values{
		"rows_count":    {"3"},
		"employee_0":    {"self"},
		"hours_0_4":     {"10"},
		"employee_2":    {"Walk In"},
		"hours_2_5":     {"Vaca"},
		"jobsite_num_2": {"42"},
	}
	resp = app.do(t, fc, http.MethodPut, fmt.Sprintf("/timesheets/%d", id), update)
	updated := decodeBody[dto.SaveTimesheetResponse](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Timesheet updated (2 rows)", updated.Message)
	assert.Equal(t, week, updated.Timesheet.WeekStart)
	assert.Empty(t, updated.Timesheet.AdditionalNotes)
	assert.Equal(t, "10", updated.Timesheet.TotalHours)

	edit := decodeBody[dto.TimesheetFormResponse](t, app.do(t, fc, http.MethodGet, fmt.Sprintf("/timesheets/%d/edit", id), nil))
	assert.Equal(t, 10, edit.RowsCount)
	assert.False(t, edit.IsAdminOrAccounting)

	resp = app.do(t, fc, http.MethodGet, fmt.Sprintf("/timesheets/%d/export", id), nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "timesheet_foreman_"+week+".xlsx")

	resp = app.do(t, fc, http.MethodDelete, fmt.Sprintf("/timesheets/%d", id), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	bc := app.login(t, "boss")
	dash := decodeBody[dto.DashboardResponse](t, app.do(t, bc, http.MethodGet, "/dashboard", nil))
	require.Len(t, dash.Timesheets, 1)
	assert.True(t, dash.Timesheets[0].CanDelete)
	assert.Equal(t, "foreman", dash.Timesheets[0].Owner.Username)

	resp = app.do(t, bc, http.MethodDelete, fmt.Sprintf("/timesheets/%d", id), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = app.do(t, bc, http.MethodGet, fmt.Sprintf("/timesheets/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestTimesheet_OtherUsersCannotView(t *testing.T) {
	app := newTestApp(t)
	owner := app.user(t, "owner", domain.GroupUser)
	app.user(t, "other", domain.GroupUser)
	ts := testutil.CreateTimesheet(t, app.db, owner, domain.WeekStartFor(time.Now()))

	c := app.login(t, "other")

	resp := app.do(t, c, http.MethodGet, fmt.Sprintf("/timesheets/%d", ts.ID), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = app.do(t, c, http.MethodGet, "/timesheets/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	dash := decodeBody[dto.DashboardResponse](t, app.do(t, c, http.MethodGet, "/dashboard", nil))
	assert.Empty(t, dash.Timesheets)
}

func TestTimesheet_InvalidWeekStart(t *testing.T) {
	app := newTestApp(t)
	app.user(t, "foreman", domain.GroupUser)
	c := app.login(t, "foreman")

	resp := app.do(t, c, http.MethodPost, "/timesheets", url.Values{"week_start": {"03/04/2024"}})
	body := decodeBody[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body.Fields, "week_start")
}

func TestTimesheet_TooManyRowsRejected(t *testing.T) {
	app := newTestApp(t)
	app.user(t, "foreman", domain.GroupUser)
	c := app.login(t, "foreman")

	resp := app.do(t, c, http.MethodPost, "/timesheets", url.Values{
		"week_start": {currentWeek()},
		"rows_count": {"201"},
		"employee_0": {"self"},
		"hours_0_0":  {"8"},
	})
	body := decodeBody[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Must be at most 200.", body.Fields["rows_count"])

	dash := decodeBody[dto.DashboardResponse](t, app.do(t, c, http.MethodGet, "/dashboard", nil))
	assert.Empty(t, dash.Timesheets)
}

func TestTimesheet_UpdateIgnoresWeekStart(t *testing.T) {
	app := newTestApp(t)
	app.user(t, "foreman", domain.GroupUser)
	c := app.login(t, "foreman")
	week := currentWeek()

	resp := app.do(t, c, http.MethodPost, "/timesheets", url.Values{
		"week_start": {week},
		"rows_count": {"1"},
		"employee_0": {"self"},
		"hours_0_0":  {"8"},
	})
	saved := decodeBody[dto.SaveTimesheetResponse](t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = app.do(t, c, http.MethodPut, fmt.Sprintf("/timesheets/%d", saved.Timesheet.ID), url.Values{
		"week_start": {"garbage"},
		"rows_count": {"1"},
		"employee_0": {"self"},
		"hours_0_0":  {"6"},
	})
	updated := decodeBody[dto.SaveTimesheetResponse](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, week, updated.Timesheet.WeekStart)
	assert.Equal(t, "6", updated.Timesheet.TotalHours)
}

func TestEmployees_BlankNameRejected(t *testing.T) {
	app := newTestApp(t)
	app.user(t, "foreman", domain.GroupUser)
	c := app.login(t, "foreman")

	resp := app.do(t, c, http.MethodPost, "/employees", dto.AddEmployeeRequest{Name: "   "})
	body := decodeBody[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "This field is required.", body.Fields["name"])

	crew := decodeBody[dto.CrewResponse](t, app.do(t, c, http.MethodGet, "/crew", nil))
	assert.Empty(t, crew.Employees)
}

func TestUsers_BlankUsernameRejected(t *testing.T) {
	app := newTestApp(t)
	app.user(t, "boss", domain.GroupAdmin)
	c := app.login(t, "boss")

	resp := app.do(t, c, http.MethodPost, "/users", dto.CreateUserRequest{
		Username:        " \t ",
		Password:        "password123",
		PasswordConfirm: "password123",
	})
	body := decodeBody[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "This field is required.", body.Fields["username"])
}

func TestEmployees_AddWithConfirmation(t *testing.T) {
	app := newTestApp(t)
	app.user(t, "first", domain.GroupUser)
	app.user(t, "second", domain.GroupUser)

	first := app.login(t, "first")
	resp := app.do(t, first, http.MethodPost, "/employees", dto.AddEmployeeRequest{Name: "Rosa Diaz"})
	created := decodeBody[dto.AddEmployeeResponse](t, resp)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "created", created.Outcome)

	second := app.login(t, "second")
	resp = app.do(t, second, http.MethodPost, "/employees", dto.AddEmployeeRequest{Name: "rosa diaz"})
	conflict := decodeBody[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, conflict.ConfirmExisting)
	assert.Equal(t, created.Employee.ID, conflict.ConfirmExisting.ID)

	resp = app.do(t, second, http.MethodPost, "/employees", dto.AddEmployeeRequest{Name: "rosa diaz", ConfirmJoin: true})
	joined := decodeBody[dto.AddEmployeeResponse](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "joined", joined.Outcome)

	crew := decodeBody[dto.CrewResponse](t, app.do(t, second, http.MethodGet, "/crew", nil))
	require.Len(t, crew.Employees, 1)

	resp = app.do(t, second, http.MethodDelete, fmt.Sprintf("/employees/%d", created.Employee.ID), nil)
	msg := decodeBody[dto.MessageResponse](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Employee removed from your crew", msg.Message)

	available := decodeBody[dto.CrewResponse](t, app.do(t, second, http.MethodGet, "/employees/available", nil))
	require.Len(t, available.Employees, 1)

	resp = app.do(t, second, http.MethodPost, fmt.Sprintf("/employees/%d/join", created.Employee.ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestUsers_Management(t *testing.T) {
	app := newTestApp(t)
	app.user(t, "boss", domain.GroupAdmin)
	app.user(t, "acct", domain.GroupAccounting)
	foreman := app.user(t, "foreman", domain.GroupUser)

	fc := app.login(t, "foreman")
	resp := app.do(t, fc, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	ac := app.login(t, "acct")

	resp = app.do(t, ac, http.MethodPost, "/users", dto.CreateUserRequest{
		Username:        "newbie",
		Password:        "password123",
		PasswordConfirm: "password124",
	})
	invalid := decodeBody[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, domain.ErrPasswordMismatch.Error(), invalid.Fields["password_confirm"])

	resp = app.do(t, ac, http.MethodPost, "/users", dto.CreateUserRequest{
		Username:        "chief",
		Password:        "password123",
		PasswordConfirm: "password123",
		Groups:          []string{domain.GroupAdmin},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = app.do(t, ac, http.MethodPost, "/users", dto.CreateUserRequest{
		Username:        "newbie",
		FirstName:       "New",
		Password:        "password123",
		PasswordConfirm: "password123",
		Groups:          []string{domain.GroupUser},
	})
	created := decodeBody[dto.UserResponse](t, resp)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []string{domain.GroupUser}, created.Groups)

	resp = app.do(t, ac, http.MethodPost, "/users", dto.CreateUserRequest{
		Username:        "newbie",
		Password:        "password123",
		PasswordConfirm: "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = app.do(t, ac, http.MethodPost, fmt.Sprintf("/users/%d/deactivate", foreman.ID), nil)
	deactivated := decodeBody[dto.UserResponse](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, deactivated.IsActive)

	// сессия деактивированного пользователя больше не действует
	resp = app.do(t, fc, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	m := decodeBody[dto.ManagementResponse](t, app.do(t, ac, http.MethodGet, "/users", nil))
	assert.False(t, m.IsAdmin)
	require.Len(t, m.InactiveUsers, 1)
	assert.Equal(t, "foreman", m.InactiveUsers[0].Username)
}
