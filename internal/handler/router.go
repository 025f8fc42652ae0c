package handler

import (
	"log/slog"
	"net/http"

	"github.com/timesheet-api/internal/middleware"
)

// Router настраивает маршруты API
type Router struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	protect   func(http.Handler) http.Handler
	auth      *AuthHandler
	timesheet *TimesheetHandler
	employee  *EmployeeHandler
	user      *UserHandler
}

// Handlers - набор хендлеров для роутера
type Handlers struct {
	Auth      *AuthHandler
	Timesheet *TimesheetHandler
	Employee  *EmployeeHandler
	User      *UserHandler
}

// NewRouter создаёт новый роутер
func NewRouter(h Handlers, sessions middleware.SessionReader, users middleware.UserLoader, logger *slog.Logger) *Router {
	return &Router{
		mux:       http.NewServeMux(),
		logger:    logger,
		protect:   middleware.RequireAuth(sessions, users, logger),
		auth:      h.Auth,
		timesheet: h.Timesheet,
		employee:  h.Employee,
		user:      h.User,
	}
}

// Setup настраивает все маршруты
func (r *Router) Setup() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.mux.HandleFunc("POST /auth/login", r.auth.Login)
	r.mux.HandleFunc("POST /auth/logout", r.auth.Logout)
	r.handle("GET /auth/me", r.auth.Me)

	r.handle("GET /dashboard", r.timesheet.Dashboard)
	r.handle("GET /timesheets/new", r.timesheet.NewForm)
	r.handle("POST /timesheets", r.timesheet.Create)
	r.handle("GET /timesheets/{id}", r.timesheet.Get)
	r.handle("GET /timesheets/{id}/edit", r.timesheet.EditForm)
	r.handle("PUT /timesheets/{id}", r.timesheet.Update)
	r.handle("DELETE /timesheets/{id}", r.timesheet.Delete)
	r.handle("GET /timesheets/{id}/export", r.timesheet.Export)

	r.handle("GET /crew", r.employee.Crew)
	r.handle("GET /employees/available", r.employee.Available)
	r.handle("POST /employees", r.employee.Add)
	r.handle("POST /employees/{id}/join", r.employee.Join)
	r.handle("DELETE /employees/{id}", r.employee.Remove)
	r.handle("POST /employees/{id}/reactivate", r.employee.Reactivate)

	r.handle("GET /users", r.user.List)
	r.handle("POST /users", r.user.Create)
	r.handle("PATCH /users/{id}", r.user.Update)
	r.handle("POST /users/{id}/password", r.user.ResetPassword)
	r.handle("POST /users/{id}/reactivate", r.user.Reactivate)
	r.handle("POST /users/{id}/deactivate", r.user.Deactivate)
	r.handle("POST /users/{id}/unlock", r.user.Unlock)

	// RequestID снаружи Logger, чтобы идентификатор попал в лог запроса
	handler := middleware.ContentType(r.mux)
	handler = middleware.Logger(r.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recoverer(r.logger)(handler)

	return handler
}

// handle регистрирует маршрут, доступный только после входа
func (r *Router) handle(pattern string, fn http.HandlerFunc) {
	r.mux.Handle(pattern, r.protect(fn))
}
