package dto

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// NewValidator возвращает валидатор запросов: поля называются по json-тегам,
// notblank отклоняет строки из одних пробелов
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// LoginRequest - запрос на вход
type LoginRequest struct {
	Username string `json:"username" validate:"required,notblank,max=150"`
	Password string `json:"password" validate:"required"`
}

// TimesheetRequest - шапка табеля; строки приходят отдельными полями формы.
// RowsCount нужен только для проверки верхней границы, строки читаются из формы.
type TimesheetRequest struct {
	WeekStart       string `json:"week_start" validate:"omitempty,datetime=2006-01-02"`
	AdditionalNotes string `json:"additional_notes" validate:"max=5000"`
	RowsCount       int    `json:"rows_count" validate:"max=200"`
}

// AddEmployeeRequest - запрос на добавление сотрудника в бригаду
type AddEmployeeRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=200"`
	ConfirmJoin bool   `json:"confirm_join"`
}

// CreateUserRequest - запрос на создание учётной записи
type CreateUserRequest struct {
	Username        string   `json:"username" validate:"required,notblank,max=150"`
	FirstName       string   `json:"first_name" validate:"max=150"`
	LastName        string   `json:"last_name" validate:"max=150"`
	Email           string   `json:"email" validate:"omitempty,email,max=254"`
	Password        string   `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Groups          []string `json:"groups" validate:"dive,oneof=Admin Accounting User"`
}

// UpdateUserRequest - частичное обновление учётной записи; nil-поля не меняются
type UpdateUserRequest struct {
	FirstName *string   `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string   `json:"last_name" validate:"omitempty,max=150"`
	Email     *string   `json:"email" validate:"omitempty,email,max=254"`
	Groups    *[]string `json:"groups" validate:"omitempty,dive,oneof=Admin Accounting User"`
}

// ResetPasswordRequest - смена пароля администратором
type ResetPasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// UserRef - краткие сведения о пользователе
type UserRef struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// UserResponse - ответ с данными учётной записи
type UserResponse struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IsActive    bool      `json:"is_active"`
	IsLocked    bool      `json:"is_locked"`
	Groups      []string  `json:"groups"`
	CreatedAt   time.Time `json:"created_at"`
}

// MeResponse - текущий пользователь и его возможности
type MeResponse struct {
	User                UserResponse `json:"user"`
	IsAdmin             bool         `json:"is_admin"`
	IsAdminOrAccounting bool         `json:"is_admin_or_accounting"`
	IsCrewManager       bool         `json:"is_crew_manager"`
}

// EmployeeResponse - ответ с данными сотрудника
type EmployeeResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// EmployeeRef - сотрудник, с которым совпало имя
type EmployeeRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CrewResponse - бригада руководителя
type CrewResponse struct {
	Employees []EmployeeResponse `json:"employees"`
}

// AddEmployeeResponse - результат добавления сотрудника
type AddEmployeeResponse struct {
	Outcome  string            `json:"outcome"`
	Message  string            `json:"message"`
	Employee *EmployeeResponse `json:"employee,omitempty"`
}

// RowResponse - строка табеля
type RowResponse struct {
	ID           int64  `json:"id,omitempty"`
	EmployeeID   *int64 `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Mon          string `json:"mon"`
	Tues         string `json:"tues"`
	Wed          string `json:"wed"`
	Thur         string `json:"thur"`
	Fri          string `json:"fri"`
	Sat          string `json:"sat"`
	Sun          string `json:"sun"`
	JobsiteName  string `json:"jobsite_name"`
	JobsiteNum   string `json:"jobsite_num"`
	TotalHours   string `json:"total_hours"`
}

// TimesheetSummary - строка списка на главной странице
type TimesheetSummary struct {
	ID        int64     `json:"id"`
	Owner     UserRef   `json:"owner"`
	WeekStart string    `json:"week_start"`
	CreatedAt time.Time `json:"created_at"`
	Editable  bool      `json:"editable"`
	CanEdit   bool      `json:"can_edit"`
	CanDelete bool      `json:"can_delete"`
}

// DashboardResponse - главная страница
type DashboardResponse struct {
	Timesheets          []TimesheetSummary `json:"timesheets"`
	IsAdmin             bool               `json:"is_admin"`
	IsAdminOrAccounting bool               `json:"is_admin_or_accounting"`
	IsCrewManager       bool               `json:"is_crew_manager"`
}

// TimesheetResponse - табель со строками
type TimesheetResponse struct {
	ID              int64         `json:"id"`
	Owner           UserRef       `json:"owner"`
	WeekStart       string        `json:"week_start"`
	AdditionalNotes string        `json:"additional_notes"`
	CreatedAt       time.Time     `json:"created_at"`
	Editable        bool          `json:"editable"`
	CanEdit         bool          `json:"can_edit"`
	CanDelete       bool          `json:"can_delete"`
	TotalHours      string        `json:"total_hours"`
	Rows            []RowResponse `json:"rows"`
}

// TimesheetFormResponse - данные для формы создания или правки
type TimesheetFormResponse struct {
	TimesheetID         *int64             `json:"timesheet_id,omitempty"`
	WeekStart           string             `json:"week_start"`
	AdditionalNotes     string             `json:"additional_notes"`
	RowsCount           int                `json:"rows_count"`
	Rows                []RowResponse      `json:"rows"`
	Employees           []EmployeeResponse `json:"employees"`
	UserGroupMembers    []UserRef          `json:"user_group_members"`
	IsAdminOrAccounting bool               `json:"is_admin_or_accounting"`
}

// SaveTimesheetResponse - результат сохранения табеля
type SaveTimesheetResponse struct {
	Message   string            `json:"message"`
	RowsSaved int               `json:"rows_saved"`
	Timesheet TimesheetResponse `json:"timesheet"`
}

// ManagementResponse - страница управления пользователями
type ManagementResponse struct {
	Users             []UserResponse     `json:"users"`
	InactiveUsers     []UserResponse     `json:"inactive_users"`
	Employees         []EmployeeResponse `json:"employees"`
	InactiveEmployees []EmployeeResponse `json:"inactive_employees"`
	IsAdmin           bool               `json:"is_admin"`
}

// MessageResponse - ответ с сообщением для пользователя
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse - стандартный ответ с ошибкой
type ErrorResponse struct {
	Error           string            `json:"error"`
	Message         string            `json:"message,omitempty"`
	Fields          map[string]string `json:"fields,omitempty"`
	ConfirmExisting *EmployeeRef      `json:"confirm_existing,omitempty"`
}
