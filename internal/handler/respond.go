package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/timesheet-api/internal/domain"
	"github.com/timesheet-api/internal/dto"
)

const maxBodyBytes = 1 << 20

// base - общие для всех хендлеров валидация и ответы
type base struct {
	validator *validator.Validate
	logger    *slog.Logger
}

func newBase(logger *slog.Logger) base {
	return base{validator: dto.NewValidator(), logger: logger}
}

func (b *base) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		b.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return b.validate(w, dst)
}

func (b *base) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		b.respondError(w, http.StatusBadRequest, "invalid form", err.Error())
		return false
	}
	return true
}

func (b *base) validate(w http.ResponseWriter, req any) bool {
	err := b.validator.Struct(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		b.respondError(w, http.StatusBadRequest, "validation error", err.Error())
		return false
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = fieldMessage(fe)
	}
	b.respondJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "validation error", Fields: fields})
	return false
}

// fieldName убирает имя структуры из пространства имён: groups[1], а не CreateUserRequest.groups[1]
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "This field is required."
	case "eqfield":
		return domain.ErrPasswordMismatch.Error()
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	case "max":
		if fe.Kind() == reflect.Int {
			return fmt.Sprintf("Must be at most %s.", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "datetime":
		return "Enter a date as YYYY-MM-DD."
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	default:
		return fmt.Sprintf("Failed the %q check.", fe.Tag())
	}
}

func (b *base) pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		b.respondError(w, http.StatusBadRequest, "invalid "+what+" id", "")
		return 0, false
	}
	return id, true
}

func (b *base) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		b.respondError(w, http.StatusNotFound, "user not found", "")
	case errors.Is(err, domain.ErrEmployeeNotFound):
		b.respondError(w, http.StatusNotFound, "employee not found", "")
	case errors.Is(err, domain.ErrTimesheetNotFound):
		b.respondError(w, http.StatusNotFound, "timesheet not found", "")
	case errors.Is(err, domain.ErrForbidden):
		b.respondError(w, http.StatusForbidden, "permission denied", "")
	case errors.Is(err, domain.ErrNotEditable):
		b.respondError(w, http.StatusForbidden, "timesheet is no longer editable", "the editing window for this week has closed")
	case errors.Is(err, domain.ErrAccountLocked):
		b.respondError(w, http.StatusForbidden, "account is locked", "too many failed login attempts, contact an administrator")
	case errors.Is(err, domain.ErrGroupNotAssignable):
		b.respondError(w, http.StatusForbidden, "group cannot be assigned by this user", "")
	case errors.Is(err, domain.ErrCannotDeactivateSelf):
		b.respondError(w, http.StatusForbidden, "cannot deactivate your own account", "")
	case errors.Is(err, domain.ErrInvalidCredentials):
		b.respondError(w, http.StatusUnauthorized, "invalid credentials", "please enter a correct username and password")
	case errors.Is(err, domain.ErrDuplicateEmployeeName):
		b.respondError(w, http.StatusConflict, "employee with this name already exists", "")
	case errors.Is(err, domain.ErrTimesheetExists):
		b.respondError(w, http.StatusConflict, "timesheet for this week already exists", "")
	case errors.Is(err, domain.ErrUsernameTaken):
		b.respondJSON(w, http.StatusConflict, dto.ErrorResponse{
			Error:  "username is already taken",
			Fields: map[string]string{"username": "A user with that username already exists."},
		})
	case errors.Is(err, domain.ErrPasswordMismatch):
		b.respondError(w, http.StatusBadRequest, "validation error", err.Error())
	case errors.Is(err, domain.ErrGroupNotFound):
		b.respondError(w, http.StatusBadRequest, "unknown group", "")
	default:
		b.logger.Error("internal error", slog.Any("error", err))
		b.respondError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

func (b *base) respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		b.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (b *base) respondError(w http.ResponseWriter, status int, errMsg, details string) {
	b.respondJSON(w, status, dto.ErrorResponse{Error: errMsg, Message: details})
}
