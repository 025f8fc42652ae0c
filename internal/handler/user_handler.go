package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/timesheet-api/internal/domain"
	"github.com/timesheet-api/internal/dto"
	"github.com/timesheet-api/internal/middleware"
	"github.com/timesheet-api/internal/service"
)

// UserHandler - управление учётными записями для Admin и Accounting
type UserHandler struct {
	base
	userService service.UserService
}

func NewUserHandler(userService service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		base:        newBase(logger),
		userService: userService,
	}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	m, err := h.userService.Management(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.ManagementResponse{
		Users:             toUserResponses(m.Users),
		InactiveUsers:     toUserResponses(m.InactiveUsers),
		Employees:         toEmployeeResponses(m.Employees),
		InactiveEmployees: toEmployeeResponses(m.InactiveEmployees),
		IsAdmin:           m.IsAdmin,
	})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.userService.Create(r.Context(), middleware.UserFromContext(r.Context()), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toUserResponse(user, false))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "user")
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.userService.Update(r.Context(), middleware.UserFromContext(r.Context()), id, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toUserResponse(user, false))
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "user")
	if !ok {
		return
	}

	var req dto.ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.userService.ResetPassword(r.Context(), middleware.UserFromContext(r.Context()), id, &req); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, dto.MessageResponse{Message: "Password updated"})
}

func (h *UserHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.userService.Reactivate)
}

func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.userService.Deactivate)
}

func (h *UserHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "user")
	if !ok {
		return
	}

	if err := h.userService.Unlock(r.Context(), middleware.UserFromContext(r.Context()), id); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, dto.MessageResponse{Message: "Account unlocked"})
}

type activationFunc func(ctx context.Context, actor *domain.User, id int64) (*domain.User, error)

func (h *UserHandler) setActive(w http.ResponseWriter, r *http.Request, fn activationFunc) {
	id, ok := h.pathID(w, r, "user")
	if !ok {
		return
	}

	user, err := fn(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toUserResponse(user, false))
}
