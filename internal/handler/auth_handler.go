package handler

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/timesheet-api/internal/domain"
	"github.com/timesheet-api/internal/dto"
	"github.com/timesheet-api/internal/middleware"
	"github.com/timesheet-api/internal/service"
)

// SessionStore записывает и сбрасывает сессию пользователя
type SessionStore interface {
	Login(w http.ResponseWriter, r *http.Request, userID int64) error
	Logout(w http.ResponseWriter, r *http.Request) error
}

type AuthHandler struct {
	base
	authService service.AuthService
	sessions    SessionStore
}

func NewAuthHandler(authService service.AuthService, sessions SessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		base:        newBase(logger),
		authService: authService,
		sessions:    sessions,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.authService.Login(r.Context(), &req, clientIP(r))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if err := h.sessions.Login(w, r, user.ID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toMeResponse(user))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, dto.MessageResponse{Message: "Logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, toMeResponse(middleware.UserFromContext(r.Context())))
}

func toMeResponse(u *domain.User) dto.MeResponse {
	return dto.MeResponse{
		User:                toUserResponse(u, false),
		IsAdmin:             domain.IsAdmin(u),
		IsAdminOrAccounting: domain.IsAdminOrAccounting(u),
		IsCrewManager:       domain.IsCrewManager(u),
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
