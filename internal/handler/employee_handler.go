package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/timesheet-api/internal/domain"
	"github.com/timesheet-api/internal/dto"
	"github.com/timesheet-api/internal/middleware"
	"github.com/timesheet-api/internal/service"
)

type EmployeeHandler struct {
	base
	employeeService service.EmployeeService
}

func NewEmployeeHandler(employeeService service.EmployeeService, logger *slog.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		base:            newBase(logger),
		employeeService: employeeService,
	}
}

func (h *EmployeeHandler) Crew(w http.ResponseWriter, r *http.Request) {
	crew, err := h.employeeService.Crew(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, dto.CrewResponse{Employees: toEmployeeResponses(crew)})
}

func (h *EmployeeHandler) Available(w http.ResponseWriter, r *http.Request) {
	available, err := h.employeeService.Available(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, dto.CrewResponse{Employees: toEmployeeResponses(available)})
}

// Add создаёт сотрудника; при совпадении имени без confirm_join отвечает 409 с найденной записью
func (h *EmployeeHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req dto.AddEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.employeeService.Add(r.Context(), middleware.UserFromContext(r.Context()), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if res.Outcome == service.AddConfirmationRequired {
		h.respondJSON(w, http.StatusConflict, dto.ErrorResponse{
			Error:           "confirmation required",
			Message:         fmt.Sprintf("An employee named %q already exists. Add them to your crew?", res.Employee.Name),
			ConfirmExisting: &dto.EmployeeRef{ID: res.Employee.ID, Name: res.Employee.Name},
		})
		return
	}

	status := http.StatusOK
	if res.Outcome == service.AddCreated {
		status = http.StatusCreated
	}
	h.respondJSON(w, status, toAddResponse(res))
}

func (h *EmployeeHandler) Join(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "employee")
	if !ok {
		return
	}

	res, err := h.employeeService.Join(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toAddResponse(res))
}

func (h *EmployeeHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "employee")
	if !ok {
		return
	}

	removal, err := h.employeeService.Remove(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	msg := "Employee removed from your crew"
	if removal == domain.RemovalSoftDelete {
		msg = "Employee deactivated"
	}
	h.respondJSON(w, http.StatusOK, dto.MessageResponse{Message: msg})
}

func (h *EmployeeHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "employee")
	if !ok {
		return
	}

	emp, err := h.employeeService.Reactivate(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

func toAddResponse(res *service.AddResult) dto.AddEmployeeResponse {
	emp := toEmployeeResponse(res.Employee)
	resp := dto.AddEmployeeResponse{Outcome: string(res.Outcome), Employee: &emp}
	switch res.Outcome {
	case service.AddCreated:
		resp.Message = fmt.Sprintf("%s added to your crew", res.Employee.Name)
	case service.AddJoined:
		resp.Message = fmt.Sprintf("%s joined your crew", res.Employee.Name)
	case service.AddAlreadyMember:
		resp.Message = fmt.Sprintf("%s is already in your crew", res.Employee.Name)
	}
	return resp
}
