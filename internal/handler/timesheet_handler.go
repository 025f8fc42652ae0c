package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/timesheet-api/internal/dto"
	"github.com/timesheet-api/internal/middleware"
	"github.com/timesheet-api/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TimesheetHandler обслуживает табели; строки приходят как поля формы
type TimesheetHandler struct {
	base
	timesheetService service.TimesheetService
}

func NewTimesheetHandler(timesheetService service.TimesheetService, logger *slog.Logger) *TimesheetHandler {
	return &TimesheetHandler{
		base:             newBase(logger),
		timesheetService: timesheetService,
	}
}

func (h *TimesheetHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.timesheetService.Dashboard(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := dto.DashboardResponse{
		Timesheets:          make([]dto.TimesheetSummary, 0, len(d.Timesheets)),
		IsAdmin:             d.IsAdmin,
		IsAdminOrAccounting: d.IsAdminOrAccounting,
		IsCrewManager:       d.IsCrewManager,
	}
	for i := range d.Timesheets {
		resp.Timesheets = append(resp.Timesheets, toTimesheetSummary(&d.Timesheets[i]))
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *TimesheetHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.timesheetService.NewForm(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toFormResponse(form))
}

func (h *TimesheetHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readForm(w, r, true)
	if !ok {
		return
	}

	view, saved, err := h.timesheetService.Create(r.Context(), middleware.UserFromContext(r.Context()), req, r.PostForm)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, dto.SaveTimesheetResponse{
		Message:   fmt.Sprintf("Timesheet saved (%d rows)", saved),
		RowsSaved: saved,
		Timesheet: toTimesheetResponse(view),
	})
}

func (h *TimesheetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "timesheet")
	if !ok {
		return
	}

	view, err := h.timesheetService.Get(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toTimesheetResponse(view))
}

func (h *TimesheetHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "timesheet")
	if !ok {
		return
	}

	form, err := h.timesheetService.EditForm(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toFormResponse(form))
}

func (h *TimesheetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "timesheet")
	if !ok {
		return
	}
	// неделя табеля не меняется, поэтому week_start из формы правки не читается
	req, ok := h.readForm(w, r, false)
	if !ok {
		return
	}

	view, saved, err := h.timesheetService.Update(r.Context(), middleware.UserFromContext(r.Context()), id, req, r.PostForm)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.SaveTimesheetResponse{
		Message:   fmt.Sprintf("Timesheet updated (%d rows)", saved),
		RowsSaved: saved,
		Timesheet: toTimesheetResponse(view),
	})
}

func (h *TimesheetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "timesheet")
	if !ok {
		return
	}

	if err := h.timesheetService.Delete(r.Context(), middleware.UserFromContext(r.Context()), id); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, dto.MessageResponse{Message: "Timesheet deleted"})
}

// Export отдаёт табель файлом xlsx
func (h *TimesheetHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "timesheet")
	if !ok {
		return
	}
	actor := middleware.UserFromContext(r.Context())

	view, err := h.timesheetService.Get(r.Context(), actor, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := h.timesheetService.Export(r.Context(), actor, id, &buf); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.ExportFilename(view.Timesheet)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("export interrupted", slog.Int64("timesheet_id", id), slog.Any("error", err))
	}
}

func (h *TimesheetHandler) readForm(w http.ResponseWriter, r *http.Request, withWeek bool) (*dto.TimesheetRequest, bool) {
	if !h.parseForm(w, r) {
		return nil, false
	}
	req := &dto.TimesheetRequest{
		AdditionalNotes: r.PostForm.Get("additional_notes"),
	}
	if withWeek {
		req.WeekStart = r.PostForm.Get("week_start")
	}
	// пустое или нечисловое значение означает число строк по умолчанию
	if n, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("rows_count"))); err == nil {
		req.RowsCount = n
	}
	if !h.validate(w, req) {
		return nil, false
	}
	return req, true
}
