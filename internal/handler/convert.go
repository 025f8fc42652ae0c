package handler

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/timesheet-api/internal/domain"
	"github.com/timesheet-api/internal/dto"
	"github.com/timesheet-api/internal/service"
)

func toUserRef(u *domain.User) dto.UserRef {
	if u == nil {
		return dto.UserRef{}
	}
	return dto.UserRef{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName()}
}

func toUserResponse(u *domain.User, locked bool) dto.UserResponse {
	return dto.UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		DisplayName: u.DisplayName(),
		IsActive:    u.IsActive,
		IsLocked:    locked,
		Groups:      u.GroupNames(),
		CreatedAt:   u.CreatedAt,
	}
}

func toUserResponses(views []service.UserView) []dto.UserResponse {
	resp := make([]dto.UserResponse, 0, len(views))
	for i := range views {
		resp = append(resp, toUserResponse(&views[i].User, views[i].IsLocked))
	}
	return resp
}

func toEmployeeResponse(e *domain.Employee) dto.EmployeeResponse {
	return dto.EmployeeResponse{
		ID:        e.ID,
		Name:      e.Name,
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt,
	}
}

func toEmployeeResponses(employees []domain.Employee) []dto.EmployeeResponse {
	resp := make([]dto.EmployeeResponse, 0, len(employees))
	for i := range employees {
		resp = append(resp, toEmployeeResponse(&employees[i]))
	}
	return resp
}

func toRowResponse(r *domain.TimesheetRow) dto.RowResponse {
	return dto.RowResponse{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		EmployeeName: r.EmployeeName,
		Mon:          r.Mon,
		Tues:         r.Tues,
		Wed:          r.Wed,
		Thur:         r.Thur,
		Fri:          r.Fri,
		Sat:          r.Sat,
		Sun:          r.Sun,
		JobsiteName:  r.JobsiteName,
		JobsiteNum:   r.JobsiteNum,
		TotalHours:   r.TotalHours().String(),
	}
}

func toRowResponses(rows []domain.TimesheetRow) []dto.RowResponse {
	resp := make([]dto.RowResponse, 0, len(rows))
	for i := range rows {
		resp = append(resp, toRowResponse(&rows[i]))
	}
	return resp
}

func toTimesheetSummary(v *service.TimesheetView) dto.TimesheetSummary {
	ts := v.Timesheet
	return dto.TimesheetSummary{
		ID:        ts.ID,
		Owner:     toUserRef(ts.Owner),
		WeekStart: ts.WeekStart.Format(time.DateOnly),
		CreatedAt: ts.CreatedAt,
		Editable:  v.Editable,
		CanEdit:   v.CanEdit,
		CanDelete: v.CanDelete,
	}
}

func toTimesheetResponse(v *service.TimesheetView) dto.TimesheetResponse {
	ts := v.Timesheet
	total := decimal.Zero
	for i := range ts.Rows {
		total = total.Add(ts.Rows[i].TotalHours())
	}
	return dto.TimesheetResponse{
		ID:              ts.ID,
		Owner:           toUserRef(ts.Owner),
		WeekStart:       ts.WeekStart.Format(time.DateOnly),
		AdditionalNotes: ts.AdditionalNotes,
		CreatedAt:       ts.CreatedAt,
		Editable:        v.Editable,
		CanEdit:         v.CanEdit,
		CanDelete:       v.CanDelete,
		TotalHours:      total.String(),
		Rows:            toRowResponses(ts.Rows),
	}
}

func toFormResponse(f *service.TimesheetForm) dto.TimesheetFormResponse {
	resp := dto.TimesheetFormResponse{
		WeekStart:           f.WeekStart.Format(time.DateOnly),
		RowsCount:           len(f.Rows),
		Rows:                toRowResponses(f.Rows),
		Employees:           toEmployeeResponses(f.Employees),
		UserGroupMembers:    make([]dto.UserRef, 0, len(f.UserGroupMembers)),
		IsAdminOrAccounting: f.CanResolveUsernames,
	}
	if f.Timesheet != nil {
		resp.TimesheetID = &f.Timesheet.ID
		resp.AdditionalNotes = f.Timesheet.AdditionalNotes
	}
	for i := range f.UserGroupMembers {
		resp.UserGroupMembers = append(resp.UserGroupMembers, toUserRef(&f.UserGroupMembers[i]))
	}
	return resp
}
