package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/timesheet-api/internal/domain"
	"github.com/timesheet-api/internal/dto"
	"github.com/timesheet-api/internal/repository"
	"gorm.io/datatypes"
)

// TimesheetView - табель и права текущего пользователя на него
type TimesheetView struct {
	Timesheet *domain.Timesheet
	// Editable - окно правки открыто и пользователь владелец
	Editable  bool
	CanEdit   bool
	CanDelete bool
}

// Dashboard - список табелей и флаги возможностей пользователя
type Dashboard struct {
	Timesheets          []TimesheetView
	IsAdmin             bool
	IsAdminOrAccounting bool
	IsCrewManager       bool
}

// TimesheetForm - данные формы создания или правки табеля
type TimesheetForm struct {
	Timesheet           *domain.Timesheet
	WeekStart           time.Time
	Rows                []domain.TimesheetRow
	Employees           []domain.Employee
	UserGroupMembers    []domain.User
	CanResolveUsernames bool
}

// TimesheetService определяет интерфейс бизнес-логики для табелей
type TimesheetService interface {
	Dashboard(ctx context.Context, actor *domain.User) (*Dashboard, error)
	NewForm(ctx context.Context, actor *domain.User) (*TimesheetForm, error)
	Create(ctx context.Context, actor *domain.User, req *dto.TimesheetRequest, fields FieldSource) (*TimesheetView, int, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*TimesheetView, error)
	EditForm(ctx context.Context, actor *domain.User, id int64) (*TimesheetForm, error)
	Update(ctx context.Context, actor *domain.User, id int64, req *dto.TimesheetRequest, fields FieldSource) (*TimesheetView, int, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
	Export(ctx context.Context, actor *domain.User, id int64, w io.Writer) error
}

type timesheetService struct {
	store  repository.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewTimesheetService создаёт новый экземпляр сервиса
func NewTimesheetService(store repository.Store, logger *slog.Logger) TimesheetService {
	return &timesheetService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *timesheetService) Dashboard(ctx context.Context, actor *domain.User) (*Dashboard, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}

	var (
		timesheets []domain.Timesheet
		err        error
	)
	if domain.IsAdminOrAccounting(actor) {
		timesheets, err = s.store.Timesheets().ListAll(ctx)
	} else {
		timesheets, err = s.store.Timesheets().ListByOwner(ctx, actor.ID)
	}
	if err != nil {
		return nil, err
	}

	today := s.now()
	views := make([]TimesheetView, 0, len(timesheets))
	for i := range timesheets {
		views = append(views, s.view(actor, &timesheets[i], today))
	}

	return &Dashboard{
		Timesheets:          views,
		IsAdmin:             domain.IsAdmin(actor),
		IsAdminOrAccounting: domain.IsAdminOrAccounting(actor),
		IsCrewManager:       domain.IsCrewManager(actor),
	}, nil
}

func (s *timesheetService) NewForm(ctx context.Context, actor *domain.User) (*TimesheetForm, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}

	form := &TimesheetForm{
		WeekStart:           domain.WeekStartFor(s.now()),
		Rows:                make([]domain.TimesheetRow, DefaultRowsCount),
		CanResolveUsernames: domain.CanResolveUsernames(actor),
	}

	var err error
	if domain.IsAdminOrAccounting(actor) {
		form.Employees, err = s.store.Employees().ListByActive(ctx, true)
	} else {
		form.Employees, err = s.store.Employees().ListManagedBy(ctx, actor.ID, true)
	}
	if err != nil {
		return nil, err
	}

	if form.CanResolveUsernames {
		form.UserGroupMembers, err = s.store.Users().ListGroupMembers(ctx, domain.GroupUser, true)
		if err != nil {
			return nil, err
		}
	}

	return form, nil
}

func (s *timesheetService) Create(ctx context.Context, actor *domain.User, req *dto.TimesheetRequest, fields FieldSource) (*TimesheetView, int, error) {
	if actor == nil {
		return nil, 0, domain.ErrForbidden
	}

	weekStart, err := s.parseWeekStart(req.WeekStart)
	if err != nil {
		return nil, 0, err
	}

	data, err := snapshotJSON(fields)
	if err != nil {
		return nil, 0, err
	}

	ts := &domain.Timesheet{
		OwnerID:         actor.ID,
		WeekStart:       weekStart,
		AdditionalNotes: strings.TrimSpace(req.AdditionalNotes),
		DataJSON:        data,
	}

	var saved int
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		exists, err := tx.Timesheets().ExistsForWeek(ctx, actor.ID, weekStart)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrTimesheetExists
		}

		if err := tx.Timesheets().Create(ctx, ts); err != nil {
			return err
		}
		ts.Owner = actor

		saved, err = ReconcileRows(ctx, tx, actor, ts, fields, false)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	s.logger.Info("timesheet created",
		slog.Int64("timesheet_id", ts.ID),
		slog.Int64("owner_id", actor.ID),
		slog.Int("rows", saved),
	)

	view, err := s.load(ctx, actor, ts.ID)
	if err != nil {
		return nil, 0, err
	}
	return view, saved, nil
}

func (s *timesheetService) Get(ctx context.Context, actor *domain.User, id int64) (*TimesheetView, error) {
	ts, err := s.store.Timesheets().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanViewTimesheet(actor, ts) {
		return nil, domain.ErrForbidden
	}

	view := s.view(actor, ts, s.now())
	return &view, nil
}

func (s *timesheetService) EditForm(ctx context.Context, actor *domain.User, id int64) (*TimesheetForm, error) {
	ts, err := s.store.Timesheets().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkEditable(actor, ts); err != nil {
		return nil, err
	}

	length := max(DefaultRowsCount, len(ts.Rows))
	rows := make([]domain.TimesheetRow, length)
	copy(rows, ts.Rows)

	form := &TimesheetForm{
		Timesheet:           ts,
		WeekStart:           ts.WeekStart,
		Rows:                rows,
		CanResolveUsernames: domain.CanResolveUsernames(actor),
	}

	if domain.IsAdminOrAccounting(actor) {
		active, err := s.store.Employees().ListByActive(ctx, true)
		if err != nil {
			return nil, err
		}
		inactive, err := s.store.Employees().ListByActive(ctx, false)
		if err != nil {
			return nil, err
		}
		form.Employees = append(active, inactive...)

		form.UserGroupMembers, err = s.store.Users().ListGroupMembers(ctx, domain.GroupUser, true)
		if err != nil {
			return nil, err
		}
	} else {
		form.Employees, err = s.store.Employees().ListManagedBy(ctx, actor.ID, true)
		if err != nil {
			return nil, err
		}
	}

	return form, nil
}

func (s *timesheetService) Update(ctx context.Context, actor *domain.User, id int64, req *dto.TimesheetRequest, fields FieldSource) (*TimesheetView, int, error) {
	data, err := snapshotJSON(fields)
	if err != nil {
		return nil, 0, err
	}
	notes := strings.TrimSpace(req.AdditionalNotes)

	var saved int
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		ts, err := tx.Timesheets().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkEditable(actor, ts); err != nil {
			return err
		}

		saved, err = ReconcileRows(ctx, tx, actor, ts, fields, true)
		if err != nil {
			return err
		}
		return tx.Timesheets().UpdateDetails(ctx, ts.ID, notes, data)
	})
	if err != nil {
		return nil, 0, err
	}

	s.logger.Info("timesheet updated",
		slog.Int64("timesheet_id", id),
		slog.Int64("editor_id", actor.ID),
		slog.Int("rows", saved),
	)

	view, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, 0, err
	}
	return view, saved, nil
}

func (s *timesheetService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if !domain.CanDeleteTimesheet(actor) {
		return domain.ErrForbidden
	}
	if err := s.store.Timesheets().Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("timesheet deleted", slog.Int64("timesheet_id", id), slog.Int64("deleted_by", actor.ID))
	return nil
}

func (s *timesheetService) Export(ctx context.Context, actor *domain.User, id int64, w io.Writer) error {
	view, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := writeTimesheetXLSX(view.Timesheet, w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// checkEditable отличает чужой табель от закрытого окна правки
func (s *timesheetService) checkEditable(actor *domain.User, ts *domain.Timesheet) error {
	if !domain.CanViewTimesheet(actor, ts) {
		return domain.ErrForbidden
	}
	if !domain.CanEditTimesheet(actor, ts, s.now()) {
		return domain.ErrNotEditable
	}
	return nil
}

func (s *timesheetService) load(ctx context.Context, actor *domain.User, id int64) (*TimesheetView, error) {
	ts, err := s.store.Timesheets().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.view(actor, ts, s.now())
	return &view, nil
}

func (s *timesheetService) view(actor *domain.User, ts *domain.Timesheet, today time.Time) TimesheetView {
	return TimesheetView{
		Timesheet: ts,
		Editable:  domain.IsOwner(actor, ts) && domain.TimesheetEditable(ts.WeekStart, today),
		CanEdit:   domain.CanEditTimesheet(actor, ts, today),
		CanDelete: domain.CanDeleteTimesheet(actor),
	}
}

func (s *timesheetService) parseWeekStart(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.WeekStartFor(s.now()), nil
	}
	weekStart, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse week_start: %w", err)
	}
	return weekStart, nil
}

func snapshotJSON(fields FieldSource) (datatypes.JSON, error) {
	raw, err := json.Marshal(submissionSnapshot(fields))
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	return datatypes.JSON(raw), nil
}
