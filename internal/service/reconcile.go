package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/timesheet-api/internal/domain"
	"github.com/timesheet-api/internal/repository"
)

// FieldSource - плоский набор полей формы; url.Values подходит как есть
type FieldSource interface {
	Get(key string) string
}

const (
	DefaultRowsCount = 10
	MaxRowsCount     = 200
	selfSelector     = "self"
)

// ParseRowsCount разбирает rows_count: по умолчанию 10, не больше MaxRowsCount
func ParseRowsCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultRowsCount
	}
	if n < 0 {
		return 0
	}
	if n > MaxRowsCount {
		return MaxRowsCount
	}
	return n
}

func employeeField(i int) string    { return fmt.Sprintf("employee_%d", i) }
func hoursField(i, d int) string    { return fmt.Sprintf("hours_%d_%d", i, d) }
func jobsiteNameField(i int) string { return fmt.Sprintf("jobsite_name_%d", i) }
func jobsiteNumField(i int) string  { return fmt.Sprintf("jobsite_num_%d", i) }

// rowReconciler собирает строки табеля из полей формы.
// Все запросы идут через tx, переданный вызывающей стороной.
type rowReconciler struct {
	tx        repository.Store
	requester *domain.User
	owner     *domain.User
}

// ReconcileRows строит строки табеля ts из fields и сохраняет их.
// При replace прежние строки удаляются в той же транзакции.
// Возвращает число сохранённых строк.
func ReconcileRows(ctx context.Context, tx repository.Store, requester *domain.User, ts *domain.Timesheet, fields FieldSource, replace bool) (int, error) {
	if ts.Owner == nil {
		return 0, fmt.Errorf("timesheet %d: owner not loaded", ts.ID)
	}

	rc := &rowReconciler{tx: tx, requester: requester, owner: ts.Owner}
	rows, err := rc.build(ctx, fields, ParseRowsCount(fields.Get("rows_count")))
	if err != nil {
		return 0, err
	}

	if replace {
		if _, err := tx.Timesheets().DeleteRows(ctx, ts.ID); err != nil {
			return 0, fmt.Errorf("delete rows: %w", err)
		}
	}

	for i := range rows {
		rows[i].TimesheetID = ts.ID
	}
	if err := tx.Timesheets().CreateRows(ctx, rows); err != nil {
		return 0, fmt.Errorf("create rows: %w", err)
	}

	return len(rows), nil
}

func (rc *rowReconciler) build(ctx context.Context, fields FieldSource, n int) ([]domain.TimesheetRow, error) {
	rows := make([]domain.TimesheetRow, 0, n)

	for i := 0; i < n; i++ {
		selector := strings.TrimSpace(fields.Get(employeeField(i)))

		var days [domain.DaysPerWeek]string
		anyDay := false
		for d := range domain.DaysPerWeek {
			days[d] = strings.TrimSpace(fields.Get(hoursField(i, d)))
			if days[d] != "" {
				anyDay = true
			}
		}

		if selector == "" && !anyDay {
			continue
		}

		row := domain.TimesheetRow{
			JobsiteName: strings.TrimSpace(fields.Get(jobsiteNameField(i))),
			JobsiteNum:  strings.TrimSpace(fields.Get(jobsiteNumField(i))),
		}
		for d, v := range days {
			row.SetDay(d, v)
		}

		employeeID, name, err := rc.resolve(ctx, selector)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		row.EmployeeID = employeeID
		row.EmployeeName = name

		if row.HasContent() {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

// resolve превращает значение селектора в ссылку на сотрудника и имя.
// Ненайденные записи не считаются ошибкой.
func (rc *rowReconciler) resolve(ctx context.Context, selector string) (*int64, string, error) {
	switch {
	case selector == "":
		return nil, "", nil

	case isDigits(selector):
		emp, err := rc.lookupEmployee(ctx, selector)
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			return nil, "", nil
		}
		if err != nil {
			return nil, "", err
		}
		return &emp.ID, emp.Name, nil

	case selector == selfSelector || selector == rc.owner.Username:
		return nil, rc.owner.DisplayName(), nil

	case domain.CanResolveUsernames(rc.requester):
		user, err := rc.tx.Users().GetByUsernameInGroup(ctx, selector, domain.GroupUser)
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, selector, nil
		}
		if err != nil {
			return nil, "", err
		}
		return nil, user.DisplayName(), nil

	default:
		return nil, selector, nil
	}
}

func (rc *rowReconciler) lookupEmployee(ctx context.Context, selector string) (*domain.Employee, error) {
	id, err := strconv.ParseInt(selector, 10, 64)
	if err != nil {
		return nil, domain.ErrEmployeeNotFound
	}
	if domain.IsAdminOrAccounting(rc.requester) {
		return rc.tx.Employees().GetByID(ctx, id)
	}
	return rc.tx.Employees().GetManagedByID(ctx, id, rc.requester.ID)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// submissionSnapshot сохраняет распознаваемые поля формы для data_json
func submissionSnapshot(fields FieldSource) map[string]string {
	snapshot := make(map[string]string)
	put := func(key string) {
		if v := fields.Get(key); v != "" {
			snapshot[key] = v
		}
	}

	put("rows_count")
	n := ParseRowsCount(fields.Get("rows_count"))
	for i := 0; i < n; i++ {
		put(employeeField(i))
		for d := range domain.DaysPerWeek {
			put(hoursField(i, d))
		}
		put(jobsiteNameField(i))
		put(jobsiteNumField(i))
	}
	return snapshot
}
