// Package testutil поднимает изолированную SQLite базу с боевыми миграциями
package testutil

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/timesheet-api/internal/config"
	"github.com/timesheet-api/internal/database"
	"github.com/timesheet-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewDB возвращает мигрированную in-memory базу с группами по умолчанию
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString()),
	}

	db, err := database.Connect(cfg, 1)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(sqlDB, cfg.Driver, slog.New(slog.DiscardHandler)); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, name := range domain.DefaultGroups {
		if err := db.Create(&domain.Group{Name: name}).Error; err != nil {
			t.Fatalf("seed group %s: %v", name, err)
		}
	}

	return db
}

// CreateUser создаёт активного пользователя в указанных группах
func CreateUser(t *testing.T, db *gorm.DB, username string, groups ...string) *domain.User {
	t.Helper()

	user := &domain.User{
		Username:     username,
		PasswordHash: "-",
		IsActive:     true,
	}
	if err := db.Omit(clause.Associations).Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}

	for _, name := range groups {
		var g domain.Group
		if err := db.Where("name = ?", name).First(&g).Error; err != nil {
			t.Fatalf("group %s: %v", name, err)
		}
		link := map[string]any{"user_id": user.ID, "group_id": g.ID}
		if err := db.Table("user_groups").Create(link).Error; err != nil {
			t.Fatalf("link user %s to %s: %v", username, name, err)
		}
		user.Groups = append(user.Groups, g)
	}

	return user
}

// CreateEmployee создаёт активного сотрудника в бригаде указанных руководителей
func CreateEmployee(t *testing.T, db *gorm.DB, name string, managers ...*domain.User) *domain.Employee {
	t.Helper()

	emp := &domain.Employee{Name: name, IsActive: true}
	if err := db.Omit(clause.Associations).Create(emp).Error; err != nil {
		t.Fatalf("create employee %s: %v", name, err)
	}

	for _, m := range managers {
		link := map[string]any{"employee_id": emp.ID, "user_id": m.ID}
		if err := db.Table("employee_managers").Create(link).Error; err != nil {
			t.Fatalf("link employee %s: %v", name, err)
		}
	}

	return emp
}

// CreateTimesheet создаёт табель со строками
func CreateTimesheet(t *testing.T, db *gorm.DB, owner *domain.User, weekStart time.Time, rows ...domain.TimesheetRow) *domain.Timesheet {
	t.Helper()

	ts := &domain.Timesheet{OwnerID: owner.ID, WeekStart: weekStart}
	if err := db.Omit(clause.Associations).Create(ts).Error; err != nil {
		t.Fatalf("create timesheet: %v", err)
	}

	for i := range rows {
		rows[i].TimesheetID = ts.ID
	}
	if len(rows) > 0 {
		if err := db.Omit(clause.Associations).Create(&rows).Error; err != nil {
			t.Fatalf("create rows: %v", err)
		}
	}
	ts.Rows = rows

	return ts
}

// Date возвращает полночь UTC указанного дня
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
