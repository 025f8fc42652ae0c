package repository

import (
	"context"
	"errors"
	"time"

	"github.com/timesheet-api/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TimesheetRepository определяет интерфейс для работы с табелями и их строками
type TimesheetRepository interface {
	Create(ctx context.Context, ts *domain.Timesheet) error
	GetByID(ctx context.Context, id int64) (*domain.Timesheet, error)
	ListAll(ctx context.Context) ([]domain.Timesheet, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Timesheet, error)
	ExistsForWeek(ctx context.Context, ownerID int64, weekStart time.Time) (bool, error)
	UpdateDetails(ctx context.Context, id int64, notes string, data datatypes.JSON) error
	Delete(ctx context.Context, id int64) error
	DeleteRows(ctx context.Context, timesheetID int64) (int64, error)
	CreateRows(ctx context.Context, rows []domain.TimesheetRow) error
}

type timesheetRepository struct {
	db *gorm.DB
}

// NewTimesheetRepository создаёт новый экземпляр репозитория
func NewTimesheetRepository(db *gorm.DB) TimesheetRepository {
	return &timesheetRepository{db: db}
}

func (r *timesheetRepository) Create(ctx context.Context, ts *domain.Timesheet) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(ts).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrTimesheetExists
	}
	return err
}

func (r *timesheetRepository) GetByID(ctx context.Context, id int64) (*domain.Timesheet, error) {
	var ts domain.Timesheet
	err := r.db.WithContext(ctx).
		Preload("Owner.Groups").
		Preload("Rows", func(db *gorm.DB) *gorm.DB {
			return db.Order("timesheet_rows.id ASC")
		}).
		First(&ts, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTimesheetNotFound
		}
		return nil, err
	}
	return &ts, nil
}

func (r *timesheetRepository) ListAll(ctx context.Context) ([]domain.Timesheet, error) {
	var timesheets []domain.Timesheet
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Order("week_start DESC, id DESC").
		Find(&timesheets).Error
	return timesheets, err
}

func (r *timesheetRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Timesheet, error) {
	var timesheets []domain.Timesheet
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("owner_id = ?", ownerID).
		Order("week_start DESC, id DESC").
		Find(&timesheets).Error
	return timesheets, err
}

func (r *timesheetRepository) ExistsForWeek(ctx context.Context, ownerID int64, weekStart time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Timesheet{}).
		Where("owner_id = ? AND week_start = ?", ownerID, weekStart).
		Count(&count).Error
	return count > 0, err
}

func (r *timesheetRepository) UpdateDetails(ctx context.Context, id int64, notes string, data datatypes.JSON) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Timesheet{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"additional_notes": notes,
			"data_json":        data,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTimesheetNotFound
	}
	return nil
}

// Delete удаляет табель вместе со строками
func (r *timesheetRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("timesheet_id = ?", id).Delete(&domain.TimesheetRow{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Timesheet{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrTimesheetNotFound
		}
		return nil
	})
}

func (r *timesheetRepository) DeleteRows(ctx context.Context, timesheetID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timesheet_id = ?", timesheetID).
		Delete(&domain.TimesheetRow{})
	return result.RowsAffected, result.Error
}

func (r *timesheetRepository) CreateRows(ctx context.Context, rows []domain.TimesheetRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&rows).Error
}
