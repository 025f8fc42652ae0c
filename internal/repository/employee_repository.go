package repository

import (
	"context"
	"errors"

	"github.com/timesheet-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmployeeRepository определяет интерфейс для работы с сотрудниками
type EmployeeRepository interface {
	Create(ctx context.Context, emp *domain.Employee) error
	GetByID(ctx context.Context, id int64) (*domain.Employee, error)
	GetManagedByID(ctx context.Context, id, managerID int64) (*domain.Employee, error)
	FindByName(ctx context.Context, name string) (*domain.Employee, error)
	ListManagedBy(ctx context.Context, managerID int64, activeOnly bool) ([]domain.Employee, error)
	ListNotManagedBy(ctx context.Context, managerID int64) ([]domain.Employee, error)
	ListByActive(ctx context.Context, active bool) ([]domain.Employee, error)
	AddManager(ctx context.Context, employeeID, managerID int64) error
	RemoveManager(ctx context.Context, employeeID, managerID int64) error
	IsManagedBy(ctx context.Context, employeeID, managerID int64) (bool, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

// employeeManager - строка связующей таблицы employee_managers
type employeeManager struct {
	EmployeeID int64 `gorm:"primaryKey"`
	UserID     int64 `gorm:"primaryKey"`
}

func (employeeManager) TableName() string {
	return "employee_managers"
}

type employeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository создаёт новый экземпляр репозитория
func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) Create(ctx context.Context, emp *domain.Employee) error {
	managers := emp.Managers

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(emp).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicateEmployeeName
			}
			return err
		}
		if len(managers) == 0 {
			return nil
		}
		links := make([]employeeManager, 0, len(managers))
		for _, m := range managers {
			links = append(links, employeeManager{EmployeeID: emp.ID, UserID: m.ID})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
	})
}

func (r *employeeRepository) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	var emp domain.Employee
	err := r.db.WithContext(ctx).Preload("Managers").First(&emp, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, err
	}
	return &emp, nil
}

// GetManagedByID ищет сотрудника только среди бригады руководителя
func (r *employeeRepository) GetManagedByID(ctx context.Context, id, managerID int64) (*domain.Employee, error) {
	var emp domain.Employee
	err := r.db.WithContext(ctx).
		Preload("Managers").
		Joins("JOIN employee_managers em ON em.employee_id = employees.id").
		Where("employees.id = ? AND em.user_id = ?", id, managerID).
		First(&emp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, err
	}
	return &emp, nil
}

// FindByName ищет сотрудника по имени без учёта регистра
func (r *employeeRepository) FindByName(ctx context.Context, name string) (*domain.Employee, error) {
	var emp domain.Employee
	err := r.db.WithContext(ctx).
		Preload("Managers").
		Where("LOWER(name) = LOWER(?)", name).
		First(&emp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, err
	}
	return &emp, nil
}

func (r *employeeRepository) ListManagedBy(ctx context.Context, managerID int64, activeOnly bool) ([]domain.Employee, error) {
	query := r.db.WithContext(ctx).
		Joins("JOIN employee_managers em ON em.employee_id = employees.id").
		Where("em.user_id = ?", managerID)

	if activeOnly {
		query = query.Where("employees.is_active = ?", true)
	}

	var employees []domain.Employee
	err := query.Order("employees.name ASC").Find(&employees).Error
	return employees, err
}

// ListNotManagedBy возвращает активных сотрудников вне бригады руководителя
func (r *employeeRepository) ListNotManagedBy(ctx context.Context, managerID int64) ([]domain.Employee, error) {
	managed := r.db.Model(&employeeManager{}).
		Select("employee_id").
		Where("user_id = ?", managerID)

	var employees []domain.Employee
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("id NOT IN (?)", managed).
		Order("name ASC").
		Find(&employees).Error
	return employees, err
}

func (r *employeeRepository) ListByActive(ctx context.Context, active bool) ([]domain.Employee, error) {
	var employees []domain.Employee
	err := r.db.WithContext(ctx).
		Where("is_active = ?", active).
		Order("name ASC").
		Find(&employees).Error
	return employees, err
}

func (r *employeeRepository) AddManager(ctx context.Context, employeeID, managerID int64) error {
	link := employeeManager{EmployeeID: employeeID, UserID: managerID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
}

func (r *employeeRepository) RemoveManager(ctx context.Context, employeeID, managerID int64) error {
	return r.db.WithContext(ctx).
		Where("employee_id = ? AND user_id = ?", employeeID, managerID).
		Delete(&employeeManager{}).Error
}

func (r *employeeRepository) IsManagedBy(ctx context.Context, employeeID, managerID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&employeeManager{}).
		Where("employee_id = ? AND user_id = ?", employeeID, managerID).
		Count(&count).Error
	return count > 0, err
}

func (r *employeeRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Employee{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrEmployeeNotFound
	}
	return nil
}

// Delete удаляет запись; строки табелей сохраняют employee_name, ссылка обнуляется
func (r *employeeRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&domain.Employee{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrEmployeeNotFound
	}
	return nil
}
