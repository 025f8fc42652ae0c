package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store объединяет репозитории и задаёт границу транзакции.
// Store, переданный в fn, привязан к транзакции.
type Store interface {
	Users() UserRepository
	Groups() GroupRepository
	Employees() EmployeeRepository
	Timesheets() TimesheetRepository
	LoginAttempts() LoginAttemptRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore создаёт хранилище поверх соединения GORM
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository {
	return NewUserRepository(s.db)
}

func (s *gormStore) Groups() GroupRepository {
	return NewGroupRepository(s.db)
}

func (s *gormStore) Employees() EmployeeRepository {
	return NewEmployeeRepository(s.db)
}

func (s *gormStore) Timesheets() TimesheetRepository {
	return NewTimesheetRepository(s.db)
}

func (s *gormStore) LoginAttempts() LoginAttemptRepository {
	return NewLoginAttemptRepository(s.db)
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
