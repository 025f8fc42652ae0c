package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/timesheet-api/internal/domain"
	"github.com/timesheet-api/internal/dto"
	"github.com/timesheet-api/internal/repository"
)

// AddOutcome - результат добавления сотрудника в бригаду
type AddOutcome string

const (
	AddCreated              AddOutcome = "created"
	AddJoined               AddOutcome = "joined"
	AddAlreadyMember        AddOutcome = "already_member"
	AddConfirmationRequired AddOutcome = "confirmation_required"
)

// AddResult - исход добавления и затронутый сотрудник
type AddResult struct {
	Outcome  AddOutcome
	Employee *domain.Employee
}

// EmployeeService определяет интерфейс бизнес-логики для бригад
type EmployeeService interface {
	Crew(ctx context.Context, actor *domain.User) ([]domain.Employee, error)
	Available(ctx context.Context, actor *domain.User) ([]domain.Employee, error)
	Add(ctx context.Context, actor *domain.User, req *dto.AddEmployeeRequest) (*AddResult, error)
	Join(ctx context.Context, actor *domain.User, employeeID int64) (*AddResult, error)
	Remove(ctx context.Context, actor *domain.User, employeeID int64) (domain.Removal, error)
	Reactivate(ctx context.Context, actor *domain.User, employeeID int64) (*domain.Employee, error)
}

type employeeService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewEmployeeService создаёт новый экземпляр сервиса
func NewEmployeeService(store repository.Store, logger *slog.Logger) EmployeeService {
	return &employeeService{
		store:  store,
		logger: logger,
	}
}

func (s *employeeService) Crew(ctx context.Context, actor *domain.User) ([]domain.Employee, error) {
	if !domain.IsCrewManager(actor) {
		return nil, domain.ErrForbidden
	}
	return s.store.Employees().ListManagedBy(ctx, actor.ID, true)
}

func (s *employeeService) Available(ctx context.Context, actor *domain.User) ([]domain.Employee, error) {
	if !domain.IsCrewManager(actor) {
		return nil, domain.ErrForbidden
	}
	return s.store.Employees().ListNotManagedBy(ctx, actor.ID)
}

// Add создаёт сотрудника или, после подтверждения, присоединяет существующего
// с тем же именем (без учёта регистра)
func (s *employeeService) Add(ctx context.Context, actor *domain.User, req *dto.AddEmployeeRequest) (*AddResult, error) {
	if !domain.IsCrewManager(actor) {
		return nil, domain.ErrForbidden
	}
	name := strings.TrimSpace(req.Name)

	var result *AddResult
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.Employees().FindByName(ctx, name)
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			emp := &domain.Employee{
				Name:     name,
				IsActive: true,
				Managers: []domain.User{*actor},
			}
			if err := tx.Employees().Create(ctx, emp); err != nil {
				return err
			}
			result = &AddResult{Outcome: AddCreated, Employee: emp}
			return nil
		}
		if err != nil {
			return err
		}

		switch {
		case existing.HasManager(actor.ID):
			result = &AddResult{Outcome: AddAlreadyMember, Employee: existing}
		case !req.ConfirmJoin:
			result = &AddResult{Outcome: AddConfirmationRequired, Employee: existing}
		default:
			if err := tx.Employees().AddManager(ctx, existing.ID, actor.ID); err != nil {
				return err
			}
			result = &AddResult{Outcome: AddJoined, Employee: existing}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("employee add",
		slog.String("outcome", string(result.Outcome)),
		slog.Int64("employee_id", result.Employee.ID),
		slog.Int64("manager_id", actor.ID),
	)
	return result, nil
}

// Join добавляет пользователя в руководители активного сотрудника
func (s *employeeService) Join(ctx context.Context, actor *domain.User, employeeID int64) (*AddResult, error) {
	if !domain.IsCrewManager(actor) {
		return nil, domain.ErrForbidden
	}

	emp, err := s.store.Employees().GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !emp.IsActive {
		return nil, domain.ErrEmployeeNotFound
	}
	if emp.HasManager(actor.ID) {
		return &AddResult{Outcome: AddAlreadyMember, Employee: emp}, nil
	}

	if err := s.store.Employees().AddManager(ctx, emp.ID, actor.ID); err != nil {
		return nil, err
	}
	return &AddResult{Outcome: AddJoined, Employee: emp}, nil
}

// Remove отвязывает руководителя либо, для Admin/Accounting, деактивирует сотрудника
func (s *employeeService) Remove(ctx context.Context, actor *domain.User, employeeID int64) (domain.Removal, error) {
	if actor == nil {
		return domain.RemovalDenied, domain.ErrForbidden
	}
	emp, err := s.store.Employees().GetByID(ctx, employeeID)
	if err != nil {
		return domain.RemovalDenied, err
	}

	removal := domain.EmployeeRemoval(actor, emp.HasManager(actor.ID))
	switch removal {
	case domain.RemovalDetach:
		err = s.store.Employees().RemoveManager(ctx, emp.ID, actor.ID)
	case domain.RemovalSoftDelete:
		err = s.store.Employees().SetActive(ctx, emp.ID, false)
	default:
		return domain.RemovalDenied, domain.ErrForbidden
	}
	if err != nil {
		return domain.RemovalDenied, err
	}

	s.logger.Info("employee removed",
		slog.Int64("employee_id", emp.ID),
		slog.Int64("actor_id", actor.ID),
		slog.Bool("soft_delete", removal == domain.RemovalSoftDelete),
	)
	return removal, nil
}

func (s *employeeService) Reactivate(ctx context.Context, actor *domain.User, employeeID int64) (*domain.Employee, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}
	emp, err := s.store.Employees().GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !domain.CanReactivateEmployee(actor, emp.HasManager(actor.ID)) {
		return nil, domain.ErrForbidden
	}

	if err := s.store.Employees().SetActive(ctx, emp.ID, true); err != nil {
		return nil, err
	}
	emp.IsActive = true
	return emp, nil
}
