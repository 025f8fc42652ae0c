package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/timesheet-api/internal/auth"
	"github.com/timesheet-api/internal/domain"
	"github.com/timesheet-api/internal/dto"
	"github.com/timesheet-api/internal/repository"
)

// UserView - учётная запись с признаком блокировки
type UserView struct {
	User     domain.User
	IsLocked bool
}

// Management - данные страницы управления пользователями
type Management struct {
	Users             []UserView
	InactiveUsers     []UserView
	Employees         []domain.Employee
	InactiveEmployees []domain.Employee
	IsAdmin           bool
}

// UserService определяет интерфейс управления учётными записями
type UserService interface {
	Management(ctx context.Context, actor *domain.User) (*Management, error)
	Create(ctx context.Context, actor *domain.User, req *dto.CreateUserRequest) (*domain.User, error)
	Update(ctx context.Context, actor *domain.User, id int64, req *dto.UpdateUserRequest) (*domain.User, error)
	ResetPassword(ctx context.Context, actor *domain.User, id int64, req *dto.ResetPasswordRequest) error
	Reactivate(ctx context.Context, actor *domain.User, id int64) (*domain.User, error)
	Deactivate(ctx context.Context, actor *domain.User, id int64) (*domain.User, error)
	Unlock(ctx context.Context, actor *domain.User, id int64) error

	// Provision и UnlockUsername - административные операции без проверки прав (CLI)
	Provision(ctx context.Context, req *dto.CreateUserRequest) (*domain.User, error)
	UnlockUsername(ctx context.Context, username string) error
	EnsureGroups(ctx context.Context) error
}

type userService struct {
	store   repository.Store
	hasher  auth.PasswordHasher
	lockout Lockout
	logger  *slog.Logger
	now     func() time.Time
}

// NewUserService создаёт новый экземпляр сервиса
func NewUserService(store repository.Store, hasher auth.PasswordHasher, lockout Lockout, logger *slog.Logger) UserService {
	return &userService{
		store:   store,
		hasher:  hasher,
		lockout: lockout,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *userService) Management(ctx context.Context, actor *domain.User) (*Management, error) {
	if !domain.CanManageUsers(actor) {
		return nil, domain.ErrForbidden
	}

	attempts, err := s.store.LoginAttempts().List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	locked := make(map[string]bool, len(attempts))
	for i := range attempts {
		if s.lockout.IsLocked(&attempts[i], now) {
			locked[attempts[i].Username] = true
		}
	}

	active, err := s.store.Users().ListByActive(ctx, true)
	if err != nil {
		return nil, err
	}
	inactive, err := s.store.Users().ListByActive(ctx, false)
	if err != nil {
		return nil, err
	}

	m := &Management{
		Users:         userViews(active, locked),
		InactiveUsers: userViews(inactive, locked),
		IsAdmin:       domain.IsAdmin(actor),
	}

	if m.Employees, err = s.store.Employees().ListByActive(ctx, true); err != nil {
		return nil, err
	}
	if m.InactiveEmployees, err = s.store.Employees().ListByActive(ctx, false); err != nil {
		return nil, err
	}

	return m, nil
}

func (s *userService) Create(ctx context.Context, actor *domain.User, req *dto.CreateUserRequest) (*domain.User, error) {
	if !domain.CanManageUsers(actor) {
		return nil, domain.ErrForbidden
	}
	if err := checkAssignable(actor, req.Groups); err != nil {
		return nil, err
	}

	user, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", slog.Int64("user_id", user.ID), slog.Int64("created_by", actor.ID))
	return user, nil
}

func (s *userService) Provision(ctx context.Context, req *dto.CreateUserRequest) (*domain.User, error) {
	return s.create(ctx, req)
}

func (s *userService) create(ctx context.Context, req *dto.CreateUserRequest) (*domain.User, error) {
	if req.Password != req.PasswordConfirm {
		return nil, domain.ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     strings.TrimSpace(req.Username),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		IsActive:     true,
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		groups, err := tx.Groups().GetByNames(ctx, uniqueNames(req.Groups))
		if err != nil {
			return err
		}
		user.Groups = groups
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Update меняет профиль и группы; группы Admin-пользователя может менять только Admin
func (s *userService) Update(ctx context.Context, actor *domain.User, id int64, req *dto.UpdateUserRequest) (*domain.User, error) {
	if !domain.CanManageUsers(actor) {
		return nil, domain.ErrForbidden
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		user, err := tx.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}

		if req.FirstName != nil || req.LastName != nil || req.Email != nil {
			if req.FirstName != nil {
				user.FirstName = strings.TrimSpace(*req.FirstName)
			}
			if req.LastName != nil {
				user.LastName = strings.TrimSpace(*req.LastName)
			}
			if req.Email != nil {
				user.Email = strings.TrimSpace(*req.Email)
			}
			if err := tx.Users().UpdateProfile(ctx, user); err != nil {
				return err
			}
		}

		if req.Groups == nil {
			return nil
		}
		if domain.IsAdmin(user) && !domain.IsAdmin(actor) {
			return domain.ErrGroupNotAssignable
		}
		if err := checkAssignable(actor, *req.Groups); err != nil {
			return err
		}
		groups, err := tx.Groups().GetByNames(ctx, uniqueNames(*req.Groups))
		if err != nil {
			return err
		}
		return tx.Users().ReplaceGroups(ctx, user.ID, groups)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user updated", slog.Int64("user_id", id), slog.Int64("updated_by", actor.ID))
	return s.store.Users().GetByID(ctx, id)
}

func (s *userService) ResetPassword(ctx context.Context, actor *domain.User, id int64, req *dto.ResetPasswordRequest) error {
	if !domain.CanManageUsers(actor) {
		return domain.ErrForbidden
	}
	if req.NewPassword != req.ConfirmPassword {
		return domain.ErrPasswordMismatch
	}

	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if domain.IsAdmin(user) && !domain.IsAdmin(actor) {
		return domain.ErrForbidden
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.Users().SetPassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.logger.Info("password reset", slog.Int64("user_id", id), slog.Int64("reset_by", actor.ID))
	return nil
}

func (s *userService) Reactivate(ctx context.Context, actor *domain.User, id int64) (*domain.User, error) {
	if !domain.CanManageUsers(actor) {
		return nil, domain.ErrForbidden
	}
	return s.setActive(ctx, id, true)
}

func (s *userService) Deactivate(ctx context.Context, actor *domain.User, id int64) (*domain.User, error) {
	if !domain.CanManageUsers(actor) {
		return nil, domain.ErrForbidden
	}
	if actor.ID == id {
		return nil, domain.ErrCannotDeactivateSelf
	}

	target, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if domain.IsAdmin(target) && !domain.IsAdmin(actor) {
		return nil, domain.ErrForbidden
	}
	return s.setActive(ctx, id, false)
}

func (s *userService) setActive(ctx context.Context, id int64, active bool) (*domain.User, error) {
	if err := s.store.Users().SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	s.logger.Info("user active flag changed", slog.Int64("user_id", id), slog.Bool("is_active", active))
	return s.store.Users().GetByID(ctx, id)
}

func (s *userService) Unlock(ctx context.Context, actor *domain.User, id int64) error {
	if !domain.CanManageUsers(actor) {
		return domain.ErrForbidden
	}
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.UnlockUsername(ctx, user.Username)
}

func (s *userService) UnlockUsername(ctx context.Context, username string) error {
	if err := s.store.LoginAttempts().Clear(ctx, username); err != nil {
		return err
	}
	s.logger.Info("account unlocked", slog.String("username", username))
	return nil
}

// EnsureGroups создаёт группы Admin, Accounting и User, если их нет
func (s *userService) EnsureGroups(ctx context.Context) error {
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		for _, name := range domain.DefaultGroups {
			if _, err := tx.Groups().Ensure(ctx, name); err != nil {
				return fmt.Errorf("ensure group %s: %w", name, err)
			}
		}
		return nil
	})
}

func checkAssignable(actor *domain.User, groups []string) error {
	for _, g := range groups {
		if !domain.CanAssignGroup(actor, g) {
			return domain.ErrGroupNotAssignable
		}
	}
	return nil
}

func uniqueNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

func userViews(users []domain.User, locked map[string]bool) []UserView {
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, UserView{User: u, IsLocked: locked[u.Username]})
	}
	return views
}
