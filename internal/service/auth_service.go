package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/timesheet-api/internal/auth"
	"github.com/timesheet-api/internal/domain"
	"github.com/timesheet-api/internal/dto"
	"github.com/timesheet-api/internal/repository"
)

// AuthService определяет интерфейс входа и проверки сессии
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest, remoteAddr string) (*domain.User, error)
	CurrentUser(ctx context.Context, id int64) (*domain.User, error)
}

type authService struct {
	store   repository.Store
	hasher  auth.PasswordHasher
	lockout Lockout
	logger  *slog.Logger
	now     func() time.Time
}

// NewAuthService создаёт новый экземпляр сервиса
func NewAuthService(store repository.Store, hasher auth.PasswordHasher, lockout Lockout, logger *slog.Logger) AuthService {
	return &authService{
		store:   store,
		hasher:  hasher,
		lockout: lockout,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, remoteAddr string) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	attempts := s.store.LoginAttempts()
	now := s.now()

	attempt, err := attempts.Find(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find login attempts: %w", err)
	}
	if s.lockout.IsLocked(attempt, now) {
		s.logger.Warn("login rejected, account locked", slog.String("username", username))
		return nil, domain.ErrAccountLocked
	}
	if attempt != nil && s.lockout.expired(attempt, now) {
		if err := attempts.Clear(ctx, username); err != nil {
			return nil, fmt.Errorf("clear expired attempts: %w", err)
		}
	}

	user, err := s.authenticate(ctx, username, req.Password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return nil, s.recordFailure(ctx, username, remoteAddr, now)
	}
	if err != nil {
		return nil, err
	}

	if err := attempts.Clear(ctx, username); err != nil {
		return nil, fmt.Errorf("clear login attempts: %w", err)
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	return user, nil
}

func (s *authService) authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.store.Users().GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		s.logger.Warn("stored password hash is unusable", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, domain.ErrInvalidCredentials
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *authService) recordFailure(ctx context.Context, username, remoteAddr string, now time.Time) error {
	attempt, err := s.store.LoginAttempts().RecordFailure(ctx, username, remoteAddr, now)
	if err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}

	s.logger.Warn("login failed",
		slog.String("username", username),
		slog.String("remote_addr", remoteAddr),
		slog.Int("failures", attempt.Failures),
	)
	if s.lockout.IsLocked(attempt, now) {
		s.logger.Warn("account locked", slog.String("username", username))
	}
	return domain.ErrInvalidCredentials
}

// CurrentUser возвращает активного пользователя сессии
func (s *authService) CurrentUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
