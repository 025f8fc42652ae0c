package repository

import (
	"context"
	"errors"
	"time"

	"github.com/timesheet-api/internal/domain"
	"gorm.io/gorm"
)

// LoginAttemptRepository хранит счётчики неудачных входов
type LoginAttemptRepository interface {
	Find(ctx context.Context, username string) (*domain.LoginAttempt, error)
	List(ctx context.Context) ([]domain.LoginAttempt, error)
	RecordFailure(ctx context.Context, username, ip string, at time.Time) (*domain.LoginAttempt, error)
	Clear(ctx context.Context, username string) error
}

type loginAttemptRepository struct {
	db *gorm.DB
}

// NewLoginAttemptRepository создаёт новый экземпляр репозитория
func NewLoginAttemptRepository(db *gorm.DB) LoginAttemptRepository {
	return &loginAttemptRepository{db: db}
}

// Find возвращает nil без ошибки, если попыток не было
func (r *loginAttemptRepository) Find(ctx context.Context, username string) (*domain.LoginAttempt, error) {
	var attempt domain.LoginAttempt
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *loginAttemptRepository) List(ctx context.Context) ([]domain.LoginAttempt, error) {
	var attempts []domain.LoginAttempt
	err := r.db.WithContext(ctx).Order("username ASC").Find(&attempts).Error
	return attempts, err
}

func (r *loginAttemptRepository) RecordFailure(ctx context.Context, username, ip string, at time.Time) (*domain.LoginAttempt, error) {
	var attempt domain.LoginAttempt

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("username = ?", username).First(&attempt).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			attempt = domain.LoginAttempt{
				Username:      username,
				Failures:      1,
				IPAddress:     ip,
				LastAttemptAt: at,
			}
			return tx.Create(&attempt).Error
		case err != nil:
			return err
		}

		attempt.Failures++
		attempt.IPAddress = ip
		attempt.LastAttemptAt = at
		return tx.Model(&attempt).Updates(map[string]any{
			"failures":        attempt.Failures,
			"ip_address":      ip,
			"last_attempt_at": at,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *loginAttemptRepository) Clear(ctx context.Context, username string) error {
	return r.db.WithContext(ctx).
		Where("username = ?", username).
		Delete(&domain.LoginAttempt{}).Error
}
