package service

import (
	"time"

	"github.com/timesheet-api/internal/config"
	"github.com/timesheet-api/internal/domain"
)

// Lockout решает, заблокирована ли учётная запись по числу неудачных входов.
// Нулевой CoolOff означает блокировку до ручной разблокировки.
type Lockout struct {
	FailureLimit int
	CoolOff      time.Duration
}

// NewLockout создаёт политику блокировки из конфигурации
func NewLockout(cfg config.LockoutConfig) Lockout {
	return Lockout{FailureLimit: cfg.FailureLimit, CoolOff: cfg.CoolOff}
}

// IsLocked сообщает, действует ли блокировка на момент now
func (l Lockout) IsLocked(attempt *domain.LoginAttempt, now time.Time) bool {
	if attempt == nil || l.FailureLimit <= 0 {
		return false
	}
	if attempt.Failures < l.FailureLimit {
		return false
	}
	return !l.expired(attempt, now)
}

// expired - истёк ли срок хранения счётчика
func (l Lockout) expired(attempt *domain.LoginAttempt, now time.Time) bool {
	return l.CoolOff > 0 && now.Sub(attempt.LastAttemptAt) >= l.CoolOff
}
