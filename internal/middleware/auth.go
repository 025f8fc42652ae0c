package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/timesheet-api/internal/domain"
)

// SessionReader извлекает пользователя из cookie сессии
type SessionReader interface {
	UserID(r *http.Request) (int64, bool)
}

// UserLoader загружает активного пользователя по идентификатору
type UserLoader interface {
	CurrentUser(ctx context.Context, id int64) (*domain.User, error)
}

// RequireAuth пропускает только запросы с действующей сессией активного пользователя
func RequireAuth(sessions SessionReader, users UserLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := sessions.UserID(r)
			if !ok {
				unauthorized(w)
				return
			}

			user, err := users.CurrentUser(r.Context(), id)
			if err != nil {
				if !errors.Is(err, domain.ErrUserNotFound) {
					logger.Error("failed to load session user", slog.Int64("user_id", id), slog.Any("error", err))
					http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
					return
				}
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser кладёт пользователя в контекст
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext возвращает пользователя, установленного RequireAuth
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
}
