package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/timesheet-api/internal/config"
)

const (
	sessionName = "timesheet_session"
	userIDKey   = "user_id"
)

// SessionManager хранит идентификатор пользователя в подписанной cookie
type SessionManager struct {
	store *sessions.CookieStore
}

// NewSessionManager создаёт менеджер сессий поверх CookieStore
func NewSessionManager(cfg config.SessionConfig) *SessionManager {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// Login записывает пользователя в сессию
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, _ := m.store.Get(r, sessionName)
	session.Values[userIDKey] = userID
	return session.Save(r, w)
}

// Logout удаляет cookie сессии
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, sessionName)
	delete(session.Values, userIDKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// UserID возвращает пользователя из сессии; повреждённая cookie считается пустой
func (m *SessionManager) UserID(r *http.Request) (int64, bool) {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		return 0, false
	}
	id, ok := session.Values[userIDKey].(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
