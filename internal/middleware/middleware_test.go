package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/timesheet-api/internal/domain"
)

type stubSessions struct {
	id int64
	ok bool
}

func (s stubSessions) UserID(*http.Request) (int64, bool) { return s.id, s.ok }

type stubUsers map[int64]*domain.User

func (s stubUsers) CurrentUser(_ context.Context, id int64) (*domain.User, error) {
	if id < 0 {
		return nil, errors.New("db down")
	}
	u, ok := s[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", seen)
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	users := stubUsers{7: {ID: 7, Username: "foreman", IsActive: true}}

	var got *domain.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserFromContext(r.Context())
	})

	tests := []struct {
		name     string
		sessions stubSessions
		status   int
	}{
		{"no session", stubSessions{}, http.StatusUnauthorized},
		{"unknown user", stubSessions{id: 8, ok: true}, http.StatusUnauthorized},
		{"store failure", stubSessions{id: -1, ok: true}, http.StatusInternalServerError},
		{"valid", stubSessions{id: 7, ok: true}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			rec := httptest.NewRecorder()
			RequireAuth(tt.sessions, users, logger)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "foreman", got.Username)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestLoggerKeepsStatus(t *testing.T) {
	h := Logger(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
