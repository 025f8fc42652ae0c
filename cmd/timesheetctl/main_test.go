package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timesheet-api/internal/config"
)

func TestRun_ClosesDatabaseWhenCommandFails(t *testing.T) {
	t.Setenv("DB_DRIVER", config.DriverSQLite)
	t.Setenv("DB_SQLITE_PATH", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))

	a := &app{}
	err := run(context.Background(), a, []string{"delete-employee", "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid employee id")

	require.NotNil(t, a.db)
	sqlDB, err := a.db.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}

func TestRun_ClosesDatabaseAfterSuccess(t *testing.T) {
	t.Setenv("DB_DRIVER", config.DriverSQLite)
	t.Setenv("DB_SQLITE_PATH", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))

	a := &app{}
	require.NoError(t, run(context.Background(), a, []string{"migrate"}))

	sqlDB, err := a.db.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}
