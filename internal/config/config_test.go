package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("LOCKOUT_FAILURE_LIMIT", "")
	t.Setenv("LOCKOUT_COOLOFF", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Lockout.FailureLimit)
	assert.Equal(t, time.Duration(0), cfg.Lockout.CoolOff)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", DriverSQLite)
	t.Setenv("DB_SQLITE_PATH", "file:test.db")
	t.Setenv("LOCKOUT_FAILURE_LIMIT", "3")
	t.Setenv("LOCKOUT_COOLOFF", "15m")
	t.Setenv("SESSION_SECURE", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "file:test.db", cfg.Database.DSN())
	assert.Equal(t, 3, cfg.Lockout.FailureLimit)
	assert.Equal(t, 15*time.Minute, cfg.Lockout.CoolOff)
	assert.True(t, cfg.Session.Secure)
}

func TestDatabaseConfig_PostgresDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Driver:   DriverPostgres,
		Host:     "db",
		Port:     "5432",
		User:     "app",
		Password: "secret",
		DBName:   "timesheets",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=timesheets sslmode=disable", cfg.DSN())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("LOCKOUT_FAILURE_LIMIT", "many")
	t.Setenv("SESSION_MAX_AGE", "forever")

	cfg := Load()

	assert.Equal(t, 5, cfg.Lockout.FailureLimit)
	assert.Equal(t, 60*60*12, cfg.Session.MaxAge)
}
