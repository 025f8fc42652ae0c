package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timesheet-api/internal/auth"
	"github.com/timesheet-api/internal/config"
	"github.com/timesheet-api/internal/database"
	"github.com/timesheet-api/internal/handler"
	"github.com/timesheet-api/internal/repository"
	"github.com/timesheet-api/internal/service"
)

func main() {
	// Инициализация логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg := config.Load()

	// Подключение к БД
	db, err := database.Connect(cfg.Database, 30)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("failed to get sql.DB", slog.Any("error", err))
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Запуск миграций
	if err := database.Migrate(sqlDB, cfg.Database.Driver, logger); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	store := repository.NewStore(db)
	hasher := auth.NewBcryptHasher(cfg.Security.BcryptCost)
	lockout := service.NewLockout(cfg.Lockout)

	// Инициализация сервисов
	authService := service.NewAuthService(store, hasher, lockout, logger)
	timesheetService := service.NewTimesheetService(store, logger)
	employeeService := service.NewEmployeeService(store, logger)
	userService := service.NewUserService(store, hasher, lockout, logger)

	if err := userService.EnsureGroups(context.Background()); err != nil {
		logger.Error("failed to create default groups", slog.Any("error", err))
		os.Exit(1)
	}

	sessions := auth.NewSessionManager(cfg.Session)

	// Настройка роутера
	router := handler.NewRouter(handler.Handlers{
		Auth:      handler.NewAuthHandler(authService, sessions, logger),
		Timesheet: handler.NewTimesheetHandler(timesheetService, logger),
		Employee:  handler.NewEmployeeHandler(employeeService, logger),
		User:      handler.NewUserHandler(userService, logger),
	}, sessions, authService, logger)

	// Настройка HTTP сервера
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("could not gracefully shutdown the server", slog.Any("error", err))
		}
		close(done)
	}()

	logger.Info("server is starting",
		slog.String("port", cfg.Server.Port),
		slog.String("db_driver", cfg.Database.Driver),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("could not listen on port", slog.String("port", cfg.Server.Port), slog.Any("error", err))
		os.Exit(1)
	}

	<-done
	logger.Info("server stopped")
}
