// Command timesheetctl выполняет административные операции над базой табелей
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/timesheet-api/internal/auth"
	"github.com/timesheet-api/internal/config"
	"github.com/timesheet-api/internal/database"
	"github.com/timesheet-api/internal/repository"
	"github.com/timesheet-api/internal/service"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &app{}, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// run выполняет команду и закрывает соединение с базой даже при ошибке команды
func run(ctx context.Context, a *app, args []string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// app - общие зависимости подкоманд, создаются в PersistentPreRunE
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "timesheetctl",
		Short:        "Administrative commands for the timesheet service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
			a.cfg = config.Load()

			db, err := database.Connect(a.cfg.Database, 5)
			if err != nil {
				return err
			}
			a.db = db
			return nil
		},
	}

	root.AddCommand(
		newMigrateCmd(a),
		newCreateGroupsCmd(a),
		newCreateUserCmd(a),
		newUnlockCmd(a),
		newDeleteEmployeeCmd(a),
	)
	return root
}

func (a *app) userService() service.UserService {
	return service.NewUserService(
		repository.NewStore(a.db),
		auth.NewBcryptHasher(a.cfg.Security.BcryptCost),
		service.NewLockout(a.cfg.Lockout),
		a.logger,
	)
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			return database.Migrate(sqlDB, a.cfg.Database.Driver, a.logger)
		},
	}
}

func newCreateGroupsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create-groups",
		Short: "Create the Admin, Accounting and User groups if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.userService().EnsureGroups(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "groups are in place")
			return nil
		},
	}
}
