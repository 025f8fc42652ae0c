package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/timesheet-api/internal/domain"
	"github.com/timesheet-api/internal/dto"
	"github.com/timesheet-api/internal/repository"
)

func newCreateUserCmd(a *app) *cobra.Command {
	var req dto.CreateUserRequest

	cmd := &cobra.Command{
		Use:     "create-user",
		Short:   "Create an account; the password is read from TIMESHEET_PASSWORD",
		Example: "  TIMESHEET_PASSWORD=s3cretpass timesheetctl create-user --username admin --group Admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Password = os.Getenv("TIMESHEET_PASSWORD")
			req.PasswordConfirm = req.Password
			if req.Password == "" {
				return errors.New("TIMESHEET_PASSWORD is not set")
			}
			if err := dto.NewValidator().Struct(&req); err != nil {
				return fmt.Errorf("invalid user: %w", err)
			}

			svc := a.userService()
			if err := svc.EnsureGroups(cmd.Context()); err != nil {
				return err
			}

			user, err := svc.Provision(cmd.Context(), &req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d) groups=%s\n",
				user.Username, user.ID, strings.Join(user.GroupNames(), ","))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "Login name (required)")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringSliceVar(&req.Groups, "group", nil,
		fmt.Sprintf("Group to join, repeatable (%s)", strings.Join(domain.DefaultGroups, ", ")))
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func newUnlockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock USERNAME",
		Short: "Clear failed login attempts for a username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.userService().UnlockUsername(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unlocked %s\n", args[0])
			return nil
		},
	}
}

func newDeleteEmployeeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-employee ID",
		Short: "Permanently delete an employee; timesheet rows keep the recorded name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid employee id %q: %w", args[0], err)
			}
			if err := repository.NewEmployeeRepository(a.db).Delete(cmd.Context(), id); err != nil {
				return err
			}
			a.logger.Info("employee deleted", slog.Int64("employee_id", id))
			fmt.Fprintf(cmd.OutOrStdout(), "deleted employee %d\n", id)
			return nil
		},
	}
}
