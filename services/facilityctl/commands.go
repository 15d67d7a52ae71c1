package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/pkg/config"
	"campus-maintenance-system/pkg/database"
	"campus-maintenance-system/pkg/users"
	"campus-maintenance-system/pkg/validation"
	"campus-maintenance-system/services/report-service/maintenance"
	"campus-maintenance-system/services/report-service/store/mongostore"

	"github.com/spf13/cobra"
)

// App carries the backends a command needs. They are opened lazily so
// `users` commands never dial Mongo and `tasks` commands never dial Postgres.
type App struct {
	Pretty bool

	openUsers func() (users.Repository, error)
	openTasks func(ctx context.Context) (*maintenance.TaskService, func(), error)
}

func defaultApp() *App {
	return &App{
		openUsers: func() (users.Repository, error) {
			cfg := config.Load()
			gdb, err := database.ConnectPostgres(cfg.PostgresDSN)
			if err != nil {
				return nil, err
			}
			repo := users.NewGormRepository(gdb)
			if err := repo.Migrate(); err != nil {
				return nil, fmt.Errorf("migrate users: %w", err)
			}
			return repo, nil
		},
		openTasks: func(ctx context.Context) (*maintenance.TaskService, func(), error) {
			cfg := config.Load()
			mdb, err := database.ConnectMongo(cfg.MongoURI, cfg.MongoDatabase)
			if err != nil {
				return nil, nil, err
			}
			svc := maintenance.New(maintenance.Deps{Stores: mongostore.New(mdb, false)})
			return svc.Tasks, func() { database.DisconnectMongo(mdb) }, nil
		},
	}
}

func NewRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "facilityctl",
		Short:        "Operator commands for the campus maintenance platform",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Bootstrap the first administrator
  facilityctl users create-admin --username ops --email ops@campus.edu --password 'change-me-now'

  # Remove a test account
  facilityctl users delete --email tester@campus.edu

  # Tasks past their due date
  facilityctl tasks overdue --pretty
`),
	}
	cmd.PersistentFlags().BoolVar(&app.Pretty, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	return cmd
}

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Manage user accounts"}
	cmd.AddCommand(newCreateAdminCmd(app))
	cmd.AddCommand(newDeleteUserCmd(app))
	return cmd
}

type adminInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

func newCreateAdminCmd(app *App) *cobra.Command {
	var in adminInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.Struct(in); err != nil {
				return writeErr(cmd, err)
			}
			repo, err := app.openUsers()
			if err != nil {
				return writeErr(cmd, err)
			}

			hashed, err := auth.HashPassword(in.Password)
			if err != nil {
				return writeErr(cmd, err)
			}
			u := &users.User{
				Username: strings.TrimSpace(in.Username),
				Email:    in.Email,
				Password: hashed,
				Role:     auth.RoleAdmin,
			}
			if err := repo.Create(cmd.Context(), u); err != nil {
				if errors.Is(err, users.ErrDuplicate) {
					err = fmt.Errorf("username or email already registered")
				}
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": u})
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "Username (3-50 characters)")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (8-100 characters)")
	return cmd
}

func newDeleteUserCmd(app *App) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Hard-delete a user by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return writeErr(cmd, fmt.Errorf("--email is required"))
			}
			repo, err := app.openUsers()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := repo.DeleteByEmail(cmd.Context(), email); err != nil {
				if errors.Is(err, users.ErrNotFound) {
					err = fmt.Errorf("no user with email %s", email)
				}
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": email}})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email of the user to delete")
	return cmd
}

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "tasks", Short: "Inspect admin tasks"}
	cmd.AddCommand(&cobra.Command{
		Use:   "overdue",
		Short: "List open tasks past their due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			tasks, closeFn, err := app.openTasks(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeFn()

			list, err := tasks.ListOverdue(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": list, "count": len(list)})
		},
	})
	return cmd
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
