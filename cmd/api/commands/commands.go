package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taskhub/core/internal/adapters/repository"
	"github.com/taskhub/core/internal/application/services"
	"github.com/taskhub/core/internal/infrastructure/config"
	"github.com/taskhub/core/internal/infrastructure/database"
	"github.com/taskhub/core/internal/infrastructure/logger"
	"github.com/taskhub/core/internal/infrastructure/metrics"
	"github.com/taskhub/core/internal/infrastructure/server"
	"github.com/taskhub/core/internal/ports"
)

// Set through -ldflags at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the TaskHub API server",
		Long:  "Start the TaskHub API server with all configured routes and middleware",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("up", 0)
		},
	})

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Run: func(cmd *cobra.Command, args []string) {
			steps, _ := cmd.Flags().GetInt("steps")
			runMigration("down", steps)
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back (0 rolls back everything)")
	migrateCmd.AddCommand(downCmd)

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			showMigrationVersion()
		},
	})

	return migrateCmd
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long:  "Create and manage users in the system",
	}

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		Run: func(cmd *cobra.Command, args []string) {
			email, _ := cmd.Flags().GetString("email")
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")

			if email == "" || username == "" || password == "" {
				log.Fatal("Email, username and password are required")
			}

			req := ports.RegisterRequest{Email: email, Username: username, Password: password}
			if name != "" {
				req.Name = &name
			}
			createUser(req)
		},
	}

	createUserCmd.Flags().String("email", "", "User email (required)")
	createUserCmd.Flags().String("username", "", "Username (required)")
	createUserCmd.Flags().String("password", "", "User password (required)")
	createUserCmd.Flags().String("name", "", "Display name")

	userCmd.AddCommand(createUserCmd)
	return userCmd
}

// NewNotifyCommand creates the notification maintenance command
func NewNotifyCommand() *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification commands",
	}

	notifyCmd.AddCommand(&cobra.Command{
		Use:   "deadlines",
		Short: "Notify assignees about tasks that are due soon or overdue",
		Long:  "Scan open tasks once and create TASK_DUE_SOON and TASK_OVERDUE notifications. Meant to be run from cron.",
		Run: func(cmd *cobra.Command, args []string) {
			runDeadlineScan(cmd.Context())
		},
	})

	return notifyCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print TaskHub version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("TaskHub %s\n", Version)
			fmt.Printf("Build Date: %s\n", BuildDate)
			fmt.Printf("Git Commit: %s\n", GitCommit)
		},
	}
}

// bootstrap loads configuration and opens the logger and database.
func bootstrap() (*config.Config, *logger.Logger, *database.DB) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		appLogger.Fatalw("Failed to connect to database", "error", err)
	}

	return cfg, appLogger, db
}

func runServer() {
	cfg, appLogger, db := bootstrap()
	defer appLogger.Close()
	defer db.Close()

	srv, err := server.New(cfg, db, metrics.New(), appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	appLogger.Infow("Starting TaskHub API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"version", Version,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalw("Server failed to start", "error", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Errorw("Graceful shutdown failed", "error", err)
		}
	}
}

func runMigration(direction string, steps int) {
	_, appLogger, db := bootstrap()
	defer appLogger.Close()
	defer db.Close()

	var (
		changed bool
		err     error
	)
	switch direction {
	case "up":
		changed, err = db.MigrateUp()
	case "down":
		changed, err = db.MigrateDown(steps)
	}
	if err != nil {
		appLogger.Fatalw("Migration failed", "direction", direction, "error", err)
	}

	if !changed {
		fmt.Println("No migrations to run")
		return
	}
	fmt.Printf("Migration %s completed successfully\n", direction)
}

func showMigrationVersion() {
	_, appLogger, db := bootstrap()
	defer appLogger.Close()
	defer db.Close()

	version, dirty, err := db.MigrationVersion()
	if err != nil {
		appLogger.Fatalw("Failed to get migration version", "error", err)
	}

	fmt.Printf("Current migration version: %d\n", version)
	fmt.Printf("Dirty: %t\n", dirty)
}

func createUser(req ports.RegisterRequest) {
	_, appLogger, db := bootstrap()
	defer appLogger.Close()
	defer db.Close()

	userService := services.NewUserService(repository.NewUserRepository(db.DB), appLogger)

	user, err := userService.Create(context.Background(), req)
	if err != nil {
		appLogger.Fatalw("Failed to create user", "error", err)
	}

	fmt.Printf("User created successfully:\n")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  Username: %s\n", user.Username)
	if user.Name != nil {
		fmt.Printf("  Name: %s\n", *user.Name)
	}
}

func runDeadlineScan(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, appLogger, db := bootstrap()
	defer appLogger.Close()
	defer db.Close()

	notificationRepo := repository.NewNotificationRepository(db.DB)
	notifier := services.NewNotifier(notificationRepo, nil, appLogger)
	deadlines := services.NewDeadlineNotifier(
		repository.NewTaskRepository(db.DB),
		notificationRepo,
		notifier,
		cfg.Notifications.DueSoonWindow,
		appLogger,
	)

	result, err := deadlines.Run(ctx)
	if err != nil {
		appLogger.Fatalw("Deadline scan failed", "error", err)
	}

	fmt.Printf("Due soon: %d, overdue: %d, already notified: %d\n", result.DueSoon, result.Overdue, result.Skipped)
}
