package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskhub/core/cmd/api/commands"
)

// @title TaskHub API
// @version 1.0
// @description Projects, tasks, comments and notifications for small teams.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskhub",
		Short: "TaskHub API Server",
		Long:  `TaskHub is a collaboration backend: projects with members, prioritized tasks, threaded comments and per-user notifications.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewNotifyCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
