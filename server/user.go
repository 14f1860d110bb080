package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/preventix/preventix/internal/config"
	"github.com/preventix/preventix/internal/domain/entities"
	"github.com/preventix/preventix/internal/infrastructure/database/postgres"
	"github.com/preventix/preventix/internal/pkg/idgen"
	"github.com/preventix/preventix/migrations"
)

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long:  "Commands for managing users in the Preventix database",
	}

	cmd.AddCommand(newUserCreateCommand())

	return cmd
}

func newUserCreateCommand() *cobra.Command {
	var (
		email      string
		password   string
		name       string
		isActive   bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		Long:  "Create a new user with the specified email and password",
		Example: `  # Create a user
  server user create --email user@example.com --password secret123 --name "Jane Doe"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createUser(configPath, email, password, name, isActive)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "User email (required)")
	cmd.Flags().StringVar(&password, "password", "", "User password (required)")
	cmd.Flags().StringVar(&name, "name", "", "User full name (optional)")
	cmd.Flags().BoolVar(&isActive, "active", true, "Whether user is active")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (optional)")

	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func createUser(configPath, email, password, name string, isActive bool) error {
	// Initialize ID generator
	if err := idgen.Initialize(1); err != nil {
		return fmt.Errorf("failed to initialize ID generator: %w", err)
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database
	pgConn, err := postgres.NewConnection(cfg.Database.Postgres.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	defer pgConn.Close()

	// Run migrations to ensure database is up to date
	if err := pgConn.RunMigrations(migrations.FS); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	userRepo := postgres.NewUserRepository(pgConn.DB)

	ctx := context.Background()
	exists, err := userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check existing users: %w", err)
	}
	if exists {
		return fmt.Errorf("user with email %s already exists", email)
	}

	// If no name provided, use email
	if name == "" {
		name = email
	}

	user := &entities.User{
		ID:       idgen.GenerateID(),
		Email:    email,
		FullName: name,
		IsActive: isActive,
	}
	if err := user.SetPassword(password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("User created successfully",
		"user_id", user.ID,
		"email", user.Email,
		"full_name", user.FullName,
		"is_active", user.IsActive,
	)

	return nil
}
