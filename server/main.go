package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/preventix/preventix/internal/auth"
	"github.com/preventix/preventix/internal/config"
	"github.com/preventix/preventix/internal/domain/services"
	"github.com/preventix/preventix/internal/infrastructure/database/postgres"
	"github.com/preventix/preventix/internal/pkg/idgen"
	"github.com/preventix/preventix/internal/pkg/logger"
	"github.com/preventix/preventix/migrations"
	"github.com/preventix/preventix/server/internal/handlers"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath    string
		logLevel      string
		logFile       string
		logToStderr   bool
		alsoLogStderr bool
		logFormat     string
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Preventix REST server",
		Long:  "The REST API server for the Preventix health risk service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return setupServerLogging(logLevel, logFile, logToStderr, alsoLogStderr, logFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (optional)")

	// Add logging flags
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (if specified, logs to file instead of stderr)")
	cmd.Flags().BoolVar(&logToStderr, "logtostderr", false, "Log to stderr (default behavior unless --log-file specified)")
	cmd.Flags().BoolVar(&alsoLogStderr, "alsologtostderr", false, "Log to both file and stderr")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "Log format (text, json)")

	// Add subcommands
	cmd.AddCommand(newUserCommand())

	return cmd
}

// setupServerLogging configures the global logger for the server
func setupServerLogging(logLevel, logFile string, logToStderr, alsoLogStderr bool, logFormat string) error {
	// Default to stderr logging unless file is specified
	if logFile == "" {
		logToStderr = true
	}

	cfg := logger.Config{
		Level:         logger.ParseLevel(logLevel),
		LogFile:       logFile,
		LogToStderr:   logToStderr,
		AlsoLogStderr: alsoLogStderr,
		Format:        logFormat,
	}

	globalLogger, err := logger.SetupLogger(cfg)
	if err != nil {
		return err
	}

	slog.SetDefault(globalLogger)
	return nil
}

func runServer(configPath string) error {
	log := slog.Default().With("component", "server")
	log.Info("Starting server initialization")

	// Initialize Snowflake ID generator
	if err := idgen.Initialize(1); err != nil {
		return fmt.Errorf("failed to initialize ID generator: %w", err)
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log.Info("Initializing PostgreSQL database",
		"user", cfg.Database.Postgres.User,
		"host", cfg.Database.Postgres.Host,
		"database", cfg.Database.Postgres.Database)

	pgConn, err := connectWithRetries(log, cfg.Database.Postgres.ConnectionString())
	if err != nil {
		return err
	}
	defer pgConn.Close()

	// Run migrations
	if err := pgConn.RunMigrations(migrations.FS); err != nil {
		return fmt.Errorf("failed to run PostgreSQL migrations: %w", err)
	}

	// Initialize JWT manager from config
	if cfg.Auth.JWT.SigningKey == "" {
		return fmt.Errorf("jwt signing key not configured")
	}
	jwtManager := auth.NewJWTManager(
		cfg.Auth.JWT.SigningKey,
		cfg.Auth.JWT.AccessLifetime,
		cfg.Auth.JWT.RefreshLifetime,
	)

	// Initialize repositories and services
	userRepo := postgres.NewUserRepository(pgConn.DB)
	assessmentRepo := postgres.NewAssessmentRepository(pgConn.DB)
	authService := services.NewAuthService(userRepo, jwtManager)
	assessmentService := services.NewAssessmentService(assessmentRepo)

	handler := handlers.New(authService, assessmentService, jwtManager)
	router := handler.Router(pgConn)

	address := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	log.Info("Starting HTTP server", "address", address)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// connectWithRetries connects to PostgreSQL with exponential backoff, for
// starts where the database comes up after the server.
func connectWithRetries(log *slog.Logger, connString string) (*postgres.Connection, error) {
	maxRetries := 10
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		pgConn, err := postgres.NewConnection(connString)
		if err == nil {
			log.Info("Successfully connected to PostgreSQL")
			return pgConn, nil
		}

		if i == maxRetries-1 {
			return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", maxRetries, err)
		}

		log.Warn("Failed to connect to PostgreSQL",
			"attempt", i+1,
			"max_retries", maxRetries,
			"error", err,
			"retry_delay", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > 30*time.Second {
			retryDelay = 30 * time.Second
		}
	}
	return nil, fmt.Errorf("unreachable")
}
