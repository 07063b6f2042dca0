package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mediscribe/mediscribe/internal/config"
	"github.com/mediscribe/mediscribe/internal/domain/account"
	"github.com/mediscribe/mediscribe/internal/domain/identity"
	"github.com/mediscribe/mediscribe/internal/domain/report"
	"github.com/mediscribe/mediscribe/internal/domain/session"
	"github.com/mediscribe/mediscribe/internal/domain/transcript"
	"github.com/mediscribe/mediscribe/internal/platform/apperr"
	"github.com/mediscribe/mediscribe/internal/platform/auth"
	"github.com/mediscribe/mediscribe/internal/platform/blobstore"
	"github.com/mediscribe/mediscribe/internal/platform/db"
	"github.com/mediscribe/mediscribe/internal/platform/extract"
	"github.com/mediscribe/mediscribe/internal/platform/middleware"
	"github.com/mediscribe/mediscribe/internal/platform/transcribe"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mediscribe-server",
		Short: "Consultation note-taking API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit(1<<20, cfg.MaxUploadBytes))
	e.Use(middleware.RequestTimeout(30 * time.Second))

	// Auth
	issuer := auth.NewTokenIssuer(cfg.AuthSigningKey, cfg.TokenTTL())
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.BearerAuth(issuer, auth.DefaultSkipper))
	}

	// Model adapters
	whisper := transcribe.NewWhisperClient(cfg.WhisperURL, cfg.WhisperModel, cfg.ModelTimeout(), logger)
	gemini := extract.NewGeminiClient(cfg.GeminiURL, cfg.GeminiModel, cfg.GeminiAPIKey, cfg.ModelTimeout(), logger)

	// Audio storage
	audioStore := blobstore.NewInMemoryAudioStore()

	// Repositories
	userRepo := account.NewRepo(pool)
	patientRepo := identity.NewPatientRepo(pool)
	doctorRepo := identity.NewDoctorRepo(pool)
	sessionRepo := session.NewRepo(pool)
	transcriptRepo := transcript.NewRepo(pool)
	reportRepo := report.NewRepo(pool)

	// Services
	txRunner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
	accountSvc := account.NewService(userRepo, issuer)
	identitySvc := identity.NewService(patientRepo, doctorRepo, userRepo, txRunner)
	sessionSvc := session.NewService(sessionRepo)
	transcriptSvc := transcript.NewService(transcriptRepo, sessionRepo, audioStore, whisper, logger)
	reportSvc := report.NewService(reportRepo, transcriptRepo, gemini, logger)

	// Routes
	api := e.Group("/api")
	account.NewHandler(accountSvc).RegisterRoutes(api)
	identity.NewHandler(identitySvc).RegisterRoutes(api)
	session.NewHandler(sessionSvc).RegisterRoutes(api)
	transcript.NewHandler(transcriptSvc).RegisterRoutes(api)
	report.NewHandler(reportSvc).RegisterRoutes(api)
	blobstore.NewHandler(audioStore).RegisterRoutes(api)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
