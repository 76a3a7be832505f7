package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/caretrack/caretrack/internal/config"
	"github.com/caretrack/caretrack/internal/domain/assessment"
	"github.com/caretrack/caretrack/internal/domain/auditevent"
	"github.com/caretrack/caretrack/internal/domain/compliance"
	"github.com/caretrack/caretrack/internal/domain/encounter"
	"github.com/caretrack/caretrack/internal/domain/measure"
	"github.com/caretrack/caretrack/internal/domain/patient"
	"github.com/caretrack/caretrack/internal/domain/policy"
	"github.com/caretrack/caretrack/internal/platform/auth"
	"github.com/caretrack/caretrack/internal/platform/db"
	"github.com/caretrack/caretrack/internal/platform/middleware"
	"github.com/caretrack/caretrack/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "caretrack-server",
		Short: "Assessment scheduling and compliance API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(generateUpcomingCmd())
	rootCmd.AddCommand(sweepExpiredCmd())

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

// generateUpcomingCmd is the cron entrypoint for pre-visit generation. It is
// idempotent, so overlapping fires are harmless.
func generateUpcomingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate-upcoming",
		Short: "Create assessment instances for encounters in the next N days",
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")

			app, cleanup, err := buildApp()
			if err != nil {
				return err
			}
			defer cleanup()

			created, err := app.assessments.GenerateUpcoming(context.Background(), days)
			if err != nil {
				return err
			}
			fmt.Printf("Created %d instance(s).\n", created)
			return nil
		},
	}
	cmd.Flags().Int("days", 7, "Look-ahead window in days")
	return cmd
}

// sweepExpiredCmd is the cron entrypoint for the expiration sweep.
func sweepExpiredCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-expired",
		Short: "Transition instances past their deadline to EXPIRED",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := buildApp()
			if err != nil {
				return err
			}
			defer cleanup()

			count, err := app.assessments.SweepExpired(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Expired %d instance(s).\n", count)
			return nil
		},
	}
}

// app holds the wired services shared by the server and the batch commands.
type app struct {
	cfg         *config.Config
	logger      zerolog.Logger
	pool        *pgxpool.Pool
	patients    *patient.Service
	encounters  *encounter.Service
	policies    *policy.Service
	assessments *assessment.Service
	compliance  *compliance.Service
	auditSvc    *auditevent.Service
	recorder    *auditevent.Recorder
	handlers    handlers
}

type handlers struct {
	patient    *patient.Handler
	encounter  *encounter.Handler
	policy     *policy.Handler
	assessment *assessment.Handler
	compliance *compliance.Handler
	audit      *auditevent.Handler
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func buildApp() (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg.Env)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	registry := measure.DefaultRegistry()

	auditRepo := auditevent.NewRepoPG(pool)
	recorder := auditevent.NewRecorder(auditRepo, logger)
	auditSvc := auditevent.NewService(auditRepo)

	policySvc := policy.NewService(policy.NewRepoPG(pool), cfg.PolicyName, registry.Names())
	patientRepo := patient.NewRepo(pool)
	patientSvc := patient.NewService(patientRepo)
	encounterRepo := encounter.NewRepo(pool)
	encounterSvc := encounter.NewService(encounterRepo)

	notifier := notification.NewManager(
		&notification.LogEmailSender{Logger: logger, From: cfg.NotifyFrom},
		&notification.LogSMSSender{Logger: logger},
		notification.NewTemplateEngine(),
	)

	instanceRepo := assessment.NewRepo(pool)
	assessmentSvc := assessment.NewService(
		instanceRepo, patientRepo, encounterRepo, policySvc, registry,
		notifier, recorder, logger, cfg.PortalBaseURL,
	)
	complianceSvc := compliance.NewService(instanceRepo, policySvc)

	a := &app{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		patients:    patientSvc,
		encounters:  encounterSvc,
		policies:    policySvc,
		assessments: assessmentSvc,
		compliance:  complianceSvc,
		auditSvc:    auditSvc,
		recorder:    recorder,
		handlers: handlers{
			patient:    patient.NewHandler(patientSvc),
			encounter:  encounter.NewHandler(encounterSvc),
			policy:     policy.NewHandler(policySvc, recorder),
			assessment: assessment.NewHandler(assessmentSvc),
			compliance: compliance.NewHandler(complianceSvc),
			audit:      auditevent.NewHandler(auditSvc),
		},
	}
	return a, func() { pool.Close() }, nil
}

func runServer() error {
	a, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()
	logger := a.logger
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health checks and the patient token surface stay outside auth: patients
	// reach their questionnaire by token possession alone.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(a.pool))
	a.handlers.assessment.RegisterPublicRoutes(e)

	api := e.Group("/api")
	if cfg.IsDev() {
		api.Use(auth.DevAuthMiddleware())
	} else {
		api.Use(auth.JWTMiddleware([]byte(cfg.JWTSecret)))
	}

	a.handlers.patient.RegisterRoutes(api)
	a.handlers.encounter.RegisterRoutes(api)
	a.handlers.policy.RegisterRoutes(api)
	a.handlers.assessment.RegisterRoutes(api)
	a.handlers.compliance.RegisterRoutes(api)
	a.handlers.audit.RegisterRoutes(api)

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
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
