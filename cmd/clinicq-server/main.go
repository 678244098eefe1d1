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

	"github.com/clinicq/clinicq/internal/config"
	"github.com/clinicq/clinicq/internal/domain/payments"
	"github.com/clinicq/clinicq/internal/domain/scheduling"
	"github.com/clinicq/clinicq/internal/domain/subject"
	"github.com/clinicq/clinicq/internal/platform/auth"
	"github.com/clinicq/clinicq/internal/platform/db"
	"github.com/clinicq/clinicq/internal/platform/middleware"
	"github.com/clinicq/clinicq/internal/platform/notification"
	"github.com/clinicq/clinicq/internal/platform/verify"
	"github.com/clinicq/clinicq/internal/sweeper"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinicq-server",
		Short: "Clinic slot booking and walk-in queue API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())

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

			count, err := db.NewMigrator(pool, dir).Up(ctx)
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

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
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

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Close expired slots and no-show their unchecked bookings, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

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

			svc, _ := buildServices(cfg, pool, logger)
			swept, err := svc.SweepExpiredSlots(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Swept %d expired slot(s).\n", swept)
			return nil
		},
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

// buildServices wires the domain services on top of either Postgres or the
// in-memory store (development without DATABASE_URL).
func buildServices(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*scheduling.Service, *subject.Service) {
	var slotRepo scheduling.SlotRepository
	var bookingRepo scheduling.BookingRepository
	var subjectRepo subject.Repository
	if pool != nil {
		slotRepo = scheduling.NewSlotRepoPG(pool)
		bookingRepo = scheduling.NewBookingRepoPG(pool)
		subjectRepo = subject.NewRepoPG(pool)
	} else {
		store := scheduling.NewMemStore()
		slotRepo = store.SlotRepo()
		bookingRepo = store.BookingRepo()
		subjectRepo = subject.NewMemRepo()
	}

	var verifier verify.Verifier = verify.AllowAll{}
	if cfg.VerifyURL != "" {
		verifier = verify.NewHTTPVerifier(cfg.VerifyURL)
	} else if !cfg.IsDev() {
		logger.Warn().Msg("VERIFY_URL not set; provider verification disabled")
	}

	notifier := notification.NewBestEffort(
		notification.NewManager(logSender{logger}, logSender{logger}, notification.NewTemplateEngine()),
		logger,
	)

	subjectSvc := subject.NewService(subjectRepo)
	schedulingSvc := scheduling.NewService(slotRepo, bookingRepo, subjectSvc, verifier, notifier, cfg.Location(), logger)
	return schedulingSvc, subjectSvc
}

// logSender writes notifications to the log. Real SMS/email transports are
// external collaborators; the process ships with this stand-in.
type logSender struct {
	logger zerolog.Logger
}

func (l logSender) SendSMS(_ context.Context, to, body string) error {
	l.logger.Info().Str("to", to).Str("body", body).Msg("sms notification")
	return nil
}

func (l logSender) SendEmail(_ context.Context, to, subject, body string) error {
	l.logger.Info().Str("to", to).Str("subject", subject).Str("body", body).Msg("email notification")
	return nil
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
	} else if cfg.IsDev() {
		logger.Warn().Msg("DATABASE_URL not set; using in-memory store")
	} else {
		logger.Fatal().Msg("DATABASE_URL is required outside development")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	schedulingSvc, subjectSvc := buildServices(cfg, pool, logger)

	// Gateway webhooks sign their payloads instead of carrying a JWT, so they
	// register before the auth middleware group.
	payments.NewHandler(schedulingSvc, cfg.WebhookSecret, logger).RegisterRoutes(e)

	e.GET("/health", func(c echo.Context) error {
		if pool != nil {
			return db.HealthHandler(pool)(c)
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{SigningKey: []byte(cfg.JWTSecret)}))
	}

	scheduling.NewHandler(schedulingSvc).RegisterRoutes(apiV1)
	subject.NewHandler(subjectSvc).RegisterRoutes(apiV1)

	// Optional periodic no-show sweep
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweeper.New(schedulingSvc, cfg.SweepInterval, logger).Run(sweepCtx)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
