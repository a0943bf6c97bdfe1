package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookclub/config"
	"bookclub/internal/adapters/auth"
	"bookclub/internal/adapters/email"
	deliveryhttp "bookclub/internal/delivery/http"
	"bookclub/internal/delivery/http/controllers"
	"bookclub/internal/delivery/http/middleware"
	"bookclub/internal/repository/postgres"
	"bookclub/internal/services"
	"bookclub/internal/worker"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// @title Book club admission API
// @version 1.0
// @description Event creation, seat admission under capacity, cancellation, rescheduling, attendance and guarded soft deletion.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := config.NewLogger()
	slog.SetDefault(logger)
	if err := run(logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.InsecureSkipVerify,
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return err
	}

	dispatcher := services.NewDispatcher(logger, cfg.NotifyTimeout)
	deps := services.Deps{
		Tx:           postgres.NewTransactor(db, cfg.AdmissionLockTimeout),
		Events:       postgres.NewEventRepository(db),
		Applications: postgres.NewApplicationRepository(db),
		Books:        postgres.NewBookRepository(db),
		Users:        postgres.NewUserRepository(db),
		Emails:       services.NewEmailService(mailer, renderer, logger),
		Audit:        services.NewAuditRecorder(postgres.NewAuditRepository(db), dispatcher),
		Dispatcher:   dispatcher,
		Locks:        services.NewEventLocks(),
		Logger:       logger,
	}
	opts := services.Options{
		ContextTimeout: cfg.ContextTimeout,
		MaxRetries:     cfg.AdmissionMaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
	}
	eventService := services.NewEventService(deps, opts)
	admissionService := services.NewAdmissionService(deps, opts)
	deletionService := services.NewDeletionService(deps, opts)
	attendanceService := services.NewAttendanceService(deps, opts)

	router := deliveryhttp.NewRouter(
		controllers.NewEventController(logger, eventService, deletionService),
		controllers.NewApplicationController(logger, admissionService, attendanceService),
		controllers.NewBookController(logger, deletionService),
		auth.NewJWTAuthority(cfg.JWTSecret),
		logger,
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.LoggingMiddleware(logger, middleware.CORS(cfg.CORSAllowedOrigins, router)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	sweeper := worker.NewAttendanceSweeper(attendanceService, cfg.AttendanceSweepInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	runErr := g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		logger.Warn("pending notifications abandoned at shutdown", "err", err)
	}
	if err := shutdownTracing(drainCtx); err != nil {
		logger.Warn("tracing shutdown failed", "err", err)
	}
	logger.Info("server stopped")
	return runErr
}
