package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-backoffice/internal/config"
	appointmentHandler "github.com/jwalitptl/clinic-backoffice/internal/handler/appointment"
	consultedHandler "github.com/jwalitptl/clinic-backoffice/internal/handler/consulted"
	"github.com/jwalitptl/clinic-backoffice/internal/handler/health"
	paymentHandler "github.com/jwalitptl/clinic-backoffice/internal/handler/payment"
	"github.com/jwalitptl/clinic-backoffice/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-backoffice/internal/middleware"
	"github.com/jwalitptl/clinic-backoffice/internal/repository"
	"github.com/jwalitptl/clinic-backoffice/internal/repository/postgres"
	"github.com/jwalitptl/clinic-backoffice/internal/router"
	appointmentService "github.com/jwalitptl/clinic-backoffice/internal/service/appointment"
	"github.com/jwalitptl/clinic-backoffice/internal/service/audit"
	"github.com/jwalitptl/clinic-backoffice/internal/service/availability"
	consultedService "github.com/jwalitptl/clinic-backoffice/internal/service/consulted"
	paymentService "github.com/jwalitptl/clinic-backoffice/internal/service/payment"
	"github.com/jwalitptl/clinic-backoffice/internal/service/permission"
	"github.com/jwalitptl/clinic-backoffice/internal/service/stage"
	"github.com/jwalitptl/clinic-backoffice/pkg/logger"
	"github.com/jwalitptl/clinic-backoffice/pkg/messaging"
	"github.com/jwalitptl/clinic-backoffice/pkg/messaging/redis"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal(err, "server stopped")
	}
	log.Info("server exited properly")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	loc, err := cfg.Rules.Location()
	if err != nil {
		return err
	}
	table, err := stage.FromConfig(cfg.Rules.Stages)
	if err != nil {
		return fmt.Errorf("invalid stage table: %w", err)
	}
	if err := middleware.RegisterValidators(table); err != nil {
		return err
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Repositories
	consultedRepo := postgres.NewConsultedServiceRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	voucherRepo := postgres.NewPaymentVoucherRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	catalog := repository.NewCachedCatalog(postgres.NewCatalogRepository(db), cfg.Cache.CatalogTTL, cfg.Cache.CleanupInterval)

	metricsHandler := prometheus.New(cfg.Metrics.Namespace)
	m := metricsHandler.Metrics()

	broker := messaging.Broker(messaging.NopBroker{})
	if cfg.Redis.Enabled {
		broker, err = redis.NewRedisBroker(ctx, redis.Config{URL: cfg.Redis.URL, Timeout: cfg.Redis.Timeout}, log.Zerolog())
		if err != nil {
			return err
		}
	}
	defer broker.Close()
	events := messaging.NewPublisher(broker, cfg.Redis.ChannelPrefix, log, m)

	// Write gates
	clock := time.Now
	resolver := permission.NewResolver(permission.Config{
		Location:       loc,
		EditWindowDays: cfg.Rules.ServiceEditWindowDays,
		Clock:          clock,
	})
	engine := stage.NewEngine(table, clock)
	checker := availability.NewChecker(appointmentRepo, m)
	auditor := audit.NewService(auditRepo, log, clock)

	// Services
	consultedSvc := consultedService.NewService(consultedRepo, catalog, resolver, engine, auditor, events, m)
	appointmentSvc := appointmentService.NewService(appointmentRepo, checker, resolver, auditor, events, m, log)
	paymentSvc := paymentService.NewService(voucherRepo, consultedSvc, postgres.NewTransactor(db), resolver, auditor, m)

	rateLimit := rate.Limit(0)
	if cfg.RateLimit.Enabled {
		rateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
	}

	auth := middleware.NewAuthMiddleware(cfg.JWT.Secret, cfg.JWT.Issuer)
	r := router.NewRouter(
		auth,
		metricsHandler,
		router.Handlers{
			Health:      health.NewHandler(db),
			Consulted:   consultedHandler.NewHandler(consultedSvc, auth.RequireAdmin()),
			Appointment: appointmentHandler.NewHandler(appointmentSvc),
			Payment:     paymentHandler.NewHandler(paymentSvc),
		},
		log,
		router.RouterConfig{
			Mode:         cfg.Server.Mode,
			RateLimit:    rateLimit,
			RateBurst:    cfg.RateLimit.Burst,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			MetricsPath:  cfg.Metrics.Path,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
