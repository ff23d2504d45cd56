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

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"go.uber.org/zap"

	"github.com/neomorfeo/central/internal/adapter/fsm"
	"github.com/neomorfeo/central/internal/adapter/otel"
	riveradapter "github.com/neomorfeo/central/internal/adapter/river"
	"github.com/neomorfeo/central/internal/adapter/sqlite"
	"github.com/neomorfeo/central/internal/adapter/validation"
	"github.com/neomorfeo/central/internal/app"
	"github.com/neomorfeo/central/internal/config"
	"github.com/neomorfeo/central/internal/domain"
	"github.com/neomorfeo/central/internal/event"
	"github.com/neomorfeo/central/internal/logging"

	handler "github.com/neomorfeo/central/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "central: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Config{Component: cfg.Telemetry.Component, Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	providers, err := otel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("otel shutdown", zap.Error(err))
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	store, err := sqlite.NewFromDB(ctx, db)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	jobs, err := riveradapter.Setup(ctx, db, cfg.RiverMaxWorkers, logger.Named("river"))
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	if err := jobs.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := jobs.Stop(stopCtx); err != nil {
			logger.Warn("river stop", zap.Error(err))
		}
	}()

	registry := event.NewRegistry()
	riveradapter.NewEnqueuer(jobs).Register(registry)
	dispatcher := otel.NewTracingDispatcher(event.NewDispatcher(registry, logger.Named("events")))

	// --- Application ---
	svc := newServices(store, dispatcher, logger)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware(cfg.Telemetry.ServiceName, otelchi.WithChiRoutes(router)))
	router.Use(logging.RequestLogger(logger))
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	api := humachi.New(router, huma.DefaultConfig("central", cfg.Telemetry.ServiceVersion))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("docs", "/docs"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("stopped")
	return nil
}

// newServices wires the application services over traced repositories.
func newServices(store *sqlite.Store, dispatcher domain.EventDispatcher, logger *zap.Logger) handler.Services {
	bundles := otel.NewTracingBundleRepository(store.Bundles())
	tenants := otel.NewTracingTenantRepository(store.Tenants())
	domains := otel.NewTracingTenantDomainRepository(store.Domains())
	subscriptions := otel.NewTracingSubscriptionRepository(store.Subscriptions())

	engine := validation.NewEngine()

	return handler.Services{
		Bundles: app.NewBundleService(app.BundleServiceDeps{
			Bundles:         bundles,
			Subscriptions:   subscriptions,
			CreateValidator: validation.For[app.CreateBundleRequest](engine),
			UpdateValidator: validation.For[app.UpdateBundleRequest](engine),
			Logger:          logger.Named("bundles"),
		}),
		Tenants: app.NewTenantService(app.TenantServiceDeps{
			Tenants:         tenants,
			Domains:         domains,
			Subscriptions:   subscriptions,
			Dispatcher:      dispatcher,
			Transitions:     fsm.New(),
			CreateValidator: validation.For[app.CreateTenantRequest](engine),
			UpdateValidator: validation.For[app.UpdateTenantRequest](engine),
			Logger:          logger.Named("tenants"),
		}),
		Domains: app.NewTenantDomainService(app.TenantDomainServiceDeps{
			Domains:         domains,
			Tenants:         tenants,
			CreateValidator: validation.For[app.CreateTenantDomainRequest](engine),
			UpdateValidator: validation.For[app.UpdateTenantDomainRequest](engine),
			Logger:          logger.Named("domains"),
		}),
		Subscriptions: app.NewSubscriptionService(app.SubscriptionServiceDeps{
			Subscriptions:   subscriptions,
			Tenants:         tenants,
			Bundles:         bundles,
			CreateValidator: validation.For[app.CreateSubscriptionRequest](engine),
			UpdateValidator: validation.For[app.UpdateSubscriptionRequest](engine),
			Logger:          logger.Named("subscriptions"),
		}),
	}
}
