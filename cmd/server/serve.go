package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpattn/billingapi/internal/auth"
	"github.com/rpattn/billingapi/internal/config"
	"github.com/rpattn/billingapi/internal/db"
	"github.com/rpattn/billingapi/internal/domain"
	"github.com/rpattn/billingapi/internal/export"
	"github.com/rpattn/billingapi/internal/httpapi"
	"github.com/rpattn/billingapi/internal/ingestion"
	"github.com/rpattn/billingapi/internal/logging"
	"github.com/rpattn/billingapi/internal/middleware"
	"github.com/rpattn/billingapi/internal/query"
	"github.com/rpattn/billingapi/internal/repository"
	"github.com/rpattn/billingapi/internal/schema"
	"github.com/rpattn/billingapi/internal/service"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	registry, err := domain.NewRegistry()
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg, registry, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	authenticator, err := newAuthenticator(cfg.Auth)
	if err != nil {
		return err
	}

	engine := query.NewEngine(registry, cfg.Query.MaxPageSize)
	router := httpapi.NewRouter(httpapi.Deps{
		Registry:      registry,
		Services:      service.NewSet(engine, store, service.WithLogger(logger)),
		Store:         store,
		Authenticator: authenticator,
		Exporter: export.NewService(
			export.WithBatchSize(cfg.Export.BatchSize),
			export.WithMaxRows(cfg.Export.MaxRows),
			export.WithLogger(logger),
		),
		Importer:        ingestion.NewService(logger),
		MaxUploadBytes:  cfg.Ingestion.MaxUploadBytes,
		DefaultPageSize: cfg.Query.DefaultPageSize,
		Metrics:         middleware.NewMetrics(),
		CORSOrigins:     cfg.Server.CORSOrigins,
		Logger:          logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.String("auth", cfg.Auth.Mode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, registry *schema.Registry, logger *zap.Logger) (repository.Store, func(), error) {
	if cfg.Store.Driver != "postgres" {
		return repository.NewMemoryStore(registry), func() {}, nil
	}

	dbCfg := cfg.Database.DB()
	if err := db.RunMigrations(dbCfg, db.Up, logger); err != nil {
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	conn, err := db.NewConnection(ctx, dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return repository.NewPostgresStore(conn.Pool, registry), conn.Close, nil
}

func newAuthenticator(cfg config.AuthConfig) (auth.Authenticator, error) {
	switch cfg.Mode {
	case "jwt":
		return auth.JWTAuthenticator{Secret: []byte(cfg.JWTSecret)}, nil
	case "header":
		return auth.HeaderAuthenticator{TenantHeader: cfg.TenantHeader, UserHeader: cfg.UserHeader}, nil
	}
	return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
}
