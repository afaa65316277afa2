package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/wms-console/internal/app"
	"github.com/odyssey-erp/wms-console/internal/audit"
	audithttp "github.com/odyssey-erp/wms-console/internal/audit/http"
	"github.com/odyssey-erp/wms-console/internal/auth"
	"github.com/odyssey-erp/wms-console/internal/inventory"
	"github.com/odyssey-erp/wms-console/internal/observability"
	"github.com/odyssey-erp/wms-console/internal/procurement"
	"github.com/odyssey-erp/wms-console/internal/rbac"
	"github.com/odyssey-erp/wms-console/internal/sales"
	"github.com/odyssey-erp/wms-console/internal/shared"
	"github.com/odyssey-erp/wms-console/internal/view"
	"github.com/odyssey-erp/wms-console/internal/wmsapi"
	"github.com/odyssey-erp/wms-console/jobs"
)

const sessionCookie = "wms_session"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.TestMode {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, sessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	api := wmsapi.New(cfg.WMSAPIURL,
		wmsapi.WithObserver(metrics),
		wmsapi.WithHTTPClient(&http.Client{Timeout: cfg.WMSAPITimeout}),
	)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	sink, reader, cleanup, err := auditBackend(ctx, cfg, redisOpts, logger)
	if err != nil {
		logger.Error("audit backend", slog.String("mode", cfg.AuditMode), slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()
	trail := audit.NewTrail(cfg.AuditMode, sink, logger, metrics)
	logger.Info("audit trail", slog.String("mode", trail.Mode()))

	guard := rbac.Middleware{Templates: templates, CSRF: csrfManager, Logger: logger}

	authService := auth.NewService(api, sessionManager, logger)
	authHandler := auth.NewHandler(logger, authService, templates, csrfManager, trail)
	inventoryHandler := inventory.NewHandler(logger, api, templates, csrfManager, guard, trail)
	procurementHandler := procurement.NewHandler(logger, api, templates, csrfManager, guard, trail)
	salesHandler := sales.NewHandler(logger, api, templates, csrfManager, guard, trail)
	activityHandler := audithttp.NewHandler(logger, audit.NewService(reader), templates, csrfManager, guard)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		InventoryHandler:   inventoryHandler,
		ProcurementHandler: procurementHandler,
		SalesHandler:       salesHandler,
		ActivityHandler:    activityHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
		AccessLog:          !cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.WMSAPIURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// auditBackend builds the sink the trail writes to and the reader behind /activity.
func auditBackend(ctx context.Context, cfg *app.Config, redisOpts asynq.RedisClientOpt, logger *slog.Logger) (audit.Sink, audit.Reader, func(), error) {
	cleanup := func() {}
	if cfg.AuditMode == audit.ModeOff {
		return nil, nil, cleanup, nil
	}

	if err := audit.Migrate(ctx, cfg.AuditPGDSN); err != nil {
		return nil, nil, cleanup, err
	}
	pool, err := pgxpool.New(ctx, cfg.AuditPGDSN)
	if err != nil {
		return nil, nil, cleanup, err
	}
	store := audit.NewPGStore(pool)
	cleanup = pool.Close

	if cfg.AuditMode == audit.ModeDirect {
		return store, store, cleanup, nil
	}

	client := jobs.NewClient(redisOpts)
	cleanup = func() {
		if err := client.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
		pool.Close()
	}
	return jobs.NewAuditEnqueuer(client), store, cleanup, nil
}
