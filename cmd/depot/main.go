package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/depot-erp/depot/internal/access"
	"github.com/depot-erp/depot/internal/app"
	"github.com/depot-erp/depot/internal/audit"
	audithttp "github.com/depot-erp/depot/internal/audit/http"
	"github.com/depot-erp/depot/internal/auth"
	"github.com/depot-erp/depot/internal/customers"
	"github.com/depot-erp/depot/internal/observability"
	"github.com/depot-erp/depot/internal/platform/cache"
	"github.com/depot-erp/depot/internal/platform/db"
	"github.com/depot-erp/depot/internal/roles"
	"github.com/depot-erp/depot/internal/shared"
	"github.com/depot-erp/depot/internal/taskboard"
	"github.com/depot-erp/depot/internal/users"
	"github.com/depot-erp/depot/internal/warehouses"
	"github.com/depot-erp/depot/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	accessService := access.NewService(access.NewRepository(dbpool), access.Hooks{
		Cache:       access.NewSetCache(redisClient, cfg.PermissionCacheTTL),
		Invalidator: jobClient,
		Audit:       auditLogger,
		LoadTimeout: cfg.PermissionLoadTimeout,
	}, logger)
	guard := access.Guard{Resolver: accessService, Logger: logger, Recorder: metrics}

	if catalog, err := accessService.Catalog(ctx); err != nil {
		logger.Warn("load permission catalog", slog.Any("error", err))
	} else if missing := access.DefaultRegistry().Validate(catalog); len(missing) > 0 {
		logger.Warn("permission catalog is missing registry entries", slog.String("missing", strings.Join(missing, ", ")))
	}

	authHandler := auth.NewHandler(logger, auth.NewService(auth.NewRepository(dbpool)), sessionManager, csrfManager, guard, accessService, auditLogger)
	accessHandler := access.NewHandler(logger, accessService, guard)
	auditHandler := audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), guard)
	customersHandler := customers.NewHandler(logger, customers.NewService(customers.NewRepository(dbpool)), guard)
	warehousesHandler := warehouses.NewHandler(logger, warehouses.NewService(warehouses.NewRepository(dbpool)), guard)
	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(dbpool)), guard)
	rolesHandler := roles.NewHandler(logger, roles.NewService(roles.NewRepository(dbpool)), guard)
	taskBoardHandler := taskboard.NewHandler(logger, taskboard.NewService(taskboard.NewRepository(dbpool), logger), guard)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		Guard:             guard,
		AuthHandler:       authHandler,
		AccessHandler:     accessHandler,
		AuditHandler:      auditHandler,
		CustomersHandler:  customersHandler,
		WarehousesHandler: warehousesHandler,
		UsersHandler:      usersHandler,
		RolesHandler:      rolesHandler,
		TaskBoardHandler:  taskBoardHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           app.NewMetricsRouter(metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("starting metrics server", slog.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown", slog.Any("error", err))
	}
}
