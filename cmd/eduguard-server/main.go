package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/edukit/eduguard/pkg/api"
	"github.com/edukit/eduguard/pkg/audit"
	"github.com/edukit/eduguard/pkg/auth"
	"github.com/edukit/eduguard/pkg/config"
	"github.com/edukit/eduguard/pkg/guard"
	"github.com/edukit/eduguard/pkg/httputil"
	"github.com/edukit/eduguard/pkg/middleware"
	"github.com/edukit/eduguard/pkg/observability"
	"github.com/edukit/eduguard/pkg/rbac"
)

// version is stamped at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configFile := flag.String("config", "", "Path to a YAML config file (overrides EDUGUARD_CONFIG_FILE)")
	flag.Parse()

	boot := logrus.New()
	boot.SetFormatter(&logrus.JSONFormatter{})

	if *configFile != "" {
		os.Setenv("EDUGUARD_CONFIG_FILE", *configFile)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		boot.WithError(err).Fatal("Failed to load configuration")
	}

	logger := observability.NewLogger(cfg.Observability.ParsedLogLevel(), os.Stdout)

	// Database
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		boot.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		boot.WithError(err).Fatal("Database is unreachable")
	}
	cancel()

	dialect := rbac.DialectPostgres
	auditDialect := audit.DialectPostgres
	if cfg.Database.Driver == "sqlite3" {
		dialect = rbac.DialectSQLite
		auditDialect = audit.DialectSQLite
	}

	// Redis-backed permission cache is optional
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	// RBAC storage and resolution
	store := rbac.NewStore(db, dialect)
	if err := store.EnsureSchema(context.Background()); err != nil {
		boot.WithError(err).Fatal("Failed to ensure RBAC schema")
	}
	cache := rbac.NewCache(1024, cfg.Redis.CacheTTL, redisClient)
	registry := rbac.NewRegistry(store, cache)

	// Security event trail: database sink for queries, NDJSON file sink
	// for offline shipping, fanned out and buffered so request handling
	// never waits on a slow sink.
	trail, err := audit.NewDBLogger(db, auditDialect)
	if err != nil {
		boot.WithError(err).Fatal("Failed to initialize security trail")
	}
	fileSink, err := audit.NewFileLogger(audit.FileLoggerConfig{
		BasePath: cfg.Audit.FileDir,
		Rotate:   true,
		MaxSize:  cfg.Audit.FileMaxSize,
		MaxFiles: cfg.Audit.FileMaxCount,
	})
	if err != nil {
		boot.WithError(err).Fatal("Failed to initialize security trail file sink")
	}
	events := audit.NewBufferedLogger(
		audit.NewMultiLogger(trail, fileSink),
		cfg.Audit.BufferWorkers,
		cfg.Audit.WriteTimeout,
	)

	retention := audit.NewRetentionJob(trail, audit.RetentionPolicy{
		RetentionDays: cfg.Audit.RetentionDays,
		Schedule:      cfg.Audit.SweepSchedule,
		ArchivePath:   cfg.Audit.ArchiveDir,
	}, logger)
	if err := retention.Start(); err != nil {
		boot.WithError(err).Fatal("Failed to start retention job")
	}

	// Token verification
	var verifier auth.TokenVerifier
	if cfg.UseOIDC() {
		oidcVerifier, err := auth.NewOIDCVerifier(context.Background(), auth.OIDCConfig{
			IssuerURL:    cfg.Auth.OIDCIssuer,
			ClientID:     cfg.Auth.OIDCClientID,
			ClientSecret: cfg.Auth.OIDCClientSecret,
			RedirectURL:  cfg.Auth.OIDCRedirectURL,
		})
		if err != nil {
			boot.WithError(err).Fatal("Failed to initialize OIDC verifier")
		}
		verifier = oidcVerifier
	} else {
		verifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(promRegistry)
		cache.SetMetrics(metrics)

		stopPoolStats := metrics.StartPoolStatsCollector(db, redisClient, 15*time.Second)
		defer stopPoolStats()
	}

	// Background sink failures surface on the buffered logger's error
	// channel, not to the request that emitted the event.
	go func() {
		for err := range events.Errors() {
			if metrics != nil {
				metrics.SecurityEventSinkErrors.WithLabelValues("buffered").Inc()
			}
			logger.WithError(err).Warn("security event write failed")
		}
	}()

	authenticator := auth.NewAuthenticator(verifier, logger)
	if metrics != nil {
		authenticator.SetMetrics(metrics)
	}

	// Guard and API surface
	authGuard := guard.New(guard.Config{
		Authenticator: authenticator,
		Registry:      registry,
		Events:        events,
		Logger:        logger,
		Metrics:       metrics,
	})
	server := api.NewServer(api.Deps{
		Guard:       authGuard,
		Registry:    registry,
		Store:       store,
		Trail:       trail,
		Events:      events,
		Logger:      logger,
		Environment: cfg.Observability.Environment,
	})

	// Operational endpoints share the API port
	opsMux := http.NewServeMux()
	observability.RegisterHealthRoutes(opsMux, observability.NewHealthChecker(db, redisClient, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(opsMux, promRegistry)
		server.Router().Path("/metrics").Handler(opsMux)
	}
	server.Router().PathPrefix("/health").Handler(opsMux)

	// Shared counters when Redis is available, per-process otherwise.
	// The throttle runs ahead of the guard, so it keys off the bearer
	// token rather than the not-yet-populated request context.
	var throttle func(http.Handler) http.Handler
	if redisClient != nil {
		throttle = middleware.NewDistributedRateLimiter(redisClient, middleware.PerUserRateLimitConfig(), logger).PerUser
	} else {
		throttle = middleware.NewRateLimiter(middleware.PerUserRateLimitConfig()).PerUser
	}

	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
		httputil.CORSMiddleware([]string{cfg.Server.CORSOrigin}),
		throttle,
	}
	if metrics != nil {
		middlewares = append(middlewares, observability.HTTPMetricsMiddleware(metrics))
	}
	handler := httputil.Chain(middlewares...)(server)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		retention.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return events.Close()
	})

	var group errgroup.Group
	group.Go(func() error {
		logger.WithFields(map[string]interface{}{
			"addr":        httpServer.Addr,
			"environment": cfg.Observability.Environment,
		}).Info("starting eduguard server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(shutdown.WaitForShutdown)

	if err := group.Wait(); err != nil {
		boot.WithError(err).Fatal("Server exited with error")
	}
}
