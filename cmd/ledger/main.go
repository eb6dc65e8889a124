package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/donations-ledger-go/internal/config"
	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/handler"
	"github.com/boddenberg/donations-ledger-go/internal/infra/cache"
	"github.com/boddenberg/donations-ledger-go/internal/infra/memory"
	"github.com/boddenberg/donations-ledger-go/internal/infra/observability"
	"github.com/boddenberg/donations-ledger-go/internal/infra/postgres"
	redisstore "github.com/boddenberg/donations-ledger-go/internal/infra/redis"
	"github.com/boddenberg/donations-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/donations-ledger-go/internal/infra/s3archive"
	"github.com/boddenberg/donations-ledger-go/internal/port"
	"github.com/boddenberg/donations-ledger-go/internal/service"

	"go.uber.org/zap"
)

const serviceName = "donations-ledger"

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, serviceName)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_postgres", cfg.DatabaseURL != ""),
		zap.Bool("use_redis", cfg.RedisURL != ""),
		zap.Duration("report_cache_ttl", cfg.ReportCacheTTL),
		zap.Int("max_concurrent_exports", cfg.MaxConcurrentExports),
		zap.String("export_archive_bucket", cfg.ExportArchiveBucket),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, serviceName)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), time.Minute)
	defer cancelBoot()

	// --- Record store ---
	var store port.DonationStore
	if cfg.DatabaseURL != "" {
		db, err := openPostgres(bootCtx, cfg, logger)
		if err != nil {
			logger.Fatal("failed to open postgres", zap.Error(err))
		}
		defer db.Close()
		store = postgres.NewDonationStore(db)
		logger.Info("using postgres record store")
	} else {
		store = memory.NewDonationStore()
		logger.Warn("DATABASE_URL not set, records are kept in memory")
	}

	// --- Settings ---
	schema, err := config.LoadSettingsSchema(cfg.SettingsDefaultsFile)
	if err != nil {
		logger.Fatal("failed to load settings defaults", zap.Error(err))
	}

	var settingsStore port.SettingsStore
	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(bootCtx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		settingsStore = redisstore.NewSettingsStore(rdb)
		logger.Info("using redis settings store")
	} else {
		settingsStore = memory.NewSettingsStore(nil)
		logger.Warn("REDIS_URL not set, settings are kept in memory")
	}

	// --- Report cache ---
	var reportCache port.Cache[*domain.ReportStats]
	if cfg.ReportCacheTTL > 0 {
		c := cache.New[*domain.ReportStats](cfg.ReportCacheTTL)
		defer c.Close()
		reportCache = c
	}

	// --- Export archive ---
	var archiver port.ExportArchiver
	if cfg.ExportArchiveBucket != "" {
		a, err := s3archive.New(bootCtx, cfg.ExportArchiveBucket, cfg.AWSRegion)
		if err != nil {
			logger.Fatal("failed to configure export archive", zap.Error(err))
		}
		archiver = a
		logger.Info("export archive enabled", zap.String("bucket", cfg.ExportArchiveBucket))
	}

	// --- Services ---
	settingsSvc := service.NewSettingsService(settingsStore, schema, logger)
	svc := handler.Services{
		Donations: service.NewDonationService(store, reportCache, metrics, logger),
		Donors:    service.NewDonorService(store, settingsSvc, logger),
		Reports:   service.NewReportService(store, reportCache, metrics, logger),
		Exports:   service.NewExportService(store, settingsSvc, archiver, cfg.MaxConcurrentExports, metrics, logger),
		Settings:  settingsSvc,
		Store:     store,
	}
	if cfg.AdminPasswordHash != "" {
		svc.Auth = service.NewAuthService(cfg.AdminUsername, cfg.AdminPasswordHash, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
		logger.Info("admin auth enabled", zap.String("username", cfg.AdminUsername))
	} else {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin routes unavailable")
	}

	// --- Router ---
	router := handler.NewRouter(svc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openPostgres connects, waits for the database to accept connections and
// applies the schema.
func openPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	db, err := postgres.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, err
	}

	retryCfg := resilience.Config{
		MaxRetries:     cfg.DBConnectRetries,
		InitialBackoff: cfg.DBConnectBackoff,
	}
	err = resilience.RetryWithBackoff(ctx, retryCfg, func() error {
		if err := db.PingContext(ctx); err != nil {
			logger.Warn("postgres not ready", zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
