package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airwave/internal/api"
	"airwave/internal/config"
	"airwave/internal/database"
	"airwave/internal/domain"
	"airwave/internal/events"
	"airwave/internal/google"
	"airwave/internal/logging"
	"airwave/internal/metrics"
	"airwave/internal/models"
	"airwave/internal/reports"
	"airwave/internal/repository"
	"airwave/internal/service"
	"airwave/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	catalog, err := loadCatalog(cfg, &logger)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.SyncCatalog(ctx, catalog); err != nil {
		logger.Error().Err(err).Msg("sync catalog")
		return err
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	cache := buildAvailabilityCache(redisClient, &logger)
	eventBus := events.NewEventBus()

	exportWorker := startExportWorker(ctx, cfg, db, redisClient, &logger)

	bookingService := service.NewBookingService(db, cache, eventBus, exportWorker, &logger)
	catalogService := service.NewCatalogService(db, &logger)
	inventoryService := service.NewInventoryService(db, cache, eventBus, &logger)

	if err := catalogService.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("catalog refresh failed")
	}

	subscribeScheduleSnapshots(ctx, cfg, db, eventBus, &logger)

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.API, bookingService, catalogService, inventoryService, &logger)
	return serve(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func loadCatalog(cfg *config.Config, logger *zerolog.Logger) ([]models.CatalogEntry, error) {
	data, err := os.ReadFile(cfg.Catalog.Path)
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", cfg.Catalog.Path).Msg("read catalog")
		return nil, err
	}

	var catalogConfig struct {
		Entries []models.CatalogEntry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(data, &catalogConfig); err != nil {
		logger.Error().Err(err).Str("catalog_path", cfg.Catalog.Path).Msg("parse catalog")
		return nil, err
	}

	if err := config.ValidateCatalog(catalogConfig.Entries); err != nil {
		logger.Error().Err(err).Msg("invalid catalog")
		return nil, err
	}

	return catalogConfig.Entries, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// buildAvailabilityCache prefers redis with an in-memory failover; with
// no redis the in-memory cache runs alone.
func buildAvailabilityCache(redisClient *redis.Client, logger *zerolog.Logger) domain.AvailabilityCache {
	ttl := models.AvailabilityCacheTTL * time.Second
	memory := repository.NewMemoryAvailabilityCache(ttl)
	if redisClient == nil {
		return memory
	}

	primary := repository.NewRedisAvailabilityCache(redisClient, ttl)
	return repository.NewFailoverAvailabilityCache(primary, memory, logger)
}

func startExportWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.ExportWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.ScheduleSpreadsheetID == "" {
		logger.Info().Msg("google sheets not configured, export worker disabled")
		return nil
	}

	sheetsService, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.ScheduleSpreadsheetID, db)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Error().Err(err).Msg("google sheets connection test failed")
	}

	retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	exportWorker := worker.NewExportWorker(db, sheetsService, redisClient, retryPolicy, logger)
	go exportWorker.Start(ctx)

	logger.Info().Msg("google sheets export worker started")
	return exportWorker
}

// subscribeScheduleSnapshots keeps a local xlsx schedule snapshot fresh:
// any booking lifecycle event triggers a rebuild of the coming month.
func subscribeScheduleSnapshots(ctx context.Context, cfg *config.Config, db *database.DB, eventBus *events.EventBus, logger *zerolog.Logger) {
	reporter := reports.NewScheduleReporter(db, cfg.Exports.Path, logger)

	handler := func(event *events.Event) error {
		go func() {
			exportCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			start := time.Now().Truncate(24 * time.Hour)
			end := start.AddDate(0, 1, 0)
			if _, err := reporter.ExportSchedule(exportCtx, start, end); err != nil {
				logger.Error().Err(err).Str("event_type", event.Type).Msg("schedule snapshot failed")
			}
		}()
		return nil
	}

	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingActivated,
		events.EventBookingCompleted,
		events.EventBookingCancelled,
	} {
		eventBus.Subscribe(eventType, handler)
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
