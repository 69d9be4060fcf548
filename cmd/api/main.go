package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fonteyn/internal/api"
	"fonteyn/internal/config"
	"fonteyn/internal/database"
	"fonteyn/internal/domain"
	"fonteyn/internal/events"
	"fonteyn/internal/google"
	"fonteyn/internal/logging"
	"fonteyn/internal/metrics"
	"fonteyn/internal/models"
	"fonteyn/internal/notify"
	"fonteyn/internal/repository"
	"fonteyn/internal/service"
	"fonteyn/internal/worker"

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
	cfg, accommodations, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, accommodations, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, sessionRepo := initSessionStore(ctx, cfg, &logger)
	defer func() {
		if redisClient != nil {
			_ = repository.Close(redisClient)
		}
	}()

	eventBus := events.NewEventBus()

	sheetsWorker := initSheetsWorker(ctx, cfg, db, redisClient, &logger)

	if cfg.Telegram.Enabled {
		notifier, err := notify.NewNotifier(cfg.Telegram, &logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Telegram notifier unavailable")
		} else {
			notifier.SubscribeTo(eventBus)
		}
	}

	// Бизнес-сервисы
	sessionTTL := time.Duration(cfg.Session.TTLHours) * time.Hour
	authService := service.NewAuthService(db, sessionRepo, eventBus, sessionTTL, cfg.Auth.BcryptCost, &logger)
	bookingService := service.NewBookingService(db, eventBus, toSyncWorker(sheetsWorker), &logger)
	catalogService := service.NewCatalogService(db, &logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(cfg.Monitoring.PrometheusPort, &logger)
	}

	httpServer := api.NewHTTPServer(cfg, authService, bookingService, catalogService, &logger)
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("HTTP server error")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown error")
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, []models.Accommodation, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	catalogPath := os.Getenv("ACCOMMODATIONS_PATH")
	if catalogPath == "" {
		catalogPath = "configs/accommodations.yaml"
	}
	catalogData, err := os.ReadFile(catalogPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Ошибка чтения %s", catalogPath)
		return nil, nil, zerolog.Logger{}, closer, err
	}

	var catalog struct {
		Accommodations []models.Accommodation `yaml:"accommodations"`
	}
	if err := yaml.Unmarshal(catalogData, &catalog); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга accommodations.yaml")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	if err := config.ValidateAccommodations(catalog.Accommodations); err != nil {
		logger.Error().Err(err).Msg("Accommodations validation failed")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	return cfg, catalog.Accommodations, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

func initDatabase(cfg *config.Config, accommodations []models.Accommodation, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return nil, err
	}

	if err := db.SyncAccommodations(context.Background(), accommodations); err != nil {
		logger.Error().Err(err).Msg("Ошибка синхронизации каталога")
	}
	return db, nil
}

func initSessionStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *repository.FailoverSessionRepository) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable, sessions fall back to memory")
		}
	}

	primary := repository.NewRedisSessionRepository(redisClient)
	fallback := repository.NewMemorySessionRepository()
	return redisClient, repository.NewFailoverSessionRepository(primary, fallback, logger)
}

func initSheetsWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) *worker.SheetsWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingsSpreadsheetID == "" {
		logger.Info().Msg("Google Sheets not configured, ledger sync disabled")
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets service")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("Google Sheets connection test failed")
		return nil
	}

	retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	sheetsWorker := worker.NewSheetsWorker(db, sheetsService, redisClient, retryPolicy, logger)
	go sheetsWorker.Start(ctx)

	logger.Info().Msg("Google Sheets ledger sync enabled")
	return sheetsWorker
}

// toSyncWorker avoids handing services a typed-nil interface value.
func toSyncWorker(w *worker.SheetsWorker) domain.SyncWorker {
	if w == nil {
		return nil
	}
	return w
}

func startMetricsServer(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Int("port", port).Msg("Metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("Metrics server error")
	}
}
