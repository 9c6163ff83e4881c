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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"healthops/internal/api"
	"healthops/internal/config"
	"healthops/internal/events"
	"healthops/internal/export"
	"healthops/internal/google"
	"healthops/internal/lifecycle"
	"healthops/internal/livecollection"
	"healthops/internal/logging"
	"healthops/internal/metrics"
	"healthops/internal/models"
	"healthops/internal/store"
	"healthops/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, base, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(base, "console-main")

	loc, err := cfg.Console.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, redisClient, err := initStore(ctx, cfg, base)
	if err != nil {
		return err
	}
	defer st.Close()

	bus := events.NewEventBus()
	svc := lifecycle.NewService(st, bus, base,
		lifecycle.WithCodePrefixes(cfg.CampCodePrefix, cfg.BookingIDPrefix),
	)

	camps := livecollection.Camps(st, base)
	bookings := livecollection.TestBookings(st, base)
	if err := subscribe(ctx, camps, bookings, logger); err != nil {
		return err
	}
	defer camps.Unsubscribe()
	defer bookings.Unsubscribe()

	formatter := export.NewFormatter(
		cfg.Exports.CurrencySymbol,
		cfg.Exports.DateFormat,
		cfg.Exports.TimestampFormat,
		loc,
		cfg.Console.PartnerAdjustments,
	)
	sinks := initSinks(ctx, cfg, base)
	now := func() time.Time { return time.Now().In(loc) }

	startMetrics(ctx, cfg, logger)
	startSync(ctx, cfg, bus, redisClient, export.NewViewExporter(camps, bookings, formatter, sinks, loc, now), base)

	httpServer := api.NewHTTPServer(&cfg.API, api.Deps{
		Lifecycle: svc,
		Camps:     camps,
		Bookings:  bookings,
		Formatter: formatter,
		Sinks:     sinks,
		Console:   cfg.Console,
		Location:  loc,
		Now:       now,
	}, base)

	return serve(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	loc, err := cfg.Console.Location()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("console timezone: %w", err)
	}
	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App, logging.WithLocation(loc))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, baseLogger, closer, nil
}

// initStore opens the configured backend. The redis client is returned so
// the sync worker can share it; it is nil for other backends.
func initStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (store.Store, *redis.Client, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		st, err := store.NewSQLiteStore(cfg.Store.SQLite.Path, logger)
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Store.SQLite.Path).Msg("init sqlite store")
			return nil, nil, err
		}
		logger.Info().Str("db_path", cfg.Store.SQLite.Path).Msg("sqlite store opened")
		if cfg.Store.SQLite.Backup.Enabled {
			go store.NewBackupService(st, cfg.Store.SQLite.Backup, logging.Component(logger, "backup")).Start(ctx)
		}
		return st, nil, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Address,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			PoolSize: cfg.Store.Redis.PoolSize,
		})
		st := store.NewRedisStore(client, cfg.Store.Redis.Prefix, logger)
		if err := st.Ping(ctx); err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		logger.Info().Str("addr", cfg.Store.Redis.Address).Msg("redis connected")
		return st, client, nil

	default:
		logger.Warn().Msg("using in-memory store, records are lost on exit")
		return store.NewMemoryStore(), nil, nil
	}
}

func subscribe(ctx context.Context, camps *livecollection.Collection[models.Camp], bookings *livecollection.Collection[models.TestBooking], logger *zerolog.Logger) error {
	onError := func(name string) livecollection.ErrorFunc {
		return func(err error) {
			logger.Error().Err(err).Str("collection", name).Msg("live collection error")
		}
	}
	if _, err := camps.Subscribe(ctx, nil, onError(camps.Name())); err != nil {
		return err
	}
	if _, err := bookings.Subscribe(ctx, nil, onError(bookings.Name())); err != nil {
		camps.Unsubscribe()
		return err
	}
	return nil
}

func initSinks(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) map[string]export.Sink {
	sinks := map[string]export.Sink{
		export.SinkXLSX: export.NewXLSXSink(cfg.Exports.Path, logger),
	}
	if !cfg.Exports.Sheets.Enabled {
		return sinks
	}

	sheetsSink, err := google.NewSheetsSink(ctx, cfg.Exports.Sheets.CredentialsFile, cfg.Exports.Sheets.SpreadsheetID, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return sinks
	}
	if err := sheetsSink.TestConnection(ctx); err != nil {
		email, _ := google.ServiceAccountEmail(cfg.Exports.Sheets.CredentialsFile)
		logger.Warn().Err(err).Str("service_account", email).Msg("google sheets not reachable, share the spreadsheet with the service account")
		return sinks
	}

	logger.Info().Msg("google sheets connected")
	sinks[export.SinkSheets] = sheetsSink
	return sinks
}

func startSync(ctx context.Context, cfg *config.Config, bus *events.EventBus, redisClient *redis.Client, exporter worker.Exporter, logger *zerolog.Logger) {
	if !cfg.Exports.Sync.Enabled {
		return
	}
	w := worker.NewSyncWorker(exporter, redisClient, cfg.Exports.Sync.QueueKey, cfg.Exports.Sync.Sink, worker.RetryPolicy{
		MaxRetries:   cfg.Exports.Sync.MaxRetries,
		InitialDelay: cfg.Exports.Sync.InitialDelay,
		MaxDelay:     cfg.Exports.Sync.MaxDelay,
	}, logger)
	bus.Subscribe(events.AllEvents, w.EventHandler(ctx))
	go w.Start(ctx)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, running sync and metrics only")
	} else {
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
		logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("console started")
	}

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("console stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
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
