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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"openhours/internal/api"
	"openhours/internal/config"
	"openhours/internal/database"
	"openhours/internal/events"
	"openhours/internal/metrics"
	"openhours/internal/places"
	"openhours/internal/refresh"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("HOURS_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if os.Getenv("HOURS_DEBUG") != "" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var (
		source refresh.Source
		rdb    *redis.Client
	)
	if cfg.Source.File != "" {
		source = places.FileSource{Path: cfg.Source.File}
	} else {
		client := places.NewClient(cfg.Source.URL, cfg.Source.APIKey, cfg.Source.FieldMask, cfg.SourceTimeout())
		client.UseRateLimit(cfg.RateLimit())
		if cfg.Redis.Address != "" && cfg.Redis.CacheTTLSeconds > 0 {
			rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			defer rdb.Close()
			client.UseRedisCache(rdb, cfg.CacheTTL())
		}
		source = client
	}

	bus := events.NewEventBus()
	bus.Subscribe(events.TypeStatusChanged, refresh.RecordStatusChanges(db, 5*time.Second, &logger))

	svc := refresh.NewService(source, db, bus, refresh.Options{
		Name:             cfg.Source.Name,
		DefaultOffset:    cfg.UTCOffset(),
		KeepHistory:      cfg.Database.KeepHistory,
		RefreshInterval:  cfg.RefreshInterval(),
		EvaluateInterval: cfg.EvaluateInterval(),
	}, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Source.File != "" {
		// Edits to the local document apply without waiting for the refresh
		// tick. The watcher only reports changes; Start does the first load.
		err := config.WatchFile(ctx, cfg.Source.File, 5*time.Second, func(data []byte) {
			if err := svc.Load(ctx, data); err != nil {
				logger.Error().Err(err).Str("file", cfg.Source.File).Msg("reload document failed")
			}
		})
		if err != nil {
			logger.Error().Err(err).Msg("watch document file failed")
		}
	}

	if err := svc.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("no schedule available yet, serving unavailable until the next refresh")
	}

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, svc, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Backup.Dir, cfg.BackupInterval(), cfg.Backup.RetentionDays, &logger)
		go backups.Start(ctx)
	}

	server := api.NewHTTPServer(cfg.HTTP.Port, svc, db, cfg.HTTP.APIKey, &logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http api error")
			stop()
		}
	}()

	logger.Info().Str("source", svc.Name()).Msg("opening hours service started")
	svc.Run(ctx)

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("http api shutdown error")
	}
	logger.Info().Msg("opening hours service stopped")
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, svc *refresh.Service, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if !svc.Ready() {
			http.Error(w, "schedule not loaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serve(ctx, port, mux, "health server", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve(ctx, port, mux, "metrics server", logger)
}

func serve(ctx context.Context, port int, handler http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg(name + " error")
	}
}
