package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/your-org/fdalert/internal/alerting"
	"github.com/your-org/fdalert/internal/api"
	"github.com/your-org/fdalert/internal/api/handlers"
	"github.com/your-org/fdalert/internal/api/ws"
	"github.com/your-org/fdalert/internal/cache"
	"github.com/your-org/fdalert/internal/config"
	"github.com/your-org/fdalert/internal/observability"
	"github.com/your-org/fdalert/internal/queue"
	"github.com/your-org/fdalert/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting FD Alert API service", "port", cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Postgres
	db, err := storage.NewPostgresStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(ctx); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	checks := []handlers.Check{
		{Name: "postgres", Ping: db.Ping},
		{Name: "minio", Ping: minioStore.Ping},
		{Name: "nats", Ping: func(context.Context) error { return producer.Ping() }},
	}

	// Redis only backs the worker's cooldown; the API reports on it.
	if cfg.Redis.Enabled {
		rp, err := cache.NewRedisProvider(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			slog.Warn("connect to redis", "error", err)
			checks = append(checks, handlers.Check{Name: "redis", Ping: func(context.Context) error { return err }})
		} else {
			defer rp.Close()
			checks = append(checks, handlers.Check{Name: "redis", Ping: rp.Ping})
		}
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run(ctx)

	// Forward live alert events from the worker to WebSocket clients
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create alert consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	if err := consumer.ConsumeAlerts(ctx, "api-alerts", hub.Forward); err != nil {
		slog.Warn("start alert consumer", "error", err)
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:     cfg.Server.APIKey,
		Ledger:     alerting.NewLedger(db),
		Events:     db,
		Configs:    db,
		Control:    producer,
		Status:     producer,
		Detections: producer,
		Checks:     checks,
		Hub:        hub,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
