package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/your-org/fdalert/internal/alerting"
	"github.com/your-org/fdalert/internal/cache"
	"github.com/your-org/fdalert/internal/config"
	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/internal/notify"
	"github.com/your-org/fdalert/internal/observability"
	"github.com/your-org/fdalert/internal/queue"
	"github.com/your-org/fdalert/internal/source"
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

	slog.Info("starting FD Alert Worker",
		"workers", cfg.Pipeline.WorkerCount,
		"cpu_cores", runtime.NumCPU(),
	)

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
	if err := minioStore.EnsureBucket(ctx); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Cooldown state: Redis when enabled, otherwise process memory.
	var provider cache.Provider = cache.NewMemoryProvider()
	if cfg.Redis.Enabled {
		rp, err := cache.NewRedisProvider(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			slog.Warn("redis unavailable, using in-memory cooldown", "error", err)
		} else {
			provider = rp
		}
	}
	defer provider.Close()

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(ctx); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// Notification channels
	telegram, err := notify.NewTelegramClient(notify.TelegramConfig{
		APIURL:  cfg.Telegram.APIURL,
		Timeout: cfg.Telegram.Timeout,
		Logger:  slog.Default(),
	})
	if err != nil {
		slog.Error("init telegram client", "error", err)
		os.Exit(1)
	}

	var player notify.Player
	if cfg.Audio.Command != "" {
		player = &notify.CommandPlayer{Command: cfg.Audio.Command, SoundFile: cfg.Audio.SoundFile}
	}
	audio := notify.NewAudio(player, 0)

	channels := []notify.Channel{
		notify.NewVisual(producer),
		audio,
		notify.NewBrowserPush(producer),
		notify.NewChatRelay(telegram),
	}

	pipeline := alerting.NewPipeline(db, minioStore, channels,
		alerting.NewCooldown(provider, cfg.Pipeline.Cooldown),
		alerting.Options{
			ChannelTimeout:  cfg.Pipeline.ChannelTimeout,
			StoreTimeout:    cfg.Pipeline.StoreTimeout,
			StoreEmbeddings: cfg.Pipeline.StoreEmbeddings,
		})
	service := alerting.NewService(db, pipeline)

	// Detection source: one lane per camera
	manager := source.NewManager(ctx, source.Options{
		LaneBuffer:         cfg.Pipeline.LaneBuffer,
		AcceptUnregistered: *cfg.Pipeline.AcceptUnregistered,
	})
	manager.OnDetection(func(ctx context.Context, msg *models.DetectionMessage) {
		service.Handle(ctx, msg)
	})

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	sub, err := consumer.SubscribeControl(func(cmd models.CameraCommand) {
		if err := manager.HandleCommand(cmd); err != nil {
			slog.Error("handle camera command", "action", cmd.Action, "camera_id", cmd.CameraID, "error", err)
		}
	})
	if err != nil {
		slog.Error("subscribe camera control", "error", err)
		os.Exit(1)
	}

	// Consumption stops before the lanes so nothing is accepted after they close.
	consumeCtx, stopConsuming := context.WithCancel(ctx)
	defer stopConsuming()
	err = consumer.ConsumeDetections(consumeCtx, "alert-workers", func(ctx context.Context, msg *models.DetectionMessage) error {
		err := manager.Deliver(ctx, msg)
		if errors.Is(err, source.ErrCameraInactive) || errors.Is(err, source.ErrNoCamera) {
			slog.Debug("detection dropped", "camera_id", msg.Result.CameraID, "reason", err)
			return nil // Don't retry for closed cameras
		}
		return err
	}, cfg.Pipeline.WorkerCount)
	if err != nil {
		slog.Error("start detection consumer", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	metricsAddr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("worker metrics listening", "addr", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Periodically report queue depth
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	_ = sub.Unsubscribe()
	stopConsuming()
	consumer.Wait()
	manager.StopAll()
	audio.Wait()
	cancel()
	slog.Info("worker stopped")
}
