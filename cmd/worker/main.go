package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/ahwatch/auction-data/internal/config"
	"github.com/ahwatch/auction-data/internal/database"
	"github.com/ahwatch/auction-data/internal/executor"
	"github.com/ahwatch/auction-data/internal/feed"
	"github.com/ahwatch/auction-data/internal/ingest"
	"github.com/ahwatch/auction-data/internal/notify"
	"github.com/ahwatch/auction-data/internal/realm"
	"github.com/ahwatch/auction-data/internal/redisq"
	"github.com/ahwatch/auction-data/internal/store"
	"github.com/ahwatch/auction-data/internal/taskqueue"
	"github.com/ahwatch/auction-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/worker.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting worker",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"feed_url", cfg.Feed.BaseURL,
		"realms", len(cfg.Realms),
	)

	realms, err := realm.NewRegistry(cfg.Realms)
	if err != nil {
		logger.Error("invalid realm configuration", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	logger.Info("redis connected", "host", cfg.Redis.Host)

	// Feed client
	feedClient := feed.NewClient(
		cfg.Feed.BaseURL,
		cfg.Feed.APIKey,
		feed.WithLogger(logger),
		feed.WithLocale(cfg.Feed.Locale),
		feed.WithTimeout(cfg.Feed.Timeout),
		feed.WithRetries(cfg.Feed.MaxRetries, cfg.Feed.RetryBackoff),
	)
	guard := feed.NewGuard(rdb)

	// Persistence
	writer := store.NewBatchWriter(store.WriterConfig{
		MaxRecordSize:    cfg.Writer.MaxRecordSize,
		BatchRecords:     cfg.Writer.BatchRecords,
		WriteConcurrency: cfg.Writer.WriteConcurrency,
	}, database.NewPGStore(pool), logger)
	persister := store.New(database.NewPGStore(pool), database.NewPGBlobs(pool), writer, logger)

	// Task queue
	queue := redisq.New(redisq.Config{
		Name:         cfg.Queue.Name,
		LockDuration: cfg.Queue.LockDuration,
		PollInterval: cfg.Queue.PollInterval,
	}, rdb)

	// Notifications
	notifier := notify.New(notify.Config{
		WebhookURL: cfg.Notify.SlackWebhookURL,
		Channel:    cfg.Notify.Channel,
		BufferSize: cfg.Notify.BufferSize,
	}, logger)
	notifier.Start(ctx)
	defer notifier.Stop()

	// Message routing
	router := ingest.NewRouter(realms, feedClient, guard, persister, queue, notifier, logger)

	exec, err := executor.New(cfg.Worker.Concurrency)
	if err != nil {
		logger.Error("invalid worker concurrency", "error", err)
		os.Exit(1)
	}

	worker := taskqueue.NewWorker(taskqueue.Config{
		ReceiveTimeout:  cfg.Worker.ReceiveTimeout,
		PoisonThreshold: cfg.Worker.PoisonThreshold,
		BackoffBase:     cfg.Worker.BackoffBase,
		BackoffMax:      cfg.Worker.BackoffMax,
	}, queue, exec, router, logger)

	logger.Info("worker running",
		"instance_id", cfg.Instance.ID,
		"queue", cfg.Queue.Name,
		"concurrency", cfg.Worker.Concurrency,
	)

	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}

	stats := worker.Stats()
	logger.Info("worker stopped",
		"received", stats.Received,
		"acked", stats.Acked,
		"retried", stats.Retried,
		"poisoned", stats.Poisoned,
	)
}
