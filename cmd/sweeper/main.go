// Command sweeper enqueues a sweep message, which fans out one process
// message per configured realm. Run it from cron or a scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahwatch/auction-data/internal/config"
	"github.com/ahwatch/auction-data/internal/ingest"
	"github.com/ahwatch/auction-data/internal/realm"
	"github.com/ahwatch/auction-data/internal/redisq"
	"github.com/ahwatch/auction-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/worker.local.yaml", "path to config file")
	realmKey := flag.String("realm", "", "enqueue a single realm (e.g. eu-medivh) instead of a full sweep")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting sweeper", "version", version.Version, "config", *configPath)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

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

	queue := redisq.New(redisq.Config{
		Name:         cfg.Queue.Name,
		LockDuration: cfg.Queue.LockDuration,
		PollInterval: cfg.Queue.PollInterval,
	}, rdb)

	if *realmKey != "" {
		realms, err := realm.NewRegistry(cfg.Realms)
		if err != nil {
			logger.Error("invalid realm configuration", "error", err)
			os.Exit(1)
		}
		p, ok := realms.Get(*realmKey)
		if !ok {
			logger.Error("realm not configured", "realm", *realmKey)
			os.Exit(1)
		}
		if err := ingest.EnqueueProcess(ctx, queue, p); err != nil {
			logger.Error("failed to enqueue process", "error", err)
			os.Exit(1)
		}
		logger.Info("process enqueued", "realm", *realmKey, "queue", cfg.Queue.Name)
		return
	}

	if err := ingest.EnqueueSweep(ctx, queue); err != nil {
		logger.Error("failed to enqueue sweep", "error", err)
		os.Exit(1)
	}
	logger.Info("sweep enqueued", "queue", cfg.Queue.Name, "realms", len(cfg.Realms))
}
