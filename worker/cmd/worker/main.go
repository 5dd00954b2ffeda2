package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/canbahi79-lgtm/formatfactory/worker/cache"
	"github.com/canbahi79-lgtm/formatfactory/worker/config"
	"github.com/canbahi79-lgtm/formatfactory/worker/docx"
	"github.com/canbahi79-lgtm/formatfactory/worker/kafka"
	"github.com/canbahi79-lgtm/formatfactory/worker/pdf"
	"github.com/canbahi79-lgtm/formatfactory/worker/pool"
	"github.com/canbahi79-lgtm/formatfactory/worker/repository"
	"github.com/canbahi79-lgtm/formatfactory/worker/service"
	"github.com/canbahi79-lgtm/formatfactory/worker/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("Worker service failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		return err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}

	store, err := storage.NewFileStore(cfg.FilesDir, cfg.BasePublicURL)
	if err != nil {
		return err
	}

	processor := service.NewProcessor(
		repository.NewPostgresRepo(db),
		cache.NewStatusCache(redisClient),
		docx.NewRenderer(logger),
		pdf.NewPrinter(logger, cfg.BrowserBin, cfg.BrowserNoSandbox, cfg.PDFTimeout),
		store,
		cfg.JobRetention,
		logger,
	)

	workers := pool.NewWorkerPool(cfg.WorkerCount)
	consumer, err := kafka.NewConsumer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaGroupID, workers)
	if err != nil {
		return err
	}
	defer consumer.Close()

	logger.Info("Worker service started",
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.Int("workers", cfg.WorkerCount),
	)

	// Consume returns on rebalance; loop until shutdown.
	for ctx.Err() == nil {
		if err := consumer.Consume(ctx, cfg.KafkaTopic, processor.Process); err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("Consume loop error", zap.Error(err))
			time.Sleep(time.Second)
		}
	}

	workers.Wait()
	logger.Info("Worker service stopped")
	return nil
}
