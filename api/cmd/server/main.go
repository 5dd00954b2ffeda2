package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/canbahi79-lgtm/formatfactory/api/cache"
	"github.com/canbahi79-lgtm/formatfactory/api/config"
	"github.com/canbahi79-lgtm/formatfactory/api/database"
	"github.com/canbahi79-lgtm/formatfactory/api/handlers"
	"github.com/canbahi79-lgtm/formatfactory/api/journals"
	"github.com/canbahi79-lgtm/formatfactory/api/kafka"
	"github.com/canbahi79-lgtm/formatfactory/api/middleware"
	"github.com/canbahi79-lgtm/formatfactory/api/repository"
	"github.com/canbahi79-lgtm/formatfactory/api/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("API service failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Join(cfg.FilesDir, "out"), 0o755); err != nil {
		return err
	}

	db, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	cacheConn, err := database.ConnectCache(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer cacheConn.Close()

	producer, err := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","))
	if err != nil {
		return err
	}
	defer producer.Close()

	repo := repository.NewPostgresRepo(db)
	statusCache := cache.NewStatusCache(cacheConn)
	jobService := service.NewJobService(repo, statusCache, producer, cfg.KafkaTopic)

	jobHandler := handlers.NewJobHandler(jobService, logger)
	fileHandler := handlers.NewFileHandler(cfg.FilesDir, logger)
	uploadHandler := handlers.NewUploadHandler(cfg.FilesDir, cfg.BasePublicURL, cfg.MaxUploadSize, logger)
	journalHandler := handlers.NewJournalHandler(
		journals.NewScraper(cfg.JournalsURL, logger),
		journals.NewCache(cacheConn, cfg.JournalsTTL),
		logger,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"ok":            true,
			"basePublicUrl": cfg.BasePublicURL,
			"time":          time.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/api/jobs/convert", jobHandler.Convert)
	mux.HandleFunc("/api/jobs/status/", jobHandler.Status)
	mux.HandleFunc("/api/upload", uploadHandler.Upload)
	mux.HandleFunc("/api/journals", journalHandler.List)
	mux.HandleFunc("/files/", fileHandler.Serve)

	handler := middleware.TraceID(
		middleware.Logging(logger)(
			middleware.Recovery(logger)(mux),
		),
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API service started",
			zap.String("port", cfg.Port),
			zap.String("base_public_url", cfg.BasePublicURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down API service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
