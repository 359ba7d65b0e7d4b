package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"filesorter/internal/api"
	"filesorter/internal/config"
	"filesorter/internal/logging"
	"filesorter/internal/service/ai"
	"filesorter/internal/service/organizer"
	"filesorter/internal/storage"
	"filesorter/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfgPath := os.Getenv("FILESORTER_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	logging.Init(cfg.BasicConfig.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := ai.NewGenAIClient(ctx, cfg.Providers[config.ProviderGemini].APIKey)
	if err != nil {
		return err
	}
	summarizer, err := ai.NewGeminiSummarizer(client, cfg.SummarizerModel)
	if err != nil {
		return err
	}
	chatModel, err := ai.NewChatModel(ctx, cfg, client)
	if err != nil {
		return err
	}
	classifier, err := ai.NewChatClassifier(chatModel)
	if err != nil {
		return err
	}

	basic := cfg.BasicConfig
	store, err := storage.NewTempStore(basic.UploadDir, basic.ChunkSize)
	if err != nil {
		return err
	}
	pipeline, err := organizer.NewService(store, summarizer, classifier)
	if err != nil {
		return err
	}
	workers := worker.NewDispatcher(worker.DispatcherConfig{
		MinWorkers: basic.MinWorkers,
		MaxWorkers: basic.MaxWorkers,
		QueueSize:  basic.QueueSize,
	})
	defer workers.Close()

	router := gin.New()
	router.Use(gin.Recovery(), logging.GinMiddleware())
	api.NewHandler(pipeline, workers, basic.MaxUploadBytes, basic.Timeout()).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              basic.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", slog.String("addr", srv.Addr),
			slog.String("upload_dir", store.BaseDir()),
			slog.String("classifier", cfg.ClassifierProvider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return store.RunSweeper(gctx, basic.SweepInterval(), basic.TTL())
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
