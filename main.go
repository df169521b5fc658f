package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nsqio/go-nsq"

	"vectorpg/internal/app"
	"vectorpg/internal/config"
	"vectorpg/internal/logger"
	"vectorpg/internal/worker"
)

func main() {
	base := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(base)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, base); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, base *slog.Logger) error {
	slog.SetDefault(slog.New(logger.NewContextHandler(base.Handler())))

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.DB.Close()

	embedder, err := app.ResolveEmbedder(ctx, cfg, app.EmbedderSpec{Model: cfg.EmbeddingModel})
	if err != nil {
		return err
	}
	if closer, ok := embedder.(io.Closer); ok {
		defer closer.Close()
	}

	var publisher worker.ResultPublisher
	if deps.NSQProducer != nil {
		publisher = deps.NSQProducer
	}
	a, err := app.New(cfg, deps.DB, embedder, publisher)
	if err != nil {
		return err
	}

	if cfg.EnableIndexWorker {
		consumer, err := nsq.NewConsumer(config.TopicIndexRequest, "indexer", nsq.NewConfig())
		if err != nil {
			return fmt.Errorf("nsq consumer error: %w", err)
		}
		consumer.AddHandler(a.Consumer)
		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			return fmt.Errorf("nsq lookupd connect error: %w", err)
		}
		defer consumer.Stop()
		slog.Info("index worker connected", "topic", config.TopicIndexRequest)
	}

	if !cfg.EnableAPI {
		<-ctx.Done()
		return ctx.Err()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: a.Handler,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.ServerPort, "actions", a.Registry.Names())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
