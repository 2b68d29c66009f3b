// paperforged is the daemon: it exposes the HTTP surface and runs the
// question-paper pipeline on a worker pool.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paperforge/paperforge/internal/common"
	"github.com/paperforge/paperforge/internal/core"
	"github.com/paperforge/paperforge/internal/job"
	"github.com/paperforge/paperforge/internal/llm/openai"
	"github.com/paperforge/paperforge/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Pipeline.OutputDir, 0o755); err != nil {
		logger.Error("cannot create output directory", "dir", cfg.Pipeline.OutputDir, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := job.NewRegistry(cfg.Pipeline.JobRetention, cfg.Pipeline.MaxJobs, logger)
	gen := openai.NewClient(openai.Config{
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		Model:        cfg.LLM.QuestionModel,
		SummaryModel: cfg.LLM.SummaryModel,
		Timeout:      cfg.LLM.Timeout,
	}, logger)

	ctrl := core.NewController(cfg, registry, gen, logger)
	queue := core.NewPipelineQueue(ctrl, logger)

	// Retire old jobs in the background.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ctrl.PruneExpired()
			}
		}
	}()

	srv := server.New(cfg.Server.Addr, server.NewHandler(cfg, ctrl, queue, logger), logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
