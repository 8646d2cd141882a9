package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LJTian/NewsDesk/internal/app"
	"github.com/LJTian/NewsDesk/internal/config"
	"github.com/LJTian/NewsDesk/internal/logging"
	"github.com/LJTian/NewsDesk/internal/metrics"
	"github.com/LJTian/NewsDesk/internal/runner"
	"github.com/LJTian/NewsDesk/internal/storage"
)

// 只执行一轮全量采集的命令行入口：适合手动触发或交给外部定时任务
func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, logger.With("component", "storage"))
	if err != nil {
		logger.Error("init store failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.SyncSourcesFromFile(ctx, cfg.SourcesFile); err != nil {
		logger.Error("sync sources failed", "file", cfg.SourcesFile, "error", err)
		os.Exit(1)
	}

	// 一次性进程不暴露 /metrics，独立注册表只保证各组件的计数路径和服务一致
	rec := metrics.New(prometheus.NewRegistry())
	pipeline := app.Wire(cfg, store, rec, logger)

	// 进度直接打到日志里
	sink := runner.SinkFunc(func(_ context.Context, ev runner.Event) error {
		logger.Info("event", "name", ev.Name, "data", ev.Data)
		return nil
	})

	sum, err := pipeline.Runner.RunAll(ctx, sink)
	switch {
	case errors.Is(err, runner.ErrNoEnabledSources):
		logger.Info("no enabled sources, nothing to do")
		return
	case err != nil:
		logger.Error("fetch run failed", "error", err)
		os.Exit(1)
	}
	attrs := []any{"total", sum.Total, "failed", sum.Failed, "new", sum.NewArticles}
	if sum.Filter != nil {
		attrs = append(attrs, "filtered", sum.Filter.Filtered, "filter_errors", len(sum.Filter.Errors))
	}
	logger.Info("fetch run done", attrs...)
}
