// Package app 组装采集、入库、打分和编排，HTTP 服务和一次性采集命令共用
package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/LJTian/NewsDesk/internal/classifier"
	"github.com/LJTian/NewsDesk/internal/collector"
	"github.com/LJTian/NewsDesk/internal/config"
	"github.com/LJTian/NewsDesk/internal/llm"
	"github.com/LJTian/NewsDesk/internal/metrics"
	"github.com/LJTian/NewsDesk/internal/processor"
	"github.com/LJTian/NewsDesk/internal/runner"
	"github.com/LJTian/NewsDesk/internal/storage"
)

// fetchTimeout 单次 HTTP 抓取的超时
const fetchTimeout = 30 * time.Second

type App struct {
	Runner     *runner.Runner
	Classifier *classifier.Classifier
}

// Wire 每个组件拿到带 component 字段的 logger；rec 为 nil 时不记录指标
func Wire(cfg *config.Config, store *storage.Store, rec *metrics.Recorder, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}

	client := llm.NewAnthropicClient(llm.AnthropicConfig{
		APIKey:  cfg.AnthropicAPIKey,
		Model:   cfg.AnthropicModel,
		BaseURL: cfg.AnthropicBaseURL,
	}, store, logger.With("component", "llm"))

	fetchLogger := logger.With("component", "collector")
	httpClient := &http.Client{Timeout: fetchTimeout}
	fetchers := collector.NewRegistry(
		collector.NewRSSFetcher(httpClient, fetchLogger),
		collector.NewHackerNewsFetcher("", fetchLogger),
		collector.NewWebpageFetcher(httpClient, client, fetchLogger),
	)

	engine := processor.NewEngine(store, logger.With("component", "processor"))
	cls := classifier.New(store, client, logger.With("component", "classifier"), rec)

	opts := []runner.Option{runner.WithMetrics(rec)}
	if store.Redis != nil {
		opts = append(opts, runner.WithLocker(runner.NewRedisLock(store.Redis, logger.With("component", "lock"))))
	}

	return &App{
		Runner:     runner.New(store, fetchers, engine, cls, logger.With("component", "runner"), opts...),
		Classifier: cls,
	}
}
