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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LJTian/NewsDesk/internal/api"
	"github.com/LJTian/NewsDesk/internal/app"
	"github.com/LJTian/NewsDesk/internal/config"
	"github.com/LJTian/NewsDesk/internal/logging"
	"github.com/LJTian/NewsDesk/internal/metrics"
	"github.com/LJTian/NewsDesk/internal/scheduler"
	"github.com/LJTian/NewsDesk/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("starting newsdesk", "config", cfg)

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, logger.With("component", "storage"))
	if err != nil {
		logger.Error("init store failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	// 数据源以配置文件为准，文件不存在时沿用库里已有的
	if res, err := store.SyncSourcesFromFile(ctx, cfg.SourcesFile); err != nil {
		logger.Error("sync sources failed", "file", cfg.SourcesFile, "error", err)
		os.Exit(1)
	} else if res.Synced > 0 {
		logger.Info("sources synced", "file", cfg.SourcesFile, "synced", res.Synced, "skipped", res.Skipped)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	pipeline := app.Wire(cfg, store, rec, logger)

	// 启动时先清一次过期文章
	if n, err := pipeline.Runner.Sweep(ctx); err != nil {
		logger.Error("startup retention sweep failed", "error", err)
	} else if n > 0 {
		logger.Info("startup retention sweep", "deleted", n)
	}

	var sched *scheduler.Scheduler
	if cfg.CronSpec != "" {
		sched, err = scheduler.New(cfg.CronSpec, pipeline.Runner, logger.With("component", "scheduler"))
		if err != nil {
			logger.Error("init scheduler failed", "spec", cfg.CronSpec, "error", err)
			os.Exit(1)
		}
		sched.Start()
		logger.Info("scheduler started", "spec", cfg.CronSpec)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	api.NewServer(pipeline.Runner, pipeline.Classifier, store, handler, logger.With("component", "api")).RegisterRoutes(r)

	// SSE 采集可能持续数分钟，不设置 WriteTimeout
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}

	go func() {
		logger.Info("api server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server exit", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	// 先取消定时采集，避免它拖住整个退出过程
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Error("scheduler stop timed out", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}
