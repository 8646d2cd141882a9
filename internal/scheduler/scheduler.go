package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LJTian/NewsDesk/internal/runner"
)

// Job 定时执行的全量采集，由 runner.Runner 实现
type Job interface {
	RunAll(ctx context.Context, sink runner.Sink) (runner.Summary, error)
}

type Scheduler struct {
	cron   *cron.Cron
	job    Job
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(spec string, job Job, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:   cron.New(),
		job:    job,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 先取消正在执行的采集，再等它退出；ctx 到期后直接返回
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce 对外暴露的单次执行入口
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	start := time.Now()
	s.logger.Info("scheduled fetch started")

	sum, err := s.job.RunAll(s.ctx, nil)
	switch {
	case errors.Is(err, runner.ErrRunInProgress):
		// 上一轮还没跑完（或手动触发的在跑），跳过本次
		s.logger.Warn("scheduled fetch skipped, run in progress")
		return
	case errors.Is(err, runner.ErrNoEnabledSources):
		s.logger.Info("scheduled fetch skipped, no enabled sources")
		return
	case err != nil:
		s.logger.Error("scheduled fetch failed", "error", err)
		return
	}

	attrs := []any{
		"total", sum.Total,
		"failed", sum.Failed,
		"new", sum.NewArticles,
		"elapsed", time.Since(start).Round(time.Millisecond),
	}
	if sum.Filter != nil {
		attrs = append(attrs, "filtered", sum.Filter.Filtered, "filter_errors", len(sum.Filter.Errors))
	}
	s.logger.Info("scheduled fetch done", attrs...)
}
