package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LJTian/NewsDesk/internal/classifier"
	"github.com/LJTian/NewsDesk/internal/collector"
	"github.com/LJTian/NewsDesk/internal/metrics"
	"github.com/LJTian/NewsDesk/internal/model"
	"github.com/LJTian/NewsDesk/internal/storage"
)

var (
	// ErrSourceNotFound 单源采集时数据源不存在
	ErrSourceNotFound = errors.New("source not found")
	// ErrRunInProgress 已经有一次全量采集在跑
	ErrRunInProgress = errors.New("a fetch run is already in progress")
	// ErrNoEnabledSources 没有启用的数据源，不会发出任何事件
	ErrNoEnabledSources = errors.New("no enabled sources")
)

// Store 编排过程需要的存储能力
type Store interface {
	EnabledSources(ctx context.Context) ([]model.Source, error)
	SourceByID(ctx context.Context, id uint) (*model.Source, error)
	TouchLastFetched(ctx context.Context, id uint, at time.Time) error
	AppendFetchLog(ctx context.Context, entry *model.FetchLog) error
}

// Ingester 去重入库与过期清理，由 processor.Engine 实现
type Ingester interface {
	InsertArticles(ctx context.Context, sourceID uint, raws []model.RawArticle) (int, error)
	DeleteOldArticles(ctx context.Context) (int, error)
}

// Filterer 打分，由 classifier.Classifier 实现
type Filterer interface {
	FilterArticles(ctx context.Context) (classifier.Result, error)
}

// Summary 一次全量采集的汇总
type Summary struct {
	FetchComplete
	Sources []SourceResult
	Filter  *FilterDone
}

// Runner 依次采集所有启用的数据源，通过 Sink 推送进度
type Runner struct {
	store    Store
	fetchers collector.Registry
	ingest   Ingester
	filter   Filterer
	lock     Locker
	logger   *slog.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
}

// Option 可选依赖
type Option func(*Runner)

func WithLocker(l Locker) Option {
	return func(r *Runner) { r.lock = l }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func New(store Store, fetchers collector.Registry, ingest Ingester, filter Filterer, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		store:    store,
		fetchers: fetchers,
		ingest:   ingest,
		filter:   filter,
		lock:     &LocalLock{},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunAll 串行采集所有启用的数据源。
// 单个数据源失败只记录，不影响后续；有新文章时自动打分。
// 返回 ErrRunInProgress / ErrNoEnabledSources 时不会发出任何事件。
func (r *Runner) RunAll(ctx context.Context, sink Sink) (Summary, error) {
	var sum Summary
	if sink == nil {
		sink = Discard
	}

	unlock, ok, err := r.lock.TryLock(ctx)
	if err != nil {
		return sum, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		r.metrics.ObserveRun("skipped")
		return sum, ErrRunInProgress
	}
	defer unlock()

	sources, err := r.store.EnabledSources(ctx)
	if err != nil {
		return sum, fmt.Errorf("load enabled sources: %w", err)
	}
	if len(sources) == 0 {
		return sum, ErrNoEnabledSources
	}

	r.sweep(ctx, "before run")

	sum.Total = len(sources)
	for _, src := range sources {
		r.emit(ctx, sink, EventSourceStart, SourceStart{SourceID: src.ID, SourceName: src.Name})

		r.logger.Info("fetching source", "source_id", src.ID, "name", src.Name, "kind", src.Kind)
		res := r.fetchSource(ctx, src)
		if res.Status == StatusError {
			sum.Failed++
			r.logger.Error("source failed", "source_id", src.ID, "name", src.Name, "error", res.Error)
		} else {
			sum.NewArticles += res.NewArticles
			r.logger.Info("source done", "source_id", src.ID, "name", src.Name,
				"found", res.ArticlesFound, "new", res.NewArticles)
		}
		sum.Sources = append(sum.Sources, res)

		r.emit(ctx, sink, EventSourceDone, res)
	}

	r.emit(ctx, sink, EventFetchComplete, sum.FetchComplete)

	if sum.NewArticles > 0 && r.filter != nil {
		r.emit(ctx, sink, EventFilterStart, FilterStart{Unfiltered: sum.NewArticles})

		done, err := r.filter.FilterArticles(ctx)
		if err != nil {
			r.logger.Error("auto filter failed", "error", err)
			done = FilterDone{Errors: []string{err.Error()}}
		} else {
			r.logger.Info("auto filter complete", "filtered", done.Filtered, "batches", done.Batches)
		}
		sum.Filter = &done
		r.emit(ctx, sink, EventFilterDone, done)
	}

	r.sweep(ctx, "after run")
	r.metrics.ObserveRun("completed")
	return sum, nil
}

// RunOne 单源采集，和全量采集共用同一套逻辑，不加运行锁
func (r *Runner) RunOne(ctx context.Context, id uint) (SourceResult, error) {
	src, err := r.store.SourceByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return SourceResult{SourceID: id, Status: StatusError, Error: "Source not found"}, ErrSourceNotFound
	}
	if err != nil {
		return SourceResult{SourceID: id}, fmt.Errorf("load source %d: %w", id, err)
	}
	return r.fetchSource(ctx, *src), nil
}

// Sweep 清理过期文章，启动时调用一次
func (r *Runner) Sweep(ctx context.Context) (int, error) {
	n, err := r.ingest.DeleteOldArticles(ctx)
	if err != nil {
		return 0, err
	}
	r.metrics.ObservePurge(n)
	return n, nil
}

func (r *Runner) sweep(ctx context.Context, when string) {
	n, err := r.Sweep(ctx)
	if err != nil {
		r.logger.Error("retention sweep failed", "when", when, "error", err)
		return
	}
	if n > 0 {
		r.logger.Info("retention sweep", "when", when, "deleted", n)
	}
}

// fetchSource 不返回错误，失败写进结果；每次调用恰好写一条采集日志
func (r *Runner) fetchSource(ctx context.Context, src model.Source) SourceResult {
	started := r.now()
	res := SourceResult{SourceID: src.ID, SourceName: src.Name, Status: StatusSuccess}

	found, inserted, err := r.ingestSource(ctx, src)
	completed := r.now()

	entry := &model.FetchLog{
		SourceID:    src.ID,
		StartedAt:   started,
		CompletedAt: completed,
	}
	if err != nil {
		msg := err.Error()
		res.Status = StatusError
		res.Error = msg
		entry.Status = model.FetchError
		entry.ErrorMessage = &msg
	} else {
		res.ArticlesFound = found
		res.NewArticles = inserted
		entry.Status = model.FetchSuccess
		entry.ArticlesFound = found
		if err := r.store.TouchLastFetched(ctx, src.ID, completed); err != nil {
			r.logger.Warn("update last_fetched_at failed", "source_id", src.ID, "error", err)
		}
	}

	if err := r.store.AppendFetchLog(ctx, entry); err != nil {
		r.logger.Error("append fetch log failed", "source_id", src.ID, "error", err)
	}
	r.metrics.ObserveFetch(string(src.Kind), res.Status, completed.Sub(started), res.ArticlesFound, res.NewArticles)
	return res
}

func (r *Runner) ingestSource(ctx context.Context, src model.Source) (found, inserted int, err error) {
	fetcher, err := r.fetchers.Lookup(src.Kind)
	if err != nil {
		return 0, 0, err
	}
	raws, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return 0, 0, err
	}
	inserted, err = r.ingest.InsertArticles(ctx, src.ID, raws)
	if err != nil {
		return 0, 0, err
	}
	return len(raws), inserted, nil
}

func (r *Runner) emit(ctx context.Context, sink Sink, name string, data any) {
	if err := sink.Send(ctx, Event{Name: name, Data: data}); err != nil {
		r.logger.Warn("deliver event failed", "event", name, "error", err)
	}
}
