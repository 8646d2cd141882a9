package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LJTian/NewsDesk/internal/llm"
	"github.com/LJTian/NewsDesk/internal/metrics"
	"github.com/LJTian/NewsDesk/internal/model"
)

const (
	// BatchSize 每次模型调用处理的文章数
	BatchSize = 20
	// MaxUnfiltered 单次打分最多处理的文章数
	MaxUnfiltered = 200

	defaultReason = "No reason provided"
)

// ErrNoActiveCriteria 没有启用的评判标准
var ErrNoActiveCriteria = errors.New("no active criteria; add or activate criteria before filtering")

// Store 打分所需的存储能力
type Store interface {
	ActiveCriteria(ctx context.Context) ([]model.Criterion, error)
	UnfilteredArticles(ctx context.Context, limit int) ([]model.Article, error)
	UpdateArticleRelevance(ctx context.Context, id uint, r model.Relevance) error
}

// Result 与 filter-done 事件的负载一致
type Result struct {
	Filtered int      `json:"filtered"`
	Batches  int      `json:"batches"`
	Errors   []string `json:"errors"`
}

// BatchError 单个批次失败，不影响后续批次；Index 从 1 开始
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("Batch %d failed: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Classifier 分批调用模型给未打分的文章打分
type Classifier struct {
	store   Store
	model   llm.Model
	logger  *slog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

func New(store Store, m llm.Model, logger *slog.Logger, rec *metrics.Recorder) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{store: store, model: m, logger: logger, metrics: rec, now: time.Now}
}

// FilterArticles 先检查前置条件（启用的标准、模型凭据），任一缺失直接返回错误，不跑任何批次。
// 之后按批处理，单批失败记到 Result.Errors 里继续下一批。
func (c *Classifier) FilterArticles(ctx context.Context) (Result, error) {
	res := Result{Errors: []string{}}

	criteria, err := c.store.ActiveCriteria(ctx)
	if err != nil {
		return res, fmt.Errorf("load criteria: %w", err)
	}
	if len(criteria) == 0 {
		return res, ErrNoActiveCriteria
	}
	if c.model == nil {
		return res, llm.ErrNoCredential
	}
	if err := c.model.Available(ctx); err != nil {
		return res, err
	}

	articles, err := c.store.UnfilteredArticles(ctx, MaxUnfiltered)
	if err != nil {
		return res, fmt.Errorf("load unfiltered articles: %w", err)
	}

	for start := 0; start < len(articles); start += BatchSize {
		end := start + BatchSize
		if end > len(articles) {
			end = len(articles)
		}
		res.Batches++

		scored, err := c.runBatch(ctx, articles[start:end], criteria)
		res.Filtered += scored
		c.metrics.ObserveBatch(err == nil, scored)
		if err != nil {
			be := &BatchError{Index: res.Batches, Err: err}
			c.logger.Error("filter batch failed", "batch", be.Index, "size", end-start, "error", err)
			res.Errors = append(res.Errors, be.Error())
			continue
		}
		c.logger.Info("filter batch done", "batch", res.Batches, "scored", scored)
	}

	return res, nil
}

func (c *Classifier) runBatch(ctx context.Context, batch []model.Article, criteria []model.Criterion) (int, error) {
	reply, err := c.model.Complete(ctx, BuildFilterPrompt(batch, criteria))
	if err != nil {
		return 0, err
	}

	var records []rawScore
	if err := llm.DecodeJSONArray(reply, &records); err != nil {
		return 0, err
	}

	inBatch := make(map[uint]struct{}, len(batch))
	for _, a := range batch {
		inBatch[a.ID] = struct{}{}
	}

	scored := 0
	at := c.now()
	for _, rec := range records {
		if _, ok := inBatch[rec.ID]; !ok {
			c.logger.Debug("model returned unknown article id", "id", rec.ID)
			continue
		}
		rel := rec.normalize()
		rel.FilteredAt = at
		if err := c.store.UpdateArticleRelevance(ctx, rec.ID, rel); err != nil {
			return scored, fmt.Errorf("update article %d: %w", rec.ID, err)
		}
		scored++
	}
	return scored, nil
}
