package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LJTian/NewsDesk/internal/model"
)

// RetentionWindow 超过这个时间的文章不入库，已入库的会被清理
const RetentionWindow = 14 * 24 * time.Hour

// ArticleStore 去重与清理所需的存储能力
type ArticleStore interface {
	// ExistingURLs 返回 urls 中已经入库的那部分（不区分数据源）
	ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error)
	// InsertArticles 在一个事务内写入，URL 冲突时跳过，返回实际写入条数
	InsertArticles(ctx context.Context, articles []model.Article) (int, error)
	// DeleteArticlesBefore 删除发布时间早于 cutoff 且未被下游引用的文章
	DeleteArticlesBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Engine 负责去重、时间窗口过滤以及过期清理
type Engine struct {
	store  ArticleStore
	logger *slog.Logger
	now    func() time.Time
}

// Option 用于测试时替换时钟
type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store ArticleStore, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cutoff 当前的保留截止时间
func (e *Engine) Cutoff() time.Time {
	return e.now().Add(-RetentionWindow)
}

// InsertArticles 过滤掉过期的、URL 为空的、已入库的以及本批内重复的文章，
// 其余按输入顺序一次性写入。没有日期的文章一律保留。
func (e *Engine) InsertArticles(ctx context.Context, sourceID uint, raws []model.RawArticle) (int, error) {
	if len(raws) == 0 {
		return 0, nil
	}
	cutoff := e.Cutoff()

	recent := make([]model.RawArticle, 0, len(raws))
	urls := make([]string, 0, len(raws))
	for _, r := range raws {
		r.URL = strings.TrimSpace(r.URL)
		if r.PublishedAt != nil && r.PublishedAt.Before(cutoff) {
			continue
		}
		if r.URL == "" {
			continue
		}
		recent = append(recent, r)
		urls = append(urls, r.URL)
	}
	if len(recent) == 0 {
		return 0, nil
	}

	seen, err := e.store.ExistingURLs(ctx, urls)
	if err != nil {
		return 0, fmt.Errorf("load existing urls: %w", err)
	}
	if seen == nil {
		seen = make(map[string]struct{}, len(recent))
	}

	queue := make([]model.Article, 0, len(recent))
	for _, r := range recent {
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		queue = append(queue, model.NewArticle(sourceID, r))
	}
	if len(queue) == 0 {
		return 0, nil
	}

	inserted, err := e.store.InsertArticles(ctx, queue)
	if err != nil {
		return 0, fmt.Errorf("insert articles for source %d: %w", sourceID, err)
	}
	e.logger.Debug("articles inserted", "source_id", sourceID, "raw", len(raws), "inserted", inserted)
	return inserted, nil
}

// DeleteOldArticles 清理保留窗口之外的文章
func (e *Engine) DeleteOldArticles(ctx context.Context) (int, error) {
	deleted, err := e.store.DeleteArticlesBefore(ctx, e.Cutoff())
	if err != nil {
		return 0, fmt.Errorf("delete old articles: %w", err)
	}
	if deleted > 0 {
		e.logger.Info("purged old articles", "deleted", deleted)
	}
	return deleted, nil
}
