package storage

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LJTian/NewsDesk/internal/model"
)

const (
	urlLookupChunk  = 500
	insertBatchSize = 100
)

// ExistingURLs 查询 urls 中已经入库的部分，分块避免参数过多
func (s *Store) ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(urls))
	for start := 0; start < len(urls); start += urlLookupChunk {
		end := start + urlLookupChunk
		if end > len(urls) {
			end = len(urls)
		}
		var found []string
		if err := s.DB.WithContext(ctx).
			Model(&model.Article{}).
			Where("url IN ?", urls[start:end]).
			Pluck("url", &found).Error; err != nil {
			return nil, err
		}
		for _, u := range found {
			out[u] = struct{}{}
		}
	}
	return out, nil
}

// InsertArticles 在一个事务中批量写入，URL 冲突的行直接跳过（其他进程可能刚写入同一 URL）
func (s *Store) InsertArticles(ctx context.Context, articles []model.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	var inserted int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "url"}},
			DoNothing: true,
		}).CreateInBatches(&articles, insertBatchSize)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// DeleteArticlesBefore 删除发布时间早于 cutoff 的文章；没有日期的、已收藏的、已挂到节目上的都保留
func (s *Store) DeleteArticlesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res := s.DB.WithContext(ctx).
		Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Where("is_saved = ? AND episode_id IS NULL", false).
		Delete(&model.Article{})
	return int(res.RowsAffected), res.Error
}

// UnfilteredArticles 未打分的文章，按入库时间倒序
func (s *Store) UnfilteredArticles(ctx context.Context, limit int) ([]model.Article, error) {
	var list []model.Article
	err := s.DB.WithContext(ctx).
		Where("filtered_at IS NULL").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// UpdateArticleRelevance 四个相关性字段放在同一条 UPDATE 里
func (s *Store) UpdateArticleRelevance(ctx context.Context, id uint, r model.Relevance) error {
	return s.DB.WithContext(ctx).
		Model(&model.Article{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"relevance_score":  r.Score,
			"relevance_reason": r.Reason,
			"is_relevant":      r.Relevant,
			"filtered_at":      r.FilteredAt,
		}).Error
}

// ClearScores 清空所有打分结果，返回受影响的行数
func (s *Store) ClearScores(ctx context.Context) (int, error) {
	res := s.DB.WithContext(ctx).
		Model(&model.Article{}).
		Where("filtered_at IS NOT NULL OR relevance_score IS NOT NULL").
		UpdateColumns(map[string]any{
			"relevance_score":  nil,
			"relevance_reason": nil,
			"is_relevant":      nil,
			"filtered_at":      nil,
		})
	return int(res.RowsAffected), res.Error
}
