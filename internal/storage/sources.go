package storage

import (
	"context"
	"time"

	"github.com/LJTian/NewsDesk/internal/model"
)

// EnabledSources 按 id 升序返回所有启用的数据源
func (s *Store) EnabledSources(ctx context.Context) ([]model.Source, error) {
	var list []model.Source
	err := s.DB.WithContext(ctx).
		Where("enabled = ?", true).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

// SourceByID 不存在时返回 ErrNotFound
func (s *Store) SourceByID(ctx context.Context, id uint) (*model.Source, error) {
	var src model.Source
	if err := s.DB.WithContext(ctx).First(&src, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &src, nil
}

// TouchLastFetched 只更新 last_fetched_at，不动其他列
func (s *Store) TouchLastFetched(ctx context.Context, id uint, at time.Time) error {
	return s.DB.WithContext(ctx).
		Model(&model.Source{}).
		Where("id = ?", id).
		UpdateColumn("last_fetched_at", at).Error
}
