package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LJTian/NewsDesk/internal/model"
)

const (
	fetchLogGenKey   = "fetchlog:gen"
	fetchLogCacheTTL = 5 * time.Minute
)

// AppendFetchLog 只追加，不提供更新接口
func (s *Store) AppendFetchLog(ctx context.Context, entry *model.FetchLog) error {
	if err := s.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}
	// 递增代数让已有的列表缓存失效，不做通配删除
	if s.Redis != nil {
		if err := s.Redis.Incr(ctx, fetchLogGenKey).Err(); err != nil {
			s.logger.Warn("bump fetch log cache generation failed", "error", err)
		}
	}
	return nil
}

// ListFetchLogs 最近的采集记录，按开始时间倒序
func (s *Store) ListFetchLogs(ctx context.Context, limit int) ([]model.FetchLog, error) {
	return s.cachedFetchLogs(ctx, fmt.Sprintf("all:%d", limit), func(list *[]model.FetchLog) error {
		return s.DB.WithContext(ctx).
			Order("started_at DESC").
			Order("id DESC").
			Limit(limit).
			Find(list).Error
	})
}

// ListFetchLogsBySource 某个数据源最近的采集记录
func (s *Store) ListFetchLogsBySource(ctx context.Context, sourceID uint, limit int) ([]model.FetchLog, error) {
	return s.cachedFetchLogs(ctx, fmt.Sprintf("src:%d:%d", sourceID, limit), func(list *[]model.FetchLog) error {
		return s.DB.WithContext(ctx).
			Where("source_id = ?", sourceID).
			Order("started_at DESC").
			Order("id DESC").
			Limit(limit).
			Find(list).Error
	})
}

func (s *Store) cachedFetchLogs(ctx context.Context, suffix string, load func(*[]model.FetchLog) error) ([]model.FetchLog, error) {
	var cacheKey string
	if s.Redis != nil {
		gen, _ := s.Redis.Get(ctx, fetchLogGenKey).Int64()
		cacheKey = fmt.Sprintf("fetchlog:list:%d:%s", gen, suffix)
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []model.FetchLog
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	list := make([]model.FetchLog, 0)
	if err := load(&list); err != nil {
		return nil, err
	}

	if cacheKey != "" {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, fetchLogCacheTTL).Err()
		}
	}
	return list, nil
}
