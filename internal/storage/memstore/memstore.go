// Package memstore 内存版存储，只用于测试和本地演示，行为与 Postgres 版保持一致
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LJTian/NewsDesk/internal/model"
	"github.com/LJTian/NewsDesk/internal/storage"
)

// Store 所有表放在一把读写锁下
type Store struct {
	mu sync.RWMutex

	sources  map[uint]model.Source
	articles []model.Article
	logs     []model.FetchLog
	criteria []model.Criterion
	settings map[string]string

	nextArticleID uint
	nextLogID     uint
	now           func() time.Time
}

func New() *Store {
	return &Store{
		sources:  make(map[uint]model.Source),
		settings: make(map[string]string),
		now:      time.Now,
	}
}

// SetClock 替换 created_at 使用的时钟
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// PutSource 新增或覆盖数据源
func (s *Store) PutSource(src model.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.ID] = src
}

// AddCriterion 追加评判标准，自动分配 id
func (s *Store) AddCriterion(c model.Criterion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uint(len(s.criteria) + 1)
	s.criteria = append(s.criteria, c)
}

// SetSetting 写入设置项
func (s *Store) SetSetting(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
}

// Articles 返回全部文章的副本，按 id 升序
func (s *Store) Articles() []model.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Article(nil), s.articles...)
}

// Source 读取单个数据源
func (s *Store) Source(id uint) (model.Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[id]
	return src, ok
}

// UpdateArticle 直接修改一篇文章，测试用来构造收藏等状态
func (s *Store) UpdateArticle(id uint, fn func(*model.Article)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.articles {
		if s.articles[i].ID == id {
			fn(&s.articles[i])
			return true
		}
	}
	return false
}

func (s *Store) EnabledSources(_ context.Context) ([]model.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Source, 0, len(s.sources))
	for _, src := range s.sources {
		if src.Enabled {
			out = append(out, src)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SourceByID(_ context.Context, id uint) (*model.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &src, nil
}

func (s *Store) TouchLastFetched(_ context.Context, id uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.sources[id]; ok {
		src.LastFetchedAt = &at
		s.sources[id] = src
	}
	return nil
}

func (s *Store) ExistingURLs(_ context.Context, urls []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		want[u] = struct{}{}
	}
	out := make(map[string]struct{})
	for _, a := range s.articles {
		if _, ok := want[a.URL]; ok {
			out[a.URL] = struct{}{}
		}
	}
	return out, nil
}

// InsertArticles URL 已存在的行跳过，与唯一索引 + ON CONFLICT DO NOTHING 一致
func (s *Store) InsertArticles(_ context.Context, articles []model.Article) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	have := make(map[string]struct{}, len(s.articles))
	for _, a := range s.articles {
		have[a.URL] = struct{}{}
	}
	inserted := 0
	for _, a := range articles {
		if _, ok := have[a.URL]; ok {
			continue
		}
		have[a.URL] = struct{}{}
		s.nextArticleID++
		a.ID = s.nextArticleID
		a.CreatedAt = s.now()
		s.articles = append(s.articles, a)
		inserted++
	}
	return inserted, nil
}

func (s *Store) DeleteArticlesBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.articles[:0]
	deleted := 0
	for _, a := range s.articles {
		if a.PublishedAt != nil && a.PublishedAt.Before(cutoff) && !a.Pinned() {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	s.articles = kept
	return deleted, nil
}

func (s *Store) UnfilteredArticles(_ context.Context, limit int) ([]model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Article, 0)
	for _, a := range s.articles {
		if a.Unfiltered() {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateArticleRelevance(_ context.Context, id uint, r model.Relevance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.articles {
		if s.articles[i].ID == id {
			s.articles[i].Apply(r)
			return nil
		}
	}
	return nil
}

func (s *Store) ClearScores(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cleared := 0
	for i := range s.articles {
		if s.articles[i].FilteredAt != nil || s.articles[i].RelevanceScore != nil {
			s.articles[i].ClearRelevance()
			cleared++
		}
	}
	return cleared, nil
}

func (s *Store) AppendFetchLog(_ context.Context, entry *model.FetchLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLogID++
	entry.ID = s.nextLogID
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *Store) ListFetchLogs(_ context.Context, limit int) ([]model.FetchLog, error) {
	return s.listLogs(func(model.FetchLog) bool { return true }, limit), nil
}

func (s *Store) ListFetchLogsBySource(_ context.Context, sourceID uint, limit int) ([]model.FetchLog, error) {
	return s.listLogs(func(l model.FetchLog) bool { return l.SourceID == sourceID }, limit), nil
}

// listLogs 按写入顺序倒序
func (s *Store) listLogs(keep func(model.FetchLog) bool, limit int) []model.FetchLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.FetchLog, 0)
	for i := len(s.logs) - 1; i >= 0; i-- {
		if !keep(s.logs[i]) {
			continue
		}
		out = append(out, s.logs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *Store) ActiveCriteria(_ context.Context) ([]model.Criterion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Criterion, 0, len(s.criteria))
	for _, c := range s.criteria {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) SettingValue(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[key]
	return v, ok, nil
}
