package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LJTian/NewsDesk/internal/model"
)

// SourceEntry sources 文件中的一项；JSON 是 YAML 的子集，两种写法都能读
type SourceEntry struct {
	Key     string         `yaml:"key"`
	Name    string         `yaml:"name"`
	Kind    string         `yaml:"kind"`
	Type    string         `yaml:"type"` // 旧写法：rss / hackernews / webpage
	Config  map[string]any `yaml:"config"`
	Enabled *bool          `yaml:"enabled"`
}

var legacyKinds = map[string]model.Kind{
	"rss":        model.KindFeed,
	"hackernews": model.KindBoard,
	"webpage":    model.KindPage,
}

// ResolveKind kind 优先，其次旧的 type 字段
func (e SourceEntry) ResolveKind() (model.Kind, bool) {
	raw := strings.TrimSpace(e.Kind)
	if raw == "" {
		raw = strings.TrimSpace(e.Type)
	}
	if k := model.Kind(raw); k.Valid() {
		return k, true
	}
	k, ok := legacyKinds[raw]
	return k, ok
}

// ParseSourceFile 解析 sources 文件内容，顶层必须是数组
func ParseSourceFile(data []byte) ([]SourceEntry, error) {
	var entries []SourceEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	return entries, nil
}

// SyncResult 同步结果，Orphans 是库里有 config_key 但文件里已经没有的
type SyncResult struct {
	Synced  int
	Skipped int
	Orphans []string
}

// SyncSourcesFromFile 按 config_key 把文件中的数据源写入数据库。
// 文件不存在时什么都不做；孤儿记录只告警不删除。
func (s *Store) SyncSourcesFromFile(ctx context.Context, path string) (SyncResult, error) {
	var res SyncResult

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, err
	}

	entries, err := ParseSourceFile(data)
	if err != nil {
		return res, err
	}

	keys := make(map[string]struct{}, len(entries))
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			kind, ok := e.ResolveKind()
			if e.Key == "" || e.Name == "" || !ok {
				s.logger.Warn("skip invalid source entry", "key", e.Key, "name", e.Name, "kind", e.Kind+e.Type)
				res.Skipped++
				continue
			}
			row, err := e.toSource(kind)
			if err != nil {
				s.logger.Warn("skip source entry with bad config", "key", e.Key, "error", err)
				res.Skipped++
				continue
			}

			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "config_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "kind", "config", "enabled", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert source %q: %w", e.Key, err)
			}
			keys[e.Key] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	res.Synced = len(keys)

	var dbKeys []string
	if err := s.DB.WithContext(ctx).
		Model(&model.Source{}).
		Where("config_key IS NOT NULL").
		Pluck("config_key", &dbKeys).Error; err != nil {
		return res, err
	}
	for _, k := range dbKeys {
		if _, ok := keys[k]; !ok {
			s.logger.Warn("source in database but not in sources file", "config_key", k, "file", path)
			res.Orphans = append(res.Orphans, k)
		}
	}

	s.logger.Info("synced sources from file", "file", path, "synced", res.Synced, "skipped", res.Skipped)
	return res, nil
}

func (e SourceEntry) toSource(kind model.Kind) (model.Source, error) {
	cfg := e.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	bs, err := json.Marshal(cfg)
	if err != nil {
		return model.Source{}, err
	}
	key := e.Key
	row := model.Source{
		Name:      e.Name,
		Kind:      kind,
		Config:    datatypes.JSON(bs),
		Enabled:   e.Enabled == nil || *e.Enabled,
		ConfigKey: &key,
	}
	// 提前按 kind 解码一次，配置写错的条目不入库
	if _, err := row.DecodeConfig(); err != nil {
		return model.Source{}, err
	}
	return row, nil
}
