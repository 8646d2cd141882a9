package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Kind 数据源类型，决定由哪个采集器处理
type Kind string

const (
	KindFeed  Kind = "feed"  // RSS / Atom / RDF 订阅源
	KindBoard Kind = "board" // Hacker News 榜单
	KindPage  Kind = "page"  // 普通网页，由模型挑选文章链接
)

// Valid 判断 kind 是否为已知类型
func (k Kind) Valid() bool {
	switch k {
	case KindFeed, KindBoard, KindPage:
		return true
	}
	return false
}

// Source 外部维护的数据源；核心流程只会更新 LastFetchedAt
type Source struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"size:255;not null" json:"name"`
	Kind          Kind           `gorm:"size:16;not null;index" json:"kind"`
	Config        datatypes.JSON `gorm:"type:jsonb;not null" json:"config"`
	Enabled       bool           `gorm:"not null;index" json:"enabled"`
	ConfigKey     *string        `gorm:"size:128;uniqueIndex" json:"config_key"` // 来自 sources 文件同步时的唯一键
	LastFetchedAt *time.Time     `json:"last_fetched_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SourceConfig 按 Kind 区分的配置，只有本包内的三种实现
type SourceConfig interface {
	Kind() Kind
	sealed()
}

// FeedConfig 订阅源配置
type FeedConfig struct {
	FeedURL string `json:"feedUrl" yaml:"feedUrl"`
}

// BoardConfig Hacker News 榜单配置；FeedType 取 top / new / best
type BoardConfig struct {
	FeedType string `json:"feedType" yaml:"feedType"`
	MaxItems int    `json:"maxItems" yaml:"maxItems"`
}

// PageConfig 网页配置
type PageConfig struct {
	PageURL string `json:"pageUrl" yaml:"pageUrl"`
}

func (FeedConfig) Kind() Kind  { return KindFeed }
func (BoardConfig) Kind() Kind { return KindBoard }
func (PageConfig) Kind() Kind  { return KindPage }

func (FeedConfig) sealed()  {}
func (BoardConfig) sealed() {}
func (PageConfig) sealed()  {}

// DecodeConfig 根据 Kind 解析 JSON 配置，不会去猜字段
func (s Source) DecodeConfig() (SourceConfig, error) {
	raw := []byte(s.Config)
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var (
		cfg SourceConfig
		err error
	)
	switch s.Kind {
	case KindFeed:
		var c FeedConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case KindBoard:
		var c BoardConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case KindPage:
		var c PageConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	default:
		return nil, fmt.Errorf("source %d: unknown kind %q", s.ID, s.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("source %d: decode %s config: %w", s.ID, s.Kind, err)
	}
	return cfg, nil
}

// EncodeConfig 把配置写回 JSON 列，同时同步 Kind
func (s *Source) EncodeConfig(cfg SourceConfig) error {
	bs, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	s.Kind = cfg.Kind()
	s.Config = datatypes.JSON(bs)
	return nil
}
