package model

import "time"

// RawArticle 采集器的原始输出，入库前还要经过去重和时间窗口过滤
type RawArticle struct {
	ExternalID  string
	Title       string
	URL         string
	Summary     string
	Author      string
	PublishedAt *time.Time // 无日期时为 nil，不要填当前时间
	RawContent  string
}

// Article 入库后的文章；URL 全局唯一
type Article struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SourceID    uint       `gorm:"not null;index" json:"source_id"`
	ExternalID  string     `gorm:"type:text;not null" json:"external_id"`
	Title       string     `gorm:"type:text;not null" json:"title"`
	URL         string     `gorm:"type:text;not null;uniqueIndex" json:"url"`
	Summary     *string    `gorm:"type:text" json:"summary"`
	Author      *string    `gorm:"type:text" json:"author"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"`
	RawContent  *string    `gorm:"type:text" json:"raw_content"`

	// 相关性字段：要么全部为空，要么在同一次 UPDATE 中全部写入
	RelevanceScore  *float64   `gorm:"index" json:"relevance_score"`
	RelevanceReason *string    `gorm:"type:text" json:"relevance_reason"`
	IsRelevant      *bool      `gorm:"index" json:"is_relevant"`
	FilteredAt      *time.Time `gorm:"index" json:"filtered_at"`

	// 下游功能维护的字段，插入时保持默认值
	IsSaved   bool       `gorm:"not null;default:false" json:"is_saved"`
	SavedAt   *time.Time `json:"saved_at"`
	EpisodeID *uint      `gorm:"index" json:"episode_id"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Pinned 被收藏或挂到节目上的文章不参与过期清理
func (a Article) Pinned() bool {
	return a.IsSaved || a.EpisodeID != nil
}

// Unfiltered 尚未被模型打分
func (a Article) Unfiltered() bool {
	return a.FilteredAt == nil
}

// NewArticle 由原始文章生成待插入记录
func NewArticle(sourceID uint, raw RawArticle) Article {
	return Article{
		SourceID:    sourceID,
		ExternalID:  raw.ExternalID,
		Title:       raw.Title,
		URL:         raw.URL,
		Summary:     optional(raw.Summary),
		Author:      optional(raw.Author),
		PublishedAt: raw.PublishedAt,
		RawContent:  optional(raw.RawContent),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Relevance 一次打分的结果，四个相关性字段同时写入
type Relevance struct {
	Score      float64
	Reason     string
	Relevant   bool
	FilteredAt time.Time
}

// Apply 把打分结果写到文章上
func (a *Article) Apply(r Relevance) {
	score, reason, relevant, at := r.Score, r.Reason, r.Relevant, r.FilteredAt
	a.RelevanceScore = &score
	a.RelevanceReason = &reason
	a.IsRelevant = &relevant
	a.FilteredAt = &at
}

// ClearRelevance 回到未打分状态
func (a *Article) ClearRelevance() {
	a.RelevanceScore = nil
	a.RelevanceReason = nil
	a.IsRelevant = nil
	a.FilteredAt = nil
}
