package model

import "time"

// FetchStatus 单次采集的结果
type FetchStatus string

const (
	FetchSuccess FetchStatus = "success"
	FetchError   FetchStatus = "error"
)

// FetchLog 每个数据源每次尝试一条，写入后不再修改
type FetchLog struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	SourceID      uint        `gorm:"not null;index" json:"source_id"`
	Status        FetchStatus `gorm:"size:16;not null" json:"status"`
	ArticlesFound int         `gorm:"not null;default:0" json:"articles_found"`
	ErrorMessage  *string     `gorm:"type:text" json:"error_message"`
	StartedAt     time.Time   `gorm:"not null;index" json:"started_at"`
	CompletedAt   time.Time   `gorm:"not null" json:"completed_at"`
}

// TableName fetch_log
func (FetchLog) TableName() string { return "fetch_log" }

// Criterion 相关性评判标准，启用的会被拼进提示词
type Criterion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	IsActive    bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 沿用 criteria 表名
func (Criterion) TableName() string { return "criteria" }

// Setting 键值配置，例如模型 key
type Setting struct {
	Key       string    `gorm:"primaryKey;size:128" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName app_settings
func (Setting) TableName() string { return "app_settings" }
