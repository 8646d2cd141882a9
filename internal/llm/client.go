package llm

import (
	"context"
	"errors"
)

// ErrNoCredential 未配置模型 key
var ErrNoCredential = errors.New("ANTHROPIC_API_KEY is not set; add it to .env or the app_settings table")

// 设置表中的键
const (
	SettingAPIKey = "anthropic_api_key"
	SettingModel  = "claude_model"
)

// Model 单轮调用：提示词进，自由文本出
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
	// Available 在真正调用前检查凭据，缺失时返回 ErrNoCredential
	Available(ctx context.Context) error
}

// SettingsLookup 从设置表读取单个值，不存在时 ok 为 false
type SettingsLookup interface {
	SettingValue(ctx context.Context, key string) (value string, ok bool, err error)
}
