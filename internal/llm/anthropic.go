package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultModel     = "claude-sonnet-4-6"
	defaultMaxTokens = 4096
	defaultTimeout   = 90 * time.Second
)

// AnthropicConfig 来自环境变量的默认值，设置表中的值优先
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string // 测试时指向 httptest
	Timeout time.Duration
}

// AnthropicClient 基于 anthropic-sdk-go 的 Messages 调用
type AnthropicClient struct {
	cfg      AnthropicConfig
	settings SettingsLookup
	logger   *slog.Logger
}

var _ Model = (*AnthropicClient)(nil)

// NewAnthropicClient settings 可为 nil，此时只看环境变量
func NewAnthropicClient(cfg AnthropicConfig, settings SettingsLookup, logger *slog.Logger) *AnthropicClient {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnthropicClient{cfg: cfg, settings: settings, logger: logger}
}

func (c *AnthropicClient) lookup(ctx context.Context, key, fallback string) string {
	if c.settings == nil {
		return fallback
	}
	v, ok, err := c.settings.SettingValue(ctx, key)
	if err != nil {
		c.logger.Warn("settings lookup failed", "key", key, "error", err)
		return fallback
	}
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

func (c *AnthropicClient) credentials(ctx context.Context) (apiKey, model string) {
	return c.lookup(ctx, SettingAPIKey, c.cfg.APIKey), c.lookup(ctx, SettingModel, c.cfg.Model)
}

// Available 检查是否有可用的 key
func (c *AnthropicClient) Available(ctx context.Context) error {
	if key, _ := c.credentials(ctx); key == "" {
		return ErrNoCredential
	}
	return nil
}

// Complete 发送一条 user 消息并返回第一段文本；SDK 自带重试被关闭
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	apiKey, model := c.credentials(ctx)
	if apiKey == "" {
		return "", ErrNoCredential
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(c.cfg.Timeout),
	}
	if c.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("empty response from model %s", model)
}
