package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string // 为空时不使用 Redis，运行锁退化为进程内锁

	CronSpec string // 为空时不启用定时采集

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	SourcesFile string

	BasicAuthUser string
	BasicAuthPass string

	LogLevel  string
	LogFormat string

	HTTPIdleTimeout time.Duration
}

// Load 先读取当前目录下的 .env（不存在则忽略），再读环境变量
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort:          getEnv("APP_PORT", "9000"),
		PostgresDSN:      getEnv("POSTGRES_DSN", "host=localhost user=newsdesk password=newsdesk dbname=newsdesk port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		CronSpec:         getEnv("CRON_SPEC", ""),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   getEnv("CLAUDE_MODEL", ""),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
		SourcesFile:      getEnv("SOURCES_FILE", "sources.yaml"),
		BasicAuthUser:    getEnv("APP_BASIC_USER", ""),
		BasicAuthPass:    getEnv("APP_BASIC_PASS", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		HTTPIdleTimeout:  getDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
	}
}

// LogValue 打日志时隐藏密钥
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("port", c.AppPort),
		slog.Bool("redis", c.RedisAddr != ""),
		slog.String("cron", c.CronSpec),
		slog.Bool("anthropic_key", c.AnthropicAPIKey != ""),
		slog.String("model", c.AnthropicModel),
		slog.String("sources_file", c.SourcesFile),
		slog.Bool("basic_auth", c.BasicAuthUser != ""),
		slog.Duration("idle_timeout", c.HTTPIdleTimeout),
	)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// getDuration 解析失败时使用默认值
func getDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
