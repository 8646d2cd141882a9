package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker 保证同一时间只有一次全量采集
type Locker interface {
	// TryLock 不阻塞；拿不到锁时 ok 为 false
	TryLock(ctx context.Context) (unlock func(), ok bool, err error)
}

// LocalLock 进程内锁，没有配置 Redis 时使用
type LocalLock struct {
	mu sync.Mutex
}

func (l *LocalLock) TryLock(context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}

const (
	DefaultLockKey = "newsdesk:fetch-all:lock"
	DefaultLockTTL = time.Hour
)

// 只有持有者的 token 匹配才删除，避免锁过期后误删别人的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock 基于 SET NX PX 的分布式锁，多实例部署时使用
type RedisLock struct {
	Client *redis.Client
	Key    string
	TTL    time.Duration
	Logger *slog.Logger
}

func NewRedisLock(client *redis.Client, logger *slog.Logger) *RedisLock {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLock{Client: client, Key: DefaultLockKey, TTL: DefaultLockTTL, Logger: logger}
}

func (l *RedisLock) TryLock(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, l.Key, token, l.TTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.Client, []string{l.Key}, token).Err(); err != nil {
			l.Logger.Warn("release run lock failed", "key", l.Key, "error", err)
		}
	}
	return unlock, true, nil
}
