package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/LJTian/NewsDesk/internal/model"
)

// ErrNotFound 按主键查询不到记录
var ErrNotFound = errors.New("record not found")

// Store Postgres 为主存储；Redis 可选，用于运行锁和日志列表缓存
type Store struct {
	DB     *gorm.DB
	Redis  *redis.Client
	logger *slog.Logger
}

// NewStore redisAddr 为空时不连接 Redis
func NewStore(dsn, redisAddr string, logger *slog.Logger) (*Store, error) {
	return Open(postgres.Open(dsn), redisAddr, logger)
}

// Open 用任意 gorm 方言建库并迁移表结构
func Open(dialector gorm.Dialector, redisAddr string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&model.Source{},
		&model.Article{},
		&model.FetchLog{},
		&model.Criterion{},
		&model.Setting{},
	); err != nil {
		return nil, err
	}

	s := &Store{DB: db, logger: logger}

	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping failed", "addr", redisAddr, "error", err)
		}
		s.Redis = rdb
	}

	return s, nil
}

// Close 关闭底层连接
func (s *Store) Close() error {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
