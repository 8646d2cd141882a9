package storage

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/NewsDesk/internal/model"
)

func newCacheStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Store{Redis: rdb, logger: slog.Default()}, mr
}

func TestCachedFetchLogsServesFromRedis(t *testing.T) {
	s, mr := newCacheStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	calls := 0
	load := func(list *[]model.FetchLog) error {
		calls++
		*list = append(*list, model.FetchLog{ID: 1, SourceID: 2, Status: model.FetchSuccess, StartedAt: at, CompletedAt: at})
		return nil
	}

	first, err := s.cachedFetchLogs(ctx, "all:100", load)
	require.NoError(t, err)
	second, err := s.cachedFetchLogs(ctx, "all:100", load)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("fetchlog:list:0:all:100"))

	// 代数变化后旧缓存不再命中
	_, err = s.Redis.Incr(ctx, fetchLogGenKey).Result()
	require.NoError(t, err)
	_, err = s.cachedFetchLogs(ctx, "all:100", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, mr.Exists("fetchlog:list:1:all:100"))
}

func TestCachedFetchLogsLoadErrorNotCached(t *testing.T) {
	s, mr := newCacheStore(t)
	boom := errors.New("db down")

	_, err := s.cachedFetchLogs(context.Background(), "src:1:20", func(*[]model.FetchLog) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("fetchlog:list:0:src:1:20"))
}

func TestCachedFetchLogsWithoutRedis(t *testing.T) {
	s := &Store{logger: slog.Default()}
	list, err := s.cachedFetchLogs(context.Background(), "all:100", func(*[]model.FetchLog) error { return nil })
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
