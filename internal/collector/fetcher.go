package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/LJTian/NewsDesk/internal/model"
)

// ErrNoFetcher 该类型的数据源没有注册采集器
var ErrNoFetcher = errors.New("no fetcher for source kind")

// Fetcher 抽象每一种数据源。只读外部数据，不写库；
// 只有整次采集失败（网络、HTTP 状态、配置不对）才返回 error。
type Fetcher interface {
	Kind() model.Kind
	Fetch(ctx context.Context, src model.Source) ([]model.RawArticle, error)
}

// Registry 启动时构建一次的 kind -> 采集器映射，由调用方持有并传入
type Registry map[model.Kind]Fetcher

// NewRegistry 按各采集器声明的 Kind 建表，后注册的覆盖先注册的
func NewRegistry(fetchers ...Fetcher) Registry {
	r := make(Registry, len(fetchers))
	for _, f := range fetchers {
		r[f.Kind()] = f
	}
	return r
}

// Lookup 找不到时返回 ErrNoFetcher
func (r Registry) Lookup(kind model.Kind) (Fetcher, error) {
	if f, ok := r[kind]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoFetcher, kind)
}

// configAs 把数据源配置解码成指定的变体
func configAs[T model.SourceConfig](src model.Source) (T, error) {
	var zero T
	cfg, err := src.DecodeConfig()
	if err != nil {
		return zero, err
	}
	typed, ok := cfg.(T)
	if !ok {
		return zero, fmt.Errorf("source %d: expected %s config, got %s", src.ID, zero.Kind(), cfg.Kind())
	}
	return typed, nil
}
