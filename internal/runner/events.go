package runner

import (
	"context"

	"github.com/LJTian/NewsDesk/internal/classifier"
)

// 事件名，与前端 EventSource 监听的名字保持一致
const (
	EventSourceStart   = "source-start"
	EventSourceDone    = "source-done"
	EventFetchComplete = "fetch-complete"
	EventFilterStart   = "filter-start"
	EventFilterDone    = "filter-done"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Event 一条进度事件，Data 会被序列化成 JSON
type Event struct {
	Name string
	Data any
}

type SourceStart struct {
	SourceID   uint   `json:"sourceId"`
	SourceName string `json:"sourceName"`
}

// SourceResult 既是 source-done 事件的负载，也是单源采集接口的返回值
type SourceResult struct {
	SourceID      uint   `json:"sourceId"`
	SourceName    string `json:"sourceName"`
	Status        string `json:"status"`
	ArticlesFound int    `json:"articlesFound"`
	NewArticles   int    `json:"newArticles"`
	Error         string `json:"error,omitempty"`
}

type FetchComplete struct {
	Total       int `json:"total"`
	Failed      int `json:"failed"`
	NewArticles int `json:"newArticles"`
}

type FilterStart struct {
	Unfiltered int `json:"unfiltered"`
}

// FilterDone 与 classifier.Result 同形
type FilterDone = classifier.Result

// Sink 接收进度事件；返回的错误只会被记录，不会中断运行
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// SinkFunc 函数适配器
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Send(ctx context.Context, ev Event) error { return f(ctx, ev) }

// ChanSink 把事件写进 channel，由调用方负责消费和关闭
type ChanSink chan Event

func (c ChanSink) Send(ctx context.Context, ev Event) error {
	select {
	case c <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Discard 丢弃所有事件
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })
