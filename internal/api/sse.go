package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/NewsDesk/internal/runner"
)

// sseSink 把编排事件写成具名 SSE 事件，data 是 JSON 字符串。
// RunAll 在 handler 所在 goroutine 里同步调用 Send，所以不需要加锁。
type sseSink struct {
	c       *gin.Context
	logger  *slog.Logger
	started bool
	gone    bool
}

func newSSESink(c *gin.Context, logger *slog.Logger) *sseSink {
	return &sseSink{c: c, logger: logger}
}

func (s *sseSink) Send(_ context.Context, ev runner.Event) error {
	if s.gone {
		return nil
	}
	if err := s.c.Request.Context().Err(); err != nil {
		s.gone = true
		s.logger.Info("sse client disconnected, run continues", "event", ev.Name)
		return err
	}

	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Name, err)
	}
	if !s.started {
		s.c.Header("Cache-Control", "no-cache")
		s.c.Header("Connection", "keep-alive")
		s.c.Header("X-Accel-Buffering", "no")
		s.started = true
	}
	s.c.SSEvent(ev.Name, string(data))
	s.c.Writer.Flush()
	return nil
}
