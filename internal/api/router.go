package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/NewsDesk/internal/classifier"
	"github.com/LJTian/NewsDesk/internal/model"
	"github.com/LJTian/NewsDesk/internal/runner"
)

const (
	logLimit       = 100
	sourceLogLimit = 20
)

// Runner 采集编排，由 runner.Runner 实现
type Runner interface {
	RunAll(ctx context.Context, sink runner.Sink) (runner.Summary, error)
	RunOne(ctx context.Context, id uint) (runner.SourceResult, error)
}

// Filterer 按需打分，由 classifier.Classifier 实现
type Filterer interface {
	FilterArticles(ctx context.Context) (classifier.Result, error)
}

// Store 接口层直接读写的存储能力
type Store interface {
	ClearScores(ctx context.Context) (int, error)
	ListFetchLogs(ctx context.Context, limit int) ([]model.FetchLog, error)
	ListFetchLogsBySource(ctx context.Context, sourceID uint, limit int) ([]model.FetchLog, error)
}

type Server struct {
	runner  Runner
	filter  Filterer
	store   Store
	metrics http.Handler
	logger  *slog.Logger
}

// NewServer metricsHandler 为空时不注册 /metrics
func NewServer(run Runner, filter Filterer, store Store, metricsHandler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		runner:  run,
		filter:  filter,
		store:   store,
		metrics: metricsHandler,
		logger:  logger,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	fetch := r.Group("/api/fetch")
	{
		fetch.POST("", s.fetchAll)
		fetch.POST("/clear-scores", s.clearScores)
		fetch.POST("/filter", s.filterArticles)
		fetch.GET("/log", s.listFetchLogs)
		fetch.POST("/:sourceId", s.fetchOne)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fetchAll 以 SSE 推送进度。客户端断开后采集继续跑完，保证采集日志完整。
func (s *Server) fetchAll(c *gin.Context) {
	sink := newSSESink(c, s.logger)
	_, err := s.runner.RunAll(context.WithoutCancel(c.Request.Context()), sink)

	switch {
	case err == nil:
		return
	case errors.Is(err, runner.ErrNoEnabledSources):
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "No enabled sources", "results": []any{}}})
	case errors.Is(err, runner.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case sink.started:
		// 流已经开始，只能记日志
		s.logger.Error("fetch run aborted mid-stream", "error", err)
	default:
		s.logger.Error("fetch run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) fetchOne(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("sourceId"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source id"})
		return
	}

	res, err := s.runner.RunOne(c.Request.Context(), uint(id))
	if errors.Is(err, runner.ErrSourceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}
	if err != nil {
		s.logger.Error("fetch source failed", "source_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (s *Server) filterArticles(c *gin.Context) {
	res, err := s.filter.FilterArticles(c.Request.Context())
	if err != nil {
		s.logger.Error("filter failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Filter failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (s *Server) clearScores(c *gin.Context) {
	n, err := s.store.ClearScores(c.Request.Context())
	if err != nil {
		s.logger.Error("clear scores failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"cleared": n}})
}

func (s *Server) listFetchLogs(c *gin.Context) {
	var (
		logs []model.FetchLog
		err  error
	)
	if raw := c.Query("sourceId"); raw != "" {
		id, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source id"})
			return
		}
		logs, err = s.store.ListFetchLogsBySource(c.Request.Context(), uint(id), sourceLogLimit)
	} else {
		logs, err = s.store.ListFetchLogs(c.Request.Context(), logLimit)
	}
	if err != nil {
		s.logger.Error("list fetch logs failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if logs == nil {
		logs = []model.FetchLog{}
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}
