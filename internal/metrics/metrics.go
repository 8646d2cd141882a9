// Package metrics 采集与打分流程的 Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsdesk"

// Recorder 持有全部指标。nil 的 Recorder 可以直接调用，什么也不记录
type Recorder struct {
	SourceFetches    *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	ArticlesFound    prometheus.Counter
	ArticlesInserted prometheus.Counter
	ArticlesPurged   prometheus.Counter
	Runs             *prometheus.CounterVec
	FilterBatches    *prometheus.CounterVec
	ArticlesScored   prometheus.Counter
}

// New 在 reg 上注册指标；reg 为 nil 时使用默认注册表
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		SourceFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_fetch_total",
				Help:      "Source fetch attempts by kind and status",
			},
			[]string{"kind", "status"},
		),
		FetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_fetch_duration_seconds",
				Help:      "Duration of a single source fetch including ingestion",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"kind"},
		),
		ArticlesFound: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_found_total",
			Help:      "Raw articles returned by adapters",
		}),
		ArticlesInserted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_inserted_total",
			Help:      "Articles stored after dedup and retention filtering",
		}),
		ArticlesPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_purged_total",
			Help:      "Articles removed by the retention sweep",
		}),
		Runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_runs_total",
				Help:      "Fetch-all runs by result",
			},
			[]string{"result"},
		),
		FilterBatches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "filter_batches_total",
				Help:      "Classifier batches by status",
			},
			[]string{"status"},
		),
		ArticlesScored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_scored_total",
			Help:      "Articles that received a relevance score",
		}),
	}
}

// ObserveFetch 记录一次数据源采集
func (r *Recorder) ObserveFetch(kind, status string, d time.Duration, found, inserted int) {
	if r == nil {
		return
	}
	r.SourceFetches.WithLabelValues(kind, status).Inc()
	r.FetchDuration.WithLabelValues(kind).Observe(d.Seconds())
	r.ArticlesFound.Add(float64(found))
	r.ArticlesInserted.Add(float64(inserted))
}

// ObservePurge 记录清理掉的文章数
func (r *Recorder) ObservePurge(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.ArticlesPurged.Add(float64(n))
}

// ObserveRun result 取 completed / skipped
func (r *Recorder) ObserveRun(result string) {
	if r == nil {
		return
	}
	r.Runs.WithLabelValues(result).Inc()
}

// ObserveBatch 记录一个打分批次
func (r *Recorder) ObserveBatch(ok bool, scored int) {
	if r == nil {
		return
	}
	status := "success"
	if !ok {
		status = "error"
	}
	r.FilterBatches.WithLabelValues(status).Inc()
	r.ArticlesScored.Add(float64(scored))
}
