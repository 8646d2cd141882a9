package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.ObserveFetch("feed", "success", 2*time.Second, 10, 4)
	r.ObserveFetch("feed", "error", time.Second, 0, 0)
	r.ObservePurge(3)
	r.ObservePurge(0)
	r.ObserveRun("completed")
	r.ObserveBatch(true, 20)
	r.ObserveBatch(false, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.SourceFetches.WithLabelValues("feed", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SourceFetches.WithLabelValues("feed", "error")))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.ArticlesFound))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.ArticlesInserted))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.ArticlesPurged))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FilterBatches.WithLabelValues("error")))
	assert.Equal(t, 20.0, testutil.ToFloat64(r.ArticlesScored))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveFetch("board", "success", time.Second, 1, 1)
		r.ObservePurge(1)
		r.ObserveRun("skipped")
		r.ObserveBatch(true, 1)
	})
}

func TestSeparateRegistries(t *testing.T) {
	// 每个注册表各自独立，重复 New 不会冲突
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
