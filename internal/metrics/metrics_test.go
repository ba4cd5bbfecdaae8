package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yyyoichi/emeans/internal/evolution"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveGeneration(evolution.GenerationStats{Best: 3.5, Mean: 1.25, Degenerate: 2, Improved: true})
	m.ObserveGeneration(evolution.GenerationStats{Best: 3.0, Mean: 2, Degenerate: 1})
	m.ObserveEvaluation(3 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Generations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Improvements))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Degenerate))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.BestFitness))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MeanFitness))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Evaluation))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "emeans_generations_total 2")
	assert.Contains(t, string(body), "emeans_evaluation_seconds_count 1")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveGeneration(evolution.GenerationStats{Best: 1})
		m.ObserveEvaluation(time.Second)
	})
}
