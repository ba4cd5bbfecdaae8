// Package metrics exports run progress to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yyyoichi/emeans/internal/evolution"
)

const namespace = "emeans"

// Metrics implements evolution.Observer. A nil *Metrics discards everything.
type Metrics struct {
	Generations  prometheus.Counter
	Improvements prometheus.Counter
	Degenerate   prometheus.Counter
	BestFitness  prometheus.Gauge
	MeanFitness  prometheus.Gauge
	Evaluation   prometheus.Histogram
}

var _ evolution.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generations evaluated.",
		}),
		Improvements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "improvements_total",
			Help:      "Generations that raised the best fitness.",
		}),
		Degenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_chromosomes_total",
			Help:      "Chromosomes scored zero for an undefined Dunn Index.",
		}),
		BestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_fitness",
			Help:      "Best Dunn Index of the latest generation.",
		}),
		MeanFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_fitness",
			Help:      "Mean Dunn Index of the latest generation.",
		}),
		Evaluation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_seconds",
			Help:      "Time to cluster and score one chromosome.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
	}
	reg.MustRegister(m.Generations, m.Improvements, m.Degenerate, m.BestFitness, m.MeanFitness, m.Evaluation)
	return m
}

func (m *Metrics) ObserveGeneration(s evolution.GenerationStats) {
	if m == nil {
		return
	}
	m.Generations.Inc()
	if s.Improved {
		m.Improvements.Inc()
	}
	m.Degenerate.Add(float64(s.Degenerate))
	m.BestFitness.Set(s.Best)
	m.MeanFitness.Set(s.Mean)
}

func (m *Metrics) ObserveEvaluation(d time.Duration) {
	if m == nil {
		return
	}
	m.Evaluation.Observe(d.Seconds())
}

// Handler serves the collectors gathered by g in the text exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
