// Package metrics exports engine activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/bastiangx/recipeserve/pkg/suggest"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "recipeserve"

// Collector implements suggest.Observer on top of Prometheus vectors.
type Collector struct {
	SearchesTotal   *prometheus.CounterVec
	EmptySearches   *prometheus.CounterVec
	SearchDuration  *prometheus.HistogramVec
	RebuildDuration prometheus.Histogram
	CorpusRecipes   prometheus.Gauge
	IndexKeys       prometheus.Gauge
	RankIterations  prometheus.Histogram
	RankFallbacks   prometheus.Counter
	SelectionsTotal prometheus.Counter
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

var _ suggest.Observer = (*Collector)(nil)

// New creates the collector and registers it with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Total number of free-text searches",
			},
			[]string{"mode"},
		),
		EmptySearches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_empty_total",
				Help:      "Searches that returned no recipe",
			},
			[]string{"mode"},
		),
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Search duration in seconds",
				Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"mode"},
		),
		RebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rebuild_duration_seconds",
			Help:      "Index rebuild duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CorpusRecipes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_recipes",
			Help:      "Recipes in the published snapshot",
		}),
		IndexKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_keys",
			Help:      "Keys in the prefix index",
		}),
		RankIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_iterations",
			Help:      "Band widening iterations per recommendation",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		RankFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_fallbacks_total",
			Help:      "Recommendations answered by distance ordering",
		}),
		SelectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Recipe selections recorded",
		}),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of IPC requests",
			},
			[]string{"op", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "IPC request duration in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"op"},
		),
	}
	reg.MustRegister(
		c.SearchesTotal,
		c.EmptySearches,
		c.SearchDuration,
		c.RebuildDuration,
		c.CorpusRecipes,
		c.IndexKeys,
		c.RankIterations,
		c.RankFallbacks,
		c.SelectionsTotal,
		c.RequestsTotal,
		c.RequestDuration,
	)
	return c
}

// SearchDone records one search.
func (c *Collector) SearchDone(mode suggest.Mode, results int, elapsed time.Duration) {
	c.SearchesTotal.WithLabelValues(string(mode)).Inc()
	if results == 0 {
		c.EmptySearches.WithLabelValues(string(mode)).Inc()
	}
	c.SearchDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
}

// RebuildDone records a published snapshot.
func (c *Collector) RebuildDone(recipes, keys int, elapsed time.Duration) {
	c.RebuildDuration.Observe(elapsed.Seconds())
	c.CorpusRecipes.Set(float64(recipes))
	c.IndexKeys.Set(float64(keys))
}

// RankDone records one ranking run.
func (c *Collector) RankDone(iterations int, fallback bool) {
	c.RankIterations.Observe(float64(iterations))
	if fallback {
		c.RankFallbacks.Inc()
	}
}

// Selected counts a recorded selection.
func (c *Collector) Selected() {
	c.SelectionsTotal.Inc()
}

// RequestDone records one IPC request.
func (c *Collector) RequestDone(op string, ok bool, elapsed time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	c.RequestsTotal.WithLabelValues(op, status).Inc()
	c.RequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
