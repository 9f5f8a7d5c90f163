package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus instrumentation. Each server owns
// its own registry so tests can run handlers side by side.
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal   prometheus.Counter
	AnalyzeDuration prometheus.Histogram
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	SuspectsFound   prometheus.Counter
	RecordsDropped  prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
}

// NewMetrics creates and registers the server metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		AnalysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loganalyzer_analyses_total",
			Help: "Number of analysis runs completed.",
		}),
		AnalyzeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "loganalyzer_analyze_duration_seconds",
			Help:    "Wall time of analysis runs.",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loganalyzer_result_cache_hits_total",
			Help: "Analyses served from the result cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loganalyzer_result_cache_misses_total",
			Help: "Analyses that missed the result cache.",
		}),
		SuspectsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loganalyzer_suspects_total",
			Help: "Suspect profiles produced across all runs.",
		}),
		RecordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loganalyzer_records_dropped_total",
			Help: "Input rows dropped during normalization.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loganalyzer_http_requests_total",
			Help: "HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),
	}

	reg.MustRegister(
		m.AnalysesTotal,
		m.AnalyzeDuration,
		m.CacheHits,
		m.CacheMisses,
		m.SuspectsFound,
		m.RecordsDropped,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
