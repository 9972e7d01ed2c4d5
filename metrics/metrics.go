package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the analyzer's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	analyses        prometheus.Counter
	analysisSeconds prometheus.Histogram
	files           *prometheus.CounterVec
	rowsSkipped     *prometheus.CounterVec
	uploads         prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tradepnl",
			Name:      "analyses_total",
			Help:      "Analyses run.",
		}),
		analysisSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tradepnl",
			Name:      "analysis_duration_seconds",
			Help:      "Time spent analyzing all files of one request.",
			Buckets:   prometheus.DefBuckets,
		}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradepnl",
			Name:      "files_analyzed_total",
			Help:      "Files analyzed, by format and outcome.",
		}, []string{"format", "outcome"}),
		rowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradepnl",
			Name:      "rows_skipped_total",
			Help:      "Rows left out of or zeroed in a summary, by reason.",
		}, []string{"reason"}),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tradepnl",
			Name:      "uploads_total",
			Help:      "Trade-log files uploaded.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.analyses,
		m.analysisSeconds,
		m.files,
		m.rowsSkipped,
		m.uploads,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAnalysis(d time.Duration) {
	if m == nil {
		return
	}
	m.analyses.Inc()
	m.analysisSeconds.Observe(d.Seconds())
}

func (m *Metrics) ObserveFile(format, outcome string) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(format, outcome).Inc()
}

func (m *Metrics) ObserveSkipped(skipped map[string]int) {
	if m == nil {
		return
	}
	for reason, n := range skipped {
		m.rowsSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) ObserveUpload() {
	if m == nil {
		return
	}
	m.uploads.Inc()
}
