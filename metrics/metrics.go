package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors for search runs. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Registry        *prometheus.Registry
	PagesVisited    *prometheus.CounterVec
	Candidates      prometheus.Counter
	RecordsAdmitted *prometheus.CounterVec
	RecordsRejected *prometheus.CounterVec
	PageDuration    prometheus.Histogram
	Runs            *prometheus.CounterVec
	SinkErrors      *prometheus.CounterVec
}

// New constructs and registers all collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfscan_pages_visited_total",
			Help: "Result pages visited, by outcome.",
		},
		[]string{"outcome"},
	)
	candidates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shelfscan_candidates_total",
			Help: "Candidate product blocks found on visited pages.",
		},
	)
	admitted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfscan_records_admitted_total",
			Help: "Records admitted to a run's result set.",
		},
		[]string{"mode"},
	)
	rejected := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfscan_records_rejected_total",
			Help: "Candidates dropped before admission, by reason.",
		},
		[]string{"reason"},
	)
	pageDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelfscan_page_duration_seconds",
			Help:    "Time spent rendering and extracting one results page.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfscan_runs_total",
			Help: "Search runs, by outcome.",
		},
		[]string{"outcome"},
	)
	sinkErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfscan_sink_errors_total",
			Help: "Dataset sink write failures, by sink.",
		},
		[]string{"sink"},
	)

	registry.MustRegister(pages, candidates, admitted, rejected, pageDuration, runs, sinkErrors)

	return &Metrics{
		Registry:        registry,
		PagesVisited:    pages,
		Candidates:      candidates,
		RecordsAdmitted: admitted,
		RecordsRejected: rejected,
		PageDuration:    pageDuration,
		Runs:            runs,
		SinkErrors:      sinkErrors,
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// IncPage counts one visited page.
func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesVisited.WithLabelValues(outcome).Inc()
}

// AddCandidates counts candidate blocks found on a page.
func (m *Metrics) AddCandidates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Candidates.Add(float64(n))
}

// IncAdmitted counts one admitted record.
func (m *Metrics) IncAdmitted(mode string) {
	if m == nil {
		return
	}
	m.RecordsAdmitted.WithLabelValues(mode).Inc()
}

// IncRejected counts one dropped candidate.
func (m *Metrics) IncRejected(reason string) {
	if m == nil {
		return
	}
	m.RecordsRejected.WithLabelValues(reason).Inc()
}

// ObservePage records one page's duration.
func (m *Metrics) ObservePage(d time.Duration) {
	if m == nil {
		return
	}
	m.PageDuration.Observe(d.Seconds())
}

// IncRun counts one finished run.
func (m *Metrics) IncRun(outcome string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
}

// IncSinkError counts one failed sink write.
func (m *Metrics) IncSinkError(sink string) {
	if m == nil {
		return
	}
	m.SinkErrors.WithLabelValues(sink).Inc()
}
