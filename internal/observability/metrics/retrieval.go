package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

// RetrievalMetrics implements ports.SearchObserver and tracks breaker state
// for outbound dependencies.
type RetrievalMetrics struct {
	service string

	searchesTotal   *prometheus.CounterVec
	searchDuration  *prometheus.HistogramVec
	searchResults   *prometheus.HistogramVec
	tablesTotal     *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	breakerOpenings *prometheus.CounterVec
}

func newRetrievalMetrics(registry prometheus.Registerer, service string) *RetrievalMetrics {
	searchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Guideline searches by resolved scope and outcome.",
		},
		[]string{"service", "scope", "status"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Guideline search duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of results returned per successful search.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 8},
		},
		[]string{"service", "scope"},
	)
	tablesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tables",
			Name:      "rendered_total",
			Help:      "Table enrichments by detected subtype and the renderer that produced the text.",
		},
		[]string{"service", "subtype", "renderer"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)
	breakerOpenings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "open_total",
			Help:      "Transitions into the open state per operation.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(searchesTotal, searchDuration, searchResults, tablesTotal, breakerState, breakerOpenings)

	return &RetrievalMetrics{
		service:         service,
		searchesTotal:   searchesTotal,
		searchDuration:  searchDuration,
		searchResults:   searchResults,
		tablesTotal:     tablesTotal,
		breakerState:    breakerState,
		breakerOpenings: breakerOpenings,
	}
}

func (m *RetrievalMetrics) ObserveSearch(scope domain.Scope, results int, duration time.Duration, err error) {
	label := string(scope)
	if label == "" {
		label = "none"
	}
	status := searchStatus(err)
	m.searchesTotal.WithLabelValues(m.service, label, status).Inc()
	m.searchDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
	if err == nil {
		m.searchResults.WithLabelValues(m.service, label).Observe(float64(results))
	}
}

func (m *RetrievalMetrics) ObserveTable(subtype domain.TableSubtype, renderer string) {
	if renderer == "" {
		renderer = "unknown"
	}
	m.tablesTotal.WithLabelValues(m.service, string(subtype), renderer).Inc()
}

// ObserveBreaker matches resilience.StateListener.
func (m *RetrievalMetrics) ObserveBreaker(operation string, _, to gobreaker.State) {
	m.breakerState.WithLabelValues(m.service, operation).Set(breakerValue(to))
	if to == gobreaker.StateOpen {
		m.breakerOpenings.WithLabelValues(m.service, operation).Inc()
	}
}

func breakerValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func searchStatus(err error) string {
	if err == nil {
		return "ok"
	}
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporary"
	case domain.IsKind(err, domain.ErrEmbeddingFailed):
		return "embedding_failed"
	case domain.IsKind(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
