package search

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hugr-lab/productsearch-go/filter"
)

// Search outcomes used as the "outcome" label.
const (
	OutcomeOK           = "ok"
	OutcomeInvalid      = "invalid"
	OutcomeStorageError = "storage_error"
	OutcomeError        = "error"
)

// Metrics records search counts, latency and result sizes.
// A nil *Metrics records nothing.
type Metrics struct {
	// SearchesTotal counts searches by outcome.
	SearchesTotal *prometheus.CounterVec
	// SearchDuration is the latency of searches that reached the store.
	SearchDuration prometheus.Histogram
	// ResultRows is the number of items returned per page.
	ResultRows prometheus.Histogram
}

// NewMetrics creates and registers search metrics on reg.
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SearchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "productsearch_searches_total",
				Help: "Total number of product searches",
			},
			[]string{"outcome"},
		),
		SearchDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "productsearch_search_duration_seconds",
				Help:    "Product search latency in seconds, count and page query included",
				Buckets: prometheus.DefBuckets,
			},
		),
		ResultRows: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "productsearch_result_rows",
				Help:    "Number of products returned per page",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
	}
}

func (m *Metrics) observe(err error, elapsed time.Duration, rows int) {
	if m == nil {
		return
	}
	outcome := Outcome(err)
	m.SearchesTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK || outcome == OutcomeStorageError {
		m.SearchDuration.Observe(elapsed.Seconds())
	}
	if outcome == OutcomeOK {
		m.ResultRows.Observe(float64(rows))
	}
}

// Outcome classifies a search error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case IsInvalidRequest(err):
		return OutcomeInvalid
	case errors.Is(err, ErrStorage):
		return OutcomeStorageError
	default:
		return OutcomeError
	}
}

// IsInvalidRequest reports whether err was caused by the request itself.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, filter.ErrInvalidFilter) ||
		errors.Is(err, filter.ErrUnknownOperator) ||
		errors.Is(err, ErrInvalidPagination) ||
		errors.Is(err, ErrInvalidSort)
}
