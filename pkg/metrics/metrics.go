// Package metrics exposes prometheus collectors for import runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides import pipeline metrics.
type Collector struct {
	RecordsImported  *prometheus.CounterVec
	RecordsRejected  *prometheus.CounterVec
	PagesFetched     *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	TaxonCacheHits   prometheus.Counter
	TaxonResolutions *prometheus.CounterVec
}

// NewCollector creates a metrics collector registered on reg. Pass
// prometheus.DefaultRegisterer outside of tests.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RecordsImported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_imported_total",
				Help:      "Occurrence records persisted, by provider",
			},
			[]string{"provider"},
		),
		RecordsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_rejected_total",
				Help:      "Occurrence records rejected, by provider and reason",
			},
			[]string{"provider", "reason"},
		),
		PagesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_fetched_total",
				Help:      "Provider pages fetched, by provider",
			},
			[]string{"provider"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of import runs in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"provider"},
		),
		TaxonCacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "taxon_cache_hits_total",
				Help:      "Taxon resolutions served from the in-process cache",
			},
		),
		TaxonResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "taxon_resolutions_total",
				Help:      "Successful taxon resolutions, by tier (local or remote)",
			},
			[]string{"tier"},
		),
	}
}
