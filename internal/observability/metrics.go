// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pubmed"

// Metrics holds the engine's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// RecordsExtracted counts records stored by fetches and local parses.
	RecordsExtracted prometheus.Counter

	// UpstreamErrors counts error documents returned in place of records.
	UpstreamErrors prometheus.Counter

	// MissingIdentifiers counts records dropped for lacking a PMID.
	MissingIdentifiers prometheus.Counter

	// FetchBatches counts efetch batches by outcome (ok, empty, error).
	FetchBatches *prometheus.CounterVec

	// FetchDuration observes per-batch efetch latency in seconds.
	FetchDuration prometheus.Histogram

	// Searches counts esearch calls by outcome (ok, error).
	Searches *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsExtracted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_extracted_total",
			Help:      "Total number of PubMed records extracted",
		}),
		UpstreamErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Total number of upstream error payloads received instead of records",
		}),
		MissingIdentifiers: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_identifiers_total",
			Help:      "Total number of records dropped because they carried no PMID",
		}),
		FetchBatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_batches_total",
			Help:      "Total number of efetch batches by outcome",
		}, []string{"status"}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of efetch batches in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		Searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of esearch calls by outcome",
		}, []string{"status"}),
	}
}

// ObserveBatch records one efetch batch.
func (m *Metrics) ObserveBatch(status string, records int, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchBatches.WithLabelValues(status).Inc()
	m.FetchDuration.Observe(d.Seconds())
	m.RecordsExtracted.Add(float64(records))
}

// ObserveSearch records one esearch call.
func (m *Metrics) ObserveSearch(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Searches.WithLabelValues(status).Inc()
}
