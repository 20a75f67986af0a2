package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	DatesTotal    *prometheus.CounterVec
	PixelsTotal   *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	CacheHits     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blackmarble",
			Subsystem: "batch",
			Name:      "dates_total",
			Help:      "Dates processed by outcome.",
		}, []string{"status"}), // ok, fetch_failed, empty_region, cached
		PixelsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blackmarble",
			Subsystem: "filter",
			Name:      "pixels_total",
			Help:      "Pixels seen by the quality filter by outcome.",
		}, []string{"outcome"}), // kept, fill, excluded, missing
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blackmarble",
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Time spent retrieving one date.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "blackmarble",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Coverage records served from the record cache.",
		}),
	}
}

func (m *Metrics) ObserveDate(status string) {
	if m == nil {
		return
	}
	m.DatesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObservePixels(kept, fill, excluded, missing int) {
	if m == nil {
		return
	}
	m.PixelsTotal.WithLabelValues("kept").Add(float64(kept))
	m.PixelsTotal.WithLabelValues("fill").Add(float64(fill))
	m.PixelsTotal.WithLabelValues("excluded").Add(float64(excluded))
	m.PixelsTotal.WithLabelValues("missing").Add(float64(missing))
}

func (m *Metrics) ObserveFetch(seconds float64) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(seconds)
}

func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}
