// Package observability exposes the process's prometheus collectors. A nil
// *Collectors is valid and records nothing, which keeps tests free of
// registry setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "leadsync"

type Collectors struct {
	fetches        *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
	leads          prometheus.Gauge
	rowsDropped    prometheus.Counter
	rowsMalformed  prometheus.Counter
	limitDecisions *prometheus.CounterVec
	limitErrors    *prometheus.CounterVec
}

func NewCollectors(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_fetches_total",
			Help:      "Upstream export fetches by result.",
		}, []string{"result"}),
		fetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_fetch_duration_seconds",
			Help:      "Latency of upstream export fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_cache_lookups_total",
			Help:      "Snapshot cache lookups by result.",
		}, []string{"result"}),
		leads: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "leads_normalized",
			Help:      "Leads in the most recently normalized export.",
		}),
		rowsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Export rows dropped for lacking a business name.",
		}),
		rowsMalformed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_malformed_total",
			Help:      "Export records the CSV reader could not decode.",
		}),
		limitDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_decisions_total",
			Help:      "Rate limiter decisions by limiter prefix and outcome.",
		}, []string{"limiter", "outcome"}),
		limitErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_store_errors_total",
			Help:      "Bucket store failures by limiter prefix.",
		}, []string{"limiter"}),
	}
}

func (c *Collectors) ObserveFetch(d time.Duration, err error) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.fetches.WithLabelValues(result).Inc()
	c.fetchDuration.Observe(d.Seconds())
}

func (c *Collectors) CacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

func (c *Collectors) ObserveParse(leads, dropped, malformed int) {
	if c == nil {
		return
	}
	c.leads.Set(float64(leads))
	c.rowsDropped.Add(float64(dropped))
	c.rowsMalformed.Add(float64(malformed))
}

func (c *Collectors) RateLimitDecision(limiter string, allowed bool) {
	if c == nil {
		return
	}
	outcome := "rejected"
	if allowed {
		outcome = "allowed"
	}
	c.limitDecisions.WithLabelValues(limiter, outcome).Inc()
}

func (c *Collectors) RateLimitStoreError(limiter string) {
	if c == nil {
		return
	}
	c.limitErrors.WithLabelValues(limiter).Inc()
}
