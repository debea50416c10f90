// Package metrics exposes Prometheus collectors for the query engine,
// source loading and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "primeword"

// Metrics holds all collectors on a private registry.
type Metrics struct {
	queriesTotal   *prometheus.CounterVec
	queryDuration  *prometheus.HistogramVec
	lookupsTotal   *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec

	indexWords  prometheus.Gauge
	indexGroups prometheus.Gauge
	commonWords prometheus.Gauge
	sourceLoads *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with every collector registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of anagram queries by outcome",
			},
			[]string{"outcome"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Anagram query latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "definition_lookups_total",
				Help:      "Total number of definition lookups by outcome",
			},
			[]string{"outcome"},
		),
		lookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "definition_lookup_duration_seconds",
				Help:      "Definition lookup latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"outcome"},
		),
		indexWords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_words",
			Help:      "Number of distinct words in the anagram index",
		}),
		indexGroups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_groups",
			Help:      "Number of distinct signatures in the anagram index",
		}),
		commonWords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "common_words",
			Help:      "Number of words in the common-word set",
		}),
		sourceLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_loads_total",
				Help:      "Word list load attempts by source and status",
			},
			[]string{"source", "status"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.queriesTotal,
		m.queryDuration,
		m.lookupsTotal,
		m.lookupDuration,
		m.indexWords,
		m.indexGroups,
		m.commonWords,
		m.sourceLoads,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	return m
}

// ObserveQuery records a finished query.
func (m *Metrics) ObserveQuery(outcome string, elapsed time.Duration) {
	m.queriesTotal.WithLabelValues(outcome).Inc()
	m.queryDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveLookup records a finished definition lookup.
func (m *Metrics) ObserveLookup(outcome string, elapsed time.Duration) {
	m.lookupsTotal.WithLabelValues(outcome).Inc()
	m.lookupDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// SetIndexStats publishes the sizes of the loaded word data.
func (m *Metrics) SetIndexStats(words, groups, common int) {
	m.indexWords.Set(float64(words))
	m.indexGroups.Set(float64(groups))
	m.commonWords.Set(float64(common))
}

// RecordSourceLoad counts one word list load attempt.
func (m *Metrics) RecordSourceLoad(source string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.sourceLoads.WithLabelValues(source, status).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CacheReporter is the definition cache as seen at scrape time.
type CacheReporter interface {
	Stats() (hits, misses int64)
	Entries() (found, missing int, err error)
}

// RegisterDefinitionCache exposes hit/miss counters and stored entry counts
// read from c on every scrape.
func (m *Metrics) RegisterDefinitionCache(c CacheReporter) error {
	return m.registry.Register(&cacheCollector{
		cache: c,
		lookups: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "definition_cache_total"),
			"Definition cache reads by result",
			[]string{"result"}, nil,
		),
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "definition_cache_entries"),
			"Stored definition cache entries by state",
			[]string{"state"}, nil,
		),
	})
}

type cacheCollector struct {
	cache   CacheReporter
	lookups *prometheus.Desc
	entries *prometheus.Desc
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.lookups
	ch <- c.entries
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	hits, misses := c.cache.Stats()
	ch <- prometheus.MustNewConstMetric(c.lookups, prometheus.CounterValue, float64(hits), "hit")
	ch <- prometheus.MustNewConstMetric(c.lookups, prometheus.CounterValue, float64(misses), "miss")

	// a failed count leaves the entries series out of this scrape
	found, missing, err := c.cache.Entries()
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(found), "found")
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(missing), "missing")
}
