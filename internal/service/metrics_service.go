package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/unitutor-api/internal/models"
)

const metricsNamespace = "unitutor"

// MetricsService owns the Prometheus registry and keeps counters for the JSON snapshot.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	cacheLatency     prometheus.Histogram
	cacheHitRatio    prometheus.Gauge
	bookingConflicts *prometheus.CounterVec
	bookingsCreated  *prometheus.CounterVec
	exportsFinished  *prometheus.CounterVec

	cacheHits       atomic.Uint64
	cacheMisses     atomic.Uint64
	requests        atomic.Uint64
	requestNanos    atomic.Uint64
	conflictsServed atomic.Uint64
}

// NewMetricsService registers the service collectors alongside Go runtime metrics.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups partitioned by result",
		}, []string{"result"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cache_latency_seconds",
			Help:      "Latency of cache reads",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cache_hit_ratio",
			Help:      "Ratio of cache hits to total cache lookups",
		}),
		bookingConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "booking_conflicts_total",
			Help:      "Rejected bookings partitioned by resource and source of detection",
		}, []string{"resource", "source"}),
		bookingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bookings_created_total",
			Help:      "Accepted bookings partitioned by resource",
		}, []string{"resource"}),
		exportsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "calendar_exports_total",
			Help:      "Finished calendar exports partitioned by format and outcome",
		}, []string{"format", "status"}),
	}

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.cacheLookups, m.cacheLatency, m.cacheHitRatio,
		m.bookingConflicts, m.bookingsCreated, m.exportsFinished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request. route is the gin route template.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, code).Inc()
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup and refreshes the hit ratio gauge.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.cacheHits.Add(1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		m.cacheMisses.Add(1)
	}
	if ratio, ok := hitRatio(m.cacheHits.Load(), m.cacheMisses.Load()); ok {
		m.cacheHitRatio.Set(ratio)
	}
}

// RecordBookingConflict counts a rejected booking. source is "check" when the
// pre-insert overlap query caught it and "constraint" when the database did.
func (m *MetricsService) RecordBookingConflict(resource, source string) {
	if m == nil {
		return
	}
	m.bookingConflicts.WithLabelValues(resource, source).Inc()
	m.conflictsServed.Add(1)
}

// RecordBookingCreated counts accepted bookings.
func (m *MetricsService) RecordBookingCreated(resource string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bookingsCreated.WithLabelValues(resource).Add(float64(n))
}

// RecordExport counts a finished export job.
func (m *MetricsService) RecordExport(format string, status models.ExportStatus) {
	if m == nil {
		return
	}
	m.exportsFinished.WithLabelValues(format, string(status)).Inc()
}

// Snapshot returns aggregated counters for the admin metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()
	ratio, _ := hitRatio(hits, misses)

	requests := m.requests.Load()
	var avgMs float64
	if requests > 0 {
		avgMs = float64(m.requestNanos.Load()) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            ratio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgMs,
		BookingConflicts:         m.conflictsServed.Load(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func hitRatio(hits, misses uint64) (float64, bool) {
	total := hits + misses
	if total == 0 {
		return 0, false
	}
	return float64(hits) / float64(total), true
}
