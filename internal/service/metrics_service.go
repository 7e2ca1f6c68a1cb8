package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opencampus/uniportal-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides
// lightweight snapshots for the ops endpoint.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	gridsGenerated  prometheus.Counter
	published       prometheus.Counter
	conflicts       prometheus.Counter
	substitutions   prometheus.Counter
	lockContention  prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	requestCount         uint64
	requestDurationTotal uint64
	gridCount            uint64
	publishCount         uint64
	conflictCount        uint64
	substitutionCount    uint64
	lockContentionCount  uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	gridsGenerated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_grids_generated_total",
		Help: "Total weekly grids generated",
	})

	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_timetables_published_total",
		Help: "Total successful timetable publications",
	})

	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_conflicts_detected_total",
		Help: "Total conflicts reported by the checker",
	})

	substitutions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_substitution_queries_total",
		Help: "Total classroom substitution rankings served",
	})

	lockContention := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_lock_contention_total",
		Help: "Total requests rejected because a classroom lock was held",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, gridsGenerated, published, conflicts, substitutions, lockContention, dbQueryDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		gridsGenerated:  gridsGenerated,
		published:       published,
		conflicts:       conflicts,
		substitutions:   substitutions,
		lockContention:  lockContention,
		dbQueryDuration: dbQueryDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordGridGenerated counts one generator run.
func (m *MetricsService) RecordGridGenerated() {
	if m == nil {
		return
	}
	m.gridsGenerated.Inc()
	atomic.AddUint64(&m.gridCount, 1)
}

// RecordPublication counts one successful publish.
func (m *MetricsService) RecordPublication() {
	if m == nil {
		return
	}
	m.published.Inc()
	atomic.AddUint64(&m.publishCount, 1)
}

// RecordConflicts counts conflicts reported by the checker.
func (m *MetricsService) RecordConflicts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.conflicts.Add(float64(n))
	atomic.AddUint64(&m.conflictCount, uint64(n))
}

// RecordSubstitutionQuery counts one ranking request.
func (m *MetricsService) RecordSubstitutionQuery() {
	if m == nil {
		return
	}
	m.substitutions.Inc()
	atomic.AddUint64(&m.substitutionCount, 1)
}

// RecordLockContention counts a request turned away by a held lock.
func (m *MetricsService) RecordLockContention() {
	if m == nil {
		return
	}
	m.lockContention.Inc()
	atomic.AddUint64(&m.lockContentionCount, 1)
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// Snapshot returns aggregated counters for the ops endpoint.
func (m *MetricsService) Snapshot() models.SystemMetricsSnapshot {
	if m == nil {
		return models.SystemMetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		GridsGenerated:           atomic.LoadUint64(&m.gridCount),
		TimetablesPublished:      atomic.LoadUint64(&m.publishCount),
		ConflictsDetected:        atomic.LoadUint64(&m.conflictCount),
		SubstitutionQueries:      atomic.LoadUint64(&m.substitutionCount),
		LockContention:           atomic.LoadUint64(&m.lockContentionCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
