// Package metrics exposes Prometheus instruments for sync runs, the source
// circuit breaker, the leaderboard cache and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry sets the registry metrics are registered on and gathered from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// Manager owns every instrument. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	syncRuns         *prometheus.CounterVec
	tableRows        *prometheus.GaugeVec
	tableDuration    *prometheus.HistogramVec
	tableFailures    *prometheus.CounterVec
	lastSuccess      *prometheus.GaugeVec
	breakerState     *prometheus.GaugeVec
	cacheRequests    *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	leaderboardBuild prometheus.Histogram
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "htdashboard",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.syncRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Sync runs by outcome (success, partial, aborted)",
	}, []string{"outcome"})

	m.tableRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "table_rows",
		Help:      "Rows written by the last successful replace of each table",
	}, []string{"table"})

	m.tableDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "table_duration_seconds",
		Help:      "Time spent replicating one table",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"table"})

	m.tableFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "table_failures_total",
		Help:      "Failed table replications",
	}, []string{"table"})

	m.lastSuccess = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful replace of each table",
	}, []string{"table"})

	m.breakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "source",
		Name:      "circuit_breaker_state",
		Help:      "Source circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	m.cacheRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Leaderboard cache lookups by result",
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	m.leaderboardBuild = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "analytics",
		Name:      "leaderboard_build_seconds",
		Help:      "Time spent computing leaderboard data",
		Buckets:   prometheus.DefBuckets,
	})
}

func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Manager) RecordRun(outcome string) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(outcome).Inc()
}

// RecordTable records one table replication. err == nil means the replace committed.
func (m *Manager) RecordTable(table string, rows int64, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.tableDuration.WithLabelValues(table).Observe(elapsed.Seconds())
	if err != nil {
		m.tableFailures.WithLabelValues(table).Inc()
		return
	}
	m.tableRows.WithLabelValues(table).Set(float64(rows))
	m.lastSuccess.WithLabelValues(table).SetToCurrentTime()
}

func (m *Manager) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(state)
}

func (m *Manager) RecordCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

func (m *Manager) RecordHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Manager) ObserveLeaderboardBuild(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.leaderboardBuild.Observe(elapsed.Seconds())
}
