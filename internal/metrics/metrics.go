// Package metrics holds the Prometheus collectors shared by the storage,
// replication and HTTP layers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalog"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics is a set of collectors bound to its own registry. A nil *Metrics is
// valid and records nothing, so components can be built without it in tests.
type Metrics struct {
	registry *prometheus.Registry

	storageOps       *prometheus.CounterVec
	storageDuration  *prometheus.HistogramVec
	replicatedObjs   *prometheus.CounterVec
	replicationRuns  *prometheus.CounterVec
	replicationTime  prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpRequestTimes *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storageOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "storage",
				Name:      "operations_total",
				Help:      "Object storage operations by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		storageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "storage",
				Name:      "operation_duration_seconds",
				Help:      "Latency of object storage operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		replicatedObjs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "replication",
				Name:      "objects_total",
				Help:      "Objects processed by bucket replication, by outcome.",
			},
			[]string{"outcome"},
		),
		replicationRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "replication",
				Name:      "runs_total",
				Help:      "Bucket replication runs by final status.",
			},
			[]string{"status"},
		),
		replicationTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "replication",
				Name:      "run_duration_seconds",
				Help:      "Wall time of bucket replication runs.",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		httpRequestTimes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.storageOps,
		m.storageDuration,
		m.replicatedObjs,
		m.replicationRuns,
		m.replicationTime,
		m.httpRequests,
		m.httpRequestTimes,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveStorageOp records one object storage call.
func (m *Metrics) ObserveStorageOp(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.storageOps.WithLabelValues(op, outcome(err)).Inc()
	m.storageDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObjectReplicated records the outcome of a single replicated object.
func (m *Metrics) ObjectReplicated(err error) {
	if m == nil {
		return
	}
	m.replicatedObjs.WithLabelValues(outcome(err)).Inc()
}

// ReplicationFinished records the final status and duration of a run.
func (m *Metrics) ReplicationFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.replicationRuns.WithLabelValues(status).Inc()
	m.replicationTime.Observe(elapsed.Seconds())
}

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(route, method, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpRequestTimes.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// StorageOps returns the storage operation counter vector.
func (m *Metrics) StorageOps() *prometheus.CounterVec { return m.storageOps }

// ReplicatedObjects returns the replicated object counter vector.
func (m *Metrics) ReplicatedObjects() *prometheus.CounterVec { return m.replicatedObjs }

// ReplicationRuns returns the replication run counter vector.
func (m *Metrics) ReplicationRuns() *prometheus.CounterVec { return m.replicationRuns }

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
