package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "execgate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "execgate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	executions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "execgate",
			Subsystem: "exec",
			Name:      "executions_total",
			Help:      "Executions by terminal outcome.",
		},
		[]string{"outcome"},
	)
	executionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "execgate",
			Subsystem: "exec",
			Name:      "duration_seconds",
			Help:      "Process wall time from spawn to termination.",
			Buckets:   []float64{.005, .025, .1, .5, 1, 5, 15, 60, 300},
		},
		[]string{"outcome"},
	)
	rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "execgate",
			Subsystem: "exec",
			Name:      "rejections_total",
			Help:      "Requests refused before a process was spawned.",
		},
		[]string{"reason"},
	)
	running = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "execgate",
		Subsystem: "exec",
		Name:      "running",
		Help:      "Processes currently running.",
	})
	queued = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "execgate",
		Subsystem: "exec",
		Name:      "queued",
		Help:      "Requests waiting for an execution slot.",
	})
)

// RegisterMetrics registers all collectors with the default registry.
// It is safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, executions, executionDuration, rejections, running, queued)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordExecution counts a finished execution.
func RecordExecution(outcome string, duration time.Duration) {
	executions.WithLabelValues(outcome).Inc()
	executionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordRejection counts a request refused before spawning.
func RecordRejection(reason string) {
	rejections.WithLabelValues(reason).Inc()
}

// ExecutionStarted and ExecutionStopped track the running gauge.
func ExecutionStarted() { running.Inc() }
func ExecutionStopped() { running.Dec() }

// QueueEntered and QueueLeft track the queued gauge.
func QueueEntered() { queued.Inc() }
func QueueLeft()    { queued.Dec() }
