package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "healthops"

// Transition results.
const (
	ResultOK          = "ok"
	ResultGuard       = "guard"
	ResultLocked      = "locked"
	ResultNotFound    = "not_found"
	ResultConflict    = "conflict"
	ResultUnavailable = "unavailable"
)

// Sync task results.
const (
	SyncExported   = "exported"
	SyncRetried    = "retried"
	SyncDeadLetter = "dead_letter"
	SyncCoalesced  = "coalesced"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Lifecycle transitions by entity, transition and result.",
		},
		[]string{"entity", "transition", "result"},
	)

	snapshots = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Collection snapshots received.",
		},
		[]string{"collection"},
	)

	shapeAnomalies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shape_anomalies_total",
			Help:      "Records with fields that could not be decoded.",
		},
		[]string{"collection"},
	)

	querySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_seconds",
			Help:      "Time spent filtering, sorting and paging a view.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"view"},
	)

	syncTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_tasks_total",
			Help:      "Background export tasks by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, transitions, snapshots, shapeAnomalies, querySeconds, syncTasks)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncTransition(entity, transition, result string) {
	transitions.WithLabelValues(entity, transition, result).Inc()
}

func IncSnapshot(collection string) {
	snapshots.WithLabelValues(collection).Inc()
}

func AddShapeAnomalies(collection string, n int) {
	if n <= 0 {
		return
	}
	shapeAnomalies.WithLabelValues(collection).Add(float64(n))
}

// ObserveQuery records how long a view took to recompute.
func ObserveQuery(view string, d time.Duration) {
	querySeconds.WithLabelValues(view).Observe(d.Seconds())
}

func IncSync(result string) {
	syncTasks.WithLabelValues(result).Inc()
}
