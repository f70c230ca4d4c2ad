package metrics

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "collateral"

// Registry holds every collector exposed on /metrics.
var Registry = prometheus.NewRegistry()

var (
	BlobOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "blob_operations_total", Help: "Object store operations by backend, operation and outcome."},
		[]string{"backend", "op", "outcome"},
	)
	CompensatingDeletes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "compensating_deletes_total", Help: "Blob deletes issued to undo a failed write."},
		[]string{"outcome"},
	)
	DocumentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "documents_created_total", Help: "Documents persisted after upload."},
	)
	Reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "reconciliations_total", Help: "Property status reconciliations by resulting status."},
		[]string{"result"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Requests rejected by the rate limiter."},
		[]string{"route"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		BlobOperations,
		CompensatingDeletes,
		DocumentsCreated,
		Reconciliations,
		RateLimitRejected,
		RequestDuration,
	)
}

// ObserveBlob records the outcome of an object store call.
func ObserveBlob(backend, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	BlobOperations.WithLabelValues(backend, op, outcome).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Middleware records request latency by matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// RegisterDB exports connection pool stats for db.
func RegisterDB(db *sql.DB, name string) error {
	return Registry.Register(collectors.NewDBStatsCollector(db, name))
}
