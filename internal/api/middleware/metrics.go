package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mds_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mds_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	requestsShed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mds_requests_shed_total",
			Help: "Total number of requests rejected by the concurrency gate",
		},
	)

	droppedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mds_dropped_rows_total",
			Help: "Total number of warehouse rows dropped during mapping",
		},
		[]string{"entity"},
	)
)

// RegisterMetrics registers the service metrics with the default registry.
// Call once at boot.
func RegisterMetrics() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(requestsShed)
	prometheus.MustRegister(droppedRows)
}

// CountDroppedRows records rows lost while mapping the given entity.
func CountDroppedRows(entity string, n int) {
	if n > 0 {
		droppedRows.WithLabelValues(entity).Add(float64(n))
	}
}

// Metrics instruments every request with a counter and a duration
// histogram. The route template is used as the path label so parameterized
// routes do not explode the cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
