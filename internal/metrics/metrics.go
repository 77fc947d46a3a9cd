package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homelist"

var (
	// ImagesIngested counts ingestion outcomes by result (stored, invalid, error).
	ImagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "images_ingested_total",
		Help:      "Images processed by the ingestion pipeline, by result.",
	}, []string{"result"})

	// RecordOperations counts record store operations by operation and result.
	RecordOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "record_operations_total",
		Help:      "Record store operations, by operation and result.",
	}, []string{"op", "result"})

	// Records tracks the size of the collection after the last mutation.
	Records = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "records",
		Help:      "Number of listings in the collection after the last mutation.",
	})

	// SweeperRemoved counts orphan image files removed by the sweeper.
	SweeperRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweeper_removed_total",
		Help:      "Orphan image files removed by the sweeper.",
	})
)

var (
	initOnce      sync.Once
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
)

// InitMetrics registers the HTTP collectors. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"})

		httpDurations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"})

		prometheus.MustRegister(httpRequests, httpDurations)
	})
}

// Middleware records request counts and latencies per matched route.
func Middleware() gin.HandlerFunc {
	InitMetrics()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDurations.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveRecordOp records the outcome of a record store operation.
func ObserveRecordOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	RecordOperations.WithLabelValues(op, result).Inc()
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
