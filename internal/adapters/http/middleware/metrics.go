package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "walletd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "walletd",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

var (
	transfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletd",
			Subsystem: "business",
			Name:      "transfers_total",
			Help:      "Total number of transfer attempts by outcome",
		},
		[]string{"outcome", "currency"},
	)

	transferReplaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "walletd",
			Subsystem: "business",
			Name:      "transfer_replays_total",
			Help:      "Transfer requests answered from the idempotent result",
		},
	)
)

// Metrics records request count, latency and in-flight gauge per route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordTransfer counts one transfer attempt by outcome
// (completed, rejected, conflict, error).
func RecordTransfer(outcome, currency string) {
	transfersTotal.WithLabelValues(outcome, currency).Inc()
}

// RecordTransferReplay counts an idempotent replay.
func RecordTransferReplay() {
	transferReplaysTotal.Inc()
}
