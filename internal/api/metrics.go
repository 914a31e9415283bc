package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ledgerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainledger_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	ledgerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chainledger_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	ledgerBlocksAppendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainledger_blocks_appended_total",
		Help: "Total blocks appended since process start, including genesis.",
	})

	ledgerChainHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chainledger_chain_height",
		Help: "Sequence number of the most recently appended block.",
	})

	ledgerAuditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainledger_audits_total",
		Help: "Total chain verifications by result.",
	}, []string{"result"})

	ledgerTamperTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainledger_tamper_total",
		Help: "Total blocks deliberately corrupted through the tamper endpoint.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		ledgerRequestsTotal.WithLabelValues(method, path, status).Inc()
		ledgerRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordBlockAppend records a persisted block and moves the height gauge.
func RecordBlockAppend(seq int64) {
	ledgerBlocksAppendedTotal.Inc()
	ledgerChainHeight.Set(float64(seq))
}

// SetChainHeight sets the chain height gauge, e.g. after loading a stored chain.
func SetChainHeight(n int) {
	ledgerChainHeight.Set(float64(n))
}

// RecordAudit records a chain verification result.
func RecordAudit(valid bool) {
	if valid {
		ledgerAuditsTotal.WithLabelValues("valid").Inc()
	} else {
		ledgerAuditsTotal.WithLabelValues("invalid").Inc()
	}
}

// RecordTamper records a tamper operation.
func RecordTamper() {
	ledgerTamperTotal.Inc()
}
