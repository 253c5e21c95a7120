// Prometheus instrumentation for the dispute API.
//
// Label discipline: the path label is always the registered Gin route
// (/api/v1/transactions/:id/audit, not the expanded URL) so transaction and
// conversation IDs never become label values. Status is carried only on the
// request counter; the latency and size histograms stay two-dimensional.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispute_http_requests_total",
			Help: "HTTP requests served, by method, route, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispute_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispute_http_requests_inflight",
			Help: "HTTP requests currently being handled.",
		},
	)

	// Buckets sized for JSON payloads up to evidence-verification responses.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dispute_http_response_size_bytes",
			Help: "HTTP response size in bytes, by method and route.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10,
				10 << 10, 25 << 10, 50 << 10,
				100 << 10, 250 << 10, 500 << 10,
				1 << 20, 2 << 20, 5 << 20,
			},
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// routeLabel returns the matched route, or the raw URL path for unmatched
// requests (404s hit a small fixed set of paths in practice).
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// Metrics instruments every request with the collectors above. Mount before
// the handlers and expose promhttp.Handler() on /metrics.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		method := c.Request.Method
		path := routeLabel(c)

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		// Size() is -1 for hijacked or unwritten responses; skip those.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
