package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "doctors_api_http_requests_total",
		Help: "Total HTTP requests by method, route and status code",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "doctors_api_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	bookingsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doctors_api_bookings_created_total",
		Help: "Total appointments booked",
	})

	bookingsCancelledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doctors_api_bookings_cancelled_total",
		Help: "Total appointments cancelled",
	})
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		bookingsCreatedTotal,
		bookingsCancelledTotal,
	)
}

// MetricsMiddleware records per-request counters and latency. Uses the gin
// route template (c.FullPath) as the path label so path parameters do not
// explode the label cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler exposes the Prometheus scrape endpoint.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordBookingCreated increments the booked-appointments counter.
func RecordBookingCreated() {
	bookingsCreatedTotal.Inc()
}

// RecordBookingCancelled increments the cancelled-appointments counter.
func RecordBookingCancelled() {
	bookingsCancelledTotal.Inc()
}
