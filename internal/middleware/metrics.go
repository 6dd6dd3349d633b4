package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmstand_http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "farmstand_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Metrics records request counts and latencies per route. Paths are collapsed
// to route patterns so order and product IDs do not blow up label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		route := routePattern(r.URL.Path)

		timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues(r.Method, route))
		next.ServeHTTP(rw, r)
		timer.ObserveDuration()

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
	})
}

// routePattern collapses path parameters to placeholders.
func routePattern(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/products/"):
		return "/api/products/{id}"
	case strings.HasPrefix(path, "/api/cart/items/"):
		return "/api/cart/items/{variantId}"
	case strings.HasPrefix(path, "/api/admin/orders/"):
		rest := strings.Trim(path[len("/api/admin/orders/"):], "/")
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return "/api/admin/orders/{id}/" + rest[i+1:]
		}
		return "/api/admin/orders/{ref}"
	default:
		return path
	}
}
