package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetlink/pkg/metrics"
)

// Metrics records request counts and latencies per route.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := RouteLabel(r.URL.Path)
			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RouteLabel collapses identifiers in a path so label cardinality stays
// bounded: any segment following "id" becomes ":id".
func RouteLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := 1; i < len(segments); i++ {
		if segments[i-1] == "id" {
			segments[i] = ":id"
		}
	}
	return "/" + strings.Join(segments, "/")
}
