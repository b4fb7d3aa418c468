package middleware

import (
	"log"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/trace"
)

// RequestLogger writes one access log line per request. Registered with
// router.Use it also knows the matched route template.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics := httpsnoop.CaptureMetrics(next, w, r)

		route := "-"
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}

		spanContext := trace.SpanFromContext(r.Context()).SpanContext()
		log.Printf(
			"request method=%s route=%s path=%s status=%d bytes=%d duration=%s trace_id=%s span_id=%s",
			r.Method,
			route,
			r.URL.Path,
			metrics.Code,
			metrics.Written,
			metrics.Duration,
			spanContext.TraceID(),
			spanContext.SpanID(),
		)
	})
}
