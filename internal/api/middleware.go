package api

import (
	"bufio"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"canvassplan/internal/metrics"
)

// statusRecorder keeps the response code for logging and metrics. It passes
// Flush and Hijack through so SSE and websockets keep working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		dur := time.Since(start)
		log.Printf("%s %s %s %d %v", r.RemoteAddr, r.Method, r.URL.Path, rec.status, dur)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec, ok := w.(*statusRecorder)
		if !ok {
			rec = &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		}
		next.ServeHTTP(rec, r)
		path := routeLabel(r.URL.Path)
		code := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, code).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, code).Observe(time.Since(start).Seconds())
	})
}

// rateLimitMiddleware applies the per-tenant token bucket. Health and metrics
// endpoints are exempt.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") {
			if l := s.limiterFor(s.getPrincipal(r).Tenant); l != nil && !l.Allow() {
				w.Header().Set("Retry-After", "1")
				writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded", r.URL.Path)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// knownRoutes are the fixed paths served by Routes.
var knownRoutes = map[string]bool{
	"/v1/route-order":            true,
	"/v1/day-assignments":        true,
	"/v1/households":             true,
	"/v1/plans":                  true,
	"/v1/plans/ws":               true,
	"/v1/optimizer/config":       true,
	"/v1/admin/optimizer/config": true,
	"/v1/admin/plan-metrics":     true,
	"/healthz":                   true,
	"/readyz":                    true,
	"/debug/vars":                true,
	"/metrics":                   true,
}

// routeLabel keeps the path label low-cardinality: plan ids collapse to
// {id} and anything not served by Routes becomes "other".
func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	rest, ok := strings.CutPrefix(path, "/v1/plans/")
	if !ok || rest == "" {
		return "other"
	}
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		return "other"
	}
	switch sub {
	case "":
		return "/v1/plans/{id}"
	case "geojson", "events/stream":
		return "/v1/plans/{id}/" + sub
	}
	return "other"
}

func metricsHandler() http.Handler {
	metrics.RegisterDefault()
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}
