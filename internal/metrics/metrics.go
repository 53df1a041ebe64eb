package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// OptimizeDuration records route ordering time per travel mode
	OptimizeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "route_optimize_duration_seconds", Help: "Route ordering duration in seconds.", Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5}},
		[]string{"mode"},
	)
	// OptimizePasses records how many 2-opt passes each run used
	OptimizePasses = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "route_optimize_passes", Help: "2-opt passes per route ordering run.", Buckets: []float64{0, 1, 2, 3, 5, 8, 10}},
		[]string{"mode"},
	)
	// OptimizeSeedKept counts runs where the nearest-neighbor order beat the improved one
	OptimizeSeedKept = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_optimize_seed_kept_total", Help: "Runs that returned the construction order."},
		[]string{"mode"},
	)
	// PlansCreated counts plans by travel mode
	PlansCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plans_created_total", Help: "Canvass plans created."},
		[]string{"mode"},
	)
	// PlanStops records stop counts per plan
	PlanStops = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plan_stops", Help: "Stops per plan.", Buckets: prometheus.ExponentialBuckets(1, 2, 12)},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OptimizeDuration)
		Registry.MustRegister(OptimizePasses)
		Registry.MustRegister(OptimizeSeedKept)
		Registry.MustRegister(PlansCreated)
		Registry.MustRegister(PlanStops)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
