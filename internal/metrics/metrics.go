package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/afonsoingles/helper-scheduler/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Dispatcher / Execution Queue metrics

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scheduler",
		Name:      "execution_queue_depth",
		Help:      "Number of Jobs currently indexed in the Execution Queue (status queued or running).",
	})

	DispatchTickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "dispatch_tick_duration_seconds",
		Help:      "Wall-clock duration of one dispatcher tick.",
		Buckets:   prometheus.DefBuckets,
	})

	JobsDispatchedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "jobs_dispatched_total",
		Help:      "Total Jobs handed from the dispatcher to an Executor.",
	}, []string{"helper_id"})

	JobsTerminalTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "jobs_terminal_total",
		Help:      "Total Jobs reaching a terminal status, by outcome.",
	}, []string{"status"})

	HelperExecutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "helper_execution_duration_seconds",
		Help:      "Duration of a helper's run operation.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"helper_id", "outcome"})

	// Queue Planner metrics

	PlannerJobsEnqueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "planner_jobs_enqueued_total",
		Help:      "Total Jobs enqueued by the planner, by pass.",
	}, []string{"pass"})

	PlannerCycleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "planner_cycle_duration_seconds",
		Help:      "Duration of one planner pass (buildInitial, expandWindow, replanUser).",
		Buckets:   prometheus.DefBuckets,
	}, []string{"pass"})

	CatalogueGCRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "catalogue_gc_removed_total",
		Help:      "Total terminal Job Records removed by Catalogue GC.",
	})

	// Process lifecycle

	ProcessStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scheduler",
		Name:      "process_start_time_seconds",
		Help:      "Unix timestamp when the scheduling process started.",
	})

	// HTTP metrics (Mutation API)

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		QueueDepth,
		DispatchTickDuration,
		JobsDispatchedTotal,
		JobsTerminalTotal,
		HelperExecutionDuration,
		PlannerJobsEnqueuedTotal,
		PlannerCycleDuration,
		CatalogueGCRemovedTotal,
		ProcessStartTime,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer builds the metrics/health process: /metrics for Prometheus
// scraping, /healthz for liveness, /readyz for dependency readiness.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealthResult(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		result := checker.Readiness(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if result.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(result)
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealthResult(w http.ResponseWriter, result health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
