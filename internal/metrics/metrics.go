// Package metrics exposes solver metrics in Prometheus format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/elektrokombinacija/mise/internal/core"
)

// Metrics holds all Prometheus metrics for mise
type Metrics struct {
	// Solve metrics
	Solves         *prometheus.CounterVec
	SolveDuration  *prometheus.HistogramVec
	SearchNodes    *prometheus.CounterVec
	SearchFailures *prometheus.CounterVec
	Makespan       *prometheus.GaugeVec

	// Plan metrics
	PlanTasks     prometheus.Gauge
	PlanResources prometheus.Gauge
	PlanErrors    *prometheus.CounterVec

	// Verifier metrics
	Violations *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Solves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mise_solves_total",
				Help: "Total number of solves by outcome",
			},
			[]string{"solver", "status"},
		),
		SolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mise_solve_duration_seconds",
				Help:    "Wall time of a solve in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"solver"},
		),
		SearchNodes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mise_search_nodes_total",
				Help: "Total number of search nodes explored",
			},
			[]string{"solver"},
		),
		SearchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mise_search_failures_total",
				Help: "Total number of search dead ends",
			},
			[]string{"solver"},
		),
		Makespan: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mise_makespan_minutes",
				Help: "Makespan of the last schedule found",
			},
			[]string{"solver"},
		),

		PlanTasks: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mise_plan_tasks",
				Help: "Number of tasks in the last plan loaded",
			},
		),
		PlanResources: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mise_plan_resources",
				Help: "Number of resources in the last plan loaded",
			},
		),
		PlanErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mise_plan_errors_total",
				Help: "Total number of plan files rejected",
			},
			[]string{"kind"},
		),

		Violations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mise_schedule_violations_total",
				Help: "Total number of broken rules found by the verifier",
			},
			[]string{"kind"},
		),
	}
}

// ObservePlan records the size of a loaded problem.
func (m *Metrics) ObservePlan(p *core.Problem) {
	m.PlanTasks.Set(float64(len(p.Tasks)))
	m.PlanResources.Set(float64(len(p.Resources)))
}

// ObserveSolve records the outcome and search statistics of a solve.
func (m *Metrics) ObserveSolve(sol *core.Solution) {
	solver := sol.Solver
	m.Solves.WithLabelValues(solver, sol.Status.String()).Inc()
	m.SolveDuration.WithLabelValues(solver).Observe(sol.Stats.WallTime.Seconds())
	m.SearchNodes.WithLabelValues(solver).Add(float64(sol.Stats.Nodes))
	m.SearchFailures.WithLabelValues(solver).Add(float64(sol.Stats.Failures))
	if sol.Status.HasSolution() {
		m.Makespan.WithLabelValues(solver).Set(float64(sol.Makespan))
	}
}
