package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/elektrokombinacija/mise/internal/core"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m == nil {
		t.Fatal("expected metrics, got nil")
	}

	// Verify all metrics are initialized
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"Solves", m.Solves},
		{"SolveDuration", m.SolveDuration},
		{"SearchNodes", m.SearchNodes},
		{"SearchFailures", m.SearchFailures},
		{"Makespan", m.Makespan},
		{"PlanTasks", m.PlanTasks},
		{"PlanResources", m.PlanResources},
		{"PlanErrors", m.PlanErrors},
		{"Violations", m.Violations},
	}

	for _, tt := range tests {
		if tt.metric == nil {
			t.Errorf("%s is nil", tt.name)
		}
	}
}

func TestObserveSolve(t *testing.T) {
	_, m := NewRegistry()

	sol := core.NewSolution(core.StatusOptimal, 0)
	sol.Solver = "cp"
	sol.Makespan = 42
	sol.Stats = core.Stats{Nodes: 120, Failures: 7, WallTime: 250 * time.Millisecond}
	m.ObserveSolve(sol)

	none := core.NewSolution(core.StatusInfeasible, 0)
	none.Solver = "cp"
	none.Stats = core.Stats{Nodes: 3, Failures: 3}
	m.ObserveSolve(none)

	if got := testutil.ToFloat64(m.Solves.WithLabelValues("cp", "Optimal")); got != 1 {
		t.Errorf("optimal solves = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Solves.WithLabelValues("cp", "Infeasible")); got != 1 {
		t.Errorf("infeasible solves = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SearchNodes.WithLabelValues("cp")); got != 123 {
		t.Errorf("nodes = %v, want 123", got)
	}
	if got := testutil.ToFloat64(m.SearchFailures.WithLabelValues("cp")); got != 10 {
		t.Errorf("failures = %v, want 10", got)
	}
	// An infeasible solve leaves the last makespan alone
	if got := testutil.ToFloat64(m.Makespan.WithLabelValues("cp")); got != 42 {
		t.Errorf("makespan = %v, want 42", got)
	}
	if got := testutil.CollectAndCount(m.SolveDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestObservePlan(t *testing.T) {
	_, m := NewRegistry()

	p := core.NewProblem()
	p.AddResource("pot", core.Limited(1))
	p.AddTask("a", core.Recipe{Duration: 1})
	p.AddTask("b", core.Recipe{Duration: 1})
	m.ObservePlan(p)

	if got := testutil.ToFloat64(m.PlanTasks); got != 2 {
		t.Errorf("tasks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PlanResources); got != 1 {
		t.Errorf("resources = %v, want 1", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	reg, m := NewRegistry()
	m.PlanErrors.WithLabelValues("validation").Inc()

	path := filepath.Join(t.TempDir(), "mise.prom")
	if err := WriteTextfile(reg, path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `mise_plan_errors_total{kind="validation"} 1`) {
		t.Errorf("textfile missing plan error counter:\n%s", data)
	}
}
