package algo

import (
	"fmt"

	"github.com/elektrokombinacija/mise/internal/core"
	"github.com/elektrokombinacija/mise/internal/cpsat"
)

// Model is the constraint model of a scheduling problem.
type Model struct {
	Problem    *core.Problem
	Horizon    int
	Capacities []int

	cp        *cpsat.Builder
	starts    []cpsat.IntVar
	ends      []cpsat.IntVar
	durations []cpsat.IntVar
	presence  [][]cpsat.BoolVar
	demands   [][]cpsat.IntVar      // [task][resource]
	energies  [][]*cpsat.LinearExpr // [task][resource]
	makespan  cpsat.IntVar
}

// BuildModel encodes p as a constraint model minimizing the makespan.
func BuildModel(p *core.Problem) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}

	cp := cpsat.NewCpModelBuilder()
	n := len(p.Tasks)
	m := &Model{
		Problem:    p,
		Horizon:    Horizon(p),
		Capacities: ResolveCapacities(p),
		cp:         cp,
		starts:     make([]cpsat.IntVar, n),
		ends:       make([]cpsat.IntVar, n),
		durations:  make([]cpsat.IntVar, n),
		presence:   make([][]cpsat.BoolVar, n),
		demands:    make([][]cpsat.IntVar, n),
		energies:   make([][]*cpsat.LinearExpr, n),
	}
	h := int64(m.Horizon)

	intervals := make([]cpsat.IntervalVar, n)
	for t, task := range p.Tasks {
		m.starts[t] = cp.NewIntVar(0, h).WithName(fmt.Sprintf("start_of_task_%d", t))
		m.ends[t] = cp.NewIntVar(0, h).WithName(fmt.Sprintf("end_of_task_%d", t))

		lits := make([]cpsat.BoolVar, len(task.Recipes))
		for r := range lits {
			lits[r] = cp.NewBoolVar().WithName(fmt.Sprintf("is_present_%d_%d", t, r))
		}
		cp.AddExactlyOne(lits...)
		m.presence[t] = lits

		durs := make([]int64, len(task.Recipes))
		for r, recipe := range task.Recipes {
			durs[r] = int64(recipe.Duration)
		}
		m.durations[t] = cp.NewIntVarFromDomain(cpsat.FromValues(durs)).WithName(fmt.Sprintf("duration_of_task_%d", t))
		cp.AddEquality(m.durations[t], SelectionExpr(durs, lits))

		intervals[t] = cp.NewIntervalVar(m.starts[t], m.durations[t], m.ends[t]).WithName(fmt.Sprintf("task_interval_%d", t))

		m.demands[t] = make([]cpsat.IntVar, len(p.Resources))
		m.energies[t] = make([]*cpsat.LinearExpr, len(p.Resources))
		for res := range p.Resources {
			ds := make([]int64, len(task.Recipes))
			es := make([]int64, len(task.Recipes))
			for r, recipe := range task.Recipes {
				ds[r] = int64(recipe.DemandOn(core.ResourceID(res)))
				es[r] = ds[r] * durs[r]
			}
			m.demands[t][res] = cp.NewIntVarFromDomain(cpsat.FromValues(ds)).WithName(fmt.Sprintf("demand_%d_%d", t, res))
			cp.AddEquality(m.demands[t][res], SelectionExpr(ds, lits))
			m.energies[t][res] = SelectionExpr(es, lits)
		}
	}

	m.makespan = cp.NewIntVar(0, h).WithName("makespan")
	size := cp.NewIntVar(1, h).WithName("interval_makespan_size")
	sentinel := cp.NewIntervalVar(m.makespan, size, cp.NewConstant(h+1)).WithName("interval_makespan")

	for t, task := range p.Tasks {
		for _, s := range task.Successors {
			if s.Bounded() {
				gap := cpsat.NewLinearExpr().Add(m.starts[s.Task]).AddTerm(m.ends[t], -1)
				cp.AddLessOrEqual(gap, cpsat.NewConstant(int64(s.Delay)))
			}
			cp.AddLessOrEqual(m.ends[t], m.starts[s.Task])
		}
		if task.IsSink() {
			cp.AddLessOrEqual(m.ends[t], m.makespan)
		}
	}

	for res := range p.Resources {
		c := int64(m.Capacities[res])
		cum := cp.AddCumulative(c)
		for t := range p.Tasks {
			cum.AddDemandWithEnergy(intervals[t], m.demands[t][res], m.energies[t][res])
		}
		cum.AddDemandWithEnergy(sentinel, cpsat.NewConstant(c), cpsat.NewLinearExpr().AddTerm(size, c))
	}

	cp.Minimize(m.makespan)

	var modes, starts []cpsat.LinearArgument
	for t := range p.Tasks {
		for _, lit := range m.presence[t] {
			modes = append(modes, lit)
		}
		starts = append(starts, m.starts[t])
	}
	cp.AddDecisionStrategy(modes, cpsat.ChooseFirst, cpsat.SelectMaxValue)
	cp.AddDecisionStrategy(starts, cpsat.ChooseLowestMin, cpsat.SelectMinValue)
	return m, nil
}

// SetHint seeds the search with a known schedule of the same problem.
func (m *Model) SetHint(sol *core.Solution) {
	if sol == nil || !sol.Status.HasSolution() {
		m.cp.ClearHint()
		return
	}
	hint := &cpsat.Hint{
		Ints:  make(map[cpsat.IntVar]int64),
		Bools: make(map[cpsat.BoolVar]bool),
	}
	for _, a := range sol.Assignments {
		hint.Ints[m.starts[a.Task]] = int64(a.Start)
		hint.Ints[m.ends[a.Task]] = int64(a.End)
		for r, lit := range m.presence[a.Task] {
			hint.Bools[lit] = r == a.Mode
		}
	}
	hint.Ints[m.makespan] = int64(sol.Makespan)
	m.cp.SetHint(hint)
}

// Engine returns the frozen engine model.
func (m *Model) Engine() (*cpsat.Model, error) {
	return m.cp.Model()
}

// Extract reads the schedule out of an engine response.
func (m *Model) Extract(resp *cpsat.Response) *core.Solution {
	sol := core.NewSolution(statusOf(resp.Status), len(m.Problem.Tasks))
	sol.Stats = core.Stats{
		Nodes:     resp.Nodes,
		Failures:  resp.Failures,
		Solutions: resp.Solutions,
		WallTime:  resp.WallTime,
	}
	if !resp.HasSolution() {
		return sol
	}
	for t := range m.Problem.Tasks {
		mode := 0
		for r, lit := range m.presence[t] {
			if resp.BooleanValue(lit) {
				mode = r
				break
			}
		}
		sol.Assignments = append(sol.Assignments, core.Assignment{
			Task:  core.TaskID(t),
			Mode:  mode,
			Start: int(resp.Value(m.starts[t])),
			End:   int(resp.Value(m.ends[t])),
		})
	}
	sol.Makespan = int(resp.ObjectiveValue)
	return sol
}

// TaskValues are the mode-dependent quantities of a task in a solution.
type TaskValues struct {
	Modes    []bool
	Duration int
	Demands  []int // Per resource
	Energies []int // Per resource
}

// Values reads the mode-dependent quantities of task t from resp.
func (m *Model) Values(resp *cpsat.Response, t core.TaskID) TaskValues {
	v := TaskValues{
		Modes:    make([]bool, len(m.presence[t])),
		Duration: int(resp.Value(m.durations[t])),
		Demands:  make([]int, len(m.demands[t])),
		Energies: make([]int, len(m.energies[t])),
	}
	for r, lit := range m.presence[t] {
		v.Modes[r] = resp.BooleanValue(lit)
	}
	for res := range m.demands[t] {
		v.Demands[res] = int(resp.Value(m.demands[t][res]))
		v.Energies[res] = int(resp.Value(m.energies[t][res]))
	}
	return v
}

func statusOf(s cpsat.Status) core.Status {
	switch s {
	case cpsat.Optimal:
		return core.StatusOptimal
	case cpsat.Feasible:
		return core.StatusFeasible
	case cpsat.Infeasible:
		return core.StatusInfeasible
	default:
		return core.StatusUnknown
	}
}
