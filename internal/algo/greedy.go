package algo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/elektrokombinacija/mise/internal/core"
	"github.com/elektrokombinacija/mise/internal/logging"
)

// Greedy is a serial schedule generator. Tasks are placed one at a time in
// precedence order, each at the earliest finish any of its recipes allows
// against the resource usage of the tasks already placed.
//
// It never backtracks, so a bounded delay it cannot honor ends the run
// with StatusUnknown even when a schedule exists.
type Greedy struct {
	Logger *logging.Logger
}

// NewGreedy creates a greedy solver.
func NewGreedy(log *logging.Logger) *Greedy {
	return &Greedy{Logger: log}
}

func (g *Greedy) Name() string { return "greedy" }

// Solve builds one schedule without search.
func (g *Greedy) Solve(ctx context.Context, p *core.Problem) (*core.Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("greedy: %w", err)
	}
	log := g.Logger.WithSolver(g.Name())
	began := time.Now()

	// Step 1: Precedence order
	order, err := p.TopologicalOrder()
	if err != nil {
		logCycle(log, p)
		return infeasible(p, g.Name()), nil
	}

	// Step 2: Priorities and resource profiles
	n := len(p.Tasks)
	tail := tailLengths(p, order)
	preds := p.Predecessors()
	caps := ResolveCapacities(p)
	horizon := Horizon(p)
	usage := make([]profile, len(p.Resources))

	waiting := make([]int, n)
	for t := range p.Tasks {
		waiting[t] = len(preds[t])
	}
	placed := make([]bool, n)

	sol := core.NewSolution(core.StatusFeasible, n)
	sol.Solver = g.Name()
	sol.Assignments = make([]core.Assignment, n)

	// Step 3: Place tasks, highest remaining path first
	for step := 0; step < n; step++ {
		if ctx.Err() != nil {
			return g.giveUp(p, began, int64(step)), nil
		}

		next := core.TaskID(-1)
		for t := range p.Tasks {
			if placed[t] || waiting[t] > 0 {
				continue
			}
			if next < 0 || tail[t] > tail[next] {
				next = core.TaskID(t)
			}
		}

		a, fits, possible := g.place(p, next, sol.Assignments, preds[next], usage, caps, horizon)
		if !possible {
			log.Debug("no recipe fits the resource capacities", "task", p.Tasks[next].Name)
			sol := infeasible(p, g.Name())
			sol.Stats = core.Stats{Nodes: int64(step), WallTime: time.Since(began)}
			return sol, nil
		}
		if !fits {
			log.Debug("cannot honor successor delays", "task", p.Tasks[next].Name)
			return g.giveUp(p, began, int64(step)), nil
		}

		recipe := p.Tasks[next].Recipes[a.Mode]
		for _, d := range recipe.Demands {
			if d.Amount > 0 {
				usage[d.Resource] = append(usage[d.Resource], span{start: a.Start, end: a.End, amount: d.Amount})
			}
		}
		sol.Assignments[next] = a
		placed[next] = true
		for _, s := range p.Tasks[next].Successors {
			waiting[s.Task]--
		}
	}

	// Step 4: Makespan and optimality check
	sol.ComputeMakespan(p)
	if sol.Makespan == LowerBound(p) {
		sol.Status = core.StatusOptimal
	}
	sol.Stats = core.Stats{Nodes: int64(n), Solutions: 1, WallTime: time.Since(began)}
	log.Debug("schedule built", "makespan", sol.Makespan, "status", sol.Status)
	return sol, nil
}

func (g *Greedy) giveUp(p *core.Problem, began time.Time, nodes int64) *core.Solution {
	sol := core.NewSolution(core.StatusUnknown, len(p.Tasks))
	sol.Solver = g.Name()
	sol.Stats = core.Stats{Nodes: nodes, WallTime: time.Since(began)}
	return sol
}

// place picks the recipe of task id with the earliest finish.
// possible is false when no recipe fits the capacities at all; fits is
// false when some recipe could run but not within the delay window.
func (g *Greedy) place(p *core.Problem, id core.TaskID, placed []core.Assignment, preds []core.TaskID,
	usage []profile, caps []int, horizon int) (a core.Assignment, fits, possible bool) {
	earliest, latest := 0, horizon
	for _, q := range preds {
		end := placed[q].End
		earliest = max(earliest, end)
		for _, s := range p.Tasks[q].Successors {
			if s.Task == id && s.Bounded() {
				latest = min(latest, end+s.Delay)
			}
		}
	}

	best := core.Assignment{Task: id, Mode: -1}
	for r, recipe := range p.Tasks[id].Recipes {
		if !withinCapacity(recipe, caps) {
			continue
		}
		possible = true
		start, ok := earliestFit(recipe, usage, caps, earliest, min(latest, horizon-recipe.Duration))
		if !ok {
			continue
		}
		if best.Mode < 0 || start+recipe.Duration < best.End {
			best = core.Assignment{Task: id, Mode: r, Start: start, End: start + recipe.Duration}
		}
	}
	return best, best.Mode >= 0, possible
}

func withinCapacity(recipe core.Recipe, caps []int) bool {
	for _, d := range recipe.Demands {
		if d.Amount > caps[d.Resource] {
			return false
		}
	}
	return true
}

// span is a demand placed on one resource over [start, end).
type span struct {
	start, end, amount int
}

// profile is the usage of one resource by the tasks placed so far.
type profile []span

// at returns the usage at minute u.
func (pr profile) at(u int) int {
	total := 0
	for _, s := range pr {
		if s.start <= u && u < s.end {
			total += s.amount
		}
	}
	return total
}

// clash returns the first minute in [from, to) at which amount more units
// exceed capacity. Usage only rises where a span starts.
func (pr profile) clash(from, to, amount, capacity int) (int, bool) {
	points := []int{from}
	for _, s := range pr {
		if s.start > from && s.start < to {
			points = append(points, s.start)
		}
	}
	sort.Ints(points)
	for _, u := range points {
		if pr.at(u)+amount > capacity {
			return u, true
		}
	}
	return 0, false
}

// release returns the first minute after u at which some span ends.
func (pr profile) release(u int) int {
	next := math.MaxInt
	for _, s := range pr {
		if s.end > u {
			next = min(next, s.end)
		}
	}
	return next
}

// earliestFit returns the first start in [from, to] at which recipe fits
// the usage profiles for its whole duration. After a clash no start can fit
// before the next span ends.
func earliestFit(recipe core.Recipe, usage []profile, caps []int, from, to int) (int, bool) {
	start := from
	for start <= to {
		next := -1
		for _, d := range recipe.Demands {
			u, ok := usage[d.Resource].clash(start, start+recipe.Duration, d.Amount, caps[d.Resource])
			if ok {
				next = max(next, usage[d.Resource].release(u))
			}
		}
		if next < 0 {
			return start, true
		}
		start = next
	}
	return 0, false
}

// tailLengths returns, per task, the shortest time from its start to the
// end of the last task that transitively waits for it.
func tailLengths(p *core.Problem, order []core.TaskID) []int {
	tail := make([]int, len(p.Tasks))
	for i := len(order) - 1; i >= 0; i-- {
		t := p.Tasks[order[i]]
		after := 0
		for _, s := range t.Successors {
			after = max(after, tail[s.Task])
		}
		tail[t.ID] = t.MinDuration() + after
	}
	return tail
}

// LowerBound returns a makespan no schedule of p can beat: the longer of
// the critical path with shortest recipes and, per limited resource, the
// least total energy divided by the capacity. It is 0 when the precedence
// graph has a cycle.
func LowerBound(p *core.Problem) int {
	order, err := p.TopologicalOrder()
	if err != nil {
		return 0
	}
	bound := 0
	for _, l := range tailLengths(p, order) {
		bound = max(bound, l)
	}

	for _, res := range p.Resources {
		limit, ok := res.Capacity.Limit()
		if !ok || limit <= 0 {
			continue
		}
		energy := 0
		for _, t := range p.Tasks {
			least := -1
			for _, r := range t.Recipes {
				e := r.Duration * r.DemandOn(res.ID)
				if least < 0 || e < least {
					least = e
				}
			}
			energy += least
		}
		bound = max(bound, (energy+limit-1)/limit)
	}
	return bound
}
