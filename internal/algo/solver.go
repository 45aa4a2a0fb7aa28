// Package algo implements schedule solvers for cooking problems.
package algo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/elektrokombinacija/mise/internal/core"
	"github.com/elektrokombinacija/mise/internal/cpsat"
	"github.com/elektrokombinacija/mise/internal/logging"
)

// Solver is the interface for scheduling algorithms.
type Solver interface {
	// Solve attempts to find a schedule for the problem.
	// The returned solution is never nil when err is nil; its Status says
	// whether a schedule is attached. err reports failures of the solver
	// itself (an invalid problem or model), not the absence of a schedule.
	Solve(ctx context.Context, p *core.Problem) (*core.Solution, error)

	// Name returns the algorithm name.
	Name() string
}

// Options configure the solvers built by New.
type Options struct {
	Params cpsat.Parameters
	Hint   bool // Seed the CP search with the greedy schedule
	Logger *logging.Logger
}

type factory func(Options) Solver

var registry = map[string]factory{
	"cp": func(o Options) Solver {
		return &CP{Params: o.Params, Hint: o.Hint, Logger: o.Logger}
	},
	"greedy": func(o Options) Solver {
		return &Greedy{Logger: o.Logger}
	},
}

// New returns the solver registered under name.
func New(name string, opts Options) (Solver, error) {
	f, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown solver %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return f(opts), nil
}

// Names returns the registered solver names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// infeasible returns an empty solution proving that p has no schedule.
func infeasible(p *core.Problem, solver string) *core.Solution {
	sol := core.NewSolution(core.StatusInfeasible, len(p.Tasks))
	sol.Solver = solver
	return sol
}

// logCycle reports a precedence cycle, if p has one.
func logCycle(log *logging.Logger, p *core.Problem) bool {
	cycle := p.PrecedenceCycle()
	if cycle == nil {
		return false
	}
	names := make([]string, len(cycle))
	for i, id := range cycle {
		names[i] = p.Tasks[id].Name
	}
	log.Warn("precedence cycle", "cycle", strings.Join(names, " -> "))
	return true
}
