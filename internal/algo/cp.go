package algo

import (
	"context"
	"fmt"

	"github.com/elektrokombinacija/mise/internal/core"
	"github.com/elektrokombinacija/mise/internal/cpsat"
	"github.com/elektrokombinacija/mise/internal/logging"
)

// CP finds minimal-makespan schedules with the constraint engine.
type CP struct {
	Params cpsat.Parameters
	Hint   bool // Seed the search with the greedy schedule
	Logger *logging.Logger
}

// NewCP creates a CP solver with the given search parameters.
func NewCP(params cpsat.Parameters, log *logging.Logger) *CP {
	return &CP{Params: params, Hint: true, Logger: log}
}

func (c *CP) Name() string { return "cp" }

// Solve searches until the makespan is proven minimal or a limit of
// c.Params (or ctx) stops it.
func (c *CP) Solve(ctx context.Context, p *core.Problem) (*core.Solution, error) {
	log := c.Logger.WithSolver(c.Name())

	// Step 1: Build model
	m, err := BuildModel(p)
	if err != nil {
		return nil, fmt.Errorf("cp: %w", err)
	}
	if logCycle(log, p) {
		return infeasible(p, c.Name()), nil
	}

	// Step 2: Seed with the greedy schedule
	if c.Hint {
		g, err := NewGreedy(c.Logger).Solve(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("cp: hint: %w", err)
		}
		switch {
		case g.Status == core.StatusOptimal:
			log.Debug("greedy schedule meets the lower bound", "makespan", g.Makespan)
			g.Solver = c.Name()
			return g, nil
		case g.Status.HasSolution():
			log.Debug("hint", "makespan", g.Makespan)
			m.SetHint(g)
		}
	}

	// Step 3: Search
	model, err := m.Engine()
	if err != nil {
		return nil, fmt.Errorf("cp: %w", err)
	}
	log.Debug("model built",
		"vars", model.NumVars(),
		"constraints", model.NumConstraints(),
		"horizon", m.Horizon)

	resp, err := cpsat.Solve(ctx, model, c.Params)
	if err != nil {
		return nil, fmt.Errorf("cp: %w", err)
	}
	sol := m.Extract(resp)
	sol.Solver = c.Name()
	log.Info("search finished",
		"status", sol.Status.String(),
		"makespan", sol.Makespan,
		"nodes", resp.Nodes,
		"failures", resp.Failures,
		"wall", resp.WallTime)
	return sol, nil
}
