package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/mise/internal/algo"
	"github.com/elektrokombinacija/mise/internal/config"
	"github.com/elektrokombinacija/mise/internal/core"
	"github.com/elektrokombinacija/mise/internal/cpsat"
	"github.com/elektrokombinacija/mise/internal/logging"
	"github.com/elektrokombinacija/mise/internal/metrics"
	"github.com/elektrokombinacija/mise/internal/plan"
	"github.com/elektrokombinacija/mise/internal/report"
	"github.com/elektrokombinacija/mise/internal/sim"
)

// flagKeys binds command-line flags to configuration keys.
var flagKeys = map[string]string{
	"solver":       "solver.name",
	"time-limit":   "solver.time_limit",
	"node-limit":   "solver.node_limit",
	"workers":      "solver.workers",
	"seed":         "solver.seed",
	"hint":         "solver.hint",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"output":       "output.format",
	"color":        "output.color",
	"verify":       "output.verify",
	"metrics-file": "metrics.file",
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "mise [flags] <plan-file>",
		Short: "Schedule interdependent cooking tasks over shared kitchen resources",
		Long: `mise reads a plan of recipe steps, the alternative ways to perform each
step, and the pots, pans and hands they compete for, then prints the
schedule that gets dinner on the table soonest.

Plans are JSON or YAML files:

  {
    "tasks": {"boil_water": {"recipes": [{"duration": 10}], "successors": [["make_tea", 0]]},
              "make_tea": {"recipes": [{"duration": 2}]}},
    "resources": [["kettle", 1]],
    "params": {"dinner": "19:30"}
  }`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usagef("expected one plan file, got %d arguments", len(args))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(configFile)
			if err != nil {
				return usagef("read config: %v", err)
			}
			for flag, key := range flagKeys {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return solve(cmd.Context(), cfg, args[0], stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	defaults := config.Default()
	f := cmd.Flags()
	f.StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.config/mise/config.yaml)")
	f.String("solver", defaults.Solver.Name, "solver to use: cp or greedy")
	f.Duration("time-limit", defaults.Solver.TimeLimit, "stop searching after this long and print the best schedule (0 = no limit)")
	f.Int64("node-limit", defaults.Solver.NodeLimit, "stop searching after this many nodes (0 = no limit)")
	f.Int("workers", defaults.Solver.Workers, "number of parallel search workers")
	f.Int64("seed", defaults.Solver.Seed, "seed for diversifying search workers")
	f.Bool("hint", defaults.Solver.Hint, "seed the search with a greedy schedule")
	f.String("log-level", defaults.Logging.Level, "log level: debug, info, warn or error")
	f.String("log-format", defaults.Logging.Format, "log format: text or json")
	f.StringP("output", "o", defaults.Output.Format, "schedule format: text or json")
	f.String("color", defaults.Output.Color, "color the schedule: auto, always or never")
	f.Bool("verify", defaults.Output.Verify, "replay the schedule and fail if it breaks any constraint")
	f.String("metrics-file", defaults.Metrics.File, "write Prometheus metrics to this file")

	return cmd
}

// run executes the root command and returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)

	var verrs *plan.ValidationErrors
	switch {
	case err == nil, errors.Is(err, errNoSolution):
	case errors.As(err, &verrs):
		fmt.Fprint(stderr, verrs.FormatStderr())
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		if code := exitCode(err); code == exitUsage {
			fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", cmd.Name())
		}
	}
	return exitCode(err)
}

// solve loads the plan, solves it and prints the schedule.
func solve(ctx context.Context, cfg *config.Config, path string, stdout, stderr io.Writer) error {
	log := logging.NewLogger(stderr, cfg.Logging.Level, cfg.Logging.Format).
		WithRun(uuid.NewString()).
		With("plan", path)
	reg, m := metrics.NewRegistry()
	defer func() {
		if cfg.Metrics.File == "" {
			return
		}
		if err := metrics.WriteTextfile(reg, cfg.Metrics.File); err != nil {
			log.Error("write metrics", "file", cfg.Metrics.File, "error", err)
		}
	}()

	// Step 1: Load and flatten the plan
	p, anchor, err := load(path, m)
	if err != nil {
		return err
	}
	m.ObservePlan(p)
	log.Info("plan loaded", "tasks", len(p.Tasks), "resources", len(p.Resources))

	// Step 2: Solve
	solver, err := algo.New(cfg.Solver.Name, algo.Options{
		Params: cpsat.Parameters{
			TimeLimit: cfg.Solver.TimeLimit,
			NodeLimit: cfg.Solver.NodeLimit,
			Workers:   cfg.Solver.Workers,
			Seed:      cfg.Solver.Seed,
		},
		Hint:   cfg.Solver.Hint,
		Logger: log,
	})
	if err != nil {
		return usageError{err: err}
	}
	sol, err := solver.Solve(ctx, p)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	m.ObserveSolve(sol)
	if ctx.Err() != nil {
		log.Warn("search interrupted", "status", sol.Status.String())
	}

	// Step 3: Verify
	if cfg.Output.Verify && sol.Status.HasSolution() {
		if err := verify(ctx, p, sol, m); err != nil {
			return err
		}
		log.Info("schedule verified")
	}

	// Step 4: Report
	r := report.New(p, sol, anchor)
	r.Color = useColor(cfg.Output.Color, stdout)
	if cfg.Output.Format == "json" {
		err = r.PrintJSON(stdout)
	} else {
		err = r.Print(stdout)
	}
	if err != nil {
		return fmt.Errorf("write schedule: %w", err)
	}

	if !sol.Status.HasSolution() {
		return errNoSolution
	}
	return nil
}

func load(path string, m *metrics.Metrics) (*core.Problem, core.Anchor, error) {
	doc, err := plan.Load(path)
	if err != nil {
		m.PlanErrors.WithLabelValues(planErrorKind(err)).Inc()
		return nil, core.Anchor{}, err
	}
	p, err := doc.Problem()
	if err != nil {
		m.PlanErrors.WithLabelValues(planErrorKind(err)).Inc()
		return nil, core.Anchor{}, err
	}
	return p, doc.Anchor, nil
}

func planErrorKind(err error) string {
	var perr *plan.ParseError
	var verrs *plan.ValidationErrors
	switch {
	case errors.As(err, &perr):
		return "parse"
	case errors.As(err, &verrs):
		return "validation"
	default:
		return "other"
	}
}

func verify(ctx context.Context, p *core.Problem, sol *core.Solution, m *metrics.Metrics) error {
	res, err := sim.RunSimulation(ctx, sim.SimulationConfig{Problem: p, Solution: sol})
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	for _, v := range res.Metrics.Violations {
		m.Violations.WithLabelValues(string(v.Kind)).Inc()
	}
	if !res.Success {
		return fmt.Errorf("verify: %d violations, first: %s", len(res.Metrics.Violations), res.Error)
	}
	return nil
}

// useColor resolves the color mode for the schedule writer.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	return ok && f == os.Stdout && !color.NoColor
}

