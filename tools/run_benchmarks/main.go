// Package main provides benchmark runner for mise solvers.
// Runs all solvers on plan files and collects metrics.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/elektrokombinacija/mise/internal/algo"
	"github.com/elektrokombinacija/mise/internal/core"
	"github.com/elektrokombinacija/mise/internal/cpsat"
	"github.com/elektrokombinacija/mise/internal/plan"
	"github.com/elektrokombinacija/mise/internal/sim"
)

// BenchmarkResult stores results from a single solver run.
type BenchmarkResult struct {
	Timestamp    string  `json:"timestamp"`
	CommitHash   string  `json:"commit_hash"`
	GoVersion    string  `json:"go_version"`
	OS           string  `json:"os"`
	Arch         string  `json:"arch"`
	Plan         string  `json:"plan"`
	NumTasks     int     `json:"num_tasks"`
	NumResources int     `json:"num_resources"`
	Solver       string  `json:"solver"`
	RuntimeMs    float64 `json:"runtime_ms"`
	Status       string  `json:"status"`
	Success      bool    `json:"success"`
	Makespan     int     `json:"makespan"`
	LowerBound   int     `json:"lower_bound"`
	Nodes        int64   `json:"nodes"`
	Failures     int64   `json:"failures"`
	Violations   int     `json:"violations"`
}

// SolverMetrics holds per-solver aggregated metrics.
type SolverMetrics struct {
	Name           string
	TotalRuns      int
	Successes      int
	Optimal        int
	TotalRuntimeMs float64
	TotalGap       float64
	Violations     int
}

var solvers = []string{"cp", "greedy"}

func getGitCommit() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}

func loadProblem(path string) (*core.Problem, error) {
	doc, err := plan.Load(path)
	if err != nil {
		return nil, err
	}
	return doc.Problem()
}

// runSolver solves p with the named solver and replays the schedule.
func runSolver(name string, p *core.Problem, solverName string, params cpsat.Parameters) *BenchmarkResult {
	result := &BenchmarkResult{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		CommitHash:   getGitCommit(),
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		Plan:         name,
		NumTasks:     len(p.Tasks),
		NumResources: len(p.Resources),
		Solver:       solverName,
		LowerBound:   algo.LowerBound(p),
	}

	solver, err := algo.New(solverName, algo.Options{Params: params, Hint: true})
	if err != nil {
		result.Status = "error"
		return result
	}

	ctx := context.Background()
	if params.TimeLimit > 0 {
		// Grace period over the engine's own limit
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.TimeLimit+time.Second)
		defer cancel()
	}

	startTime := time.Now()
	sol, err := solver.Solve(ctx, p)
	result.RuntimeMs = float64(time.Since(startTime).Microseconds()) / 1000.0
	if err != nil {
		result.Status = "error"
		return result
	}

	result.Status = sol.Status.String()
	result.Nodes = sol.Stats.Nodes
	result.Failures = sol.Stats.Failures
	if !sol.Status.HasSolution() {
		return result
	}

	result.Makespan = sol.Makespan
	replay, err := sim.RunSimulation(ctx, sim.SimulationConfig{Problem: p, Solution: sol})
	if err != nil {
		result.Status = "error"
		return result
	}
	result.Violations = len(replay.Metrics.Violations)
	result.Success = replay.Success
	return result
}

func writeCSV(results []*BenchmarkResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Header
	header := []string{
		"timestamp", "commit_hash", "go_version", "os", "arch",
		"plan", "num_tasks", "num_resources", "solver",
		"runtime_ms", "status", "success", "makespan", "lower_bound",
		"nodes", "failures", "violations",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	// Data rows
	for _, r := range results {
		row := []string{
			r.Timestamp, r.CommitHash, r.GoVersion, r.OS, r.Arch,
			r.Plan, fmt.Sprintf("%d", r.NumTasks), fmt.Sprintf("%d", r.NumResources),
			r.Solver,
			fmt.Sprintf("%.3f", r.RuntimeMs), r.Status, fmt.Sprintf("%t", r.Success),
			fmt.Sprintf("%d", r.Makespan), fmt.Sprintf("%d", r.LowerBound),
			fmt.Sprintf("%d", r.Nodes), fmt.Sprintf("%d", r.Failures),
			fmt.Sprintf("%d", r.Violations),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func printSummary(results []*BenchmarkResult) {
	// Aggregate by solver
	metrics := make(map[string]*SolverMetrics)
	for _, r := range results {
		m, ok := metrics[r.Solver]
		if !ok {
			m = &SolverMetrics{Name: r.Solver}
			metrics[r.Solver] = m
		}
		m.TotalRuns++
		if r.Success {
			m.Successes++
			m.TotalRuntimeMs += r.RuntimeMs
			if r.LowerBound > 0 {
				m.TotalGap += float64(r.Makespan-r.LowerBound) / float64(r.LowerBound)
			}
			if r.Status == core.StatusOptimal.String() {
				m.Optimal++
			}
		}
		m.Violations += r.Violations
	}

	// Print summary table
	fmt.Println("\n=== BENCHMARK SUMMARY ===")
	fmt.Printf("%-20s %8s %8s %8s %12s %8s %10s\n",
		"Solver", "Runs", "Success", "Optimal", "Avg Time(ms)", "AvgGap%", "Violations")
	fmt.Println(strings.Repeat("-", 80))

	var names []string
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := metrics[name]
		avgTime := 0.0
		avgGap := 0.0
		if m.Successes > 0 {
			avgTime = m.TotalRuntimeMs / float64(m.Successes)
			avgGap = m.TotalGap / float64(m.Successes) * 100
		}
		fmt.Printf("%-20s %8d %8d %8d %12.2f %7.1f%% %10d\n",
			m.Name, m.TotalRuns, m.Successes, m.Optimal, avgTime, avgGap, m.Violations)
	}
}

func main() {
	inputDir := flag.String("input", "testdata", "Directory containing plan JSON files")
	outputFile := flag.String("output", "evidence/benchmark_results.csv", "Output CSV file")
	timeout := flag.Duration("timeout", 30*time.Second, "Time limit per solver run")
	workers := flag.Int("workers", 1, "Parallel search workers for the cp solver")
	seed := flag.Int64("seed", 1, "Search seed")
	solverFilter := flag.String("solver", "", "Run only specific solver (comma-separated)")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	// Create output directory
	outputDir := filepath.Dir(*outputFile)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	// Find plan files
	pattern := filepath.Join(*inputDir, "*.json")
	files, err := filepath.Glob(pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding plan files: %v\n", err)
		os.Exit(1)
	}

	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No plan files found in %s\n", *inputDir)
		fmt.Fprintf(os.Stderr, "Run gen_instances first: go run ./tools/gen_instances -scaling -output testdata\n")
		os.Exit(1)
	}

	// Parse solver filter
	activeSolvers := solvers
	if *solverFilter != "" {
		activeSolvers = strings.Split(*solverFilter, ",")
	}

	params := cpsat.Parameters{TimeLimit: *timeout, Workers: *workers, Seed: *seed}

	var results []*BenchmarkResult
	totalRuns := len(files) * len(activeSolvers)
	currentRun := 0

	fmt.Printf("Running benchmarks: %d plans x %d solvers = %d runs\n",
		len(files), len(activeSolvers), totalRuns)
	fmt.Printf("Time limit per run: %v\n", *timeout)
	fmt.Println()

	for _, file := range files {
		p, err := loadProblem(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", file, err)
			continue
		}
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

		for _, solver := range activeSolvers {
			currentRun++
			if *verbose {
				fmt.Printf("[%d/%d] %s / %s ... ", currentRun, totalRuns, name, solver)
			} else {
				fmt.Printf("\r[%d/%d] Running...", currentRun, totalRuns)
			}

			result := runSolver(name, p, solver, params)
			results = append(results, result)

			if *verbose {
				if result.Success {
					fmt.Printf("%s (%.2fms, makespan=%d, bound=%d)\n",
						result.Status, result.RuntimeMs, result.Makespan, result.LowerBound)
				} else {
					fmt.Printf("FAILED (%s)\n", result.Status)
				}
			}
		}
	}

	fmt.Println()

	// Write results
	if err := writeCSV(results, *outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Results written to: %s\n", *outputFile)

	// Print summary
	printSummary(results)
}
