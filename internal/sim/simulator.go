// Package sim replays solved schedules minute by minute.
//
// The simulator walks the start and end events of a solution, tracks the
// load on every resource, and records each broken rule as a Violation:
//   - a task starting before a predecessor ends
//   - a successor starting later than its delay allows
//   - a resource loaded past its capacity
//   - a task whose span differs from its recipe
//
// Replays also produce utilization metrics for benchmarking.
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/elektrokombinacija/mise/internal/core"
)

// ViolationKind classifies a broken schedule rule.
type ViolationKind string

const (
	ViolationPrecedence ViolationKind = "precedence"
	ViolationDelay      ViolationKind = "delay"
	ViolationCapacity   ViolationKind = "capacity"
	ViolationMode       ViolationKind = "mode"
	ViolationMakespan   ViolationKind = "makespan"
)

// Violation is one broken rule found during a replay.
type Violation struct {
	Kind ViolationKind `json:"kind"`
	Time int           `json:"time"`
	Msg  string        `json:"msg"`
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s at minute %d: %s", v.Kind, v.Time, v.Msg)
}

// SimulationConfig configures a replay.
type SimulationConfig struct {
	// Problem the schedule was solved for
	Problem *core.Problem

	// Solution to replay
	Solution *core.Solution

	// Stop after the first violation
	FailFast bool
}

// ResourceMetrics summarizes the load on one resource.
type ResourceMetrics struct {
	Name        string  `json:"name"`
	Capacity    string  `json:"capacity"`
	PeakUsage   int     `json:"peak_usage"`
	BusyMinutes int     `json:"busy_minutes"` // Minutes with any load
	Utilization float64 `json:"utilization"`  // Load over capacity times makespan; 0 when unlimited
}

// SimulationMetrics collects metrics during a replay.
type SimulationMetrics struct {
	// Timing
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// Schedule
	Makespan       int `json:"makespan"`
	Events         int `json:"events"`
	TasksStarted   int `json:"tasks_started"`
	TasksCompleted int `json:"tasks_completed"`
	MaxParallel    int `json:"max_parallel"` // Most tasks running at once

	// Slack on bounded delays
	AvgDelaySlack float64 `json:"avg_delay_slack"`
	MinDelaySlack int     `json:"min_delay_slack"`

	Resources  []ResourceMetrics `json:"resources"`
	Violations []Violation       `json:"violations,omitempty"`
}

// Simulator replays one solution.
type Simulator struct {
	mu sync.Mutex

	config SimulationConfig

	// State
	currentTime int
	running     int
	load        []int

	metrics SimulationMetrics
}

// NewSimulator creates a new replay.
func NewSimulator(config SimulationConfig) *Simulator {
	s := &Simulator{config: config}
	if config.Problem != nil {
		s.load = make([]int, len(config.Problem.Resources))
		s.metrics.Resources = make([]ResourceMetrics, len(config.Problem.Resources))
		for i, r := range config.Problem.Resources {
			s.metrics.Resources[i] = ResourceMetrics{Name: r.Name, Capacity: r.Capacity.String()}
		}
	}
	return s
}

type event struct {
	time  int
	task  core.TaskID
	start bool
}

// Run replays the schedule. It returns an error when the configuration
// cannot be replayed at all; broken rules are reported in the metrics.
func (s *Simulator) Run(ctx context.Context) (*SimulationMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, sol := s.config.Problem, s.config.Solution
	if p == nil || sol == nil {
		return nil, errors.New("sim: problem and solution are required")
	}
	if !sol.Status.HasSolution() {
		return nil, fmt.Errorf("sim: nothing to replay for status %s", sol.Status)
	}
	if len(sol.Assignments) != len(p.Tasks) {
		return nil, fmt.Errorf("sim: %d assignments for %d tasks", len(sol.Assignments), len(p.Tasks))
	}
	s.metrics.StartTime = time.Now()
	s.metrics.Makespan = sol.Makespan

	// Step 1: Static checks
	s.checkModes()
	s.checkPrecedence()
	s.checkMakespan()

	// Step 2: Event replay
	events := s.events()
	for i := 0; i < len(events); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.config.FailFast && len(s.metrics.Violations) > 0 {
			break
		}
		next := events[i].time
		s.advance(next)
		// Ends before starts at the same minute
		for ; i < len(events) && events[i].time == next; i++ {
			s.apply(events[i])
		}
		s.checkCapacity()
	}
	s.advance(sol.Makespan)

	s.metrics.EndTime = time.Now()
	s.finish()
	return &s.metrics, nil
}

func (s *Simulator) events() []event {
	var events []event
	for _, a := range s.config.Solution.Assignments {
		events = append(events,
			event{time: a.Start, task: a.Task, start: true},
			event{time: a.End, task: a.Task, start: false})
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].time != events[j].time {
			return events[i].time < events[j].time
		}
		return !events[i].start && events[j].start
	})
	s.metrics.Events = len(events)
	return events
}

// advance accounts busy minutes up to t at the current load.
func (s *Simulator) advance(t int) {
	if t <= s.currentTime {
		return
	}
	span := t - s.currentTime
	for r, l := range s.load {
		if l > 0 {
			s.metrics.Resources[r].BusyMinutes += span
		}
	}
	s.currentTime = t
}

func (s *Simulator) apply(e event) {
	p, sol := s.config.Problem, s.config.Solution
	a := sol.Assignments[e.task]
	if a.Mode < 0 || a.Mode >= len(p.Tasks[e.task].Recipes) {
		return
	}
	recipe := p.Tasks[e.task].Recipes[a.Mode]
	sign := -1
	if e.start {
		sign = 1
		s.running++
		s.metrics.TasksStarted++
		s.metrics.MaxParallel = max(s.metrics.MaxParallel, s.running)
	} else {
		s.running--
		s.metrics.TasksCompleted++
	}
	for _, d := range recipe.Demands {
		s.load[d.Resource] += sign * d.Amount
	}
}

func (s *Simulator) violate(kind ViolationKind, t int, format string, args ...any) {
	s.metrics.Violations = append(s.metrics.Violations, Violation{Kind: kind, Time: t, Msg: fmt.Sprintf(format, args...)})
}

// checkModes checks that every task runs exactly one recipe.
func (s *Simulator) checkModes() {
	p, sol := s.config.Problem, s.config.Solution
	for id, a := range sol.Assignments {
		task := p.Tasks[id]
		if a.Task != core.TaskID(id) {
			s.violate(ViolationMode, a.Start, "assignment %d is for task %d", id, a.Task)
			continue
		}
		if a.Mode < 0 || a.Mode >= len(task.Recipes) {
			s.violate(ViolationMode, a.Start, "%s has no recipe %d", task.Name, a.Mode)
			continue
		}
		if d := task.Recipes[a.Mode].Duration; a.End-a.Start != d {
			s.violate(ViolationMode, a.Start, "%s runs %d minutes, recipe %d takes %d", task.Name, a.End-a.Start, a.Mode, d)
		}
		if a.Start < 0 {
			s.violate(ViolationMode, a.Start, "%s starts before minute 0", task.Name)
		}
	}
}

// checkPrecedence checks every successor edge and its delay.
func (s *Simulator) checkPrecedence() {
	p, sol := s.config.Problem, s.config.Solution
	slackSum, bounded := 0, 0
	for id, task := range p.Tasks {
		end := sol.Assignments[id].End
		for _, succ := range task.Successors {
			next := sol.Assignments[succ.Task]
			gap := next.Start - end
			if gap < 0 {
				s.violate(ViolationPrecedence, next.Start, "%s starts before %s ends", p.Tasks[succ.Task].Name, task.Name)
			}
			if !succ.Bounded() {
				continue
			}
			if gap > succ.Delay {
				s.violate(ViolationDelay, next.Start, "%s starts %d minutes after %s, at most %d allowed",
					p.Tasks[succ.Task].Name, gap, task.Name, succ.Delay)
			}
			slack := succ.Delay - gap
			if bounded == 0 || slack < s.metrics.MinDelaySlack {
				s.metrics.MinDelaySlack = slack
			}
			slackSum += slack
			bounded++
		}
	}
	if bounded > 0 {
		s.metrics.AvgDelaySlack = float64(slackSum) / float64(bounded)
	}
}

// checkMakespan checks that the reported makespan is the last sink end.
func (s *Simulator) checkMakespan() {
	p, sol := s.config.Problem, s.config.Solution
	last := 0
	for id, task := range p.Tasks {
		if task.IsSink() {
			last = max(last, sol.Assignments[id].End)
		}
	}
	if last != sol.Makespan {
		s.violate(ViolationMakespan, last, "makespan is %d, last task ends at %d", sol.Makespan, last)
	}
}

// checkCapacity checks the current load against every limited capacity.
func (s *Simulator) checkCapacity() {
	for r, res := range s.config.Problem.Resources {
		l := s.load[r]
		s.metrics.Resources[r].PeakUsage = max(s.metrics.Resources[r].PeakUsage, l)
		if limit, ok := res.Capacity.Limit(); ok && l > limit {
			s.violate(ViolationCapacity, s.currentTime, "%s holds %d of %d", res.Name, l, limit)
		}
	}
}

// finish computes utilization from the chosen recipes.
func (s *Simulator) finish() {
	p, sol := s.config.Problem, s.config.Solution
	if sol.Makespan <= 0 {
		return
	}
	for r, res := range p.Resources {
		limit, ok := res.Capacity.Limit()
		if !ok || limit == 0 {
			continue
		}
		energy := 0
		for id, a := range sol.Assignments {
			if a.Mode < 0 || a.Mode >= len(p.Tasks[id].Recipes) {
				continue
			}
			recipe := p.Tasks[id].Recipes[a.Mode]
			energy += recipe.Duration * recipe.DemandOn(res.ID)
		}
		s.metrics.Resources[r].Utilization = float64(energy) / float64(limit*sol.Makespan)
	}
}

// Metrics returns current replay metrics
func (s *Simulator) Metrics() SimulationMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// ExportMetrics writes metrics to a JSON file
func (s *Simulator) ExportMetrics(path string) error {
	s.mu.Lock()
	metrics := s.metrics
	s.mu.Unlock()

	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SimulationResult is the final output of a replay
type SimulationResult struct {
	Solver  string            `json:"solver"`
	Status  string            `json:"status"`
	Metrics SimulationMetrics `json:"metrics"`
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
}

// RunSimulation replays a schedule and reports whether it is valid.
func RunSimulation(ctx context.Context, config SimulationConfig) (*SimulationResult, error) {
	sim := NewSimulator(config)
	metrics, err := sim.Run(ctx)

	result := &SimulationResult{}
	if config.Solution != nil {
		result.Solver = config.Solution.Solver
		result.Status = config.Solution.Status.String()
	}
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.Metrics = *metrics
	result.Success = len(metrics.Violations) == 0
	if !result.Success {
		result.Error = metrics.Violations[0].Error()
	}
	return result, nil
}

// Verify replays sol and returns every violation joined, or nil.
func Verify(ctx context.Context, p *core.Problem, sol *core.Solution) error {
	metrics, err := NewSimulator(SimulationConfig{Problem: p, Solution: sol}).Run(ctx)
	if err != nil {
		return err
	}
	errs := make([]error, len(metrics.Violations))
	for i, v := range metrics.Violations {
		errs[i] = v
	}
	return errors.Join(errs...)
}
