package core

import (
	"sort"
	"time"
)

// Assignment is the solved placement of one task.
type Assignment struct {
	Task  TaskID
	Mode  int // Index into Task.Recipes
	Start int
	End   int
}

// Stats summarizes the search that produced a solution.
type Stats struct {
	Nodes     int64
	Failures  int64
	Solutions int64
	WallTime  time.Duration
}

// Solution represents a solved schedule.
// Assignments is indexed by TaskID and is empty unless Status.HasSolution().
type Solution struct {
	Status      Status
	Makespan    int
	Assignments []Assignment
	Solver      string
	Stats       Stats
}

// NewSolution creates a solution with room for n assignments.
func NewSolution(status Status, n int) *Solution {
	return &Solution{
		Status:      status,
		Makespan:    0,
		Assignments: make([]Assignment, 0, n),
	}
}

// ComputeMakespan calculates max completion time over all sink tasks.
func (s *Solution) ComputeMakespan(p *Problem) int {
	maxC := 0
	for _, a := range s.Assignments {
		task := p.TaskByID(a.Task)
		if task == nil || !task.IsSink() {
			continue
		}
		maxC = max(maxC, a.End)
	}
	s.Makespan = maxC
	return maxC
}

// Recipe returns the recipe chosen for the assignment's task.
func (s *Solution) Recipe(p *Problem, id TaskID) Recipe {
	return p.Tasks[id].Recipes[s.Assignments[id].Mode]
}

// Order returns the assignments sorted by start time.
// Ties are broken by declaration order.
func (s *Solution) Order() []Assignment {
	out := make([]Assignment, len(s.Assignments))
	copy(out, s.Assignments)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Task < out[j].Task
	})
	return out
}

// MeetDeadline checks if solution finishes within deadline minutes.
func (s *Solution) MeetDeadline(deadline int) bool {
	return s.Status.HasSolution() && s.Makespan <= deadline
}
