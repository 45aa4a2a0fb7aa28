// Package core defines domain models for resource-constrained cooking schedules.
package core

// TaskID is the index of a task in a Problem's flat task list.
type TaskID int

// ResourceID is the index of a resource in a Problem's resource list.
type ResourceID int

// Status classifies the outcome of a solve.
type Status int

const (
	StatusUnknown    Status = iota // Search stopped by a limit before any schedule was found
	StatusOptimal                  // Schedule proven to have minimal makespan
	StatusFeasible                 // Schedule found, optimality not proven
	StatusInfeasible               // No schedule satisfies the constraints
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "Optimal"
	case StatusFeasible:
		return "Feasible"
	case StatusInfeasible:
		return "Infeasible"
	default:
		return "Unknown"
	}
}

// HasSolution reports whether a schedule is attached to this status.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}
