package core

import (
	"errors"
	"testing"
)

func TestStatusHasSolution(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
		name   string
	}{
		{StatusOptimal, true, "Optimal"},
		{StatusFeasible, true, "Feasible"},
		{StatusInfeasible, false, "Infeasible"},
		{StatusUnknown, false, "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.HasSolution(); got != tt.want {
			t.Errorf("%v.HasSolution() = %v, want %v", tt.status, got, tt.want)
		}
		if got := tt.status.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
	}
}

func TestCapacity(t *testing.T) {
	if _, ok := Unlimited().Limit(); ok {
		t.Errorf("Unlimited().Limit() should not report a bound")
	}
	if n, ok := Limited(3).Limit(); !ok || n != 3 {
		t.Errorf("Limited(3).Limit() = %d, %v", n, ok)
	}
	if Limited(0).IsUnlimited() {
		t.Errorf("Limited(0) should be limited")
	}
	if Unlimited().String() != "unlimited" || Limited(2).String() != "2" {
		t.Errorf("unexpected capacity strings")
	}
}

func TestTaskDurationsAndDemands(t *testing.T) {
	p := NewProblem()
	pot := p.AddResource("pot", Limited(1))
	hands := p.AddResource("hands", Limited(2))
	task := p.AddTask("soup",
		Recipe{Duration: 30, Demands: []Demand{{1, pot}}},
		Recipe{Duration: 20, Demands: []Demand{{1, pot}, {1, hands}}},
	)

	if task.MinDuration() != 20 || task.MaxDuration() != 30 {
		t.Errorf("durations = [%d, %d], want [20, 30]", task.MinDuration(), task.MaxDuration())
	}
	if task.MaxDemand(hands) != 1 {
		t.Errorf("MaxDemand(hands) = %d, want 1", task.MaxDemand(hands))
	}
	if task.Recipes[0].DemandOn(hands) != 0 {
		t.Errorf("recipe 0 should not use hands")
	}
	if !task.HasModes() || !task.IsSink() {
		t.Errorf("soup should have modes and no successors")
	}
	if got := task.Recipes[1].Resources(); len(got) != 2 || got[0] != pot || got[1] != hands {
		t.Errorf("Resources() = %v", got)
	}
}

func TestValidate(t *testing.T) {
	p := NewProblem()
	p.AddTask("a", Recipe{Duration: 5}).Then(1, 0)
	p.AddTask("b", Recipe{Duration: 5})
	if err := p.Validate(); err != nil {
		t.Fatalf("valid problem rejected: %v", err)
	}

	bad := NewProblem()
	pot := bad.AddResource("pot", Limited(1))
	bad.AddTask("empty")
	bad.AddTask("zero", Recipe{Duration: 0})
	bad.AddTask("twice", Recipe{Duration: 1, Demands: []Demand{{1, pot}, {1, pot}}})
	bad.AddTask("ghost", Recipe{Duration: 1}).Then(42, 0)
	err := bad.Validate()
	if err == nil {
		t.Fatal("invalid problem accepted")
	}
	// errors.Join keeps every violation
	if n := len(err.(interface{ Unwrap() []error }).Unwrap()); n != 4 {
		t.Errorf("got %d errors, want 4: %v", n, err)
	}
}

func TestTopologicalOrder(t *testing.T) {
	p := NewProblem()
	p.AddTask("c", Recipe{Duration: 1})
	p.AddTask("a", Recipe{Duration: 1}).Then(2, 0)
	p.AddTask("b", Recipe{Duration: 1}).Then(0, 3)

	order, err := p.TopologicalOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos := make(map[TaskID]int)
	for i, id := range order {
		pos[id] = i
	}
	if pos[1] > pos[2] || pos[2] > pos[0] {
		t.Errorf("order %v violates a -> b -> c", order)
	}
}

func TestPrecedenceCycle(t *testing.T) {
	p := NewProblem()
	p.AddTask("x", Recipe{Duration: 1}).Then(1, 0)
	p.AddTask("y", Recipe{Duration: 1}).Then(2, 0)
	p.AddTask("z", Recipe{Duration: 1}).Then(1, 0)

	cycle := p.PrecedenceCycle()
	if len(cycle) != 3 || cycle[0] != cycle[len(cycle)-1] {
		t.Fatalf("cycle = %v, want a closed path of two tasks", cycle)
	}

	_, err := p.TopologicalOrder()
	if !errors.Is(err, ErrCycle) {
		t.Errorf("TopologicalOrder error = %v, want ErrCycle", err)
	}
}

func TestSolutionOrder(t *testing.T) {
	s := NewSolution(StatusOptimal, 3)
	s.Assignments = append(s.Assignments,
		Assignment{Task: 0, Start: 5, End: 7},
		Assignment{Task: 1, Start: 0, End: 5},
		Assignment{Task: 2, Start: 0, End: 2},
	)
	order := s.Order()
	want := []TaskID{1, 2, 0}
	for i, a := range order {
		if a.Task != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, a.Task, want[i])
		}
	}
}

func TestComputeMakespan(t *testing.T) {
	p := NewProblem()
	p.AddTask("a", Recipe{Duration: 5}).Then(1, 0)
	p.AddTask("b", Recipe{Duration: 3})

	s := NewSolution(StatusFeasible, 2)
	s.Assignments = append(s.Assignments,
		Assignment{Task: 0, Start: 0, End: 5},
		Assignment{Task: 1, Start: 5, End: 8},
	)
	if got := s.ComputeMakespan(p); got != 8 {
		t.Errorf("ComputeMakespan() = %d, want 8", got)
	}
	if !s.MeetDeadline(8) || s.MeetDeadline(7) {
		t.Errorf("MeetDeadline mismatch for makespan 8")
	}
}

func TestAnchorOffset(t *testing.T) {
	tests := []struct {
		anchor Anchor
		want   int
	}{
		{Anchor{}, 0},
		{StartAt(18 * 60), 18 * 60},
		{DinnerAt(19 * 60), 19*60 - 90},
	}
	for _, tt := range tests {
		if got := tt.anchor.Offset(90); got != tt.want {
			t.Errorf("%+v.Offset(90) = %d, want %d", tt.anchor, got, tt.want)
		}
	}
}
