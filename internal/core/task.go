package core

// Demand is the amount of a resource a recipe holds while it runs.
type Demand struct {
	Amount   int
	Resource ResourceID
}

// Recipe is one way to perform a task (an execution mode).
type Recipe struct {
	Duration int      // Minutes, positive
	Demands  []Demand // Empty means no shared resource is needed
}

// DemandOn returns the amount of res this recipe holds, 0 if unused.
func (r Recipe) DemandOn(res ResourceID) int {
	for _, d := range r.Demands {
		if d.Resource == res {
			return d.Amount
		}
	}
	return 0
}

// Resources returns the resources named by the recipe in declaration order.
func (r Recipe) Resources() []ResourceID {
	ids := make([]ResourceID, len(r.Demands))
	for i, d := range r.Demands {
		ids[i] = d.Resource
	}
	return ids
}

// Successor is a precedence edge to another task.
// The successor may not start before this task ends. A positive Delay also
// bounds the gap between this task's end and the successor's start.
type Successor struct {
	Task  TaskID
	Delay int
}

// Bounded reports whether the edge limits the gap between the two tasks.
func (s Successor) Bounded() bool {
	return s.Delay > 0
}

// Task represents a recipe step.
type Task struct {
	ID         TaskID
	Name       string // Qualified name, unique within a Problem
	Recipes    []Recipe
	Successors []Successor
}

// IsSink returns true if no task has to wait for this one.
func (t *Task) IsSink() bool {
	return len(t.Successors) == 0
}

// HasModes returns true if the task can be performed in more than one way.
func (t *Task) HasModes() bool {
	return len(t.Recipes) > 1
}

// MinDuration returns the shortest recipe duration.
func (t *Task) MinDuration() int {
	if len(t.Recipes) == 0 {
		return 0
	}
	m := t.Recipes[0].Duration
	for _, r := range t.Recipes[1:] {
		m = min(m, r.Duration)
	}
	return m
}

// MaxDuration returns the longest recipe duration.
func (t *Task) MaxDuration() int {
	m := 0
	for _, r := range t.Recipes {
		m = max(m, r.Duration)
	}
	return m
}

// MaxDemand returns the largest amount of res any recipe of the task holds.
func (t *Task) MaxDemand(res ResourceID) int {
	m := 0
	for _, r := range t.Recipes {
		m = max(m, r.DemandOn(res))
	}
	return m
}

// NewTask creates a task with the given recipes and no successors.
func NewTask(id TaskID, name string, recipes ...Recipe) *Task {
	return &Task{
		ID:         id,
		Name:       name,
		Recipes:    recipes,
		Successors: nil,
	}
}

// Then adds a successor edge and returns the task for chaining.
func (t *Task) Then(succ TaskID, delay int) *Task {
	t.Successors = append(t.Successors, Successor{Task: succ, Delay: delay})
	return t
}
