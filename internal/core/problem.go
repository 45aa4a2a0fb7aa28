package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is returned by TopologicalOrder when successor edges form a cycle.
var ErrCycle = errors.New("precedence cycle")

// Problem represents a flattened scheduling instance.
// P = (T, R): tasks with modes and successor edges, resources with capacities.
type Problem struct {
	Tasks     []*Task
	Resources []*Resource
}

// NewProblem creates an empty problem.
func NewProblem() *Problem {
	return &Problem{
		Tasks:     nil,
		Resources: nil,
	}
}

// AddResource appends a resource and returns its ID.
func (p *Problem) AddResource(name string, capacity Capacity) ResourceID {
	id := ResourceID(len(p.Resources))
	p.Resources = append(p.Resources, NewResource(id, name, capacity))
	return id
}

// AddTask appends a task and returns it for chaining.
func (p *Problem) AddTask(name string, recipes ...Recipe) *Task {
	t := NewTask(TaskID(len(p.Tasks)), name, recipes...)
	p.Tasks = append(p.Tasks, t)
	return t
}

// Validate checks problem consistency. All violations are reported together.
func (p *Problem) Validate() error {
	var errs []error
	names := make(map[string]bool, len(p.Tasks))
	for i, t := range p.Tasks {
		if t.ID != TaskID(i) {
			errs = append(errs, fmt.Errorf("task %q: id %d at index %d", t.Name, t.ID, i))
		}
		if names[t.Name] {
			errs = append(errs, fmt.Errorf("task %q: duplicate name", t.Name))
		}
		names[t.Name] = true
		if len(t.Recipes) == 0 {
			errs = append(errs, fmt.Errorf("task %q: no recipes", t.Name))
		}
		for ri, r := range t.Recipes {
			if r.Duration <= 0 {
				errs = append(errs, fmt.Errorf("task %q recipe %d: duration %d must be positive", t.Name, ri, r.Duration))
			}
			seen := make(map[ResourceID]bool, len(r.Demands))
			for _, d := range r.Demands {
				if d.Resource < 0 || int(d.Resource) >= len(p.Resources) {
					errs = append(errs, fmt.Errorf("task %q recipe %d: unknown resource %d", t.Name, ri, d.Resource))
					continue
				}
				if d.Amount < 0 {
					errs = append(errs, fmt.Errorf("task %q recipe %d: negative demand on %q", t.Name, ri, p.Resources[d.Resource].Name))
				}
				if seen[d.Resource] {
					errs = append(errs, fmt.Errorf("task %q recipe %d: resource %q listed twice", t.Name, ri, p.Resources[d.Resource].Name))
				}
				seen[d.Resource] = true
			}
		}
		for _, s := range t.Successors {
			if s.Task < 0 || int(s.Task) >= len(p.Tasks) {
				errs = append(errs, fmt.Errorf("task %q: unknown successor %d", t.Name, s.Task))
			}
		}
	}
	for i, r := range p.Resources {
		if r.ID != ResourceID(i) {
			errs = append(errs, fmt.Errorf("resource %q: id %d at index %d", r.Name, r.ID, i))
		}
		if limit, ok := r.Capacity.Limit(); ok && limit < 0 {
			errs = append(errs, fmt.Errorf("resource %q: negative capacity", r.Name))
		}
	}
	return errors.Join(errs...)
}

// TaskByID finds task by ID.
func (p *Problem) TaskByID(id TaskID) *Task {
	if id < 0 || int(id) >= len(p.Tasks) {
		return nil
	}
	return p.Tasks[id]
}

// TaskByName finds task by qualified name.
func (p *Problem) TaskByName(name string) *Task {
	for _, t := range p.Tasks {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// ResourceByName finds resource by name.
func (p *Problem) ResourceByName(name string) *Resource {
	for _, r := range p.Resources {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Predecessors returns, for each task, the tasks that list it as a successor.
func (p *Problem) Predecessors() [][]TaskID {
	preds := make([][]TaskID, len(p.Tasks))
	for _, t := range p.Tasks {
		for _, s := range t.Successors {
			preds[s.Task] = append(preds[s.Task], t.ID)
		}
	}
	return preds
}

// TopologicalOrder sorts tasks so that every task precedes its successors.
// Ready tasks are taken in declaration order. Returns an error wrapping
// ErrCycle with the cycle path when the successor graph is not acyclic.
func (p *Problem) TopologicalOrder() ([]TaskID, error) {
	inDegree := make([]int, len(p.Tasks))
	for _, t := range p.Tasks {
		for _, s := range t.Successors {
			inDegree[s.Task]++
		}
	}

	var queue []TaskID
	for i := range p.Tasks {
		if inDegree[i] == 0 {
			queue = append(queue, TaskID(i))
		}
	}

	order := make([]TaskID, 0, len(p.Tasks))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, s := range p.Tasks[id].Successors {
			inDegree[s.Task]--
			if inDegree[s.Task] == 0 {
				queue = append(queue, s.Task)
			}
		}
	}

	if len(order) == len(p.Tasks) {
		return order, nil
	}
	cycle := p.PrecedenceCycle()
	names := make([]string, len(cycle))
	for i, id := range cycle {
		names[i] = p.Tasks[id].Name
	}
	return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(names, " -> "))
}

// PrecedenceCycle returns one cycle of successor edges, first task repeated
// at the end, or nil if there is none.
func (p *Problem) PrecedenceCycle() []TaskID {
	const (
		white = iota // unvisited
		gray         // on the current path
		black        // finished
	)
	color := make([]int, len(p.Tasks))
	parent := make([]TaskID, len(p.Tasks))

	var cycle []TaskID
	var dfs func(id TaskID) bool
	dfs = func(id TaskID) bool {
		color[id] = gray
		for _, s := range p.Tasks[id].Successors {
			switch color[s.Task] {
			case gray:
				cycle = []TaskID{s.Task}
				for cur := id; cur != s.Task; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, s.Task)
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return true
			case white:
				parent[s.Task] = id
				if dfs(s.Task) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for i := range p.Tasks {
		if color[i] == white && dfs(TaskID(i)) {
			return cycle
		}
	}
	return nil
}
