package algo

import (
	"fmt"
	"slices"

	"github.com/elektrokombinacija/mise/internal/core"
	"github.com/elektrokombinacija/mise/internal/cpsat"
)

// SelectionExpr linearizes the choice of one value per literal:
//
//	min(values) + Σ literals[i] * (values[i] - min(values))
//
// With exactly one literal true the expression equals that literal's value.
// It panics if the slices are empty or differ in length.
func SelectionExpr(values []int64, literals []cpsat.BoolVar) *cpsat.LinearExpr {
	if len(values) == 0 || len(values) != len(literals) {
		panic(fmt.Sprintf("algo: SelectionExpr needs one value per literal, got %d values and %d literals", len(values), len(literals)))
	}
	base := slices.Min(values)
	e := cpsat.NewConstant(base)
	for i, lit := range literals {
		if off := values[i] - base; off != 0 {
			e.AddTerm(lit, off)
		}
	}
	return e
}

// Horizon bounds every start and end time of a schedule: the sum of the
// longest recipe of every task plus every positive successor delay.
func Horizon(p *core.Problem) int {
	h := 0
	for _, t := range p.Tasks {
		h += t.MaxDuration()
		for _, s := range t.Successors {
			if s.Bounded() {
				h += s.Delay
			}
		}
	}
	return h
}

// ResolveCapacity returns the capacity used for resource r. An unlimited
// capacity becomes the sum over tasks of the largest demand any of their
// recipes places on r, which no schedule can exceed.
func ResolveCapacity(p *core.Problem, r core.ResourceID) int {
	if limit, ok := p.Resources[r].Capacity.Limit(); ok {
		return limit
	}
	total := 0
	for _, t := range p.Tasks {
		total += t.MaxDemand(r)
	}
	return total
}

// ResolveCapacities resolves the capacity of every resource of p.
func ResolveCapacities(p *core.Problem) []int {
	out := make([]int, len(p.Resources))
	for r := range p.Resources {
		out[r] = ResolveCapacity(p, core.ResourceID(r))
	}
	return out
}
