package cpsat

import (
	"fmt"
	"sort"
	"strings"
)

// ClosedInterval stores the closed interval `[Start,End]`. If the `Start` is greater
// than the `End`, the interval is considered empty.
type ClosedInterval struct {
	Start int64
	End   int64
}

// Domain is a sorted list of disjoint, non-adjacent closed intervals.
type Domain struct {
	intervals []ClosedInterval
}

// NewEmptyDomain creates an empty Domain.
func NewEmptyDomain() Domain {
	return Domain{}
}

// NewSingleDomain creates a new singleton domain `[val]`.
func NewSingleDomain(val int64) Domain {
	return Domain{[]ClosedInterval{{val, val}}}
}

// NewDomain creates a new domain of a single interval `[left,right]`.
// If `left > right`, an empty domain is returned.
func NewDomain(left, right int64) Domain {
	if left > right {
		return NewEmptyDomain()
	}
	return Domain{[]ClosedInterval{{left, right}}}
}

// FromValues creates a new domain from `values`. `values` need not be sorted and
// can repeat.
func FromValues(values []int64) Domain {
	vs := append([]int64(nil), values...)
	sort.Slice(vs, func(i, j int) bool { return vs[i] < vs[j] })
	var ivs []ClosedInterval
	for _, v := range vs {
		if n := len(ivs); n > 0 && v <= ivs[n-1].End+1 {
			ivs[n-1].End = max(ivs[n-1].End, v)
			continue
		}
		ivs = append(ivs, ClosedInterval{v, v})
	}
	return Domain{ivs}
}

// FromIntervals creates a domain from the union of the given intervals.
func FromIntervals(intervals []ClosedInterval) Domain {
	ivs := make([]ClosedInterval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Start <= iv.End {
			ivs = append(ivs, iv)
		}
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start < ivs[j].Start })
	var out []ClosedInterval
	for _, iv := range ivs {
		if n := len(out); n > 0 && iv.Start <= out[n-1].End+1 {
			out[n-1].End = max(out[n-1].End, iv.End)
			continue
		}
		out = append(out, iv)
	}
	return Domain{out}
}

// IsEmpty reports whether the domain holds no value.
func (d Domain) IsEmpty() bool {
	return len(d.intervals) == 0
}

// Min returns the smallest value. ok is false for an empty domain.
func (d Domain) Min() (int64, bool) {
	if d.IsEmpty() {
		return 0, false
	}
	return d.intervals[0].Start, true
}

// Max returns the largest value. ok is false for an empty domain.
func (d Domain) Max() (int64, bool) {
	if d.IsEmpty() {
		return 0, false
	}
	return d.intervals[len(d.intervals)-1].End, true
}

// Contains reports whether v is in the domain.
func (d Domain) Contains(v int64) bool {
	i := sort.Search(len(d.intervals), func(i int) bool { return d.intervals[i].End >= v })
	return i < len(d.intervals) && d.intervals[i].Start <= v
}

// FlattenedIntervals returns [s0, e0, s1, e1, ...].
func (d Domain) FlattenedIntervals() []int64 {
	out := make([]int64, 0, 2*len(d.intervals))
	for _, iv := range d.intervals {
		out = append(out, iv.Start, iv.End)
	}
	return out
}

// ceil returns the smallest domain value >= v. ok is false if there is none.
func (d Domain) ceil(v int64) (int64, bool) {
	i := sort.Search(len(d.intervals), func(i int) bool { return d.intervals[i].End >= v })
	if i == len(d.intervals) {
		return 0, false
	}
	return max(v, d.intervals[i].Start), true
}

// floor returns the largest domain value <= v. ok is false if there is none.
func (d Domain) floor(v int64) (int64, bool) {
	i := sort.Search(len(d.intervals), func(i int) bool { return d.intervals[i].Start > v })
	if i == 0 {
		return 0, false
	}
	return min(v, d.intervals[i-1].End), true
}

func (d Domain) String() string {
	parts := make([]string, len(d.intervals))
	for i, iv := range d.intervals {
		if iv.Start == iv.End {
			parts[i] = fmt.Sprint(iv.Start)
		} else {
			parts[i] = fmt.Sprintf("%d..%d", iv.Start, iv.End)
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
