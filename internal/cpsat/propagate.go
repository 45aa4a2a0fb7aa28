package cpsat

import "sort"

type saved struct {
	v      int32
	lo, hi int64
}

// state holds the current bounds of every variable and a trail to undo them.
type state struct {
	m      *Model
	lo, hi []int64
	trail  []saved
}

func newState(m *Model) *state {
	s := &state{
		m:  m,
		lo: make([]int64, len(m.domains)),
		hi: make([]int64, len(m.domains)),
	}
	for i, d := range m.domains {
		s.lo[i], _ = d.Min()
		s.hi[i], _ = d.Max()
	}
	return s
}

func (s *state) mark() int {
	return len(s.trail)
}

func (s *state) undo(mark int) {
	for i := len(s.trail) - 1; i >= mark; i-- {
		e := s.trail[i]
		s.lo[e.v], s.hi[e.v] = e.lo, e.hi
	}
	s.trail = s.trail[:mark]
}

func (s *state) fixed(v int32) bool {
	return s.lo[v] == s.hi[v]
}

// setBounds intersects the bounds of v with [lo, hi], snapped to its domain.
func (s *state) setBounds(v int32, lo, hi int64) (changed, ok bool) {
	nlo, nhi := max(lo, s.lo[v]), min(hi, s.hi[v])
	if nlo == s.lo[v] && nhi == s.hi[v] {
		return false, true
	}
	if nlo > nhi {
		return false, false
	}
	d := s.m.domains[v]
	var okLo, okHi bool
	if nlo, okLo = d.ceil(nlo); !okLo {
		return false, false
	}
	if nhi, okHi = d.floor(nhi); !okHi || nlo > nhi {
		return false, false
	}
	s.trail = append(s.trail, saved{v: v, lo: s.lo[v], hi: s.hi[v]})
	s.lo[v], s.hi[v] = nlo, nhi
	return true, true
}

func (s *state) exprMin(e expr) int64 {
	sum := e.offset
	for _, t := range e.terms {
		if t.c > 0 {
			sum += t.c * s.lo[t.v]
		} else {
			sum += t.c * s.hi[t.v]
		}
	}
	return sum
}

func (s *state) exprMax(e expr) int64 {
	sum := e.offset
	for _, t := range e.terms {
		if t.c > 0 {
			sum += t.c * s.hi[t.v]
		} else {
			sum += t.c * s.lo[t.v]
		}
	}
	return sum
}

// restrict enforces lb <= e <= ub by bounds reasoning on each term.
// noLower and noUpper disable a side.
func (s *state) restrict(e expr, lb, ub int64) (changed, ok bool) {
	minS, maxS := s.exprMin(e), s.exprMax(e)
	if (lb != noLower && maxS < lb) || (ub != noUpper && minS > ub) {
		return false, false
	}
	for _, t := range e.terms {
		lo, hi := s.lo[t.v], s.hi[t.v]
		nlo, nhi := lo, hi
		if t.c > 0 {
			if ub != noUpper {
				nhi = min(nhi, floorDiv(ub-(minS-t.c*lo), t.c))
			}
			if lb != noLower {
				nlo = max(nlo, ceilDiv(lb-(maxS-t.c*hi), t.c))
			}
		} else {
			if ub != noUpper {
				nlo = max(nlo, ceilDiv(ub-(minS-t.c*hi), t.c))
			}
			if lb != noLower {
				nhi = min(nhi, floorDiv(lb-(maxS-t.c*lo), t.c))
			}
		}
		ch, ok := s.setBounds(t.v, nlo, nhi)
		if !ok {
			return changed, false
		}
		if ch {
			changed = true
			minS, maxS = s.exprMin(e), s.exprMax(e)
		}
	}
	return changed, true
}

// propagate runs every propagator until no bound changes. bound, when
// hasBound is set, is an upper bound on the objective.
func (s *state) propagate(bound int64, hasBound bool) bool {
	for {
		changed := false
		if hasBound && s.m.objective != nil {
			ch, ok := s.restrict(*s.m.objective, noLower, bound)
			if !ok {
				return false
			}
			changed = changed || ch
		}
		for i := range s.m.linears {
			l := &s.m.linears[i]
			ch, ok := s.restrict(l.e, l.lb, l.ub)
			if !ok {
				return false
			}
			changed = changed || ch
		}
		for i := range s.m.cumulatives {
			ch, ok := s.propagateCumulative(&s.m.cumulatives[i])
			if !ok {
				return false
			}
			changed = changed || ch
		}
		if !changed {
			return true
		}
	}
}

func (s *state) propagateCumulative(c *cumulative) (changed, ok bool) {
	step := func(ch, o bool) bool {
		changed = changed || ch
		return o
	}

	for i := range c.tasks {
		t := &c.tasks[i]
		if s.exprMin(t.size) > 0 && !step(s.restrict(t.demand, noLower, c.capacity)) {
			return changed, false
		}
		if !t.hasEnergy {
			continue
		}
		dmin, dmax := s.exprMin(t.demand), s.exprMax(t.demand)
		pmin, pmax := s.exprMin(t.size), s.exprMax(t.size)
		if !step(s.restrict(t.energy, dmin*pmin, dmax*pmax)) {
			return changed, false
		}
		emin, emax := s.exprMin(t.energy), s.exprMax(t.energy)
		if pmin > 0 && !step(s.restrict(t.demand, noLower, floorDiv(emax, pmin))) {
			return changed, false
		}
		if pmax > 0 && !step(s.restrict(t.demand, ceilDiv(emin, pmax), noUpper)) {
			return changed, false
		}
		dmin, dmax = s.exprMin(t.demand), s.exprMax(t.demand)
		if dmin > 0 && !step(s.restrict(t.size, noLower, floorDiv(emax, dmin))) {
			return changed, false
		}
		if dmax > 0 && !step(s.restrict(t.size, ceilDiv(emin, dmax), noUpper)) {
			return changed, false
		}
	}

	if !step(s.timetable(c)) {
		return changed, false
	}
	return changed, s.energeticOverload(c)
}

type segment struct {
	start, end, height int64
}

// profile builds the compulsory-part profile of c. Only segments with a
// positive height are returned, in time order.
func profile(events []segment) []segment {
	type ev struct {
		t, delta int64
	}
	evs := make([]ev, 0, 2*len(events))
	for _, e := range events {
		evs = append(evs, ev{e.start, e.height}, ev{e.end, -e.height})
	}
	sort.Slice(evs, func(i, j int) bool { return evs[i].t < evs[j].t })

	var segs []segment
	var height int64
	for i := 0; i < len(evs); {
		t := evs[i].t
		for i < len(evs) && evs[i].t == t {
			height += evs[i].delta
			i++
		}
		if n := len(segs); n > 0 && segs[n-1].end == noUpper {
			segs[n-1].end = t
		}
		if height > 0 && i < len(evs) {
			segs = append(segs, segment{start: t, end: noUpper, height: height})
		}
	}
	return segs
}

// timetable checks the compulsory-part profile against the capacity and
// pushes start and end bounds of tasks that cannot fit next to it.
func (s *state) timetable(c *cumulative) (changed, ok bool) {
	n := len(c.tasks)
	lst := make([]int64, n)
	ect := make([]int64, n)
	dmin := make([]int64, n)
	var parts []segment
	for i := range c.tasks {
		t := &c.tasks[i]
		dmin[i] = s.exprMin(t.demand)
		lst[i] = s.exprMax(t.start)
		ect[i] = s.exprMin(t.end)
		if dmin[i] > 0 && lst[i] < ect[i] {
			parts = append(parts, segment{start: lst[i], end: ect[i], height: dmin[i]})
		}
	}
	segs := profile(parts)
	for _, seg := range segs {
		if seg.height > c.capacity {
			return false, false
		}
	}

	for i := range c.tasks {
		t := &c.tasks[i]
		pmin := s.exprMin(t.size)
		if dmin[i] == 0 || pmin == 0 {
			continue
		}
		own := func(seg segment) int64 {
			if lst[i] < ect[i] && seg.start >= lst[i] && seg.end <= ect[i] {
				return dmin[i]
			}
			return 0
		}
		conflict := func(seg segment) bool {
			return seg.height-own(seg)+dmin[i] > c.capacity
		}

		est := s.exprMin(t.start)
		for moved := true; moved; {
			moved = false
			for _, seg := range segs {
				if seg.end <= est {
					continue
				}
				if seg.start >= est+pmin {
					break
				}
				if conflict(seg) {
					est, moved = seg.end, true
					break
				}
			}
			if est > s.exprMax(t.start) {
				return changed, false
			}
		}
		if est > s.exprMin(t.start) {
			ch, ok := s.restrict(t.start, est, noUpper)
			if !ok {
				return changed, false
			}
			changed = changed || ch
		}

		lct := s.exprMax(t.end)
		for moved := true; moved; {
			moved = false
			for k := len(segs) - 1; k >= 0; k-- {
				seg := segs[k]
				if seg.start >= lct {
					continue
				}
				if seg.end <= lct-pmin {
					break
				}
				if conflict(seg) {
					lct, moved = seg.start, true
					break
				}
			}
			if lct < s.exprMin(t.end) {
				return changed, false
			}
		}
		if lct < s.exprMax(t.end) {
			ch, ok := s.restrict(t.end, noLower, lct)
			if !ok {
				return changed, false
			}
			changed = changed || ch
		}
	}
	return changed, true
}

// energeticOverload fails when the minimal energy of the tasks that must run
// inside a window [a, b) exceeds capacity * (b - a).
func (s *state) energeticOverload(c *cumulative) bool {
	type item struct {
		est, lct, energy int64
	}
	var items []item
	for i := range c.tasks {
		t := &c.tasks[i]
		var e int64
		if t.hasEnergy {
			e = s.exprMin(t.energy)
		} else {
			e = s.exprMin(t.demand) * s.exprMin(t.size)
		}
		if e > 0 {
			items = append(items, item{est: s.exprMin(t.start), lct: s.exprMax(t.end), energy: e})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].lct < items[j].lct })

	seen := make(map[int64]bool, len(items))
	for _, a := range items {
		if seen[a.est] {
			continue
		}
		seen[a.est] = true
		var sum int64
		for _, it := range items {
			if it.est < a.est {
				continue
			}
			sum += it.energy
			if sum > c.capacity*(it.lct-a.est) {
				return false
			}
		}
	}
	return true
}

// verify checks a fully fixed assignment against every constraint.
func (s *state) verify() bool {
	for i := range s.m.linears {
		l := &s.m.linears[i]
		v := s.exprMin(l.e)
		if (l.lb != noLower && v < l.lb) || (l.ub != noUpper && v > l.ub) {
			return false
		}
	}
	for i := range s.m.cumulatives {
		c := &s.m.cumulatives[i]
		var parts []segment
		for k := range c.tasks {
			t := &c.tasks[k]
			d, p := s.exprMin(t.demand), s.exprMin(t.size)
			if t.hasEnergy && s.exprMin(t.energy) != d*p {
				return false
			}
			if d > 0 && p > 0 {
				parts = append(parts, segment{start: s.exprMin(t.start), end: s.exprMin(t.end), height: d})
			}
		}
		for _, seg := range profile(parts) {
			if seg.height > c.capacity {
				return false
			}
		}
	}
	return true
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}
