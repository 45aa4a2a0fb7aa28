package cpsat

import "sort"

type term struct {
	v int32
	c int64
}

// expr is a compiled linear expression with merged, sorted terms.
type expr struct {
	terms  []term
	offset int64
}

type linear struct {
	name   string
	e      expr
	lb, ub int64
}

type cumTask struct {
	interval                 int
	start, size, end, demand expr
	energy                   expr
	hasEnergy                bool
}

type cumulative struct {
	capacity int64
	tasks    []cumTask
}

type strategy struct {
	vars []int32
	vs   VariableSelection
	ds   DomainReduction
}

// Model is an immutable, validated model produced by Builder.Model.
type Model struct {
	names       []string
	domains     []Domain
	linears     []linear
	cumulatives []cumulative
	objective   *expr
	hint        []int64
	hasHint     []bool
	strategies  []strategy
}

// NumVars returns the number of variables of the model.
func (m *Model) NumVars() int {
	return len(m.domains)
}

// NumConstraints returns the number of linear and cumulative constraints.
func (m *Model) NumConstraints() int {
	return len(m.linears) + len(m.cumulatives)
}

// HasObjective reports whether the model minimizes an expression.
func (m *Model) HasObjective() bool {
	return m.objective != nil
}

func compile(l *LinearExpr) expr {
	coeffs := make(map[int32]int64, len(l.varCoeffs))
	for _, vc := range l.varCoeffs {
		coeffs[int32(vc.ind)] += vc.coeff
	}
	e := expr{offset: l.offset, terms: make([]term, 0, len(coeffs))}
	for v, c := range coeffs {
		if c != 0 {
			e.terms = append(e.terms, term{v: v, c: c})
		}
	}
	sort.Slice(e.terms, func(i, j int) bool { return e.terms[i].v < e.terms[j].v })
	return e
}

func (e expr) valid(n int) bool {
	for _, t := range e.terms {
		if t.v < 0 || int(t.v) >= n {
			return false
		}
	}
	return true
}

// Model validates the builder and returns an immutable copy of its model.
// It returns the first error met while building, or an error wrapping
// ErrInvalidModel.
func (cp *Builder) Model() (*Model, error) {
	if cp.err != nil {
		return nil, cp.err
	}
	n := len(cp.vars)
	m := &Model{
		names:   make([]string, n),
		domains: make([]Domain, n),
		hint:    make([]int64, n),
		hasHint: make([]bool, n),
	}
	for i, v := range cp.vars {
		m.names[i] = v.name
		m.domains[i] = v.domain
	}

	for i, l := range cp.linears {
		e := compile(l.expr)
		if !e.valid(n) {
			return nil, invalidf("linear constraint %d references an unknown variable", i)
		}
		if l.lb > l.ub {
			return nil, invalidf("linear constraint %d has empty bounds [%d, %d]", i, l.lb, l.ub)
		}
		m.linears = append(m.linears, linear{name: l.name, e: e, lb: l.lb, ub: l.ub})
	}

	for ci, c := range cp.cumulatives {
		cum := cumulative{capacity: c.capacity}
		for k, iv := range c.intervals {
			ip := cp.intervals[iv]
			t := cumTask{
				interval: iv,
				start:    compile(ip.start),
				size:     compile(ip.size),
				end:      compile(ip.end),
				demand:   compile(c.demands[k]),
			}
			if c.energies[k] != nil {
				t.energy = compile(c.energies[k])
				t.hasEnergy = true
			}
			for _, e := range []expr{t.start, t.size, t.end, t.demand, t.energy} {
				if !e.valid(n) {
					return nil, invalidf("cumulative %d references an unknown variable", ci)
				}
			}
			cum.tasks = append(cum.tasks, t)
		}
		m.cumulatives = append(m.cumulatives, cum)
	}

	if cp.objective != nil {
		obj := compile(cp.objective)
		if !obj.valid(n) {
			return nil, invalidf("objective references an unknown variable")
		}
		m.objective = &obj
	}

	for v, x := range cp.hint {
		if int(v) >= n {
			return nil, invalidf("hint references an unknown variable")
		}
		m.hint[v] = x
		m.hasHint[v] = true
	}

	for _, st := range cp.strategies {
		s := strategy{vs: st.vs, ds: st.ds}
		for _, v := range st.vars {
			s.vars = append(s.vars, int32(v))
		}
		m.strategies = append(m.strategies, s)
	}
	return m, nil
}
