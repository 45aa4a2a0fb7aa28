// Package cpsat is a small constraint-programming engine for scheduling models.
//
// The `Builder` collects integer, Boolean and interval variables together with
// linear and cumulative constraints and an optional linear objective. `Model`
// freezes the builder into an immutable model that `Solve` searches with bounds
// propagation and depth-first branch and bound.
package cpsat

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrMixedModels is returned when elements of different builders are combined.
	ErrMixedModels = errors.New("elements are not part of the same model")
	// ErrInvalidModel is returned by Model and Solve for malformed models.
	ErrInvalidModel = errors.New("invalid model")
)

const (
	noLower = math.MinInt64
	noUpper = math.MaxInt64
)

type (
	// VarIndex is the index of a variable, if positive. If negative, it represents
	// the negation of a Boolean variable in position (-1*VarIndex-1).
	VarIndex int32
	// ConstrIndex is the index of a constraint.
	ConstrIndex int32
)

func (v VarIndex) positiveIndex() VarIndex {
	if v >= 0 {
		return v
	}
	return -1*v - 1
}

// LinearArgument provides an interface for BoolVar, IntVar, and LinearExpr.
type LinearArgument interface {
	addToLinearExpr(e *LinearExpr, c int64)
}

// LinearExpr is a container for a linear expression.
type LinearExpr struct {
	varCoeffs []varCoeff
	offset    int64
}

type varCoeff struct {
	ind   VarIndex
	coeff int64
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant creates and returns a LinearExpr containing the constant `c`.
func NewConstant(c int64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// Add adds the linear argument term to the LinearExpr and returns itself.
func (l *LinearExpr) Add(la LinearArgument) *LinearExpr {
	return l.AddTerm(la, 1)
}

// AddConstant adds the constant to the LinearExpr and returns itself.
func (l *LinearExpr) AddConstant(c int64) *LinearExpr {
	l.offset += c
	return l
}

// AddTerm adds the linear argument term with the given coefficient and returns itself.
func (l *LinearExpr) AddTerm(la LinearArgument, coeff int64) *LinearExpr {
	la.addToLinearExpr(l, coeff)
	return l
}

// AddSum adds the sum of the linear arguments and returns itself.
func (l *LinearExpr) AddSum(las ...LinearArgument) *LinearExpr {
	for _, la := range las {
		l.Add(la)
	}
	return l
}

// AddWeightedSum adds the linear arguments with the corresponding coefficients
// and returns itself. It panics if the lengths differ.
func (l *LinearExpr) AddWeightedSum(las []LinearArgument, coeffs []int64) *LinearExpr {
	if len(coeffs) != len(las) {
		panic(fmt.Sprintf("cpsat: las and coeffs must be the same length: %v != %v", len(las), len(coeffs)))
	}
	for i, la := range las {
		l.AddTerm(la, coeffs[i])
	}
	return l
}

func (l *LinearExpr) addToLinearExpr(e *LinearExpr, c int64) {
	for _, vc := range l.varCoeffs {
		e.varCoeffs = append(e.varCoeffs, varCoeff{ind: vc.ind, coeff: vc.coeff * c})
	}
	e.offset += l.offset * c
}

// IntVar is a reference to an integer variable of a Builder.
type IntVar struct {
	cpb *Builder
	ind VarIndex
}

// Name returns the name of the variable.
func (i IntVar) Name() string {
	return i.cpb.vars[i.ind].name
}

// Domain returns the declared domain of the variable.
func (i IntVar) Domain() Domain {
	return i.cpb.vars[i.ind].domain
}

// Index returns the index of the variable.
func (i IntVar) Index() VarIndex {
	return i.ind
}

// WithName sets the name of the variable.
func (i IntVar) WithName(s string) IntVar {
	i.cpb.vars[i.ind].name = s
	return i
}

func (i IntVar) addToLinearExpr(e *LinearExpr, c int64) {
	e.varCoeffs = append(e.varCoeffs, varCoeff{ind: i.ind, coeff: c})
}

// BoolVar is a reference to a Boolean variable or its negation.
type BoolVar struct {
	cpb *Builder
	ind VarIndex
}

// Not returns the logical negation of the variable.
func (b BoolVar) Not() BoolVar {
	return BoolVar{cpb: b.cpb, ind: -b.ind - 1}
}

// Name returns the name of the variable.
func (b BoolVar) Name() string {
	name := b.cpb.vars[b.ind.positiveIndex()].name
	if b.ind < 0 {
		return "Not(" + name + ")"
	}
	return name
}

// Index returns the index of the variable, negative for a negation.
func (b BoolVar) Index() VarIndex {
	return b.ind
}

// WithName sets the name of the underlying variable.
func (b BoolVar) WithName(s string) BoolVar {
	b.cpb.vars[b.ind.positiveIndex()].name = s
	return b
}

func (b BoolVar) addToLinearExpr(e *LinearExpr, c int64) {
	if b.ind < 0 {
		e.offset += c
		e.varCoeffs = append(e.varCoeffs, varCoeff{ind: b.ind.positiveIndex(), coeff: -c})
		return
	}
	e.varCoeffs = append(e.varCoeffs, varCoeff{ind: b.ind, coeff: c})
}

// IntervalVar is a reference to an interval `[start, end)` of length size.
type IntervalVar struct {
	cpb *Builder
	ind int
}

// Name returns the name of the interval.
func (iv IntervalVar) Name() string {
	return iv.cpb.intervals[iv.ind].name
}

// Index returns the index of the interval.
func (iv IntervalVar) Index() int {
	return iv.ind
}

// WithName sets the name of the interval.
func (iv IntervalVar) WithName(s string) IntervalVar {
	iv.cpb.intervals[iv.ind].name = s
	return iv
}

// Constraint is a reference to a linear constraint of a Builder.
type Constraint struct {
	cpb *Builder
	ind ConstrIndex
}

// WithName sets the name of the constraint.
func (c Constraint) WithName(s string) Constraint {
	c.cpb.linears[c.ind].name = s
	return c
}

// Name returns the name of the constraint.
func (c Constraint) Name() string {
	return c.cpb.linears[c.ind].name
}

// Index returns the index of the constraint.
func (c Constraint) Index() ConstrIndex {
	return c.ind
}

// CumulativeConstraint ensures that the demands of the intervals covering any
// point never exceed a fixed capacity.
type CumulativeConstraint struct {
	cpb *Builder
	ind int
}

// AddDemand adds the demand of an interval. Its energy is demand * size.
func (cc CumulativeConstraint) AddDemand(interval IntervalVar, demand LinearArgument) {
	cc.AddDemandWithEnergy(interval, demand, nil)
}

// AddDemandWithEnergy adds an interval with its demand and energy. A solution
// must satisfy energy = demand * size for the interval. A nil energy is
// derived from demand and size.
func (cc CumulativeConstraint) AddDemandWithEnergy(interval IntervalVar, demand, energy LinearArgument) {
	if !cc.cpb.checkSameModelAndSetErrorf(interval.cpb, "invalid interval %v added to cumulative %v", interval.Index(), cc.ind) {
		return
	}
	ct := &cc.cpb.cumulatives[cc.ind]
	ct.intervals = append(ct.intervals, interval.ind)
	ct.demands = append(ct.demands, NewLinearExpr().Add(demand))
	cc.cpb.AddGreaterOrEqual(demand, NewConstant(0))
	if energy == nil {
		ct.energies = append(ct.energies, nil)
		return
	}
	ct.energies = append(ct.energies, NewLinearExpr().Add(energy))
	cc.cpb.AddGreaterOrEqual(energy, NewConstant(0))
}

// VariableSelection picks the next variable of a decision strategy.
type VariableSelection int

const (
	ChooseFirst VariableSelection = iota
	ChooseLowestMin
	ChooseMinDomainSize
)

// DomainReduction picks the value tried first for the chosen variable.
type DomainReduction int

const (
	SelectMinValue DomainReduction = iota
	SelectMaxValue
)

// Hint is a container for IntVar and BoolVar hints to the CP model.
type Hint struct {
	Ints  map[IntVar]int64
	Bools map[BoolVar]bool
}

type varProto struct {
	name   string
	domain Domain
}

type linearProto struct {
	name   string
	expr   *LinearExpr
	lb, ub int64
}

type intervalProto struct {
	name             string
	start, size, end *LinearExpr
}

type cumulativeProto struct {
	capacity  int64
	intervals []int
	demands   []*LinearExpr
	energies  []*LinearExpr
}

type strategyProto struct {
	vars []VarIndex
	vs   VariableSelection
	ds   DomainReduction
}

// Builder collects the variables and constraints of a model.
type Builder struct {
	vars        []varProto
	linears     []linearProto
	intervals   []intervalProto
	cumulatives []cumulativeProto
	objective   *LinearExpr
	hint        map[VarIndex]int64
	strategies  []strategyProto
	constants   map[int64]VarIndex
	// The first and only the first error is reported in Model.
	err error
}

// NewCpModelBuilder creates and returns a new Builder.
func NewCpModelBuilder() *Builder {
	return &Builder{constants: make(map[int64]VarIndex)}
}

// checkSameModelAndSetErrorf returns true if `cp` and `cp2` point to the same Builder.
// If false, an error is recorded on `cp` if none was recorded before.
func (cp *Builder) checkSameModelAndSetErrorf(cp2 *Builder, format string, a ...any) bool {
	if cp == cp2 {
		return true
	}
	args := make([]any, len(a)+1)
	copy(args, a)
	args[len(a)] = ErrMixedModels
	if cp.err == nil {
		cp.err = fmt.Errorf(format+": %w", args...)
	}
	return false
}

func (cp *Builder) setErrorf(format string, a ...any) {
	if cp.err == nil {
		cp.err = invalidf(format, a...)
	}
}

func invalidf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidModel, fmt.Sprintf(format, a...))
}

// NewIntVar creates a new integer variable with domain [lb, ub].
func (cp *Builder) NewIntVar(lb, ub int64) IntVar {
	return cp.NewIntVarFromDomain(NewDomain(lb, ub))
}

// NewIntVarFromDomain creates a new integer variable with the given domain.
func (cp *Builder) NewIntVarFromDomain(d Domain) IntVar {
	ind := VarIndex(len(cp.vars))
	if d.IsEmpty() {
		cp.setErrorf("variable %d has an empty domain", ind)
	}
	cp.vars = append(cp.vars, varProto{domain: d})
	return IntVar{cpb: cp, ind: ind}
}

// NewBoolVar creates a new Boolean variable.
func (cp *Builder) NewBoolVar() BoolVar {
	ind := VarIndex(len(cp.vars))
	cp.vars = append(cp.vars, varProto{domain: NewDomain(0, 1)})
	return BoolVar{cpb: cp, ind: ind}
}

// NewConstant returns a fixed integer variable. Repeated calls with the same
// value return the same variable.
func (cp *Builder) NewConstant(v int64) IntVar {
	if ind, ok := cp.constants[v]; ok {
		return IntVar{cpb: cp, ind: ind}
	}
	iv := cp.NewIntVarFromDomain(NewSingleDomain(v))
	cp.constants[v] = iv.ind
	return iv
}

// NewIntervalVar creates an interval with start + size = end and size >= 0.
func (cp *Builder) NewIntervalVar(start, size, end LinearArgument) IntervalVar {
	ind := len(cp.intervals)
	cp.intervals = append(cp.intervals, intervalProto{
		start: NewLinearExpr().Add(start),
		size:  NewLinearExpr().Add(size),
		end:   NewLinearExpr().Add(end),
	})
	cp.AddEquality(NewLinearExpr().Add(start).Add(size), end)
	cp.AddGreaterOrEqual(size, NewConstant(0))
	return IntervalVar{cpb: cp, ind: ind}
}

// NewFixedSizeIntervalVar creates an interval of constant size.
func (cp *Builder) NewFixedSizeIntervalVar(start LinearArgument, size int64) IntervalVar {
	return cp.NewIntervalVar(start, NewConstant(size), NewLinearExpr().Add(start).AddConstant(size))
}

// AddLinearConstraint adds lb <= expr <= ub.
func (cp *Builder) AddLinearConstraint(expr LinearArgument, lb, ub int64) Constraint {
	ind := ConstrIndex(len(cp.linears))
	cp.linears = append(cp.linears, linearProto{expr: NewLinearExpr().Add(expr), lb: lb, ub: ub})
	return Constraint{cpb: cp, ind: ind}
}

// AddEquality adds lhs == rhs.
func (cp *Builder) AddEquality(lhs, rhs LinearArgument) Constraint {
	return cp.AddLinearConstraint(NewLinearExpr().Add(lhs).AddTerm(rhs, -1), 0, 0)
}

// AddLessOrEqual adds lhs <= rhs.
func (cp *Builder) AddLessOrEqual(lhs, rhs LinearArgument) Constraint {
	return cp.AddLinearConstraint(NewLinearExpr().Add(lhs).AddTerm(rhs, -1), noLower, 0)
}

// AddLessThan adds lhs < rhs.
func (cp *Builder) AddLessThan(lhs, rhs LinearArgument) Constraint {
	return cp.AddLinearConstraint(NewLinearExpr().Add(lhs).AddTerm(rhs, -1), noLower, -1)
}

// AddGreaterOrEqual adds lhs >= rhs.
func (cp *Builder) AddGreaterOrEqual(lhs, rhs LinearArgument) Constraint {
	return cp.AddLinearConstraint(NewLinearExpr().Add(lhs).AddTerm(rhs, -1), 0, noUpper)
}

// AddExactlyOne adds sum(bvs) == 1.
func (cp *Builder) AddExactlyOne(bvs ...BoolVar) Constraint {
	e := NewLinearExpr()
	for _, b := range bvs {
		if !cp.checkSameModelAndSetErrorf(b.cpb, "BoolVar %v added to ExactlyOne", b.Index()) {
			break
		}
		e.Add(b)
	}
	return cp.AddLinearConstraint(e, 1, 1)
}

// AddAtMostOne adds sum(bvs) <= 1.
func (cp *Builder) AddAtMostOne(bvs ...BoolVar) Constraint {
	e := NewLinearExpr()
	for _, b := range bvs {
		e.Add(b)
	}
	return cp.AddLinearConstraint(e, noLower, 1)
}

// AddCumulative adds a cumulative constraint with a fixed capacity.
func (cp *Builder) AddCumulative(capacity int64) CumulativeConstraint {
	if capacity < 0 {
		cp.setErrorf("negative cumulative capacity %d", capacity)
	}
	ind := len(cp.cumulatives)
	cp.cumulatives = append(cp.cumulatives, cumulativeProto{capacity: capacity})
	return CumulativeConstraint{cpb: cp, ind: ind}
}

// Minimize sets a linear minimization objective.
func (cp *Builder) Minimize(obj LinearArgument) {
	cp.objective = NewLinearExpr().Add(obj)
}

// SetHint sets the hint on the model. The search tries hinted values first.
func (cp *Builder) SetHint(hint *Hint) {
	cp.hint = nil
	if hint == nil {
		return
	}
	cp.hint = make(map[VarIndex]int64, len(hint.Ints)+len(hint.Bools))
	for iv, v := range hint.Ints {
		if cp.checkSameModelAndSetErrorf(iv.cpb, "IntVar %v added to the hint", iv.Index()) {
			cp.hint[iv.ind] = v
		}
	}
	for bv, v := range hint.Bools {
		if !cp.checkSameModelAndSetErrorf(bv.cpb, "BoolVar %v added to the hint", bv.Index()) {
			continue
		}
		if bv.ind < 0 {
			v = !v
		}
		var x int64
		if v {
			x = 1
		}
		cp.hint[bv.ind.positiveIndex()] = x
	}
}

// ClearHint clears any hints on the model.
func (cp *Builder) ClearHint() {
	cp.hint = nil
}

// AddDecisionStrategy adds a decision strategy on a list of variables. Each
// element must be an IntVar or a non-negated BoolVar.
func (cp *Builder) AddDecisionStrategy(vars []LinearArgument, vs VariableSelection, ds DomainReduction) {
	st := strategyProto{vs: vs, ds: ds}
	for _, v := range vars {
		switch x := v.(type) {
		case IntVar:
			if !cp.checkSameModelAndSetErrorf(x.cpb, "invalid parameter var %v added to the DecisionStrategy", x.Index()) {
				return
			}
			st.vars = append(st.vars, x.ind)
		case BoolVar:
			if !cp.checkSameModelAndSetErrorf(x.cpb, "invalid parameter var %v added to the DecisionStrategy", x.Index()) {
				return
			}
			if x.ind < 0 {
				cp.setErrorf("negated literal %v in a decision strategy", x.Index())
				return
			}
			st.vars = append(st.vars, x.ind)
		default:
			cp.setErrorf("decision strategies take variables, got %T", v)
			return
		}
	}
	cp.strategies = append(cp.strategies, st)
}

// NumVars returns the number of variables created so far.
func (cp *Builder) NumVars() int {
	return len(cp.vars)
}
