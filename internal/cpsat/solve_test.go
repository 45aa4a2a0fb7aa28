package cpsat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solve(t *testing.T, cp *Builder, params Parameters) *Response {
	t.Helper()
	m, err := cp.Model()
	require.NoError(t, err)
	resp, err := Solve(context.Background(), m, params)
	require.NoError(t, err)
	return resp
}

func TestLinearPropagation(t *testing.T) {
	cp := NewCpModelBuilder()
	x := cp.NewIntVar(0, 10)
	y := cp.NewIntVar(3, 5)
	cp.AddEquality(NewLinearExpr().AddSum(x, y), NewConstant(10))

	m, err := cp.Model()
	require.NoError(t, err)
	s := newState(m)
	require.True(t, s.propagate(0, false))
	assert.Equal(t, int64(5), s.lo[x.Index()])
	assert.Equal(t, int64(7), s.hi[x.Index()])
}

func TestPropagationRespectsHoles(t *testing.T) {
	cp := NewCpModelBuilder()
	x := cp.NewIntVarFromDomain(FromValues([]int64{1, 4, 9}))
	cp.AddGreaterOrEqual(x, NewConstant(2))
	cp.AddLessOrEqual(x, NewConstant(8))

	m, err := cp.Model()
	require.NoError(t, err)
	s := newState(m)
	require.True(t, s.propagate(0, false))
	assert.Equal(t, int64(4), s.lo[x.Index()])
	assert.Equal(t, int64(4), s.hi[x.Index()])
}

func TestMinimize(t *testing.T) {
	cp := NewCpModelBuilder()
	x := cp.NewIntVar(0, 100)
	y := cp.NewIntVar(0, 100)
	cp.AddGreaterOrEqual(NewLinearExpr().Add(x).AddTerm(y, 2), NewConstant(7))
	cp.AddGreaterOrEqual(x, NewConstant(2))
	cp.Minimize(NewLinearExpr().AddSum(x, y))

	resp := solve(t, cp, Parameters{})
	require.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(5), resp.ObjectiveValue)
	assert.GreaterOrEqual(t, resp.Value(x)+2*resp.Value(y), int64(7))
	assert.Equal(t, resp.ObjectiveValue, resp.Value(x)+resp.Value(y))
}

func TestInfeasible(t *testing.T) {
	cp := NewCpModelBuilder()
	x := cp.NewIntVar(1, 5)
	y := cp.NewIntVar(1, 5)
	cp.AddLessOrEqual(NewLinearExpr().AddSum(x, y), NewConstant(1))
	cp.Minimize(x)

	resp := solve(t, cp, Parameters{})
	assert.Equal(t, Infeasible, resp.Status)
	assert.False(t, resp.HasSolution())
}

func TestExactlyOneAndNot(t *testing.T) {
	cp := NewCpModelBuilder()
	a := cp.NewBoolVar().WithName("a")
	b := cp.NewBoolVar().WithName("b")
	c := cp.NewBoolVar().WithName("c")
	cp.AddExactlyOne(a, b, c)
	cp.AddEquality(a.Not(), NewConstant(1))
	// Prefer c over b.
	cp.Minimize(NewLinearExpr().AddTerm(b, 3).AddTerm(c, 1))

	resp := solve(t, cp, Parameters{})
	require.Equal(t, Optimal, resp.Status)
	assert.False(t, resp.BooleanValue(a))
	assert.True(t, resp.BooleanValue(a.Not()))
	assert.False(t, resp.BooleanValue(b))
	assert.True(t, resp.BooleanValue(c))
	assert.Equal(t, "Not(a)", a.Not().Name())
}

func TestSatisfactionStopsAtFirstSolution(t *testing.T) {
	cp := NewCpModelBuilder()
	x := cp.NewIntVar(0, 9)
	y := cp.NewIntVar(0, 9)
	cp.AddEquality(NewLinearExpr().Add(x).AddTerm(y, -1), NewConstant(4))

	resp := solve(t, cp, Parameters{})
	require.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(4), resp.Value(x)-resp.Value(y))
	assert.Equal(t, int64(1), resp.Solutions)
}

// twoJobs builds two jobs of size 3 on a unit-capacity resource.
func twoJobs(cp *Builder) IntVar {
	makespan := cp.NewIntVar(0, 10)
	cum := cp.AddCumulative(1)
	for i := 0; i < 2; i++ {
		start := cp.NewIntVar(0, 10)
		iv := cp.NewFixedSizeIntervalVar(start, 3)
		cum.AddDemand(iv, NewConstant(1))
		cp.AddLessOrEqual(NewLinearExpr().Add(start).AddConstant(3), makespan)
	}
	cp.Minimize(makespan)
	return makespan
}

func TestCumulativeSerializes(t *testing.T) {
	cp := NewCpModelBuilder()
	makespan := twoJobs(cp)

	resp := solve(t, cp, Parameters{})
	require.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(6), resp.ObjectiveValue)
	assert.Equal(t, int64(6), resp.Value(makespan))
}

func TestCumulativeWithEnergyPicksModes(t *testing.T) {
	// Each job runs in 4 minutes using 2 units or in 6 minutes using 1 unit.
	cp := NewCpModelBuilder()
	makespan := cp.NewIntVar(0, 20)
	cum := cp.AddCumulative(2)
	var fast []BoolVar
	for i := 0; i < 2; i++ {
		f := cp.NewBoolVar()
		slow := cp.NewBoolVar()
		cp.AddExactlyOne(f, slow)
		start := cp.NewIntVar(0, 20)
		end := cp.NewIntVar(0, 20)
		size := cp.NewIntVarFromDomain(FromValues([]int64{4, 6}))
		cp.AddEquality(size, NewLinearExpr().AddConstant(4).AddTerm(slow, 2))
		demand := cp.NewIntVarFromDomain(FromValues([]int64{1, 2}))
		cp.AddEquality(demand, NewLinearExpr().AddConstant(1).AddTerm(f, 1))
		energy := NewLinearExpr().AddConstant(6).AddTerm(f, 2)
		iv := cp.NewIntervalVar(start, size, end)
		cum.AddDemandWithEnergy(iv, demand, energy)
		cp.AddLessOrEqual(end, makespan)
		fast = append(fast, f)
	}
	cp.Minimize(makespan)

	resp := solve(t, cp, Parameters{})
	require.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(6), resp.ObjectiveValue)
	for _, f := range fast {
		assert.False(t, resp.BooleanValue(f))
	}
}

func TestEnergyMustMatchDemandTimesSize(t *testing.T) {
	cp := NewCpModelBuilder()
	start := cp.NewIntVar(0, 5)
	iv := cp.NewFixedSizeIntervalVar(start, 2)
	cum := cp.AddCumulative(4)
	// demand 3 over 2 minutes cannot carry an energy of 5.
	cum.AddDemandWithEnergy(iv, NewConstant(3), NewConstant(5))

	resp := solve(t, cp, Parameters{})
	assert.Equal(t, Infeasible, resp.Status)
}

func TestWorkersAgreeOnOptimum(t *testing.T) {
	for _, workers := range []int{1, 4} {
		cp := NewCpModelBuilder()
		twoJobs(cp)
		resp := solve(t, cp, Parameters{Workers: workers, Seed: 7})
		require.Equal(t, Optimal, resp.Status, "workers=%d", workers)
		assert.Equal(t, int64(6), resp.ObjectiveValue, "workers=%d", workers)
	}
}

func TestHintIsFollowed(t *testing.T) {
	cp := NewCpModelBuilder()
	x := cp.NewIntVar(0, 10)
	y := cp.NewIntVar(0, 10)
	cp.AddGreaterOrEqual(NewLinearExpr().AddSum(x, y), NewConstant(4))
	cp.SetHint(&Hint{Ints: map[IntVar]int64{x: 3, y: 1}})
	cp.AddDecisionStrategy([]LinearArgument{x, y}, ChooseFirst, SelectMinValue)

	// Without an objective the first solution is returned: the hinted one.
	resp := solve(t, cp, Parameters{})
	require.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(3), resp.Value(x))
	assert.Equal(t, int64(1), resp.Value(y))
}

func TestWeightedSum(t *testing.T) {
	cp := NewCpModelBuilder()
	x := cp.NewIntVar(0, 10)
	y := cp.NewIntVar(0, 10)
	cp.AddGreaterOrEqual(NewLinearExpr().AddWeightedSum([]LinearArgument{x, y}, []int64{3, 2}), NewConstant(12))
	cp.Minimize(NewLinearExpr().AddSum(x, y))

	resp := solve(t, cp, Parameters{})
	require.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(4), resp.ObjectiveValue)
	assert.Equal(t, int64(4), resp.Value(x))
	assert.Equal(t, int64(0), resp.Value(y))

	assert.Panics(t, func() {
		NewLinearExpr().AddWeightedSum([]LinearArgument{x, y}, []int64{1})
	})
}

func TestLessThan(t *testing.T) {
	cp := NewCpModelBuilder()
	x := cp.NewIntVar(3, 10)
	y := cp.NewIntVar(0, 10)
	cp.AddLessThan(x, y)
	cp.Minimize(y)

	resp := solve(t, cp, Parameters{})
	require.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(3), resp.Value(x))
	assert.Equal(t, int64(4), resp.Value(y))
}

func TestAtMostOne(t *testing.T) {
	cp := NewCpModelBuilder()
	a := cp.NewBoolVar()
	b := cp.NewBoolVar()
	c := cp.NewBoolVar()
	cp.AddAtMostOne(a, b, c)
	cp.AddGreaterOrEqual(a, NewConstant(1))

	m, err := cp.Model()
	require.NoError(t, err)
	s := newState(m)
	require.True(t, s.propagate(0, false))
	assert.Equal(t, int64(1), s.lo[a.Index()])
	assert.Equal(t, int64(0), s.hi[b.Index()])
	assert.Equal(t, int64(0), s.hi[c.Index()])

	// All false is allowed.
	cp = NewCpModelBuilder()
	a = cp.NewBoolVar()
	b = cp.NewBoolVar()
	cp.AddAtMostOne(a, b)
	cp.Minimize(NewLinearExpr().AddSum(a, b))
	resp := solve(t, cp, Parameters{})
	require.Equal(t, Optimal, resp.Status)
	assert.False(t, resp.BooleanValue(a))
	assert.False(t, resp.BooleanValue(b))
}

func TestDecisionStrategyVariableSelection(t *testing.T) {
	tests := []struct {
		name  string
		vs    VariableSelection
		wantX int64
		wantY int64
	}{
		// x is fixed first at its lowest value, y takes what is left.
		{"first", ChooseFirst, 1, 6},
		// y has the smaller domain and is fixed first.
		{"min domain size", ChooseMinDomainSize, 2, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := NewCpModelBuilder()
			x := cp.NewIntVar(0, 10)
			y := cp.NewIntVar(5, 6)
			cp.AddGreaterOrEqual(NewLinearExpr().AddSum(x, y), NewConstant(7))
			cp.AddDecisionStrategy([]LinearArgument{x, y}, tt.vs, SelectMinValue)

			resp := solve(t, cp, Parameters{})
			require.Equal(t, Optimal, resp.Status)
			assert.Equal(t, tt.wantX, resp.Value(x))
			assert.Equal(t, tt.wantY, resp.Value(y))
		})
	}
}

func TestNodeLimit(t *testing.T) {
	cp := NewCpModelBuilder()
	x := cp.NewIntVar(0, 5)
	y := cp.NewIntVar(0, 5)
	cp.Minimize(NewLinearExpr().AddSum(x, y))

	resp := solve(t, cp, Parameters{NodeLimit: 1})
	assert.Equal(t, Unknown, resp.Status)
}

func TestCancelledContext(t *testing.T) {
	cp := NewCpModelBuilder()
	twoJobs(cp)
	m, err := cp.Model()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp, err := Solve(ctx, m, Parameters{})
	require.NoError(t, err)
	assert.Equal(t, Unknown, resp.Status)
}

func TestModelErrors(t *testing.T) {
	cp := NewCpModelBuilder()
	cp.NewIntVar(5, 1)
	_, err := cp.Model()
	assert.True(t, errors.Is(err, ErrInvalidModel))

	cp = NewCpModelBuilder()
	other := NewCpModelBuilder()
	cp.AddExactlyOne(cp.NewBoolVar(), other.NewBoolVar())
	_, err = cp.Model()
	assert.True(t, errors.Is(err, ErrMixedModels))

	cp = NewCpModelBuilder()
	cp.AddCumulative(-1)
	_, err = cp.Model()
	assert.True(t, errors.Is(err, ErrInvalidModel))

	_, err = Solve(context.Background(), nil, Parameters{})
	assert.True(t, errors.Is(err, ErrInvalidModel))
}

func TestConstantsAreShared(t *testing.T) {
	cp := NewCpModelBuilder()
	a := cp.NewConstant(4)
	b := cp.NewConstant(4)
	assert.Equal(t, a.Index(), b.Index())
	assert.Equal(t, 1, cp.NumVars())
}
