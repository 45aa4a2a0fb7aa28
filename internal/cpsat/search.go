package cpsat

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the outcome of a solve.
type Status int

const (
	Unknown    Status = iota // A limit was reached before any solution was found
	Optimal                  // The best solution was found and proven optimal
	Feasible                 // A solution was found but a limit stopped the proof
	Infeasible               // The model has no solution
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "OPTIMAL"
	case Feasible:
		return "FEASIBLE"
	case Infeasible:
		return "INFEASIBLE"
	default:
		return "UNKNOWN"
	}
}

// Parameters bound and shape the search. The zero value searches to
// completion on one worker.
type Parameters struct {
	TimeLimit time.Duration // 0 means no limit
	NodeLimit int64         // 0 means no limit
	Workers   int           // Values below 1 mean 1
	Seed      int64         // Diversifies workers after the first
}

// Response holds the result of a solve.
type Response struct {
	Status         Status
	ObjectiveValue int64
	Nodes          int64
	Failures       int64
	Solutions      int64
	WallTime       time.Duration
	values         []int64
}

// HasSolution reports whether values are available.
func (r *Response) HasSolution() bool {
	return r.Status == Optimal || r.Status == Feasible
}

// Value evaluates a variable or expression in the solution.
func (r *Response) Value(la LinearArgument) int64 {
	e := NewLinearExpr().Add(la)
	v := e.offset
	for _, vc := range e.varCoeffs {
		v += vc.coeff * r.values[vc.ind]
	}
	return v
}

// BooleanValue returns the value of a literal in the solution.
func (r *Response) BooleanValue(b BoolVar) bool {
	return r.Value(b) == 1
}

// shared is the state the workers of one solve exchange.
type shared struct {
	m         *Model
	best      atomic.Int64
	nodes     atomic.Int64
	failures  atomic.Int64
	solutions atomic.Int64
	proven    atomic.Bool
	nodeLimit int64
	cancel    context.CancelFunc

	mu     sync.Mutex
	values []int64
}

func (sh *shared) incumbent() (int64, bool) {
	b := sh.best.Load()
	return b, b != math.MaxInt64
}

// offer records a solution if it improves the incumbent.
func (sh *shared) offer(obj int64, values []int64) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if b, ok := sh.incumbent(); ok && obj >= b {
		return
	}
	sh.values = append(sh.values[:0], values...)
	sh.best.Store(obj)
	sh.solutions.Add(1)
}

// Solve searches model for an optimal solution. The context and the limits
// in params stop the search early; the best solution found so far is then
// reported with status Feasible. Errors are reserved for invalid models and
// internal failures.
func Solve(ctx context.Context, m *Model, params Parameters) (*Response, error) {
	if m == nil {
		return nil, invalidf("nil model")
	}
	started := time.Now()
	if params.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.TimeLimit)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sh := &shared{m: m, nodeLimit: params.NodeLimit, cancel: cancel}
	sh.best.Store(math.MaxInt64)

	workers := max(params.Workers, 1)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		w := newWorker(sh, i, params.Seed)
		g.Go(func() error {
			return w.run(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &Response{
		Nodes:     sh.nodes.Load(),
		Failures:  sh.failures.Load(),
		Solutions: sh.solutions.Load(),
		WallTime:  time.Since(started),
	}
	best, found := sh.incumbent()
	switch {
	case found && sh.proven.Load():
		resp.Status = Optimal
	case found:
		resp.Status = Feasible
	case sh.proven.Load():
		resp.Status = Infeasible
	default:
		resp.Status = Unknown
	}
	if found {
		resp.values = sh.values
		if m.objective != nil {
			resp.ObjectiveValue = best
		}
	}
	return resp, nil
}

type branch struct {
	lo, hi int64
}

// worker runs one depth-first branch and bound over the whole tree.
type worker struct {
	id      int
	sh      *shared
	s       *state
	rng     *rand.Rand
	aborted bool
	err     error
	order   []int32 // Default branching order over all variables
}

func newWorker(sh *shared, id int, seed int64) *worker {
	w := &worker{
		id:  id,
		sh:  sh,
		s:   newState(sh.m),
		rng: rand.New(rand.NewSource(seed + int64(id))),
	}
	w.order = make([]int32, sh.m.NumVars())
	for i := range w.order {
		w.order[i] = int32(i)
	}
	if id > 0 {
		w.rng.Shuffle(len(w.order), func(i, j int) { w.order[i], w.order[j] = w.order[j], w.order[i] })
	}
	return w
}

func (w *worker) run(ctx context.Context) error {
	w.dfs(ctx)
	if w.err != nil {
		return w.err
	}
	if !w.aborted {
		// The whole tree was explored under the shared bound.
		w.sh.proven.Store(true)
		w.sh.cancel()
	}
	return nil
}

func (w *worker) stop(ctx context.Context) bool {
	if w.aborted || w.err != nil {
		return true
	}
	if ctx.Err() != nil {
		w.aborted = true
		return true
	}
	return false
}

func (w *worker) dfs(ctx context.Context) {
	if w.stop(ctx) {
		return
	}
	if n := w.sh.nodes.Add(1); w.sh.nodeLimit > 0 && n > w.sh.nodeLimit {
		w.aborted = true
		return
	}

	s := w.s
	mark := s.mark()
	defer s.undo(mark)

	best, ok := w.sh.incumbent()
	if !s.propagate(best-1, ok) {
		w.sh.failures.Add(1)
		return
	}

	v, branches := w.choose()
	if branches == nil {
		w.leaf()
		return
	}
	for _, b := range branches {
		m := s.mark()
		if _, ok := s.setBounds(v, b.lo, b.hi); ok {
			w.dfs(ctx)
		}
		s.undo(m)
		if w.stop(ctx) {
			return
		}
	}
}

func (w *worker) leaf() {
	s := w.s
	if !s.verify() {
		w.err = fmt.Errorf("cpsat: propagation accepted an assignment that violates the model")
		return
	}
	var obj int64
	if s.m.objective != nil {
		obj = s.exprMin(*s.m.objective)
	}
	w.sh.offer(obj, s.lo)
	if s.m.objective == nil {
		// Satisfaction models stop at the first solution.
		w.sh.proven.Store(true)
		w.sh.cancel()
		w.aborted = true
	}
}

// choose picks the next variable and its ordered branches. It returns nil
// branches when every variable is fixed.
func (w *worker) choose() (int32, []branch) {
	s := w.s
	for _, st := range s.m.strategies {
		v, found := w.selectVar(st.vars, st.vs)
		if found {
			return v, w.branches(v, st.ds)
		}
	}
	v, found := w.selectVar(w.order, ChooseLowestMin)
	if !found {
		return 0, nil
	}
	return v, w.branches(v, SelectMinValue)
}

func (w *worker) selectVar(vars []int32, vs VariableSelection) (int32, bool) {
	s := w.s
	best := int32(-1)
	ties := 0
	for _, v := range vars {
		if s.fixed(v) {
			continue
		}
		if vs == ChooseFirst {
			return v, true
		}
		if best < 0 {
			best, ties = v, 1
			continue
		}
		cmp := w.compare(v, best, vs)
		if cmp < 0 {
			best, ties = v, 1
		} else if cmp == 0 && w.id > 0 {
			// Reservoir sampling over ties diversifies helper workers.
			ties++
			if w.rng.Intn(ties) == 0 {
				best = v
			}
		}
	}
	return best, best >= 0
}

func (w *worker) compare(a, b int32, vs VariableSelection) int {
	s := w.s
	var ka, kb int64
	switch vs {
	case ChooseMinDomainSize:
		ka, kb = s.hi[a]-s.lo[a], s.hi[b]-s.lo[b]
	default:
		ka, kb = s.lo[a], s.lo[b]
	}
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	}
	return 0
}

func (w *worker) branches(v int32, ds DomainReduction) []branch {
	s := w.s
	lo, hi := s.lo[v], s.hi[v]
	if s.m.hasHint[v] && w.id == 0 {
		if h := s.m.hint[v]; h >= lo && h <= hi {
			out := []branch{{h, h}}
			if h > lo {
				out = append(out, branch{lo, h - 1})
			}
			if h < hi {
				out = append(out, branch{h + 1, hi})
			}
			return out
		}
	}
	if ds == SelectMaxValue || (w.id > 0 && hi-lo == 1 && w.rng.Intn(2) == 0) {
		return []branch{{hi, hi}, {lo, hi - 1}}
	}
	return []branch{{lo, lo}, {lo + 1, hi}}
}
