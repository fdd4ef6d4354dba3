package numeric

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/katalvlaran/spldlt/config"
	"github.com/katalvlaran/spldlt/front"
	"github.com/katalvlaran/spldlt/memory"
	"github.com/katalvlaran/spldlt/symbolic"
	"github.com/katalvlaran/spldlt/task"
)

var tracer = otel.Tracer("spldlt.numeric")

// Info summarizes one factorization.
type Info struct {
	RunID       string // identifies the run in logs and traces
	NumDelay    int    // delayed columns, summed over every front
	NumTwoByTwo int    // 2×2 pivots
	NumZero     int    // zero pivots accepted under action-on-singular
	MaxFront    int    // largest front order, delays included
	MaxDelayIn  int    // most delayed columns received by one front
	NumFactor   int64  // entries of L
}

// Tree is the numeric counterpart of a symbolic.Tree: one Front per node.
//
// Thread Safety:
//
//	A Tree runs one Factorize or solve at a time. Concurrency happens
//	inside Factorize, on the configured task runtime.
type Tree struct {
	sym   *symbolic.Tree
	opts  config.Options
	alloc memory.Allocator
	rt    task.Runtime
	sub   SubtreeFactorizer
	nval  int
	log   *slog.Logger

	fronts   []*front.Front
	contribs []*Contribution // subtree results awaiting assembly
	maps     []*indexMap     // per child, into its parent
	factored bool
}

// New prepares a numeric tree over sym.
//
// Errors:
//   - ErrNilTree if sym is nil.
//   - config.ErrInvalidOption if opts does not validate.
func New(sym *symbolic.Tree, opts config.Options, extra ...Option) (*Tree, error) {
	if sym == nil {
		return nil, ErrNilTree
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	t := &Tree{
		sym:   sym,
		opts:  opts,
		alloc: memory.Heap{},
		sub:   InlineSubtrees{},
		log:   opts.Log(),
	}
	for _, o := range extra {
		if o != nil {
			o(t)
		}
	}
	for i := range sym.Nodes {
		for _, p := range sym.Nodes[i].AMap {
			t.nval = max(t.nval, p[0]+1)
		}
	}
	n := sym.Len()
	t.fronts = make([]*front.Front, n)
	t.contribs = make([]*Contribution, n)
	t.maps = make([]*indexMap, n)

	return t, nil
}

// Symbolic returns the analysis the tree was built on.
func (t *Tree) Symbolic() *symbolic.Tree { return t.sym }

// Front returns the front of node i, nil before it is activated.
func (t *Tree) Front(i int) *front.Front { return t.fronts[i] }

// Allocator returns the storage policy of the fronts.
func (t *Tree) Allocator() memory.Allocator { return t.alloc }

// Factorize computes the LDLᵀ (or Cholesky) factors of the matrix whose
// values aval are addressed by the AMap of every node.
// Implementation:
//   - Stage 1: open a span and a run-scoped logger, check aval and ctx.
//   - Stage 2: drop any previous factors and obtain the runtime.
//   - Stage 3: submit the pipeline of every node outside delegated
//     subtrees, plus one task per delegated subtree, and wait.
//   - Stage 4: summarize the fronts into Info.
//
// Errors:
//   - ErrValues, ctx.Err(), kernels.ErrSingular,
//     kernels.ErrNotPositiveDefinite, memory.ErrExhausted, or any error
//     of the subtree factorizer. The factors are released on error.
//
// Complexity:
//   - Time O(Σ front flops) spread over the runtime workers.
func (t *Tree) Factorize(ctx context.Context, aval []float64) (Info, error) {
	runID := uuid.NewString()
	t.log = t.opts.Log().With(slog.String("run_id", runID))
	ctx, span := tracer.Start(ctx, "numeric.Tree.Factorize",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.Int("order", t.sym.N),
			attribute.Int("nodes", t.sym.Len()),
			attribute.Bool("posdef", t.opts.PosDef),
		),
	)
	defer span.End()

	start := time.Now()
	info, err := t.factorize(ctx, aval)
	info.RunID = runID
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "factorization failed")
		t.log.Error("factorization failed", slog.String("error", err.Error()))
		return info, err
	}
	elapsed := time.Since(start)
	factorizeDuration.Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("delays", info.NumDelay),
		attribute.Int("zero_pivots", info.NumZero),
		attribute.Int64("factor_entries", info.NumFactor),
	)
	span.SetStatus(codes.Ok, "")
	t.log.Info("factorization complete",
		slog.Int("order", t.sym.N),
		slog.Int("delays", info.NumDelay),
		slog.Int("two_by_two", info.NumTwoByTwo),
		slog.Int("zero_pivots", info.NumZero),
		slog.Int("max_front", info.MaxFront),
		slog.Duration("elapsed", elapsed),
	)

	return info, nil
}

func (t *Tree) factorize(ctx context.Context, aval []float64) (Info, error) {
	if len(aval) < t.nval {
		return Info{}, fmt.Errorf("%w: %d values, need %d", ErrValues, len(aval), t.nval)
	}
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	t.Release()

	rt := t.rt
	if rt == nil {
		rt = task.FromOptions(ctx, t.opts)
		defer func() { _ = rt.Close() }()
	}
	if err := t.run(ctx, rt, t.topLevel(), aval, true); err != nil {
		t.Release()
		return Info{}, err
	}
	t.factored = true

	return t.collectInfo(), nil
}

// FactorNodes runs the complete pipeline of nodes on rt. nodes must be
// closed under children and listed children first; a node of nodes that
// roots a flagged subtree is factorized, not delegated.
func (t *Tree) FactorNodes(ctx context.Context, rt task.Runtime, nodes []int, aval []float64) error {
	return t.run(ctx, rt, nodes, aval, false)
}

// topLevel lists the nodes outside delegated subtrees plus the subtree roots.
func (t *Tree) topLevel() []int {
	out := make([]int, 0, t.sym.Len())
	for i := range t.sym.Nodes {
		if nd := &t.sym.Nodes[i]; !nd.InSubtree || nd.SubtreeRoot {
			out = append(out, i)
		}
	}

	return out
}

// run registers a handle per node, submits the pipelines and waits.
func (t *Tree) run(ctx context.Context, rt task.Runtime, nodes []int, aval []float64, delegate bool) error {
	handles := make(map[int]*task.Handle, len(nodes))
	for _, i := range nodes {
		handles[i] = rt.Register(fmt.Sprintf("node%d", i))
	}
	defer func() {
		for _, h := range handles {
			rt.Unregister(h)
		}
	}()

	g := rt.NewGroup()
	for _, i := range nodes {
		t.submitNode(ctx, rt, g, handles, i, aval, delegate)
	}

	return g.Wait()
}

// Release frees every front and pending contribution.
func (t *Tree) Release() {
	for i, f := range t.fronts {
		if f != nil {
			f.Deactivate(false)
			t.fronts[i] = nil
		}
	}
	for i, c := range t.contribs {
		if c != nil {
			c.Release()
			t.contribs[i] = nil
		}
	}
	clear(t.maps)
	t.factored = false
}

func (t *Tree) collectInfo() Info {
	var info Info
	for _, f := range t.fronts {
		if f == nil {
			continue
		}
		info.NumDelay += f.NDelayOut
		info.NumTwoByTwo += f.NTwoByTwo
		info.NumZero += f.NZero
		info.MaxFront = max(info.MaxFront, f.NRowEff())
		info.MaxDelayIn = max(info.MaxDelayIn, f.NDelayIn)
		ne := int64(f.NElim)
		info.NumFactor += int64(f.NRowEff())*ne - ne*(ne-1)/2
	}

	return info
}
