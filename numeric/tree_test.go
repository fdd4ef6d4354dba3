package numeric_test

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/spldlt/config"
	"github.com/katalvlaran/spldlt/internal/testmat"
	"github.com/katalvlaran/spldlt/kernels"
	"github.com/katalvlaran/spldlt/memory"
	"github.com/katalvlaran/spldlt/numeric"
	"github.com/katalvlaran/spldlt/symbolic"
)

const tol = 1e-12

func analyse(t *testing.T, c *testmat.CSC, opts ...symbolic.TreeOption) *symbolic.Tree {
	t.Helper()
	sym, err := symbolic.Analyse(c.N, c.ColPtr, c.RowIdx, nil, opts...)
	require.NoError(t, err)

	return sym
}

// factorSolve factorizes c, solves for a random right-hand side and
// returns the tree and the backward error.
func factorSolve(t *testing.T, c *testmat.CSC, sym *symbolic.Tree, opts config.Options, extra ...numeric.Option) (*numeric.Tree, numeric.Info, float64) {
	t.Helper()
	nt, err := numeric.New(sym, opts, extra...)
	require.NoError(t, err)
	info, err := nt.Factorize(context.Background(), c.Val)
	require.NoError(t, err)

	const nrhs = 2
	a := c.Sym()
	_, b := testmat.RandRHS(rand.New(rand.NewSource(7)), a, nrhs)
	x := append([]float64(nil), b...)
	require.NoError(t, nt.Solve(context.Background(), nrhs, x, c.N))

	return nt, info, testmat.BackwardError(a, x, b, nrhs)
}

// randSparse is a random indefinite pattern with a few heavy rows.
func randSparse(seed int64, n int) *testmat.CSC {
	rng := rand.New(rand.NewSource(seed))
	a := testmat.RandIndef(rng, n)
	testmat.CauseDelays(rng, a)

	return testmat.FromSym(a, 0.85)
}

func TestFactorizeSolve(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		csc  *testmat.CSC
		opts []config.Option
	}{
		{"laplacian-posdef", testmat.Laplacian2D(10, 0), []config.Option{config.WithPosDef()}},
		{"laplacian-indef", testmat.Laplacian2D(12, 2.5), nil},
		{"laplacian-indef-bs4", testmat.Laplacian2D(9, 3.1), []config.Option{config.WithBlockSize(4)}},
		{"random-delays", randSparse(3, 80), []config.Option{config.WithBlockSize(8)}},
		{"random-aggressive", randSparse(4, 80), []config.Option{
			config.WithBlockSize(8), config.WithPivotMethod(config.PivotAggressive),
		}},
		{"random-pass", randSparse(5, 60), []config.Option{
			config.WithBlockSize(4), config.WithFailedPivotMethod(config.FailedPivotPass),
		}},
	}
	for _, tc := range tests {
		for _, exec := range []config.ExecutorKind{config.ExecutorSequential, config.ExecutorPool} {
			t.Run(tc.name+"/"+exec.String(), func(t *testing.T) {
				t.Parallel()
				opts := config.New(append([]config.Option{config.WithExecutor(exec), config.WithWorkers(4)}, tc.opts...)...)
				_, info, berr := factorSolve(t, tc.csc, analyse(t, tc.csc), opts)
				assert.Less(t, berr, tol)
				assert.NotEmpty(t, info.RunID)
				assert.Positive(t, info.NumFactor)
				assert.Zero(t, info.NumZero)
			})
		}
	}
}

// delayTree has two one-column leaves whose tiny pivots cannot be taken
// against their off-diagonal entries; both are delayed into the root.
func delayTree(t *testing.T) (*symbolic.Tree, []float64, *mat.SymDense) {
	t.Helper()
	sym, err := symbolic.NewTree(3,
		[]int{1, 2, 3, 4}, []int{3, 3, 4},
		[]int{1, 3, 5, 6}, []int{1, 3, 2, 3, 3},
		[]int{1, 3, 5, 6}, []int{1, 1, 2, 2, 3, 1, 4, 2, 5, 1},
	)
	require.NoError(t, err)
	aval := []float64{1e-8, 1, 1e-8, 1, 0.5}
	a := mat.NewSymDense(3, []float64{
		1e-8, 0, 1,
		0, 1e-8, 1,
		1, 1, 0.5,
	})

	return sym, aval, a
}

func TestDelaysReachTheRoot(t *testing.T) {
	t.Parallel()
	sym, aval, a := delayTree(t)
	nt, err := numeric.New(sym, config.New(config.WithExecutor(config.ExecutorSequential)))
	require.NoError(t, err)
	info, err := nt.Factorize(context.Background(), aval)
	require.NoError(t, err)

	assert.Equal(t, 2, info.NumDelay)
	assert.Equal(t, 2, info.MaxDelayIn)
	assert.Equal(t, 3, info.MaxFront)
	root := nt.Front(2)
	assert.Equal(t, 2, root.NDelayIn)
	assert.Equal(t, 3, root.NElim)
	assert.ElementsMatch(t, []int{0, 1, 2}, root.Perm)
	assert.Equal(t, 0, nt.Front(0).NElim)
	assert.Equal(t, 1, nt.Front(0).NDelayOut)

	_, b := testmat.RandRHS(rand.New(rand.NewSource(1)), a, 1)
	got := append([]float64(nil), b...)
	require.NoError(t, nt.Solve(context.Background(), 1, got, 3))
	assert.Less(t, testmat.BackwardError(a, got, b, 1), tol)
}

// countingSubtrees wraps InlineSubtrees and records its calls.
type countingSubtrees struct {
	calls atomic.Int32
}

func (c *countingSubtrees) FactorSubtree(ctx context.Context, arena numeric.Arena, root int, aval []float64, opts config.Options) (numeric.Contribution, error) {
	c.calls.Add(1)
	return numeric.InlineSubtrees{}.FactorSubtree(ctx, arena, root, aval, opts)
}

// frontsEqual requires bitwise equal factors in every front.
func frontsEqual(t *testing.T, want, got *numeric.Tree) {
	t.Helper()
	for i := 0; i < want.Symbolic().Len(); i++ {
		fw, fg := want.Front(i), got.Front(i)
		require.Equal(t, fw.NElim, fg.NElim, "node %d", i)
		require.Equal(t, fw.Perm, fg.Perm, "node %d", i)
		require.Equal(t, fw.D, fg.D, "node %d", i)
		require.Equal(t, fw.LCol, fg.LCol, "node %d", i)
	}
}

func TestSubtreesMatchInline(t *testing.T) {
	t.Parallel()
	c := randSparse(11, 90)
	opts := config.New(config.WithExecutor(config.ExecutorSequential), config.WithBlockSize(8))

	inline := analyse(t, c)
	ref, refInfo, berr := factorSolve(t, c, inline, opts)
	require.Less(t, berr, tol)

	acc := inline.SubtreeFlops()
	total := 0.0
	for i := range inline.Nodes {
		if inline.IsRoot(i) {
			total += acc[i]
		}
	}
	flagged := analyse(t, c, symbolic.WithSubtreeFlops(total/6))
	roots := 0
	for i := range flagged.Nodes {
		if flagged.Nodes[i].SubtreeRoot {
			roots++
		}
	}
	require.Positive(t, roots)

	counter := &countingSubtrees{}
	got, info, berr := factorSolve(t, c, flagged, opts, numeric.WithSubtreeFactorizer(counter))
	require.Less(t, berr, tol)
	assert.EqualValues(t, roots, counter.calls.Load())
	assert.Equal(t, refInfo.NumDelay, info.NumDelay)
	frontsEqual(t, ref, got)
}

func TestExecutorsAgree(t *testing.T) {
	t.Parallel()
	c := randSparse(21, 70)
	sym := analyse(t, c)
	seq, _, _ := factorSolve(t, c, sym, config.New(config.WithExecutor(config.ExecutorSequential), config.WithBlockSize(4)))
	pool, _, _ := factorSolve(t, c, sym, config.New(config.WithWorkers(4), config.WithBlockSize(4)))
	frontsEqual(t, seq, pool)
}

func TestRefactorize(t *testing.T) {
	t.Parallel()
	c := testmat.Laplacian2D(6, 1.7)
	sym := analyse(t, c)
	nt, err := numeric.New(sym, config.New())
	require.NoError(t, err)
	first, err := nt.Factorize(context.Background(), c.Val)
	require.NoError(t, err)
	second, err := nt.Factorize(context.Background(), c.Val)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.NumFactor, second.NumFactor)
}

func TestSingular(t *testing.T) {
	t.Parallel()
	a := testmat.Laplacian2D(7, 0).Sym()
	testmat.MakeSingular(a, 10, 13)
	c := testmat.FromSym(a, 0)
	sym := analyse(t, c)

	t.Run("action", func(t *testing.T) {
		t.Parallel()
		_, info, berr := factorSolve(t, c, sym, config.New(config.WithExecutor(config.ExecutorSequential)))
		assert.Equal(t, 3, info.NumZero)
		assert.Less(t, berr, tol)
	})
	t.Run("no-action", func(t *testing.T) {
		t.Parallel()
		nt, err := numeric.New(sym, config.New(config.WithAction(false)))
		require.NoError(t, err)
		_, err = nt.Factorize(context.Background(), c.Val)
		require.ErrorIs(t, err, kernels.ErrSingular)
		require.ErrorIs(t, nt.Solve(context.Background(), 1, make([]float64, c.N), c.N), numeric.ErrNotFactorized)
	})
}

func TestNotPositiveDefinite(t *testing.T) {
	t.Parallel()
	c := testmat.Laplacian2D(6, 3)
	nt, err := numeric.New(analyse(t, c), config.New(config.WithPosDef()))
	require.NoError(t, err)
	_, err = nt.Factorize(context.Background(), c.Val)
	require.ErrorIs(t, err, kernels.ErrNotPositiveDefinite)
}

func TestAllocatorExhaustion(t *testing.T) {
	t.Parallel()
	c := testmat.Laplacian2D(10, 2.5)
	pool := memory.NewPool(2048)
	nt, err := numeric.New(analyse(t, c), config.New(), numeric.WithAllocator(pool))
	require.NoError(t, err)
	_, err = nt.Factorize(context.Background(), c.Val)
	require.ErrorIs(t, err, memory.ErrExhausted)
	assert.EqualValues(t, 0, pool.InUse())
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()
	c := testmat.Laplacian2D(5, 1)
	nt, err := numeric.New(analyse(t, c), config.New())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = nt.Factorize(ctx, c.Val)
	require.ErrorIs(t, err, context.Canceled)
}

func TestInvalidInput(t *testing.T) {
	t.Parallel()
	_, err := numeric.New(nil, config.New())
	require.ErrorIs(t, err, numeric.ErrNilTree)

	c := testmat.Laplacian2D(4, 1)
	sym := analyse(t, c)
	bad := config.New()
	bad.BlockSize = 0
	_, err = numeric.New(sym, bad)
	require.ErrorIs(t, err, config.ErrInvalidOption)

	nt, err := numeric.New(sym, config.New())
	require.NoError(t, err)
	_, err = nt.Factorize(context.Background(), c.Val[:3])
	require.ErrorIs(t, err, numeric.ErrValues)
	require.ErrorIs(t, nt.SolveForward(1, make([]float64, c.N), c.N), numeric.ErrNotFactorized)

	_, err = nt.Factorize(context.Background(), c.Val)
	require.NoError(t, err)
	require.ErrorIs(t, nt.Solve(context.Background(), 1, make([]float64, c.N), c.N-1), numeric.ErrDimension)
	require.ErrorIs(t, nt.Solve(context.Background(), 2, make([]float64, c.N), c.N), numeric.ErrDimension)
	require.NoError(t, nt.Solve(context.Background(), 0, nil, c.N))

	assert.Panics(t, func() { numeric.WithAllocator(nil) })
	assert.Panics(t, func() { numeric.WithRuntime(nil) })
	assert.Panics(t, func() { numeric.WithSubtreeFactorizer(nil) })
}

// badSubtrees returns a contribution with the wrong rows.
type badSubtrees struct{}

func (badSubtrees) FactorSubtree(context.Context, numeric.Arena, int, []float64, config.Options) (numeric.Contribution, error) {
	return numeric.Contribution{Rows: []int{-1}}, nil
}

func TestSubtreeContributionChecked(t *testing.T) {
	t.Parallel()
	c := testmat.Laplacian2D(6, 1)
	sym := analyse(t, c, symbolic.WithSubtreeFlops(10))
	nt, err := numeric.New(sym, config.New(), numeric.WithSubtreeFactorizer(badSubtrees{}))
	require.NoError(t, err)
	_, err = nt.Factorize(context.Background(), c.Val)
	require.ErrorIs(t, err, numeric.ErrContribution)
}
