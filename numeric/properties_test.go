package numeric_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/spldlt/config"
	"github.com/katalvlaran/spldlt/internal/testmat"
	"github.com/katalvlaran/spldlt/numeric"
)

// backwardTol bounds the normwise backward error of a complete solve.
const backwardTol = 5e-14

// eliminated sums NElim over every front of a factorized tree.
func eliminated(nt *numeric.Tree) int {
	n := 0
	for i := 0; i < nt.Symbolic().Len(); i++ {
		n += nt.Front(i).NElim
	}

	return n
}

func TestBackwardErrorAcrossBlockSizes(t *testing.T) {
	t.Parallel()
	problems := []struct {
		name string
		csc  *testmat.CSC
	}{
		{"laplacian-indef", testmat.Laplacian2D(12, 2.5)},
		{"random-80", randSparse(3, 80)},
		{"random-200", randSparse(8, 200)},
	}
	for _, pb := range problems {
		sym := analyse(t, pb.csc)
		for _, bs := range []int{2, 4, 8, 32, 256} {
			for _, exec := range []config.ExecutorKind{config.ExecutorSequential, config.ExecutorPool} {
				t.Run(fmt.Sprintf("%s/bs=%d/%s", pb.name, bs, exec), func(t *testing.T) {
					t.Parallel()
					opts := config.New(config.WithBlockSize(bs), config.WithExecutor(exec), config.WithWorkers(4))
					nt, info, berr := factorSolve(t, pb.csc, sym, opts)
					assert.Less(t, berr, backwardTol)
					assert.Equal(t, pb.csc.N, eliminated(nt), "every column is eliminated exactly once")
					assert.Zero(t, info.NumZero)
				})
			}
		}
	}
}

func TestPosDefNeverDelays(t *testing.T) {
	t.Parallel()
	c := testmat.Laplacian2D(11, 0)
	sym := analyse(t, c)
	for _, bs := range []int{2, 8, 256} {
		t.Run(fmt.Sprintf("bs=%d", bs), func(t *testing.T) {
			t.Parallel()
			opts := config.New(config.WithPosDef(), config.WithBlockSize(bs))
			nt, info, berr := factorSolve(t, c, sym, opts)
			assert.Less(t, berr, backwardTol)
			assert.Zero(t, info.NumDelay)
			for i := range sym.Nodes {
				f := nt.Front(i)
				require.NotNil(t, f, "node %d", i)
				assert.Equal(t, sym.Nodes[i].NCol, f.NElim, "node %d", i)
				assert.Zero(t, f.NDelayIn, "node %d", i)
				assert.Zero(t, f.NDelayOut, "node %d", i)
			}
			assert.Equal(t, c.N, eliminated(nt))
		})
	}
}

// tiedSparse has a zero diagonal and off-diagonal entries in {-1, 0, 1},
// so every pivot search meets candidates of equal magnitude.
func tiedSparse(seed int64, n int) *testmat.CSC {
	rng := rand.New(rand.NewSource(seed))
	a := mat.NewSymDense(n, nil)
	for j := 0; j < n; j++ {
		for i := j + 1; i < n; i++ {
			a.SetSym(i, j, float64(rng.Intn(3)-1))
		}
	}

	return testmat.FromSym(a, 0.5)
}

func TestTieBreakIndependentOfWorkers(t *testing.T) {
	t.Parallel()
	c := tiedSparse(21, 70)
	sym := analyse(t, c)
	factor := func(opts config.Options) *numeric.Tree {
		nt, err := numeric.New(sym, opts)
		require.NoError(t, err)
		_, err = nt.Factorize(context.Background(), c.Val)
		require.NoError(t, err)
		return nt
	}

	ref := factor(config.New(config.WithExecutor(config.ExecutorSequential), config.WithBlockSize(4)))
	for _, workers := range []int{1, 2, 4, 8, 16} {
		for rep := 0; rep < 5; rep++ {
			got := factor(config.New(config.WithWorkers(workers), config.WithBlockSize(4)))
			for i := 0; i < sym.Len(); i++ {
				fr, fg := ref.Front(i), got.Front(i)
				require.Equal(t, fr.Perm, fg.Perm, "workers %d, repeat %d, node %d", workers, rep, i)
				require.Equal(t, fr.D, fg.D, "workers %d, repeat %d, node %d", workers, rep, i)
			}
		}
	}
}
