// SPDX-License-Identifier: MIT
package kernels_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/spldlt/internal/testmat"
	"github.com/katalvlaran/spldlt/kernels"
)

func TestFactorPosDef(t *testing.T) {
	t.Parallel()
	for name, rt := range runtimes(t) {
		for _, tc := range []struct{ m, n, bs int }{{50, 50, 16}, {1, 1, 4}, {70, 40, 16}, {30, 30, 64}} {
			t.Run(fmt.Sprintf("%s/%dx%d/bs=%d", name, tc.m, tc.n, tc.bs), func(t *testing.T) {
				a := testmat.RandPosDef(randSource(int64(tc.m)), tc.m)
				r := newRegion(a, tc.n)
				grid := kernels.NewGrid(rt, "front", 0, tc.bs, tc.bs, r.M, r.N)
				defer grid.Release()
				require.NoError(t, kernels.FactorPosDef(context.Background(), rt, r, grid))
				checkFactor(t, a, r, tc.n, true)

				if tc.m == tc.n {
					_, b := testmat.RandRHS(randSource(5), a, 2)
					got := solveDense(r, tc.n, true, b, 2)
					assert.Less(t, testmat.BackwardError(a, got, b, 2), backwardTol)
					return
				}
				prod := ldlt(r, tc.n, true)
				rows := tc.m - tc.n
				c := make([]float64, rows*rows)
				kernels.FormContribution(r, tc.n, true, tc.n, rows, tc.n, rows, c, rows)
				for j := 0; j < rows; j++ {
					for i := j; i < rows; i++ {
						require.InDelta(t, -prod.At(tc.n+i, tc.n+j), c[j*rows+i], 1e-9)
					}
				}
			})
		}
	}
}

func TestFactorPosDefRejectsIndefinite(t *testing.T) {
	t.Parallel()
	for name, rt := range runtimes(t) {
		t.Run(name, func(t *testing.T) {
			a := testmat.RandIndef(randSource(3), 20)
			r := newRegion(a, 20)
			grid := kernels.NewGrid(rt, "front", 0, 8, 8, r.M, r.N)
			defer grid.Release()
			require.ErrorIs(t, kernels.FactorPosDef(context.Background(), rt, r, grid), kernels.ErrNotPositiveDefinite)
		})
	}
}
