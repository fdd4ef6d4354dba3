// SPDX-License-Identifier: MIT

package kernels

import (
	"context"

	"gonum.org/v1/gonum/blas"

	"github.com/katalvlaran/spldlt/task"
)

// FactorPosDef computes the Cholesky factor L of the fully-summed columns of
// r in place, one task per tile operation of the static grid blocks.
//
// Returns ErrNotPositiveDefinite (wrapped by the runtime) when a diagonal
// block fails; the region is then partially overwritten.
func FactorPosDef(ctx context.Context, rt task.Runtime, r *Region, blocks *Grid) error {
	if err := r.check(); err != nil {
		return kernelErrorf(opFactorPosDef, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	a, ld := r.A, r.LD
	g := rt.NewGroup()
	for k := 0; k < blocks.Cols(); k++ {
		diag := blocks.At(k, k)
		g.Submit("potrf", func(context.Context) error {
			if !potrfLower(diag.N, a[diag.Off(ld):], ld) {
				return kernelErrorf(opFactorPosDef, ErrNotPositiveDefinite)
			}
			return nil
		}, task.RW(diag.H))
		for i := k + 1; i < blocks.Rows(); i++ {
			b := blocks.At(i, k)
			g.Submit("trsm", func(context.Context) error {
				trsm(blas.Right, blas.Lower, blas.Trans, blas.NonUnit, b.M, b.N, 1,
					a[diag.Off(ld):], ld, a[b.Off(ld):], ld)
				return nil
			}, task.R(diag.H), task.RW(b.H))
		}
		for j := k + 1; j < blocks.Cols(); j++ {
			for i := j; i < blocks.Rows(); i++ {
				b, li, lj := blocks.At(i, j), blocks.At(i, k), blocks.At(j, k)
				g.Submit("update", func(context.Context) error {
					if i == j {
						syrkLower(b.N, diag.N, -1, a[li.Off(ld):], ld, 1, a[b.Off(ld):], ld)
						return nil
					}
					gemm(blas.NoTrans, blas.Trans, b.M, b.N, diag.N, -1,
						a[li.Off(ld):], ld, a[lj.Off(ld):], ld, 1, a[b.Off(ld):], ld)
					return nil
				}, task.R(li.H), task.R(lj.H), task.RW(b.H))
			}
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for j := 0; j < r.N; j++ {
		r.D[2*j], r.D[2*j+1] = 1, 0
	}

	return nil
}
