// SPDX-License-Identifier: MIT
package kernels_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/spldlt/config"
	"github.com/katalvlaran/spldlt/internal/testmat"
	"github.com/katalvlaran/spldlt/kernels"
	"github.com/katalvlaran/spldlt/memory"
	"github.com/katalvlaran/spldlt/task"
)

// newRegion loads a as a front whose first n variables are fully summed.
func newRegion(a *mat.SymDense, n int) *kernels.Region {
	m := a.SymmetricDim()
	ld := kernels.Align(m)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	return &kernels.Region{M: m, N: n, A: testmat.Lower(a, ld), LD: ld, Perm: perm, D: make([]float64, 2*n)}
}

func randSource(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

func runtimes(t *testing.T) map[string]task.Runtime {
	t.Helper()
	out := map[string]task.Runtime{
		"sequential": task.NewSequential(context.Background(), nil),
		"pool":       task.NewPool(context.Background(), 4, nil),
	}
	t.Cleanup(func() {
		for _, rt := range out {
			_ = rt.Close()
		}
	})

	return out
}

// factorIndef runs FactorIndef with fresh backup, ledger and static grid.
func factorIndef(t *testing.T, rt task.Runtime, r *kernels.Region, p kernels.Params) (kernels.Result, error) {
	t.Helper()
	bk, err := kernels.NewBackup(memory.Heap{}, r.M, r.N)
	require.NoError(t, err)
	defer bk.Release()
	grid := kernels.NewGrid(rt, "front", 0, p.BlockSize, p.BlockSize, r.M, r.N)
	defer grid.Release()
	cd := kernels.NewColumnData(r.N, p.BlockSize)

	return kernels.FactorIndef(context.Background(), rt, r, grid, bk, cd, p)
}

func params(root bool, opts ...config.Option) kernels.Params {
	return kernels.NewParams(config.New(opts...), root)
}

// factorParts expands the first nelim columns of r into dense L and D.
func factorParts(r *kernels.Region, nelim int, posdef bool) (l, d *mat.Dense) {
	l = mat.NewDense(r.M, nelim, nil)
	d = mat.NewDense(nelim, nelim, nil)
	for k := 0; k < nelim; k++ {
		for i := k; i < r.M; i++ {
			l.Set(i, k, r.A[k*r.LD+i])
		}
		if !posdef {
			l.Set(k, k, 1)
		}
	}
	for j := 0; j < nelim; j++ {
		if posdef {
			d.Set(j, j, 1)
			continue
		}
		if j+1 < nelim && math.IsInf(r.D[2*j+2], 1) {
			i11, i21, i22 := r.D[2*j], r.D[2*j+1], r.D[2*j+3]
			det := i11*i22 - i21*i21
			d.Set(j, j, i22/det)
			d.Set(j+1, j, -i21/det)
			d.Set(j, j+1, -i21/det)
			d.Set(j+1, j+1, i11/det)
			j++
			continue
		}
		if r.D[2*j] != 0 {
			d.Set(j, j, 1/r.D[2*j])
		}
	}

	return l, d
}

// ldlt returns L·D·Lᵀ for the first nelim pivots (an m×m zero when nelim is 0).
func ldlt(r *kernels.Region, nelim int, posdef bool) *mat.Dense {
	out := mat.NewDense(r.M, r.M, nil)
	if nelim == 0 {
		return out
	}
	l, d := factorParts(r, nelim, posdef)
	var ld mat.Dense
	ld.Mul(l, d)
	out.Mul(&ld, l.T())

	return out
}

// checkFactor verifies P·A·Pᵀ = L·D·Lᵀ + S over the stored part of the
// front, S being the Schur complement left in the delayed columns.
func checkFactor(t *testing.T, orig *mat.SymDense, r *kernels.Region, nelim int, posdef bool) {
	t.Helper()
	row := func(i int) int {
		if i < r.N {
			return r.Perm[i]
		}
		return i
	}
	tol := 1e-10 * mat.Norm(orig, math.Inf(1))
	prod := ldlt(r, nelim, posdef)
	for j := 0; j < r.N; j++ {
		for i := j; i < r.M; i++ {
			got := prod.At(i, j)
			if j >= nelim {
				got += r.A[j*r.LD+i]
			}
			require.InDelta(t, orig.At(row(i), row(j)), got, tol, "entry (%d,%d)", i, j)
		}
	}
}

// solveDense solves with a fully eliminated root front; b is n×nrhs.
func solveDense(r *kernels.Region, nelim int, posdef bool, b []float64, nrhs int) []float64 {
	n := r.N
	x := make([]float64, n*nrhs)
	for c := 0; c < nrhs; c++ {
		for k := 0; k < n; k++ {
			x[c*n+k] = b[c*n+r.Perm[k]]
		}
	}
	kernels.SolveForward(r, nelim, posdef, nrhs, x, n)
	if !posdef {
		kernels.SolveDiagonal(r, nelim, nrhs, x, n)
	}
	kernels.SolveBackward(r, nelim, posdef, nrhs, x, n)
	out := make([]float64, n*nrhs)
	for c := 0; c < nrhs; c++ {
		for k := 0; k < n; k++ {
			out[c*n+r.Perm[k]] = x[c*n+k]
		}
	}

	return out
}

// delayFront builds an m×m matrix whose first n variables are fully summed.
// Columns in tiny have fully-summed entries scaled by 1e-6, so their pivots
// fail against the remaining rows; the others are diagonally dominant.
func delayFront(seed int64, m, n int, tiny []int) *mat.SymDense {
	a := testmat.RandIndef(randSource(seed), m)
	isTiny := make([]bool, n)
	for _, j := range tiny {
		isTiny[j] = true
	}
	for j := 0; j < n; j++ {
		if !isTiny[j] {
			a.SetSym(j, j, 20+a.At(j, j))
		}
	}
	for j := 0; j < n; j++ {
		if !isTiny[j] {
			continue
		}
		for i := 0; i < n; i++ {
			a.SetSym(i, j, a.At(i, j)*1e-6)
		}
	}

	return a
}
