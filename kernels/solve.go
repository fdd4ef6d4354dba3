// SPDX-License-Identifier: MIT

package kernels

import "gonum.org/v1/gonum/blas"

// The solves act on one front: x holds the m gathered entries of nrhs
// right-hand sides (column-major, leading dimension ldx) and L is the first
// nelim columns of r. posdef selects a non-unit Cholesky factor.

// SolveForward computes x ← L⁻¹x.
func SolveForward(r *Region, nelim int, posdef bool, nrhs int, x []float64, ldx int) {
	trsm(blas.Left, blas.Lower, blas.NoTrans, unitDiag(posdef), nelim, nrhs, 1, r.A, r.LD, x, ldx)
	if r.M > nelim {
		gemm(blas.NoTrans, blas.NoTrans, r.M-nelim, nrhs, nelim, -1, r.A[nelim:], r.LD, x, ldx, 1, x[nelim:], ldx)
	}
}

// SolveDiagonal computes x ← D⁻¹x on the first nelim entries.
func SolveDiagonal(r *Region, nelim, nrhs int, x []float64, ldx int) {
	d := r.D
	for c := 0; c < nrhs; c++ {
		v := x[c*ldx : c*ldx+nelim]
		for j := 0; j < nelim; {
			if isTwoByTwo(d, j) && j+1 < nelim {
				x0, x1 := v[j], v[j+1]
				v[j] = d[2*j]*x0 + d[2*j+1]*x1
				v[j+1] = d[2*j+1]*x0 + d[2*j+3]*x1
				j += 2
				continue
			}
			v[j] *= d[2*j]
			j++
		}
	}
}

// SolveBackward computes x ← L⁻ᵀx; only the first nelim entries change.
func SolveBackward(r *Region, nelim int, posdef bool, nrhs int, x []float64, ldx int) {
	if r.M > nelim {
		gemm(blas.Trans, blas.NoTrans, nelim, nrhs, r.M-nelim, -1, r.A[nelim:], r.LD, x[nelim:], ldx, 1, x, ldx)
	}
	trsm(blas.Left, blas.Lower, blas.Trans, unitDiag(posdef), nelim, nrhs, 1, r.A, r.LD, x, ldx)
}

func unitDiag(posdef bool) blas.Diag {
	if posdef {
		return blas.NonUnit
	}

	return blas.Unit
}
