// SPDX-License-Identifier: MIT

package kernels

import "gonum.org/v1/gonum/blas"

// FormContribution overwrites the rows×cols block c with −L_I·D·L_Jᵀ.
//
// L_I are the front rows [ri, ri+rows) and L_J the rows [rj, rj+cols) of
// the first nelim columns of r. With posdef set, L comes from a Cholesky
// factorization and D is the identity. nelim = 0 clears the block.
func FormContribution(r *Region, nelim int, posdef bool, ri, rows, rj, cols int, c []float64, ldc int) {
	if rows == 0 || cols == 0 {
		return
	}
	if nelim == 0 {
		scale(rows, cols, 0, c, ldc)
		return
	}
	a, ld := r.A, r.LD
	if posdef {
		gemm(blas.NoTrans, blas.Trans, rows, cols, nelim, -1, a[ri:], ld, a[rj:], ld, 0, c, ldc)
		return
	}
	w := make([]float64, cols*nelim)
	r.calcLD(rj, cols, 0, nelim, w, cols)
	gemm(blas.NoTrans, blas.Trans, rows, cols, nelim, -1, a[ri:], ld, w, cols, 0, c, ldc)
}
