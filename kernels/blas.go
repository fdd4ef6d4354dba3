// SPDX-License-Identifier: MIT

package kernels

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack/lapack64"
)

// Column-major adapters over gonum's row-major BLAS.
// A column-major m×n matrix with leading dimension ld is the row-major
// n×m matrix with stride ld, so every call below transposes the problem.

var impl = blas64.Implementation()

// gemm computes C = alpha·op(A)·op(B) + beta·C with C m×n.
func gemm(tA, tB blas.Transpose, m, n, k int, alpha float64, a []float64, lda int,
	b []float64, ldb int, beta float64, c []float64, ldc int) {
	if m == 0 || n == 0 {
		return
	}
	if k == 0 {
		scale(m, n, beta, c, ldc)
		return
	}
	impl.Dgemm(tB, tA, n, m, k, alpha, b, ldb, a, lda, beta, c, ldc)
}

// trsm solves op(A)·X = alpha·B (Left) or X·op(A) = alpha·B (Right); B is m×n.
func trsm(side blas.Side, ul blas.Uplo, tA blas.Transpose, diag blas.Diag, m, n int,
	alpha float64, a []float64, lda int, b []float64, ldb int) {
	if m == 0 || n == 0 {
		return
	}
	impl.Dtrsm(flipSide(side), flipUplo(ul), tA, diag, n, m, alpha, a, lda, b, ldb)
}

// syrkLower computes the lower triangle of C = alpha·A·Aᵀ + beta·C, A n×k.
func syrkLower(n, k int, alpha float64, a []float64, lda int, beta float64, c []float64, ldc int) {
	if n == 0 {
		return
	}
	if k == 0 {
		for j := 0; j < n; j++ {
			col := c[j*ldc+j : j*ldc+n]
			for i := range col {
				col[i] *= beta
			}
		}
		return
	}
	impl.Dsyrk(blas.Upper, blas.Trans, n, k, alpha, a, lda, beta, c, ldc)
}

// potrfLower factors the lower triangle of the n×n block in place.
func potrfLower(n int, a []float64, lda int) bool {
	if n == 0 {
		return true
	}
	_, ok := lapack64.Potrf(blas64.Symmetric{Uplo: blas.Upper, N: n, Stride: lda, Data: a})

	return ok
}

// scale multiplies an m×n column-major block by beta (beta = 0 clears it).
func scale(m, n int, beta float64, c []float64, ldc int) {
	for j := 0; j < n; j++ {
		col := c[j*ldc : j*ldc+m]
		if beta == 0 {
			clear(col)
			continue
		}
		for i := range col {
			col[i] *= beta
		}
	}
}

func flipSide(s blas.Side) blas.Side {
	if s == blas.Left {
		return blas.Right
	}

	return blas.Left
}

func flipUplo(u blas.Uplo) blas.Uplo {
	if u == blas.Lower {
		return blas.Upper
	}

	return blas.Lower
}
