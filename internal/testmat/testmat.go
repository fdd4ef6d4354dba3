// Package testmat generates the reference matrices used by the tests.
//
// Dense references are gonum *mat.SymDense; sparse inputs are lower CSC
// (0-based, diagonal included) matching symbolic.Analyse.
package testmat

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// RandIndef returns a symmetric matrix with entries uniform in [-1, 1].
func RandIndef(rng *rand.Rand, n int) *mat.SymDense {
	a := mat.NewSymDense(n, nil)
	for j := 0; j < n; j++ {
		for i := j; i < n; i++ {
			a.SetSym(i, j, 2*rng.Float64()-1)
		}
	}

	return a
}

// RandPosDef returns B·Bᵀ + n·I for a random n×n B.
func RandPosDef(rng *rand.Rand, n int) *mat.SymDense {
	b := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			b.Set(i, j, 2*rng.Float64()-1)
		}
	}
	a := mat.NewSymDense(n, nil)
	a.SymOuterK(1, b)
	for i := 0; i < n; i++ {
		a.SetSym(i, i, a.At(i, i)+float64(n))
	}

	return a
}

// MakeSingular zeroes rows and columns [from, to) of a.
func MakeSingular(a *mat.SymDense, from, to int) {
	n := a.SymmetricDim()
	for k := from; k < to; k++ {
		for j := 0; j < n; j++ {
			a.SetSym(k, j, 0)
		}
	}
}

// CauseDelays scales n/8 random rows and columns by 1000, which pushes
// large entries outside the pivot candidates of many fronts.
func CauseDelays(rng *rand.Rand, a *mat.SymDense) {
	n := a.SymmetricDim()
	for _, k := range rng.Perm(n)[:max(n/8, 1)] {
		for j := 0; j < n; j++ {
			a.SetSym(k, j, a.At(k, j)*1000)
		}
	}
}

// Lower copies the lower triangle of a into column-major storage with
// leading dimension ld.
func Lower(a mat.Symmetric, ld int) []float64 {
	n := a.SymmetricDim()
	out := make([]float64, max(ld*n, 0))
	for j := 0; j < n; j++ {
		for i := j; i < n; i++ {
			out[j*ld+i] = a.At(i, j)
		}
	}

	return out
}

// CSC is a symmetric matrix stored by its lower triangle.
type CSC struct {
	N      int
	ColPtr []int
	RowIdx []int
	Val    []float64
}

// FromSym keeps the diagonal and every off-diagonal entry with |v| > drop.
func FromSym(a mat.Symmetric, drop float64) *CSC {
	n := a.SymmetricDim()
	c := &CSC{N: n, ColPtr: make([]int, n+1)}
	for j := 0; j < n; j++ {
		for i := j; i < n; i++ {
			if v := a.At(i, j); i == j || math.Abs(v) > drop {
				c.RowIdx = append(c.RowIdx, i)
				c.Val = append(c.Val, v)
			}
		}
		c.ColPtr[j+1] = len(c.RowIdx)
	}

	return c
}

// Laplacian2D returns the 5-point Laplacian on a k×k grid, shifted by
// shift on the diagonal. A shift inside the spectrum makes it indefinite.
func Laplacian2D(k int, shift float64) *CSC {
	n := k * k
	c := &CSC{N: n, ColPtr: make([]int, n+1)}
	for j := 0; j < n; j++ {
		x, y := j%k, j/k
		rows := []int{j}
		if x+1 < k {
			rows = append(rows, j+1)
		}
		if y+1 < k {
			rows = append(rows, j+k)
		}
		sort.Ints(rows)
		for _, i := range rows {
			c.RowIdx = append(c.RowIdx, i)
			if i == j {
				c.Val = append(c.Val, 4-shift)
			} else {
				c.Val = append(c.Val, -1)
			}
		}
		c.ColPtr[j+1] = len(c.RowIdx)
	}

	return c
}

// Sym expands c into a dense symmetric matrix.
func (c *CSC) Sym() *mat.SymDense {
	a := mat.NewSymDense(c.N, nil)
	for j := 0; j < c.N; j++ {
		for p := c.ColPtr[j]; p < c.ColPtr[j+1]; p++ {
			a.SetSym(c.RowIdx[p], j, c.Val[p])
		}
	}

	return a
}

// RandRHS returns a random n×nrhs solution x and b = A·x, both column-major.
func RandRHS(rng *rand.Rand, a mat.Symmetric, nrhs int) (x, b []float64) {
	n := a.SymmetricDim()
	xs := mat.NewDense(n, nrhs, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < nrhs; j++ {
			xs.Set(i, j, 2*rng.Float64()-1)
		}
	}
	var bs mat.Dense
	bs.Mul(a, xs)

	return ColMajor(xs), ColMajor(&bs)
}

// ColMajor flattens m column by column.
func ColMajor(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			out = append(out, m.At(i, j))
		}
	}

	return out
}

// BackwardError returns the largest normwise backward error
// ‖b − A·x‖∞ / (‖A‖∞·‖x‖∞ + ‖b‖∞) over the columns of x and b
// (column-major, n rows each).
func BackwardError(a mat.Symmetric, x, b []float64, nrhs int) float64 {
	n := a.SymmetricDim()
	anorm := mat.Norm(a, math.Inf(1))
	worst := 0.0
	for c := 0; c < nrhs; c++ {
		xv := mat.NewVecDense(n, x[c*n:(c+1)*n])
		bv := mat.NewVecDense(n, b[c*n:(c+1)*n])
		var ax, r mat.VecDense
		ax.MulVec(a, xv)
		r.SubVec(bv, &ax)
		den := anorm*mat.Norm(xv, math.Inf(1)) + mat.Norm(bv, math.Inf(1))
		if den == 0 {
			continue
		}
		worst = max(worst, mat.Norm(&r, math.Inf(1))/den)
	}

	return worst
}
