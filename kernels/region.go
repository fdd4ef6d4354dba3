// SPDX-License-Identifier: MIT

package kernels

import (
	"github.com/katalvlaran/spldlt/config"
)

// Region is the column-major m×n fully-summed part of a front.
//
// Rows [0, n) are the fully-summed variables in elimination order, rows
// [n, m) the remaining rows of the front. Perm follows every symmetric
// swap of the first n indices; D receives D⁻¹ as described in the package
// documentation.
type Region struct {
	M, N int
	A    []float64
	LD   int
	Perm []int
	D    []float64
}

func (r *Region) check() error {
	switch {
	case r.N < 0 || r.M < r.N || r.LD < max(1, r.M):
		return ErrDimension
	case len(r.Perm) < r.N || len(r.D) < 2*r.N:
		return ErrDimension
	case r.N > 0 && len(r.A) < (r.N-1)*r.LD+r.M:
		return ErrDimension
	}

	return nil
}

func (r *Region) at(i, j int) float64 { return r.A[j*r.LD+i] }

// sym reads entry (i, j) of the symmetric active part from lower storage.
func (r *Region) sym(i, j int) float64 {
	if i < j {
		i, j = j, i
	}

	return r.A[j*r.LD+i]
}

// Params are the per-front pivoting parameters.
type Params struct {
	U         float64
	Small     float64
	BlockSize int
	Action    bool
	Pivot     config.PivotMethod
	Failed    config.FailedPivotMethod
	// Root marks a front without a parent: nothing can be delayed out of it.
	Root bool
}

// NewParams extracts the kernel parameters from o.
func NewParams(o config.Options, root bool) Params {
	return Params{
		U:         o.U,
		Small:     o.Small,
		BlockSize: o.BlockSize,
		Action:    o.Action,
		Pivot:     o.PivotMethod,
		Failed:    o.FailedPivotMethod,
		Root:      root,
	}
}

// Result summarizes one FactorIndef call.
type Result struct {
	Blocked    int  // pivots accepted by the blocked pass
	Eliminated int  // total pivots, zero pivots included
	Zero       int  // zero pivots
	TwoByTwo   int  // 2×2 pivots
	Restarted  bool // the aggressive pass failed and was redone
}

// Delayed is the number of columns handed to the parent.
func (r Result) Delayed(n int) int { return n - r.Eliminated }
