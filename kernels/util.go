// SPDX-License-Identifier: MIT

package kernels

import (
	"math"

	"golang.org/x/exp/constraints"
)

// CeilDiv returns ⌈a/b⌉ for positive b.
func CeilDiv[T constraints.Integer](a, b T) T {
	if a <= 0 {
		return 0
	}

	return (a-1)/b + 1
}

// Align rounds n up to a multiple of the vector width used for leading dimensions.
func Align[T constraints.Integer](n T) T {
	const width = 4 // 32 bytes of float64

	return CeilDiv(n, width) * width
}

func abs(x float64) float64 { return math.Abs(x) }

// isTwoByTwo reports whether pivot j opens a 2×2 block.
func isTwoByTwo(d []float64, j int) bool {
	return 2*j+2 < len(d) && math.IsInf(d[2*j+2], 1)
}
