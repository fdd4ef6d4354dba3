// SPDX-License-Identifier: MIT

// Package kernels implements the dense per-front numerics of the
// multifrontal factorization.
//
// What:
//
//   - FactorIndef: blocked right-looking LDLᵀ with adaptive threshold
//     pivoting (APTP). Windows of up to BlockSize columns are factored with
//     complete pivoting inside the diagonal block; multipliers below it are
//     checked a posteriori by concurrent per-tile tasks. Columns that fail
//     are restored from a Snapshot and retried, and whatever the blocked
//     pass leaves behind goes through an unblocked threshold partial
//     pivoting (TPP) pass or is delayed to the parent.
//   - FactorPosDef: tiled Cholesky (POTRF/TRSM/SYRK/GEMM tasks).
//   - FormContribution: contribution tile = −L_I·D·L_Jᵀ.
//   - Solve*: per-front forward, diagonal and backward substitutions.
//
// Storage conventions:
//
//   - Column-major, lower triangle only, leading dimension LD.
//   - D holds D⁻¹, two entries per column. A 1×1 pivot stores (1/d, 0); a
//     2×2 pivot at j, j+1 stores (inv11, inv21, +Inf, inv22); a zero pivot
//     stores (0, 0). L has an explicit unit diagonal and L(j+1, j) = 0 for a
//     2×2 pivot, so unit-triangular solves need no special casing.
//
// Concurrency:
//
//   - Kernels submit their fine-grained tasks to a task.Runtime group and
//     wait for it; Runtime.NewGroup lets them run nested inside a tree-level
//     task. ColumnData pass counts are atomic.
package kernels
