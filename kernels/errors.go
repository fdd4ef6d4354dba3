// SPDX-License-Identifier: MIT

package kernels

import (
	"errors"
	"fmt"
)

var (
	// ErrSingular is returned when a root column cannot be eliminated and
	// zero pivots are not allowed.
	ErrSingular = errors.New("kernels: matrix is singular")

	// ErrNotPositiveDefinite is returned by the Cholesky kernel.
	ErrNotPositiveDefinite = errors.New("kernels: matrix is not positive definite")

	// ErrDimension reports inconsistent region sizes or buffer lengths.
	ErrDimension = errors.New("kernels: dimension mismatch")

	// ErrSnapshotActive reports a second live snapshot on one Backup.
	ErrSnapshotActive = errors.New("kernels: snapshot already active")
)

const (
	opFactorIndef  = "FactorIndef"
	opFactorPosDef = "FactorPosDef"
	opContribution = "FormContribution"
	opSolve        = "Solve"
)

// kernelErrorf decorates err with the operation tag.
func kernelErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}
