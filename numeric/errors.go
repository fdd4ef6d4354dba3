package numeric

import "errors"

// Sentinel errors returned by the numeric layer.
var (
	// ErrNilTree indicates that New received a nil symbolic tree.
	ErrNilTree = errors.New("numeric: symbolic tree is nil")

	// ErrValues indicates that the value array is shorter than the largest
	// AMap source index.
	ErrValues = errors.New("numeric: value array too short")

	// ErrNotFactorized indicates a solve before a successful factorization.
	ErrNotFactorized = errors.New("numeric: tree is not factorized")

	// ErrDimension indicates a right-hand side whose shape does not fit.
	ErrDimension = errors.New("numeric: right-hand side dimension mismatch")

	// ErrContribution indicates a subtree contribution inconsistent with its node.
	ErrContribution = errors.New("numeric: subtree contribution does not match its node")
)
