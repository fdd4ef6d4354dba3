package symbolic

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedTree reports inconsistent elimination-tree arrays.
	ErrMalformedTree = errors.New("symbolic: malformed elimination tree")

	// ErrMalformedMatrix reports an invalid CSC pattern or ordering passed to Analyse.
	ErrMalformedMatrix = errors.New("symbolic: malformed matrix pattern")
)

func treeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedTree, fmt.Sprintf(format, args...))
}

func matrixErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedMatrix, fmt.Sprintf(format, args...))
}
