package front

import (
	"errors"
	"fmt"
)

var (
	// ErrNotActivated is returned when storage that depends on the final
	// number of delayed columns is requested before Activate.
	ErrNotActivated = errors.New("front: not activated")

	// ErrOutOfRange reports a contribution index outside the block.
	ErrOutOfRange = errors.New("front: index out of range")
)

func frontErrorf(index int, what string, err error) error {
	return fmt.Errorf("front %d: %s: %w", index, what, err)
}
