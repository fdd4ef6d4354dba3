package memory

import "errors"

var (
	// ErrExhausted reports that an allocation would exceed the budget.
	ErrExhausted = errors.New("memory: allocation budget exhausted")

	// ErrNegativeSize reports a negative request.
	ErrNegativeSize = errors.New("memory: negative allocation size")
)
