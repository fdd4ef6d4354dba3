// SPDX-License-Identifier: MIT

package task

import "errors"

var (
	// ErrClosed is recorded when a task is submitted to a closed runtime.
	ErrClosed = errors.New("task: runtime closed")

	// ErrHandleReleased is recorded when a task declares an unregistered handle.
	ErrHandleReleased = errors.New("task: handle released")

	// ErrPanic wraps a panic recovered from a task body.
	ErrPanic = errors.New("task: panic in task")
)
