// SPDX-License-Identifier: MIT

package task

import (
	"fmt"
	"sync/atomic"
)

// Mode is the access a task declares on a handle.
type Mode uint8

const (
	// Read allows concurrent readers.
	Read Mode = 1 << iota
	// Write requires exclusive access.
	Write
	// ReadWrite is an exclusive access whose previous contents matter.
	ReadWrite = Read | Write
)

// Access pairs a handle with a mode.
type Access struct {
	H    *Handle
	Mode Mode
}

// R declares a read of h.
func R(h *Handle) Access { return Access{H: h, Mode: Read} }

// W declares a write of h.
func W(h *Handle) Access { return Access{H: h, Mode: Write} }

// RW declares a read-modify-write of h.
func RW(h *Handle) Access { return Access{H: h, Mode: ReadWrite} }

var handleSeq atomic.Uint64

// Handle names one piece of data for dependency inference.
// Tracking fields are guarded by the owning Pool's mutex.
type Handle struct {
	id       uint64
	name     string
	released bool

	lastWriter *node
	readers    []*node
}

func newHandle(name string) *Handle {
	return &Handle{id: handleSeq.Add(1), name: name}
}

// Name returns the label given at registration.
func (h *Handle) Name() string { return h.name }

// String implements fmt.Stringer.
func (h *Handle) String() string { return fmt.Sprintf("%s#%d", h.name, h.id) }
