// SPDX-License-Identifier: MIT

package kernels

import "sync/atomic"

// Step records one window of the blocked factorization.
type Step struct {
	Start, Width int
	nelim        int // eliminated inside the diagonal block
	passed       atomic.Int64
}

// Eliminated is the number of pivots the diagonal block accepted.
func (s *Step) Eliminated() int { return s.nelim }

// Passed is the number of leading pivots whose multipliers all passed.
func (s *Step) Passed() int { return int(s.passed.Load()) }

// UpdatePassed lowers the pass count to n if it is smaller.
func (s *Step) UpdatePassed(n int) {
	for {
		cur := s.passed.Load()
		if int64(n) >= cur || s.passed.CompareAndSwap(cur, int64(n)) {
			return
		}
	}
}

// ColumnData is the per-front pivoting ledger: one Step per window, in order.
type ColumnData struct {
	steps []*Step
}

// NewColumnData sizes the ledger for roughly n/bs windows.
func NewColumnData(n, bs int) *ColumnData {
	return &ColumnData{steps: make([]*Step, 0, CeilDiv(n, max(bs, 1)))}
}

// Begin opens a window at column start.
func (c *ColumnData) Begin(start, width int) *Step {
	s := &Step{Start: start, Width: width}
	c.steps = append(c.steps, s)

	return s
}

// Steps returns the recorded windows.
func (c *ColumnData) Steps() []*Step { return c.steps }

// Eliminated sums the passed pivots over all windows.
func (c *ColumnData) Eliminated() int {
	n := 0
	for _, s := range c.steps {
		n += s.Passed()
	}

	return n
}

// Reset drops all windows.
func (c *ColumnData) Reset() {
	clear(c.steps)
	c.steps = c.steps[:0]
}
