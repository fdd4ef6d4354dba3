// SPDX-License-Identifier: MIT

package kernels

import (
	"github.com/katalvlaran/spldlt/memory"
)

// Backup owns the scratch storage for the snapshots of one front.
//
// At most one Snapshot is live at a time; Commit or Rollback ends it.
type Backup struct {
	alloc memory.Allocator
	buf   []float64
	live  bool
}

// NewBackup reserves room for an m×n panel.
func NewBackup(alloc memory.Allocator, m, n int) (*Backup, error) {
	buf, err := alloc.Alloc(m * n)
	if err != nil {
		return nil, err
	}

	return &Backup{alloc: alloc, buf: buf}, nil
}

// Release returns the storage to the allocator.
func (b *Backup) Release() {
	if b == nil || b.buf == nil {
		return
	}
	b.alloc.Free(b.buf)
	b.buf = nil
}

// Snapshot is the saved copy of the panel rows [q, m) × columns [q, q+w) of a
// column-major front. Entries above the diagonal of the leading w×w square
// are not part of the panel.
//
// Save may be called concurrently on disjoint row ranges. A snapshot that is
// neither committed nor rolled back keeps the Backup busy.
type Snapshot struct {
	b     *Backup
	a     []float64
	lda   int
	q     int
	rows  int // m - q
	width int
	data  []float64 // rows × width, leading dimension rows
	saved []bool    // per relative row
	done  bool
}

// Snapshot opens a snapshot of the panel starting at column q with width w
// over a front of m rows.
func (b *Backup) Snapshot(a []float64, lda, q, w, m int) (*Snapshot, error) {
	if b.live {
		return nil, ErrSnapshotActive
	}
	rows := m - q
	if rows*w > len(b.buf) {
		return nil, ErrDimension
	}
	b.live = true

	return &Snapshot{
		b: b, a: a, lda: lda, q: q, rows: rows, width: w,
		data:  b.buf[:rows*w],
		saved: make([]bool, rows),
	}, nil
}

// Save copies relative rows [from, to) of the panel into the snapshot.
func (s *Snapshot) Save(from, to int) {
	s.copyRows(from, to, true)
	for i := from; i < to; i++ {
		s.saved[i] = true
	}
}

// SaveAll saves the whole panel.
func (s *Snapshot) SaveAll() { s.Save(0, s.rows) }

// Restore writes relative rows [from, to) back into the front.
func (s *Snapshot) Restore(from, to int) { s.copyRows(from, to, false) }

// At returns the saved value at relative (i, j), reading the symmetric
// counterpart when (i, j) lies above the diagonal.
func (s *Snapshot) At(i, j int) float64 {
	if i < j {
		i, j = j, i
	}

	return s.data[j*s.rows+i]
}

// Commit ends the snapshot without touching the front.
func (s *Snapshot) Commit() {
	if s.done {
		return
	}
	s.done = true
	s.b.live = false
}

// Rollback restores every saved row and ends the snapshot. It is a no-op
// after Commit, so it can be deferred as the abandon path.
func (s *Snapshot) Rollback() {
	if s.done {
		return
	}
	for i := 0; i < s.rows; {
		if !s.saved[i] {
			i++
			continue
		}
		j := i
		for j < s.rows && s.saved[j] {
			j++
		}
		s.Restore(i, j)
		i = j
	}
	s.Commit()
}

func (s *Snapshot) copyRows(from, to int, save bool) {
	for c := 0; c < s.width; c++ {
		lo := max(from, c)
		if lo >= to {
			continue
		}
		front := s.a[(s.q+c)*s.lda+s.q+lo : (s.q+c)*s.lda+s.q+to]
		saved := s.data[c*s.rows+lo : c*s.rows+to]
		if save {
			copy(saved, front)
		} else {
			copy(front, saved)
		}
	}
}
