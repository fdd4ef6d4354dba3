// SPDX-License-Identifier: MIT

package kernels

import (
	"fmt"

	"github.com/katalvlaran/spldlt/task"
)

// Block is one tile of a Grid: rows [R0, R0+M) × columns [C0, C0+N).
type Block struct {
	I, J   int
	R0, C0 int
	M, N   int
	H      *task.Handle
}

// Off returns the offset of the tile's first entry in a buffer with leading dimension ld.
func (b *Block) Off(ld int) int { return b.C0*ld + b.R0 }

// Grid tiles the lower part of rows [rb[0], rb[last]) × columns [cb[0], cb[last]).
//
// Row and column boundaries coincide over the square part, so tile (I, I)
// is a diagonal block. Only tiles with I >= J exist.
type Grid struct {
	rt     task.Runtime
	rb, cb []int
	blocks [][]*Block // blocks[J][I-J]
}

// NewGrid builds a grid whose first tile is first×first and whose other
// boundaries advance by bs, starting at offset start.
//
// Columns stop at n. Rows share the column boundaries up to n and then
// restart at n, so diagonal tiles are square and the rows below n line up
// with the contribution block. A nil runtime skips handle registration.
func NewGrid(rt task.Runtime, name string, start, first, bs, m, n int) *Grid {
	g := &Grid{rt: rt}
	g.cb = boundaries(start, first, bs, n)
	g.rb = append([]int(nil), g.cb...)
	for last := g.rb[len(g.rb)-1]; last < m; last = g.rb[len(g.rb)-1] {
		g.rb = append(g.rb, min(last+bs, m))
	}
	nc := len(g.cb) - 1
	g.blocks = make([][]*Block, nc)
	for j := 0; j < nc; j++ {
		col := make([]*Block, 0, len(g.rb)-1-j)
		for i := j; i < len(g.rb)-1; i++ {
			b := &Block{
				I: i, J: j,
				R0: g.rb[i], C0: g.cb[j],
				M: g.rb[i+1] - g.rb[i], N: g.cb[j+1] - g.cb[j],
			}
			if rt != nil {
				b.H = rt.Register(fmt.Sprintf("%s(%d,%d)", name, i, j))
			}
			col = append(col, b)
		}
		g.blocks[j] = col
	}

	return g
}

// boundaries returns start, start+first, then steps of bs, clipped to end.
func boundaries(start, first, bs, end int) []int {
	out := []int{start}
	if start >= end {
		return out
	}
	next := min(start+first, end)
	for {
		out = append(out, next)
		if next >= end {
			return out
		}
		next = min(next+bs, end)
	}
}

// Rows is the number of row tiles.
func (g *Grid) Rows() int { return len(g.rb) - 1 }

// Cols is the number of column tiles.
func (g *Grid) Cols() int { return len(g.cb) - 1 }

// At returns tile (i, j), i >= j.
func (g *Grid) At(i, j int) *Block { return g.blocks[j][i-j] }

// Each visits every tile column by column.
func (g *Grid) Each(fn func(*Block)) {
	for _, col := range g.blocks {
		for _, b := range col {
			fn(b)
		}
	}
}

// Release unregisters every handle.
func (g *Grid) Release() {
	if g == nil || g.rt == nil {
		return
	}
	g.Each(func(b *Block) {
		g.rt.Unregister(b.H)
		b.H = nil
	})
}
