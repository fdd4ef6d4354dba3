package numeric

import (
	"context"
	"fmt"
	"sync"

	"github.com/katalvlaran/spldlt/front"
	"github.com/katalvlaran/spldlt/task"
)

// source is the part of a child that its parent assembles: the delayed
// columns and the contribution block, either tiled (inline child) or
// dense (subtree contribution).
type source struct {
	ndelay int
	perm   []int     // global index of each delayed column
	delay  []float64 // rows: delayed columns, then contribution rows
	ldd    int
	rows   []int // global index of each contribution row

	f   *front.Front
	val []float64
	ld  int
}

// at reads contribution entry (i, j), i >= j.
func (s *source) at(i, j int) float64 {
	if s.f != nil {
		tl := s.f.ContribTile(s.f.ContribTileOf(i), s.f.ContribTileOf(j))
		return tl.At(i-tl.R0, j-tl.C0)
	}

	return s.val[j*s.ld+i]
}

func (t *Tree) sourceOf(c int) *source {
	if ct := t.contribs[c]; ct != nil {
		return &source{
			ndelay: ct.NDelay, perm: ct.Perm, delay: ct.Delay, ldd: ct.LDDelay,
			rows: ct.Rows, val: ct.Val, ld: ct.LD,
		}
	}
	f := t.fronts[c]
	s := &source{ndelay: f.NDelayOut, rows: f.Node.Rows[f.NCol:], f: f}
	if s.ndelay > 0 {
		ld := f.LDL()
		s.perm = f.Perm[f.NElim:f.NColEff()]
		s.delay, s.ldd = f.LCol[f.NElim*ld+f.NElim:], ld
	}

	return s
}

// indexMap places the contribution rows of a child in its parent.
type indexMap struct {
	rows []int // parent local row of each contribution row
	nfs  int   // leading rows that are fully-summed columns of the parent
}

// lookupPool recycles the row lookups, one entry per global row.
var lookupPool = sync.Pool{New: func() any { return new([]int) }}

// buildMap maps the global rows of a child into parent p.
func (t *Tree) buildMap(p *front.Front, rows []int) *indexMap {
	lp := lookupPool.Get().(*[]int)
	defer lookupPool.Put(lp)
	if len(*lp) < t.sym.N {
		*lp = make([]int, t.sym.N)
	}
	lookup := *lp
	nd := p.Node
	for k, g := range nd.Rows {
		if k >= nd.NCol {
			k += p.NDelayIn
		}
		lookup[g] = k
	}

	m := &indexMap{rows: make([]int, len(rows))}
	for k, g := range rows {
		m.rows[k] = lookup[g]
		if m.rows[k] < nd.NCol {
			m.nfs = k + 1
		}
	}

	return m
}

// assemblePre copies the delays of child c into parent i and adds the
// contribution entries whose column is fully summed in the parent.
// Implementation:
//   - Stage 1: build and keep the index map of c.
//   - Stage 2: delayed column j lands in parent column NCol+offset+j with
//     its perm entry; a row that is one of the parent's own columns lies
//     above that column and is stored transposed.
//   - Stage 3: add the leading nfs contribution columns to LCol.
func (t *Tree) assemblePre(i, c int) {
	p := t.fronts[i]
	s := t.sourceOf(c)
	m := t.buildMap(p, s.rows)
	t.maps[c] = m
	a, ld := p.LCol, p.LDL()

	off := p.NCol + t.delayOffset(i, c)
	for j := 0; j < s.ndelay; j++ {
		pc := off + j
		p.Perm[pc] = s.perm[j]
		col := s.delay[j*s.ldd:]
		for r := j; r < s.ndelay; r++ {
			a[pc*ld+off+r] += col[r]
		}
		for k, pr := range m.rows {
			if v := col[s.ndelay+k]; pr < pc {
				a[pr*ld+pc] += v
			} else {
				a[pc*ld+pr] += v
			}
		}
	}

	for k2 := 0; k2 < m.nfs; k2++ {
		col := a[m.rows[k2]*ld:]
		for k1 := k2; k1 < len(m.rows); k1++ {
			col[m.rows[k1]] += s.at(k1, k2)
		}
	}
}

// assemblePost adds the remaining contribution of child c into the
// contribution tiles of parent i. A tiled child gets one task per tile,
// holding every parent tile it touches.
func (t *Tree) assemblePost(rt task.Runtime, i, c int) error {
	p := t.fronts[i]
	s := t.sourceOf(c)
	m := t.maps[c]
	nrows := len(m.rows)
	if m.nfs == nrows {
		return nil
	}
	if s.f == nil {
		t.extendAdd(p, s, m, m.nfs, nrows, m.nfs, nrows)
		return nil
	}

	g := rt.NewGroup()
	s.f.ContribTiles(func(tl *front.Tile) {
		c0, c1 := max(tl.C0, m.nfs), tl.C0+tl.N
		r0, r1 := max(tl.R0, c0), tl.R0+tl.M
		if c0 >= c1 || r0 >= r1 {
			return
		}
		acc := []task.Access{task.R(tl.Handle)}
		ti, tj := t.tileSpan(p, m, r0, r1), t.tileSpan(p, m, c0, c1)
		for _, bj := range tj {
			for _, bi := range ti {
				if bi >= bj {
					acc = append(acc, task.RW(p.ContribTile(bi, bj).Handle))
				}
			}
		}
		g.Submit(fmt.Sprintf("extend-add(%d<-%d)", i, c), func(context.Context) error {
			t.extendAdd(p, s, m, r0, r1, c0, c1)
			return nil
		}, acc...)
	})

	return g.Wait()
}

// tileSpan lists the parent tile indices covering contribution rows [from, to).
func (t *Tree) tileSpan(p *front.Front, m *indexMap, from, to int) []int {
	n := p.NColEff()
	var out []int
	for k := from; k < to; k++ {
		b := p.ContribTileOf(m.rows[k] - n)
		if len(out) == 0 || out[len(out)-1] != b {
			out = append(out, b)
		}
	}

	return out
}

// extendAdd adds the lower entries of child rows [r0, r1) × columns
// [c0, c1) into the parent's contribution tiles.
func (t *Tree) extendAdd(p *front.Front, s *source, m *indexMap, r0, r1, c0, c1 int) {
	n := p.NColEff()
	for k2 := c0; k2 < c1; k2++ {
		pc := m.rows[k2] - n
		bj := p.ContribTileOf(pc)
		for k1 := max(r0, k2); k1 < r1; k1++ {
			pr := m.rows[k1] - n
			tl := p.ContribTile(p.ContribTileOf(pr), bj)
			tl.Add(pr-tl.R0, pc-tl.C0, s.at(k1, k2))
		}
	}
}
