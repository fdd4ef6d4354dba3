// SPDX-License-Identifier: MIT

package kernels

import (
	"context"
	"slices"
	"sync/atomic"

	"gonum.org/v1/gonum/blas"

	"github.com/katalvlaran/spldlt/config"
	"github.com/katalvlaran/spldlt/task"
)

// FactorIndef computes the LDLᵀ factorization of the fully-summed columns
// of r with adaptive threshold pivoting.
//
// Description:
//
//	The aggressive method first tries an unpivoted factorization over the
//	static block grid; any failure restores the region and the block method
//	takes over. The block method walks windows of BlockSize columns, each a
//	diag/apply/adjust/update task graph, and moves columns it cannot pivot
//	on behind the others. What remains is passed to TPP (always at a root)
//	or delayed. Eliminated pivots occupy [0, Result.Eliminated); the delayed
//	columns follow in Perm order.
//
// Parameters:
//   - blocks: static tile grid of the front, used by the aggressive method.
//     May be nil, which disables that method.
//   - bk: backup sized for the region; cd receives one Step per window.
//
// Returns:
//   - ErrSingular at a root when a column cannot be eliminated and Action
//     is off. Runtime failures are returned as reported by the group.
func FactorIndef(ctx context.Context, rt task.Runtime, r *Region, blocks *Grid, bk *Backup, cd *ColumnData, p Params) (Result, error) {
	var res Result
	if err := r.check(); err != nil {
		return res, kernelErrorf(opFactorIndef, err)
	}
	if p.BlockSize < 1 {
		p.BlockSize = config.DefaultBlockSize
	}
	clear(r.D[:2*r.N])
	cd.Reset()

	q := 0
	if p.Pivot == config.PivotAggressive && blocks != nil {
		ok, err := r.factorAggressive(rt, blocks, bk, cd, &p)
		if err != nil {
			return res, err
		}
		if ok {
			q = r.N
		} else {
			res.Restarted = true
		}
	}
	if q < r.N {
		var err error
		if q, err = r.factorBlocked(ctx, rt, bk, cd, &p); err != nil {
			return res, err
		}
	}
	res.Blocked = q

	if q < r.N && (p.Failed == config.FailedPivotTPP || p.Root) {
		nelim, nzero, err := r.tpp(q, &p)
		if err != nil {
			return res, kernelErrorf(opFactorIndef, err)
		}
		q, res.Zero = nelim, nzero
	}
	clear(r.D[2*q : 2*r.N])
	res.Eliminated = q
	for j := 0; j < q; j++ {
		if isTwoByTwo(r.D, j) {
			res.TwoByTwo++
			j++
		}
	}

	return res, nil
}

// factorBlocked runs the windowed pass and returns the number of pivots.
//
// A window that makes no progress is rotated behind the untried columns;
// the pass ends once every remaining column failed since the last progress.
func (r *Region) factorBlocked(ctx context.Context, rt task.Runtime, bk *Backup, cd *ColumnData, p *Params) (int, error) {
	q, stalled := 0, 0
	lperm := make([]int, p.BlockSize)
	var ls ldScratch
	for q < r.N && stalled < r.N-q {
		if err := ctx.Err(); err != nil {
			return q, err
		}
		nb := min(p.BlockSize, r.N-q)
		npass, err := r.step(rt, bk, cd.Begin(q, nb), lperm[:nb], &ls, p)
		if err != nil {
			return q, err
		}
		if npass == 0 {
			r.rotate(q, nb)
			stalled += nb
			continue
		}
		q += npass
		stalled = 0
	}

	return q, nil
}

// step factors one window as a task graph and returns its passed pivots.
//
//   - factor_diag: saves and factors the diagonal block.
//   - apply_pivot (per row tile): saves the tile, applies the block's
//     permutation and pivots, and lowers the pass count.
//   - adjust: never splits a 2×2 pivot and sizes the L·D scratch.
//   - calc_ld (per block column): fills W = L·D for its columns.
//   - update (per trailing tile): restores the failed window columns from
//     the snapshot, then subtracts the passed pivots.
//
// The snapshot rolls back if the graph fails.
func (r *Region) step(rt task.Runtime, bk *Backup, st *Step, lperm []int, ls *ldScratch, p *Params) (int, error) {
	q, nb := st.Start, st.Width
	snap, err := bk.Snapshot(r.A, r.LD, q, nb, r.M)
	if err != nil {
		return 0, kernelErrorf(opFactorIndef, err)
	}
	defer snap.Rollback()
	grid := NewGrid(rt, "ldlt", q, nb, p.BlockSize, r.M, r.N)
	defer grid.Release()
	sh := rt.Register("cdata")
	defer rt.Unregister(sh)

	g := rt.NewGroup()
	diag := grid.At(0, 0)
	g.Submit("factor_diag", func(context.Context) error {
		snap.Save(0, nb)
		ne := r.factorDiag(q, nb, p, true, lperm)
		st.nelim = ne
		st.passed.Store(int64(ne))
		return nil
	}, task.RW(diag.H), task.W(sh))
	for i := 1; i < grid.Rows(); i++ {
		b := grid.At(i, 0)
		g.Submit("apply_pivot", func(context.Context) error {
			snap.Save(b.R0-q, b.R0-q+b.M)
			st.UpdatePassed(r.applyPivots(b.R0, b.M, q, nb, st.nelim, lperm, p))
			return nil
		}, task.R(diag.H), task.RW(b.H), task.R(sh))
	}
	g.Submit("adjust", func(context.Context) error {
		n := st.Passed()
		if n > 0 && isTwoByTwo(r.D, q+n-1) {
			n--
			st.passed.Store(int64(n))
		}
		clear(r.D[2*(q+n) : 2*(q+nb)])
		ls.reset(q+n, r.N, n, p.BlockSize)
		return nil
	}, task.RW(sh))
	wh := make([]*task.Handle, grid.Cols())
	for j := range wh {
		wh[j] = rt.Register("ld")
		defer rt.Unregister(wh[j])
		lj := grid.At(j, j)
		g.Submit("calc_ld", func(context.Context) error {
			r.fillLD(ls, lj.C0, lj.C0+lj.N, q)
			return nil
		}, task.R(sh), task.R(grid.At(j, 0).H), task.W(wh[j]))
	}
	grid.Each(func(b *Block) {
		g.Submit("update", func(context.Context) error {
			r.restoreFailed(b, snap, q, nb, ls.lo, lperm)
			r.updateTile(b, q, ls)
			return nil
		}, task.R(sh), task.R(wh[b.J]), task.RW(b.H))
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}
	snap.Commit()

	return st.Passed(), nil
}

// factorAggressive attempts an unpivoted factorization on the static grid.
// It reports false, with the region restored, if any pivot failed.
func (r *Region) factorAggressive(rt task.Runtime, blocks *Grid, bk *Backup, cd *ColumnData, p *Params) (bool, error) {
	snap, err := bk.Snapshot(r.A, r.LD, 0, r.N, r.M)
	if err != nil {
		return false, kernelErrorf(opFactorIndef, err)
	}
	defer snap.Rollback()
	snap.SaveAll()
	perm := slices.Clone(r.Perm[:r.N])

	var failed atomic.Bool
	g := rt.NewGroup()
	for k := 0; k < blocks.Cols(); k++ {
		diag := blocks.At(k, k)
		q, nb := diag.C0, diag.N
		st := cd.Begin(q, nb)
		g.Submit("factor_diag", func(context.Context) error {
			if failed.Load() {
				return nil
			}
			ne := r.factorDiag(q, nb, p, false, nil)
			st.nelim = ne
			st.passed.Store(int64(ne))
			if ne < nb {
				failed.Store(true)
			}
			return nil
		}, task.RW(diag.H))
		for i := k + 1; i < blocks.Rows(); i++ {
			b := blocks.At(i, k)
			g.Submit("apply_pivot", func(context.Context) error {
				if failed.Load() {
					return nil
				}
				if n := r.applyPivots(b.R0, b.M, q, nb, nb, nil, p); n < nb {
					st.UpdatePassed(n)
					failed.Store(true)
				}
				return nil
			}, task.R(diag.H), task.RW(b.H))
		}
		ls := &ldScratch{}
		ls.reset(q+nb, r.N, nb, p.BlockSize)
		for j := k + 1; j < blocks.Cols(); j++ {
			lj, cj := blocks.At(j, k), blocks.At(j, j)
			wh := rt.Register("ld")
			defer rt.Unregister(wh)
			g.Submit("calc_ld", func(context.Context) error {
				if failed.Load() {
					return nil
				}
				r.fillLD(ls, cj.C0, cj.C0+cj.N, q)
				return nil
			}, task.R(lj.H), task.W(wh))
			for i := j; i < blocks.Rows(); i++ {
				b, li := blocks.At(i, j), blocks.At(i, k)
				g.Submit("update", func(context.Context) error {
					if failed.Load() {
						return nil
					}
					r.updateTile(b, q, ls)
					return nil
				}, task.R(li.H), task.R(wh), task.RW(b.H))
			}
		}
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	if failed.Load() {
		snap.Rollback()
		copy(r.Perm, perm)
		clear(r.D[:2*r.N])
		cd.Reset()
		return false, nil
	}
	snap.Commit()

	return true, nil
}

// restoreFailed rewrites the window columns [lo, q+nb) of tile b with their
// saved values, permuted to the current window order.
func (r *Region) restoreFailed(b *Block, snap *Snapshot, q, nb, lo int, lperm []int) {
	end := q + nb
	c0, c1 := max(b.C0, lo), min(b.C0+b.N, end)
	r1 := b.R0 + b.M
	for c := c0; c < c1; c++ {
		oc := lperm[c-q]
		col := r.A[c*r.LD : c*r.LD+r1]
		for i := max(b.R0, c); i < r1; i++ {
			if i < end {
				col[i] = snap.At(lperm[i-q], oc)
			} else {
				col[i] = snap.At(i-q, oc)
			}
		}
	}
}

// ldScratch holds W = L·D of the pivots of one update step for the
// trailing columns [lo, lo+ldw), row c-lo belonging to column c, and one
// square slot per block column for the diagonal tile products.
type ldScratch struct {
	lo, ldw, np int
	width       int // widest block column
	buf         []float64
	w, diag     []float64
}

// reset sizes the scratch for np pivots updating columns [lo, end),
// reusing the previous buffer when it is large enough.
func (s *ldScratch) reset(lo, end, np, width int) {
	s.lo, s.ldw, s.np, s.width = lo, max(end-lo, 0), np, width
	nw := s.ldw * np
	need := nw + s.ldw*width
	if cap(s.buf) < need {
		s.buf = make([]float64, need)
	}
	s.w, s.diag = s.buf[:nw], s.buf[nw:need]
}

// fillLD computes the rows of W for columns [c0, c1) clipped to lo.
func (r *Region) fillLD(s *ldScratch, c0, c1, q int) {
	c0 = max(c0, s.lo)
	if s.np == 0 || c0 >= c1 {
		return
	}
	r.calcLD(c0, c1-c0, q, s.np, s.w[c0-s.lo:], s.ldw)
}

// updateTile subtracts L·D·Lᵀ of pivots [q, q+s.np) from the part of tile
// b at or beyond s.lo, reading W from s. A diagonal tile forms its square
// product in its scratch slot with one gemm and keeps the lower triangle.
func (r *Region) updateTile(b *Block, q int, s *ldScratch) {
	lo, np := s.lo, s.np
	c0, c1 := max(b.C0, lo), b.C0+b.N
	r1 := b.R0 + b.M
	if np == 0 || c0 >= c1 {
		return
	}
	a, ld := r.A, r.LD
	nc := c1 - c0
	w := s.w[c0-lo:]
	if b.I == b.J {
		d := s.diag[(c0-lo)*s.width:][:nc*nc]
		gemm(blas.NoTrans, blas.Trans, nc, nc, np, 1, a[q*ld+c0:], ld, w, s.ldw, 0, d, nc)
		for j := 0; j < nc; j++ {
			col, dj := a[(c0+j)*ld+c0:], d[j*nc:]
			for i := j; i < nc; i++ {
				col[i] -= dj[i]
			}
		}
		if r1 > c1 {
			gemm(blas.NoTrans, blas.Trans, r1-c1, nc, np, -1, a[q*ld+c1:], ld, w, s.ldw, 1, a[c0*ld+c1:], ld)
		}
		return
	}
	r0 := max(b.R0, lo)
	gemm(blas.NoTrans, blas.Trans, r1-r0, nc, np, -1, a[q*ld+r0:], ld, w, s.ldw, 1, a[c0*ld+r0:], ld)
}
