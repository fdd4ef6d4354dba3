package numeric

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/katalvlaran/spldlt/config"
	"github.com/katalvlaran/spldlt/front"
	"github.com/katalvlaran/spldlt/kernels"
	"github.com/katalvlaran/spldlt/task"
)

// guard stops a task body once the factorization context is done.
func guard(ctx context.Context, fn func() error) task.Func {
	return func(context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn()
	}
}

// submitNode submits the pipeline of node i. Every step holds the node
// handle for writing; steps that read a child hold the child handle for
// reading, and the final release of a child holds it for writing.
func (t *Tree) submitNode(ctx context.Context, rt task.Runtime, g task.Group, h map[int]*task.Handle, i int, aval []float64, delegate bool) {
	self := task.RW(h[i])
	if delegate && t.sym.Nodes[i].SubtreeRoot {
		g.Submit(fmt.Sprintf("subtree(%d)", i), guard(ctx, func() error {
			return t.factorSubtree(ctx, i, aval)
		}), self)
		return
	}

	children := t.sym.Children(i)
	acc := []task.Access{self}
	for _, c := range children {
		acc = append(acc, task.R(h[c]))
	}
	g.Submit(fmt.Sprintf("activate(%d)", i), guard(ctx, func() error {
		return t.activate(rt, i, children)
	}), acc...)
	g.Submit(fmt.Sprintf("init(%d)", i), guard(ctx, func() error {
		t.initialize(i, aval)
		return nil
	}), self)
	for _, c := range children {
		g.Submit(fmt.Sprintf("assemble-pre(%d<-%d)", i, c), guard(ctx, func() error {
			t.assemblePre(i, c)
			return nil
		}), self, task.R(h[c]))
	}
	g.Submit(fmt.Sprintf("factor(%d)", i), guard(ctx, func() error {
		return t.factor(ctx, rt, i)
	}), self)
	g.Submit(fmt.Sprintf("form-contrib(%d)", i), guard(ctx, func() error {
		return t.formContrib(rt, i)
	}), self)
	for _, c := range children {
		g.Submit(fmt.Sprintf("assemble-post(%d<-%d)", i, c), guard(ctx, func() error {
			return t.assemblePost(rt, i, c)
		}), self, task.R(h[c]))
	}
	for _, c := range children {
		g.Submit(fmt.Sprintf("deactivate(%d)", c), guard(ctx, func() error {
			t.deactivate(c)
			return nil
		}), task.RW(h[c]))
	}
	if t.sym.IsRoot(i) {
		g.Submit(fmt.Sprintf("deactivate(%d)", i), guard(ctx, func() error {
			t.deactivate(i)
			return nil
		}), self)
	}
}

// delaysOf is the number of columns child c passes to its parent.
func (t *Tree) delaysOf(c int) int {
	if ct := t.contribs[c]; ct != nil {
		return ct.NDelay
	}

	return t.fronts[c].NDelayOut
}

// delayOffset is where the delays of child c start among the delayed
// columns of its parent i.
func (t *Tree) delayOffset(i, c int) int {
	off := 0
	for _, s := range t.sym.Children(i) {
		if s == c {
			break
		}
		off += t.delaysOf(s)
	}

	return off
}

// activate creates the front of node i sized for its incoming delays.
func (t *Tree) activate(rt task.Runtime, i int, children []int) error {
	f := front.New(i, &t.sym.Nodes[i], t.opts.BlockSize, t.alloc, rt)
	t.fronts[i] = f
	ndin := 0
	for _, c := range children {
		ndin += t.delaysOf(c)
	}
	if err := f.Activate(ndin); err != nil {
		return err
	}
	if err := f.AllocateContribution(); err != nil {
		return err
	}
	if !t.opts.PosDef {
		if err := f.AllocateBackup(); err != nil {
			return err
		}
		if err := f.AllocateColumnData(); err != nil {
			return err
		}
	}
	if t.opts.PosDef || t.opts.PivotMethod == config.PivotAggressive {
		return f.AllocateBlocks()
	}

	return nil
}

// initialize scatters the original entries of node i. Rows past the
// node's own columns move down by the incoming delays.
func (t *Tree) initialize(i int, aval []float64) {
	f := t.fronts[i]
	nd := f.Node
	ld, ndin := f.LDL(), f.NDelayIn
	copy(f.Perm, nd.Rows[:nd.NCol])
	for _, p := range nd.AMap {
		col, row := p[1]/nd.NRow, p[1]%nd.NRow
		if row < col {
			row, col = col, row
		}
		if row >= nd.NCol {
			row += ndin
		}
		f.LCol[col*ld+row] += aval[p[0]]
	}
	f.SetState(front.Initialized)
}

// factor runs the dense kernel on the fully-summed columns of node i.
func (t *Tree) factor(ctx context.Context, rt task.Runtime, i int) error {
	f := t.fronts[i]
	f.SetState(front.Assembled)
	r := f.Region()
	if t.opts.PosDef {
		if err := kernels.FactorPosDef(ctx, rt, r, f.Blocks); err != nil {
			return fmt.Errorf("front %d: %w", i, err)
		}
		f.NElim1, f.NElim = f.NColEff(), f.NColEff()
	} else {
		res, err := kernels.FactorIndef(ctx, rt, r, f.Blocks, f.Backup, f.CData, kernels.NewParams(t.opts, t.sym.IsRoot(i)))
		if err != nil {
			return fmt.Errorf("front %d: %w", i, err)
		}
		f.NElim1, f.NElim = res.Blocked, res.Eliminated
		f.NZero, f.NTwoByTwo = res.Zero, res.TwoByTwo
		f.NDelayOut = res.Delayed(f.NColEff())
		if res.Restarted {
			t.log.Debug("aggressive pivoting restarted", slog.Int("node", i))
		}
	}
	f.SetState(front.Factorized)

	frontsFactorized.WithLabelValues(policyLabel(t.opts.PosDef)).Inc()
	delayedColumns.Add(float64(f.NDelayOut))
	zeroPivots.Add(float64(f.NZero))
	t.log.Debug("front factorized",
		slog.Int("node", i),
		slog.Int("rows", f.NRowEff()),
		slog.Int("cols", f.NColEff()),
		slog.Int("eliminated", f.NElim),
		slog.Int("delayed", f.NDelayOut),
	)
	if f.NZero > 0 && t.sym.IsRoot(i) {
		t.log.Warn("zero pivots at root", slog.Int("node", i), slog.Int("zero_pivots", f.NZero))
	}

	return nil
}

// formContrib overwrites every contribution tile of node i, one task per tile.
func (t *Tree) formContrib(rt task.Runtime, i int) error {
	f := t.fronts[i]
	if f.HasContribution() {
		r, n := f.Region(), f.NColEff()
		g := rt.NewGroup()
		f.ContribTiles(func(tl *front.Tile) {
			g.Submit(fmt.Sprintf("contrib(%d)", i), func(context.Context) error {
				kernels.FormContribution(r, f.NElim, t.opts.PosDef, n+tl.R0, tl.M, n+tl.C0, tl.N, tl.Data, tl.LD)
				return nil
			}, task.W(tl.Handle))
		})
		if err := g.Wait(); err != nil {
			return err
		}
	}
	f.SetState(front.ContribFormed)

	return nil
}

// deactivate drops the working storage of node c once its parent is done with it.
func (t *Tree) deactivate(c int) {
	if ct := t.contribs[c]; ct != nil {
		ct.Release()
		t.contribs[c] = nil
	}
	if f := t.fronts[c]; f != nil {
		f.Deactivate(true)
	}
	t.maps[c] = nil
}
