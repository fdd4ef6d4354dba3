package numeric

import (
	"context"
	"fmt"
	"slices"

	"github.com/katalvlaran/spldlt/config"
	"github.com/katalvlaran/spldlt/front"
	"github.com/katalvlaran/spldlt/memory"
	"github.com/katalvlaran/spldlt/symbolic"
	"github.com/katalvlaran/spldlt/task"
)

// Arena is the view of a Tree offered to a SubtreeFactorizer.
type Arena interface {
	Symbolic() *symbolic.Tree
	// Front returns the front of node i; it is nil until activated.
	Front(i int) *front.Front
	Allocator() memory.Allocator
	// FactorNodes runs the inline pipeline of nodes (children first) on rt.
	FactorNodes(ctx context.Context, rt task.Runtime, nodes []int, aval []float64) error
}

// SubtreeFactorizer factorizes a whole flagged subtree and returns what
// its root hands to the parent. The factors must be left in the arena
// fronts of the subtree nodes, where the solves read them.
type SubtreeFactorizer interface {
	FactorSubtree(ctx context.Context, arena Arena, root int, aval []float64, opts config.Options) (Contribution, error)
}

// Contribution is the result of a subtree as seen by its parent.
//
// Delay holds the NDelay delayed columns, lower part, with NDelay+Size()
// rows: the delayed columns first, then the contribution rows. Val is
// the Size()×Size() contribution block; only its lower triangle is read.
type Contribution struct {
	NDelay  int
	Perm    []int // global index of each delayed column
	Delay   []float64
	LDDelay int

	Rows []int // global index of each contribution row
	Val  []float64
	LD   int

	// OnRelease, when set, is called once by Release.
	OnRelease func()
}

// Size is the order of the contribution block.
func (c *Contribution) Size() int { return len(c.Rows) }

// Release hands the buffers back. Calling it again is a no-op.
func (c *Contribution) Release() {
	if c.OnRelease != nil {
		c.OnRelease()
		c.OnRelease = nil
	}
}

// InlineSubtrees factorizes a subtree with the ordinary pipeline on a
// sequential runtime, then copies the root's contribution out of its tiles.
type InlineSubtrees struct{}

// FactorSubtree implements SubtreeFactorizer.
func (InlineSubtrees) FactorSubtree(ctx context.Context, arena Arena, root int, aval []float64, opts config.Options) (Contribution, error) {
	rt := task.NewSequential(ctx, opts.Log())
	defer func() { _ = rt.Close() }()
	if err := arena.FactorNodes(ctx, rt, arena.Symbolic().SubtreeNodes(root), aval); err != nil {
		return Contribution{}, err
	}
	f := arena.Front(root)
	ct, err := ExtractContribution(f, arena.Allocator())
	if err != nil {
		return Contribution{}, err
	}
	f.Deactivate(true)

	return ct, nil
}

// ExtractContribution copies the delayed columns and the contribution
// tiles of a factorized front into dense buffers taken from alloc.
func ExtractContribution(f *front.Front, alloc memory.Allocator) (Contribution, error) {
	nd, nc := f.NDelayOut, f.ContribSize()
	ct := Contribution{
		NDelay:  nd,
		Rows:    f.Node.Rows[f.NCol:],
		LDDelay: max(nd+nc, 1),
		LD:      max(nc, 1),
	}
	var delay, val []float64
	ct.OnRelease = func() {
		alloc.Free(delay)
		alloc.Free(val)
	}

	var err error
	if nd > 0 {
		if delay, err = alloc.Alloc(nd * ct.LDDelay); err != nil {
			return Contribution{}, fmt.Errorf("front %d: delays: %w", f.Index, err)
		}
		clear(delay)
		ld, ne := f.LDL(), f.NElim
		for j := 0; j < nd; j++ {
			src := f.LCol[(ne+j)*ld : (ne+j)*ld+f.NRowEff()]
			copy(delay[j*ct.LDDelay+j:(j+1)*ct.LDDelay], src[ne+j:])
		}
		ct.Perm = slices.Clone(f.Perm[ne:f.NColEff()])
		ct.Delay = delay
	}
	if nc > 0 && f.HasContribution() {
		if val, err = alloc.Alloc(nc * nc); err != nil {
			ct.Release()
			return Contribution{}, fmt.Errorf("front %d: contribution: %w", f.Index, err)
		}
		f.ContribTiles(func(tl *front.Tile) {
			for jj := 0; jj < tl.N; jj++ {
				copy(val[(tl.C0+jj)*nc+tl.R0:(tl.C0+jj)*nc+tl.R0+tl.M], tl.Data[jj*tl.LD:jj*tl.LD+tl.M])
			}
		})
		ct.Val = val
	}

	return ct, nil
}

// factorSubtree delegates the subtree rooted at i and keeps its contribution.
func (t *Tree) factorSubtree(ctx context.Context, i int, aval []float64) error {
	ct, err := t.sub.FactorSubtree(ctx, t, i, aval, t.opts)
	if err != nil {
		return fmt.Errorf("subtree %d: %w", i, err)
	}
	if err = t.checkContribution(i, &ct); err != nil {
		ct.Release()
		return err
	}
	t.contribs[i] = &ct

	return nil
}

func (t *Tree) checkContribution(i int, ct *Contribution) error {
	nd := &t.sym.Nodes[i]
	nc := nd.NRow - nd.NCol
	bad := func(what string) error { return fmt.Errorf("%w: node %d: %s", ErrContribution, i, what) }
	switch {
	case !slices.Equal(ct.Rows, nd.Rows[nd.NCol:]):
		return bad("rows differ from the node")
	case ct.NDelay < 0 || len(ct.Perm) != ct.NDelay:
		return bad("delay permutation length")
	case ct.NDelay > 0 && t.sym.IsRoot(i):
		return bad("delays out of a root")
	case ct.NDelay > 0 && (ct.LDDelay < ct.NDelay+nc || len(ct.Delay) < (ct.NDelay-1)*ct.LDDelay+ct.NDelay+nc):
		return bad("delay buffer too small")
	case nc > 0 && (ct.LD < nc || len(ct.Val) < (nc-1)*ct.LD+nc):
		return bad("contribution buffer too small")
	}

	return nil
}
