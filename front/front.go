package front

import (
	"fmt"

	"github.com/katalvlaran/spldlt/kernels"
	"github.com/katalvlaran/spldlt/memory"
	"github.com/katalvlaran/spldlt/symbolic"
	"github.com/katalvlaran/spldlt/task"
)

// State is the lifecycle position of a Front.
type State int

const (
	Inactive State = iota
	Activated
	Initialized
	Assembled
	Factorized
	ContribFormed
	Deactivated
)

var stateNames = [...]string{
	Inactive:      "inactive",
	Activated:     "activated",
	Initialized:   "initialized",
	Assembled:     "assembled",
	Factorized:    "factorized",
	ContribFormed: "contrib-formed",
	Deactivated:   "deactivated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}

	return stateNames[s]
}

// Front is the numeric storage of one node of the elimination tree.
//
// Description:
//
//	A Front is created Inactive from its symbolic node. Activate fixes the
//	number of incoming delays and reserves LCol; the contribution tiles,
//	backup, column ledger and static blocks are reserved on request and
//	dropped by Deactivate. LCol, Perm and D survive deactivation when the
//	factor is kept for the solves.
//
// Thread Safety:
//
//	A Front is not synchronized. The orchestrator serializes every method
//	call through the node's task handle; tile contents may be written by
//	concurrent tasks that hold the tile handles.
type Front struct {
	Index     int
	Node      *symbolic.Node
	NCol      int
	NRow      int
	NDelayIn  int
	NDelayOut int
	NElim1    int // pivots from the blocked pass
	NElim     int // pivots in total, zero pivots included
	NZero     int
	NTwoByTwo int
	BlockSize int

	LCol []float64
	Perm []int
	D    []float64

	Backup *kernels.Backup
	CData  *kernels.ColumnData
	Blocks *kernels.Grid

	contrib [][]*Tile // contrib[J][I-J]
	alloc   memory.Allocator
	rt      task.Runtime
	state   State
}

// New returns an inactive front for node index of a tree.
// A nil allocator uses memory.Heap.
func New(index int, node *symbolic.Node, bs int, alloc memory.Allocator, rt task.Runtime) *Front {
	if alloc == nil {
		alloc = memory.Heap{}
	}

	return &Front{
		Index:     index,
		Node:      node,
		NCol:      node.NCol,
		NRow:      node.NRow,
		BlockSize: max(bs, 1),
		alloc:     alloc,
		rt:        rt,
	}
}

// State reports the lifecycle position.
func (f *Front) State() State { return f.state }

// SetState records a lifecycle transition made by the caller.
func (f *Front) SetState(s State) { f.state = s }

// NRowEff is the number of rows including incoming delays.
func (f *Front) NRowEff() int { return f.NRow + f.NDelayIn }

// NColEff is the number of fully-summed columns including incoming delays.
func (f *Front) NColEff() int { return f.NCol + f.NDelayIn }

// NR is the number of block rows of the static grid.
func (f *Front) NR() int { return kernels.CeilDiv(f.NRowEff(), f.BlockSize) }

// NC is the number of block columns of the static grid.
func (f *Front) NC() int { return kernels.CeilDiv(f.NColEff(), f.BlockSize) }

// LDL is the leading dimension of LCol.
func (f *Front) LDL() int { return kernels.Align(f.NRowEff()) }

// ContribSize is the order of the contribution block.
func (f *Front) ContribSize() int { return f.NRowEff() - f.NColEff() }

// Activate fixes the incoming delays and reserves a cleared LCol together
// with Perm and D.
func (f *Front) Activate(ndelayIn int) error {
	if ndelayIn < 0 {
		return frontErrorf(f.Index, "activate", fmt.Errorf("%w: %d delays", ErrOutOfRange, ndelayIn))
	}
	f.NDelayIn = ndelayIn
	n := f.NColEff()
	lcol, err := f.alloc.Alloc(f.LDL() * n)
	if err != nil {
		return frontErrorf(f.Index, "factor storage", err)
	}
	clear(lcol)
	f.LCol = lcol
	f.Perm = make([]int, n)
	f.D = make([]float64, 2*n)
	f.state = Activated

	return nil
}

// AllocateContribution reserves the contribution tiles, one runtime
// handle each. Nothing is reserved for an empty contribution block.
func (f *Front) AllocateContribution() error {
	if f.state == Inactive {
		return frontErrorf(f.Index, "contribution", ErrNotActivated)
	}
	nc := f.ContribSize()
	if nc <= 0 || f.contrib != nil {
		return nil
	}
	geom := kernels.NewGrid(nil, "", 0, f.BlockSize, f.BlockSize, nc, nc)
	f.contrib = make([][]*Tile, geom.Cols())
	for j := range f.contrib {
		f.contrib[j] = make([]*Tile, 0, geom.Rows()-j)
	}
	var err error
	geom.Each(func(b *kernels.Block) {
		if err != nil {
			return
		}
		t := &Tile{I: b.I, J: b.J, R0: b.R0, C0: b.C0, M: b.M, N: b.N}
		f.contrib[b.J] = append(f.contrib[b.J], t)
		err = t.Allocate(f.alloc, f.rt, fmt.Sprintf("contrib%d", f.Index))
	})
	if err != nil {
		f.ReleaseContribution()
		return frontErrorf(f.Index, "contribution", err)
	}

	return nil
}

// ReleaseContribution frees every contribution tile.
func (f *Front) ReleaseContribution() {
	for _, col := range f.contrib {
		for _, t := range col {
			t.Release()
		}
	}
	f.contrib = nil
}

// HasContribution reports whether contribution tiles are allocated.
func (f *Front) HasContribution() bool { return f.contrib != nil }

// ContribTile returns tile (i, j), i >= j, of the contribution grid.
func (f *Front) ContribTile(i, j int) *Tile { return f.contrib[j][i-j] }

// ContribTiles visits every contribution tile column by column.
func (f *Front) ContribTiles(fn func(*Tile)) {
	for _, col := range f.contrib {
		for _, t := range col {
			fn(t)
		}
	}
}

// ContribTileOf returns the index of the tile row (or column) holding
// contribution index k.
func (f *Front) ContribTileOf(k int) int { return k / f.BlockSize }

// Contribution reads entry (i, j) of the symmetric contribution block.
func (f *Front) Contribution(i, j int) (float64, error) {
	nc := f.ContribSize()
	if f.contrib == nil || i < 0 || j < 0 || i >= nc || j >= nc {
		return 0, frontErrorf(f.Index, "contribution", fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, i, j))
	}
	if i < j {
		i, j = j, i
	}
	t := f.ContribTile(i/f.BlockSize, j/f.BlockSize)

	return t.At(i-t.R0, j-t.C0), nil
}

// AllocateBackup reserves the kernel backup. NColEff must be final.
func (f *Front) AllocateBackup() error {
	if f.state == Inactive {
		return frontErrorf(f.Index, "backup", ErrNotActivated)
	}
	if f.Backup != nil {
		return nil
	}
	bk, err := kernels.NewBackup(f.alloc, f.NRowEff(), f.NColEff())
	if err != nil {
		return frontErrorf(f.Index, "backup", err)
	}
	f.Backup = bk

	return nil
}

// AllocateColumnData creates the per-window pivot ledger. NColEff must be final.
func (f *Front) AllocateColumnData() error {
	if f.state == Inactive {
		return frontErrorf(f.Index, "column data", ErrNotActivated)
	}
	f.CData = kernels.NewColumnData(f.NColEff(), f.BlockSize)

	return nil
}

// AllocateBlocks builds the static block views over LCol, each with its
// own handle.
func (f *Front) AllocateBlocks() error {
	if f.state == Inactive {
		return frontErrorf(f.Index, "blocks", ErrNotActivated)
	}
	if f.Blocks == nil {
		f.Blocks = kernels.NewGrid(f.rt, fmt.Sprintf("blk%d", f.Index), 0,
			f.BlockSize, f.BlockSize, f.NRowEff(), f.NColEff())
	}

	return nil
}

// Region exposes the fully-summed columns to the dense kernels.
func (f *Front) Region() *kernels.Region {
	return &kernels.Region{
		M:    f.NRowEff(),
		N:    f.NColEff(),
		A:    f.LCol,
		LD:   f.LDL(),
		Perm: f.Perm,
		D:    f.D,
	}
}

// GlobalRow maps local row r of an activated front to its global index.
// Rows below NColEff follow Perm; the others are the symbolic rows past
// the node's own columns.
func (f *Front) GlobalRow(r int) int {
	if r < f.NColEff() {
		return f.Perm[r]
	}

	return f.Node.Rows[f.NCol+r-f.NColEff()]
}

// Deactivate drops the working storage. With keepFactor unset LCol is
// released too.
func (f *Front) Deactivate(keepFactor bool) {
	f.ReleaseContribution()
	f.Backup.Release()
	f.Backup = nil
	f.Blocks.Release()
	f.Blocks = nil
	f.CData = nil
	if !keepFactor && f.LCol != nil {
		f.alloc.Free(f.LCol)
		f.LCol, f.Perm, f.D = nil, nil, nil
	}
	f.state = Deactivated
}

// FactorBytes is the size of the retained factor storage.
func (f *Front) FactorBytes() int64 {
	return 8*int64(len(f.LCol)+len(f.D)) + 8*int64(len(f.Perm))
}
