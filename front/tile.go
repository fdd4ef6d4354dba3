package front

import (
	"fmt"

	"github.com/katalvlaran/spldlt/kernels"
	"github.com/katalvlaran/spldlt/memory"
	"github.com/katalvlaran/spldlt/task"
)

// Tile is one block (I, J) of a contribution grid: rows [R0, R0+M) and
// columns [C0, C0+N) relative to the contribution block.
type Tile struct {
	I, J   int
	R0, C0 int
	M, N   int
	LD     int
	Data   []float64
	Handle *task.Handle

	alloc memory.Allocator
	rt    task.Runtime
}

// Allocate reserves LD×N values and registers the tile's handle.
// An empty tile gets a handle but no storage.
func (t *Tile) Allocate(alloc memory.Allocator, rt task.Runtime, name string) error {
	t.LD = kernels.Align(t.M)
	if t.M > 0 && t.N > 0 {
		data, err := alloc.Alloc(t.LD * t.N)
		if err != nil {
			return fmt.Errorf("tile %s(%d,%d): %w", name, t.I, t.J, err)
		}
		t.Data = data
	}
	t.alloc, t.rt = alloc, rt
	if rt != nil {
		t.Handle = rt.Register(fmt.Sprintf("%s(%d,%d)", name, t.I, t.J))
	}

	return nil
}

// Release frees the storage and unregisters the handle. Calling it again is a no-op.
func (t *Tile) Release() {
	if t.Data != nil {
		t.alloc.Free(t.Data)
		t.Data = nil
	}
	if t.Handle != nil {
		t.rt.Unregister(t.Handle)
		t.Handle = nil
	}
}

// ZeroFill clears the tile.
func (t *Tile) ZeroFill() { clear(t.Data) }

// At returns the tile-local entry (i, j).
func (t *Tile) At(i, j int) float64 { return t.Data[j*t.LD+i] }

// Add accumulates v into the tile-local entry (i, j).
func (t *Tile) Add(i, j int, v float64) { t.Data[j*t.LD+i] += v }
