// SPDX-License-Identifier: MIT
package kernels_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/spldlt/kernels"
	"github.com/katalvlaran/spldlt/task"
)

func TestCeilDivAlign(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, kernels.CeilDiv(0, 4))
	assert.Equal(t, 1, kernels.CeilDiv(1, 4))
	assert.Equal(t, 2, kernels.CeilDiv(5, 4))
	assert.Equal(t, int64(3), kernels.CeilDiv(int64(9), int64(4)))
	assert.Equal(t, 0, kernels.Align(0))
	assert.Equal(t, 4, kernels.Align(3))
	assert.Equal(t, 8, kernels.Align(8))
}

func TestGridWindowBoundaries(t *testing.T) {
	t.Parallel()
	// Window at column 5 of width 3, then steps of 4; 12 columns, 20 rows.
	g := kernels.NewGrid(nil, "w", 5, 3, 4, 20, 12)
	require.Equal(t, 2, g.Cols())
	require.Equal(t, 4, g.Rows())

	d := g.At(0, 0)
	assert.Equal(t, [4]int{5, 5, 3, 3}, [4]int{d.R0, d.C0, d.M, d.N})
	d = g.At(1, 1)
	assert.Equal(t, [4]int{8, 8, 4, 4}, [4]int{d.R0, d.C0, d.M, d.N})
	b := g.At(2, 0)
	assert.Equal(t, [4]int{12, 5, 4, 3}, [4]int{b.R0, b.C0, b.M, b.N})
	b = g.At(3, 1)
	assert.Equal(t, [4]int{16, 8, 4, 4}, [4]int{b.R0, b.C0, b.M, b.N})
	assert.Equal(t, 8*10+16, b.Off(10))

	count := 0
	g.Each(func(*kernels.Block) { count++ })
	assert.Equal(t, 4+3, count)
	g.Release()
}

func TestGridHandles(t *testing.T) {
	t.Parallel()
	rt := task.NewSequential(context.Background(), nil)
	g := kernels.NewGrid(rt, "front", 0, 2, 2, 3, 3)
	b := g.At(1, 0)
	require.NotNil(t, b.H)
	assert.Equal(t, "front(1,0)", b.H.Name())
	g.Release()
	assert.Nil(t, b.H)
}

func TestColumnData(t *testing.T) {
	t.Parallel()
	cd := kernels.NewColumnData(10, 4)
	s := cd.Begin(0, 4)
	s.UpdatePassed(10)
	assert.Zero(t, s.Passed())
	cd.Begin(4, 4)
	assert.Len(t, cd.Steps(), 2)
	assert.Zero(t, cd.Eliminated())
	cd.Reset()
	assert.Empty(t, cd.Steps())
}
