package memory_test

import (
	"sync"
	"testing"

	"github.com/katalvlaran/spldlt/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeap(t *testing.T) {
	t.Parallel()
	var h memory.Heap
	buf, err := h.Alloc(5)
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 5), buf)
	h.Free(buf)

	_, err = h.Alloc(-1)
	require.ErrorIs(t, err, memory.ErrNegativeSize)
}

func TestPoolReuseAndAccounting(t *testing.T) {
	t.Parallel()
	p := memory.NewPool(0)
	buf, err := p.Alloc(5)
	require.NoError(t, err)
	require.Len(t, buf, 5)
	assert.Equal(t, 8, cap(buf))
	assert.EqualValues(t, 64, p.InUse())

	p.Free(buf)
	assert.EqualValues(t, 0, p.InUse())
	assert.EqualValues(t, 64, p.Peak())

	empty, err := p.Alloc(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
	p.Free(nil)
}

func TestPoolBudget(t *testing.T) {
	t.Parallel()
	p := memory.NewPool(1024) // 128 float64
	a, err := p.Alloc(100)
	require.NoError(t, err)
	_, err = p.Alloc(1)
	require.ErrorIs(t, err, memory.ErrExhausted)
	p.Free(a)
	b, err := p.Alloc(128)
	require.NoError(t, err)
	p.Free(b)
	assert.EqualValues(t, 0, p.InUse())
}

func TestPoolConcurrent(t *testing.T) {
	t.Parallel()
	p := memory.NewPool(0)
	const num = 64
	var wg sync.WaitGroup
	wg.Add(num)
	for i := 0; i < num; i++ {
		go func(n int) {
			defer wg.Done()
			buf, err := p.Alloc(n + 1)
			assert.NoError(t, err)
			for k := range buf {
				buf[k] = float64(n)
			}
			p.Free(buf)
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 0, p.InUse())
}
