// SPDX-License-Identifier: MIT
package task_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/katalvlaran/spldlt/config"
	"github.com/katalvlaran/spldlt/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// runtimes returns one runtime of each strategy.
func runtimes(t *testing.T) map[string]task.Runtime {
	t.Helper()
	out := map[string]task.Runtime{
		"sequential": task.NewSequential(context.Background(), nil),
		"pool":       task.NewPool(context.Background(), 4, nil),
	}
	t.Cleanup(func() {
		for _, rt := range out {
			_ = rt.Close()
		}
	})

	return out
}

func TestFromOptions(t *testing.T) {
	t.Parallel()
	seq := task.FromOptions(context.Background(), config.New(config.WithExecutor(config.ExecutorSequential)))
	assert.IsType(t, &task.Sequential{}, seq)
	assert.Equal(t, 1, seq.Workers())

	pool := task.FromOptions(context.Background(), config.New(config.WithWorkers(3)))
	defer pool.Close()
	assert.IsType(t, &task.Pool{}, pool)
	assert.Equal(t, 3, pool.Workers())
}

func TestWritersKeepProgramOrder(t *testing.T) {
	t.Parallel()
	for name, rt := range runtimes(t) {
		t.Run(name, func(t *testing.T) {
			h := rt.Register("log")
			var got []int
			for i := 0; i < 100; i++ {
				rt.Submit(fmt.Sprintf("append-%d", i), func(context.Context) error {
					got = append(got, i)
					return nil
				}, task.RW(h))
			}
			require.NoError(t, rt.Wait())
			require.Len(t, got, 100)
			for i, v := range got {
				require.Equal(t, i, v)
			}
		})
	}
}

func TestReadersSeeLastWrite(t *testing.T) {
	t.Parallel()
	for name, rt := range runtimes(t) {
		t.Run(name, func(t *testing.T) {
			h := rt.Register("cell")
			var cell int64
			var sum atomic.Int64
			for round := 1; round <= 20; round++ {
				rt.Submit("write", func(context.Context) error {
					cell = int64(round)
					return nil
				}, task.W(h))
				for r := 0; r < 5; r++ {
					rt.Submit("read", func(context.Context) error {
						sum.Add(cell)
						return nil
					}, task.R(h))
				}
			}
			require.NoError(t, rt.Wait())
			// 5 readers per round observe exactly that round's value.
			assert.EqualValues(t, 5*20*21/2, sum.Load())
		})
	}
}

func TestPoolReadersRunConcurrently(t *testing.T) {
	t.Parallel()
	p := task.NewPool(context.Background(), 4, nil)
	defer p.Close()
	h := p.Register("shared")
	const readers = 4
	var arrived atomic.Int32
	var sawAll atomic.Int32
	for i := 0; i < readers; i++ {
		p.Submit("reader", func(context.Context) error {
			arrived.Add(1)
			deadline := time.Now().Add(2 * time.Second)
			for arrived.Load() < readers && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}
			if arrived.Load() == readers {
				sawAll.Add(1)
			}
			return nil
		}, task.R(h))
	}
	require.NoError(t, p.Wait())
	assert.EqualValues(t, readers, sawAll.Load())
}

func TestNestedGroupsDoNotStarve(t *testing.T) {
	t.Parallel()
	p := task.NewPool(context.Background(), 1, nil)
	defer p.Close()
	outer := p.Register("outer")
	var total atomic.Int64
	for f := 0; f < 3; f++ {
		p.Submit("front", func(context.Context) error {
			g := p.NewGroup()
			tile := p.Register("tile")
			defer p.Unregister(tile)
			for k := 0; k < 10; k++ {
				g.Submit("inner", func(context.Context) error {
					total.Add(1)
					return nil
				}, task.RW(tile))
			}
			return g.Wait()
		}, task.RW(outer))
	}
	require.NoError(t, p.Wait())
	assert.EqualValues(t, 30, total.Load())
}

func TestFirstErrorIsFatal(t *testing.T) {
	t.Parallel()
	for name, rt := range runtimes(t) {
		t.Run(name, func(t *testing.T) {
			h := rt.Register("h")
			var ran atomic.Bool
			rt.Submit("fails", func(context.Context) error { return errBoom }, task.W(h))
			rt.Submit("after", func(context.Context) error {
				ran.Store(true)
				return nil
			}, task.R(h))
			err := rt.Wait()
			require.ErrorIs(t, err, errBoom)
			assert.Contains(t, err.Error(), "fails")
			assert.False(t, ran.Load())
		})
	}
}

func TestPanicBecomesError(t *testing.T) {
	t.Parallel()
	for name, rt := range runtimes(t) {
		t.Run(name, func(t *testing.T) {
			rt.Submit("panics", func(context.Context) error { panic("bad index") })
			require.ErrorIs(t, rt.Wait(), task.ErrPanic)
		})
	}
}

func TestReleasedHandle(t *testing.T) {
	t.Parallel()
	for name, rt := range runtimes(t) {
		t.Run(name, func(t *testing.T) {
			h := rt.Register("gone")
			rt.Unregister(h)
			rt.Submit("uses-gone", func(context.Context) error { return nil }, task.R(h))
			require.ErrorIs(t, rt.Wait(), task.ErrHandleReleased)
		})
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, rt := range map[string]task.Runtime{
		"sequential": task.NewSequential(ctx, nil),
		"pool":       task.NewPool(ctx, 2, nil),
	} {
		t.Run(name, func(t *testing.T) {
			defer rt.Close()
			rt.Submit("never", func(context.Context) error { return nil })
			require.ErrorIs(t, rt.Wait(), context.Canceled)
		})
	}
}

func TestConcurrentSubmitters(t *testing.T) {
	t.Parallel()
	p := task.NewPool(context.Background(), 4, nil)
	defer p.Close()
	const num = 50
	handles := make([]*task.Handle, num)
	counts := make([]int, num)
	for i := range handles {
		handles[i] = p.Register(fmt.Sprintf("h%d", i))
	}
	var wg sync.WaitGroup
	wg.Add(num)
	for i := 0; i < num; i++ {
		go func(id int) {
			defer wg.Done()
			for k := 0; k < 20; k++ {
				p.Submit("inc", func(context.Context) error {
					counts[id]++
					return nil
				}, task.RW(handles[id]))
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, p.Wait())
	for i, c := range counts {
		assert.Equal(t, 20, c, "handle %d", i)
	}
}
