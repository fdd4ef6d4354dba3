// SPDX-License-Identifier: MIT

package task

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// node is one submitted task inside a Pool.
type node struct {
	name string
	fn   Func
	g    *poolGroup
	deps int     // unfinished predecessors
	succ []*node // tasks waiting on this one
	done bool
	pre  error // failure detected at submission
}

// poolGroup counts the unfinished tasks of one group.
type poolGroup struct {
	p       *Pool
	pending int
}

// Pool runs tasks on a fixed set of workers with handle-based dependencies.
//
// Description:
//
//	Submit links the new task behind the last writer of every handle it
//	touches and, for writes, behind every reader since that writer. Tasks
//	whose predecessor count drops to zero enter a FIFO ready queue served
//	by the workers and by any goroutine blocked in Group.Wait.
//
// Thread Safety:
//
//	All methods are safe for concurrent use, including from inside tasks.
type Pool struct {
	ctx     context.Context
	logger  *slog.Logger
	workers int

	mu     sync.Mutex
	cond   *sync.Cond
	ready  []*node
	closed bool
	err    error

	root *poolGroup
	eg   errgroup.Group
	in   instruments
}

// NewPool starts workers goroutines (GOMAXPROCS when workers <= 0).
func NewPool(ctx context.Context, workers int, logger *slog.Logger) *Pool {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{ctx: ctx, logger: logger, workers: workers}
	p.cond = sync.NewCond(&p.mu)
	p.root = &poolGroup{p: p}
	p.in.init(logger, "pool")
	for i := 0; i < workers; i++ {
		p.eg.Go(p.work)
	}
	logger.Debug("task pool started", slog.Int("workers", workers))

	return p
}

// Register creates a handle.
func (p *Pool) Register(name string) *Handle { return newHandle(name) }

// Unregister retires h and drops its tracking state.
func (p *Pool) Unregister(h *Handle) {
	if h == nil {
		return
	}
	p.mu.Lock()
	h.released = true
	h.lastWriter, h.readers = nil, nil
	p.mu.Unlock()
}

// Submit enqueues a task on the root group.
func (p *Pool) Submit(name string, fn Func, acc ...Access) { p.root.Submit(name, fn, acc...) }

// Wait blocks until every root-group task has finished.
func (p *Pool) Wait() error { return p.root.Wait() }

// NewGroup opens a sub-group.
func (p *Pool) NewGroup() Group { return &poolGroup{p: p} }

// Workers reports the number of worker goroutines.
func (p *Pool) Workers() int { return p.workers }

// Close drains the root group, stops the workers and returns the first error.
func (p *Pool) Close() error {
	err := p.Wait()
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	_ = p.eg.Wait()

	return err
}

// Submit links the task into the graph.
// Implementation:
//   - Stage 1: for each access, depend on the handle's last unfinished writer.
//   - Stage 2: writes also depend on unfinished readers and become the new
//     last writer; reads join the reader list.
//   - Stage 3: a task without predecessors is queued immediately.
//
// Complexity:
//   - Time O(len(acc) + readers), Space O(edges).
func (g *poolGroup) Submit(name string, fn Func, acc ...Access) {
	p := g.p
	t := &node{name: name, fn: fn, g: g}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		t.pre = ErrClosed
	}
	for _, a := range acc {
		h := a.H
		if h == nil || h.released {
			t.pre = fmt.Errorf("%w: %s", ErrHandleReleased, name)
			continue
		}
		if w := h.lastWriter; w != nil && !w.done {
			link(w, t)
		}
		if a.Mode&Write == 0 {
			h.readers = append(h.readers, t)
			continue
		}
		for _, r := range h.readers {
			if !r.done {
				link(r, t)
			}
		}
		h.lastWriter, h.readers = t, h.readers[:0]
	}
	g.pending++
	if t.deps == 0 {
		p.ready = append(p.ready, t)
		p.cond.Broadcast()
	}
}

// Wait executes ready tasks while the group still has unfinished ones.
func (g *poolGroup) Wait() error {
	p := g.p
	p.mu.Lock()
	for g.pending > 0 {
		if len(p.ready) > 0 {
			t := p.pop()
			p.mu.Unlock()
			p.run(t)
			p.mu.Lock()
			continue
		}
		p.cond.Wait()
	}
	err := p.err
	p.mu.Unlock()

	return err
}

func link(from, to *node) {
	if from == to {
		return
	}
	from.succ = append(from.succ, to)
	to.deps++
}

// pop removes the oldest ready task. Caller holds p.mu.
func (p *Pool) pop() *node {
	t := p.ready[0]
	p.ready[0] = nil
	p.ready = p.ready[1:]

	return t
}

// work is the worker loop.
func (p *Pool) work() error {
	p.mu.Lock()
	for {
		for len(p.ready) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.ready) == 0 {
			p.mu.Unlock()
			return nil
		}
		t := p.pop()
		p.mu.Unlock()
		p.run(t)
		p.mu.Lock()
	}
}

// run executes t (or skips it after a failure) and releases its successors.
func (p *Pool) run(t *node) {
	p.mu.Lock()
	err, skip := t.pre, p.err != nil
	p.mu.Unlock()
	if err == nil && !skip {
		if cerr := p.ctx.Err(); cerr != nil {
			err = cerr
		} else {
			err = p.in.observe(p.ctx, func() error { return call(p.ctx, t.name, t.fn) })
		}
	}

	p.mu.Lock()
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("task %s: %w", t.name, err)
		logFailure(p.logger, "pool", t.name, err)
	}
	t.done = true
	for _, s := range t.succ {
		s.deps--
		if s.deps == 0 {
			p.ready = append(p.ready, s)
		}
	}
	t.succ, t.fn = nil, nil
	t.g.pending--
	p.cond.Broadcast()
	p.mu.Unlock()
}
