package numeric

import (
	"github.com/katalvlaran/spldlt/memory"
	"github.com/katalvlaran/spldlt/task"
)

// Option configures the collaborators of a Tree.
type Option func(*Tree)

// WithAllocator sets the storage policy of the fronts. Default memory.Heap.
func WithAllocator(a memory.Allocator) Option {
	if a == nil {
		panic("numeric: WithAllocator(nil)")
	}

	return func(t *Tree) { t.alloc = a }
}

// WithRuntime runs every factorization on rt instead of a runtime built
// from the options for each call. The caller keeps ownership of rt; its
// first task error stays recorded for later calls.
func WithRuntime(rt task.Runtime) Option {
	if rt == nil {
		panic("numeric: WithRuntime(nil)")
	}

	return func(t *Tree) { t.rt = rt }
}

// WithSubtreeFactorizer replaces InlineSubtrees as the handler of the
// subtrees flagged by the symbolic analysis.
func WithSubtreeFactorizer(s SubtreeFactorizer) Option {
	if s == nil {
		panic("numeric: WithSubtreeFactorizer(nil)")
	}

	return func(t *Tree) { t.sub = s }
}
