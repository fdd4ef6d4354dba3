package memory

import (
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"
)

// Allocator provides float64 storage.
type Allocator interface {
	// Alloc returns a slice of length n. Contents are unspecified.
	Alloc(n int) ([]float64, error)
	// Free returns buf to the allocator. Free(nil) is a no-op.
	Free(buf []float64)
}

// Heap allocates with make.
type Heap struct{}

// Alloc returns a zeroed slice.
func (Heap) Alloc(n int) ([]float64, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}

	return make([]float64, n), nil
}

// Free does nothing; the garbage collector reclaims buf.
func (Heap) Free([]float64) {}

// numClasses covers buffers up to 2^47 elements.
const numClasses = 48

// Pool reuses buffers by power-of-two size class under a byte budget.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Pool struct {
	limit   int64 // bytes, 0 = unlimited
	inUse   atomic.Int64
	peak    atomic.Int64
	classes [numClasses]sync.Pool
}

// NewPool returns a pooled allocator; limitBytes <= 0 disables the budget.
func NewPool(limitBytes int64) *Pool {
	if limitBytes < 0 {
		limitBytes = 0
	}

	return &Pool{limit: limitBytes}
}

// class returns the size class holding n elements.
func class(n int) int {
	if n <= 1 {
		return 0
	}

	return bits.Len(uint(n - 1))
}

// Alloc returns a buffer of length n whose capacity is the class size.
// Errors:
//   - ErrNegativeSize for n < 0.
//   - ErrExhausted when the budget would be exceeded.
func (p *Pool) Alloc(n int) ([]float64, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	if n == 0 {
		return nil, nil
	}
	c := class(n)
	if c >= numClasses {
		return nil, fmt.Errorf("%w: %d elements", ErrExhausted, n)
	}
	size := int64(8) << c
	used := p.inUse.Add(size)
	if p.limit > 0 && used > p.limit {
		p.inUse.Add(-size)
		return nil, fmt.Errorf("%w: need %d bytes, %d of %d in use", ErrExhausted, size, used-size, p.limit)
	}
	for {
		old := p.peak.Load()
		if used <= old || p.peak.CompareAndSwap(old, used) {
			break
		}
	}
	if v := p.classes[c].Get(); v != nil {
		buf := *(v.(*[]float64))
		return buf[:n], nil
	}

	return make([]float64, n, 1<<c), nil
}

// Free returns buf to its size class.
func (p *Pool) Free(buf []float64) {
	if cap(buf) == 0 {
		return
	}
	c := class(cap(buf))
	if 1<<c != cap(buf) {
		return // not ours
	}
	p.inUse.Add(-(int64(8) << c))
	buf = buf[:cap(buf)]
	p.classes[c].Put(&buf)
}

// InUse returns the bytes currently handed out.
func (p *Pool) InUse() int64 { return p.inUse.Load() }

// Peak returns the largest InUse observed.
func (p *Pool) Peak() int64 { return p.peak.Load() }
