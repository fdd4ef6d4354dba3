// Package memory is the allocation policy consumed by fronts and tiles.
//
// Allocator hands out float64 buffers. Two implementations are provided:
//
//   - Heap: plain make; buffers are zeroed and Free is a no-op.
//   - Pool: size-classed reuse through sync.Pool with an optional byte
//     budget. Reused buffers are NOT zeroed, and exceeding the budget
//     returns ErrExhausted, which the factorization treats as fatal.
package memory
