// Package reorder provides a buffer that re-sequences out-of-order items
// by sequence number. Fetch workers complete in arbitrary order; the
// coordinator pushes their results here and pops them back in sequence.
package reorder

import "container/heap"

// Compile time check to ensure itemHeap satisfies the heap interface.
var _ heap.Interface = (*itemHeap[struct{}])(nil)

type item[T any] struct {
	seq   int
	value T
}

type itemHeap[T any] []item[T]

func (h itemHeap[T]) Len() int           { return len(h) }
func (h itemHeap[T]) Less(i, j int) bool { return h[i].seq < h[j].seq }
func (h itemHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *itemHeap[T]) Push(x any) {
	it, _ := x.(item[T])
	*h = append(*h, it)
}

func (h *itemHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = item[T]{} // Avoid memory leak
	*h = old[:n-1]
	return it
}

// Buffer holds out-of-order items until their turn comes up. Sequence
// numbers start at 0 and must be dense: every sequence number is pushed
// exactly once.
type Buffer[T any] struct {
	h    itemHeap[T]
	next int
}

// New creates an empty Buffer expecting sequence numbers from 0.
func New[T any]() *Buffer[T] {
	return &Buffer[T]{}
}

// Push adds an item with its sequence number.
func (b *Buffer[T]) Push(seq int, value T) {
	heap.Push(&b.h, item[T]{seq: seq, value: value})
}

// Pop returns the next in-sequence item, if it has arrived.
func (b *Buffer[T]) Pop() (T, bool) {
	var zero T
	if len(b.h) == 0 || b.h[0].seq != b.next {
		return zero, false
	}
	it, _ := heap.Pop(&b.h).(item[T])
	b.next++
	return it.value, true
}

// Pending returns the number of buffered out-of-order items.
func (b *Buffer[T]) Pending() int { return len(b.h) }
