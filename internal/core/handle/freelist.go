package handle

import "container/heap"

// indexHeap is a min-heap of free slot indices, so StrongMap always reuses
// the lowest free slot and keeps the dense arrays compact at the front.
type indexHeap []uint32

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *indexHeap) Push(x any) { *h = append(*h, x.(uint32)) }

func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func (h *indexHeap) push(idx uint32) { heap.Push(h, idx) }
func (h *indexHeap) pop() uint32     { return heap.Pop(h).(uint32) }

// indexQueue is the FIFO free list of the fixed-capacity Map.
type indexQueue struct {
	items []uint32
	head  int
}

func (q *indexQueue) Len() int { return len(q.items) - q.head }

func (q *indexQueue) push(idx uint32) { q.items = append(q.items, idx) }

func (q *indexQueue) pop() uint32 {
	idx := q.items[q.head]
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return idx
}
