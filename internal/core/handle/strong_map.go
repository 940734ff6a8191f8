package handle

import "fmt"

// Store is the access surface shared by StrongMap and its decorators.
type Store[T any] interface {
	Insert(v T) (Strong[T], error)
	Destroy(h Strong[T]) bool
	Get(h Strong[T]) *T
	GetIf(h Strong[T]) (*T, bool)
	Contains(h Strong[T]) bool
	Len() int
	Each(fn func(Strong[T], *T))
}

// StrongMap stores values of type T in a dense slice with a parallel
// generation array. Slots grow on demand; freed slots are reused lowest index
// first. Index 0 is a permanent placeholder so the zero handle is never valid.
//
// Not safe for concurrent use.
type StrongMap[T any] struct {
	values      []T
	generations []uint32
	free        indexHeap
	nextIndex   uint32
	maxIndex    uint32
	live        int
}

// Option configures a StrongMap.
type Option func(*mapOptions)

type mapOptions struct {
	maxIndex uint32
	capacity int
}

// WithMaxIndex caps the highest slot index the map hands out. Callers that
// re-encode the index into narrower fields (sort keys) use it to stay in range.
func WithMaxIndex(max uint32) Option {
	return func(o *mapOptions) {
		if max < MaxStrongIndex {
			o.maxIndex = max
		}
	}
}

// WithCapacity preallocates room for n values.
func WithCapacity(n int) Option {
	return func(o *mapOptions) { o.capacity = n }
}

// NewStrongMap creates an empty map.
func NewStrongMap[T any](opts ...Option) *StrongMap[T] {
	o := mapOptions{maxIndex: MaxStrongIndex, capacity: 64}
	for _, opt := range opts {
		opt(&o)
	}
	m := &StrongMap[T]{
		values:      make([]T, 1, o.capacity+1),
		generations: make([]uint32, 1, o.capacity+1),
		nextIndex:   1,
		maxIndex:    o.maxIndex,
	}
	return m
}

// Insert stores v and returns a handle to it. Handles to other slots stay valid.
func (m *StrongMap[T]) Insert(v T) (Strong[T], error) {
	var idx uint32
	switch {
	case m.free.Len() > 0:
		idx = m.free.pop()
	case m.nextIndex <= m.maxIndex:
		idx = m.nextIndex
		m.nextIndex++
		m.values = append(m.values, v)
		m.generations = append(m.generations, 0)
	default:
		return 0, ErrCapacity
	}
	m.values[idx] = v
	m.live++
	return NewStrong[T](idx, m.generations[idx]), nil
}

// Destroy releases the slot behind h. Stale or already destroyed handles are
// ignored and Destroy reports false.
func (m *StrongMap[T]) Destroy(h Strong[T]) bool {
	if !m.Contains(h) {
		return false
	}
	idx := h.Index()
	var zero T
	m.values[idx] = zero
	m.generations[idx] = nextGeneration(m.generations[idx], MaxStrongGeneration)
	m.free.push(idx)
	m.live--
	return true
}

// Contains reports whether h refers to a live slot.
func (m *StrongMap[T]) Contains(h Strong[T]) bool {
	idx := h.Index()
	if idx == 0 || idx >= m.nextIndex {
		return false
	}
	return m.generations[idx] == h.Generation()
}

// GetIf returns a pointer to the value behind h, or false if h is invalid.
// The pointer is valid until the next Insert.
func (m *StrongMap[T]) GetIf(h Strong[T]) (*T, bool) {
	if !m.Contains(h) {
		return nil, false
	}
	return &m.values[h.Index()], true
}

// Get returns a pointer to the value behind h and panics if h is invalid.
func (m *StrongMap[T]) Get(h Strong[T]) *T {
	v, ok := m.GetIf(h)
	if !ok {
		panic(fmt.Errorf("%w: %s", ErrInvalid, h))
	}
	return v
}

// Len returns the number of live values.
func (m *StrongMap[T]) Len() int { return m.live }

// Each calls fn for every live value in index order.
func (m *StrongMap[T]) Each(fn func(Strong[T], *T)) {
	free := make(map[uint32]bool, m.free.Len())
	for _, idx := range m.free {
		free[idx] = true
	}
	for idx := uint32(1); idx < m.nextIndex; idx++ {
		if free[idx] {
			continue
		}
		fn(NewStrong[T](idx, m.generations[idx]), &m.values[idx])
	}
}
