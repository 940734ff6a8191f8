package handle

import "fmt"

// Variant is implemented by every payload type a Map can hold. The tag is
// stored in the handle's type field and must fit in TypeBits.
type Variant interface {
	VariantTag() uint8
}

// Capacity is the fixed slot count of a Map, including the reserved slot 0.
const Capacity = 1 << IndexBits

// Map is the fixed-capacity, multi-type slot map. All slots are allocated up
// front; freed indices are reused in FIFO order. The handle carries the type
// tag of the stored value so typed access can be checked without a lookup.
//
// Not safe for concurrent use.
type Map[V Variant] struct {
	values      []V
	generations []uint32
	used        []bool
	free        indexQueue
	nextIndex   uint32
	live        int
}

// NewMap creates an empty map pre-sized to Capacity slots.
func NewMap[V Variant]() *Map[V] {
	return &Map[V]{
		values:      make([]V, Capacity),
		generations: make([]uint32, Capacity),
		used:        make([]bool, Capacity),
		nextIndex:   1,
	}
}

// Insert stores v and returns its handle.
func (m *Map[V]) Insert(v V) (Handle, error) {
	tag := v.VariantTag()
	if uint32(tag) > layout.MaxValue(fieldType) {
		panic(fmt.Sprintf("handle: variant tag %d does not fit %d bits", tag, TypeBits))
	}
	var idx uint32
	switch {
	case m.free.Len() > 0:
		idx = m.free.pop()
	case m.nextIndex < Capacity:
		idx = m.nextIndex
		m.nextIndex++
	default:
		return Null, ErrCapacity
	}
	m.values[idx] = v
	m.used[idx] = true
	m.live++
	return New(idx, tag, m.generations[idx]), nil
}

// Destroy releases the slot behind h; stale handles are a no-op.
func (m *Map[V]) Destroy(h Handle) bool {
	if !m.Contains(h) {
		return false
	}
	idx := h.Index()
	var zero V
	m.values[idx] = zero
	m.used[idx] = false
	m.generations[idx] = nextGeneration(m.generations[idx], MaxGeneration)
	m.free.push(idx)
	m.live--
	return true
}

// Contains reports whether h refers to a live slot holding a value of h's type.
func (m *Map[V]) Contains(h Handle) bool {
	idx := h.Index()
	if idx == 0 || idx >= m.nextIndex || !m.used[idx] || m.generations[idx] != h.Generation() {
		return false
	}
	return m.values[idx].VariantTag() == h.Type()
}

// GetIf returns the value behind h, or false when h is invalid.
func (m *Map[V]) GetIf(h Handle) (V, bool) {
	if !m.Contains(h) {
		var zero V
		return zero, false
	}
	return m.values[h.Index()], true
}

// Get returns the value behind h and panics when h is invalid.
func (m *Map[V]) Get(h Handle) V {
	v, ok := m.GetIf(h)
	if !ok {
		panic(fmt.Errorf("%w: %s", ErrInvalid, h))
	}
	return v
}

// Len returns the number of live values.
func (m *Map[V]) Len() int { return m.live }

// Is reports whether h is live and holds a T.
func Is[T Variant, V Variant](m *Map[V], h Handle) bool {
	_, ok := GetAs[T](m, h)
	return ok
}

// GetAs returns the value behind h as a T. It fails when h is stale or the
// slot holds a different variant.
func GetAs[T Variant, V Variant](m *Map[V], h Handle) (T, bool) {
	v, ok := m.GetIf(h)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := any(v).(T)
	return t, ok
}

// MustGetAs is GetAs that panics on a stale handle or wrong variant.
func MustGetAs[T Variant, V Variant](m *Map[V], h Handle) T {
	t, ok := GetAs[T](m, h)
	if !ok {
		var zero T
		panic(fmt.Errorf("%w: %s is not a live %T", ErrInvalid, h, zero))
	}
	return t
}
