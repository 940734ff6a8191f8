package bitpack

import (
	"fmt"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Packer packs several fixed-width unsigned fields into one integer of type T.
// Field i occupies widths[i] bits starting at the sum of the widths before it.
// A Packer is immutable after New and safe to share between goroutines.
type Packer[T constraints.Unsigned] struct {
	widths  []uint8
	offsets []uint8
	masks   []T
}

// New builds a packer for the given field widths, lowest field first.
// It panics when the widths do not fit in T.
func New[T constraints.Unsigned](widths ...uint8) Packer[T] {
	size := bits.Len64(uint64(^T(0)))
	p := Packer[T]{
		widths:  make([]uint8, len(widths)),
		offsets: make([]uint8, len(widths)),
		masks:   make([]T, len(widths)),
	}
	total := 0
	for i, w := range widths {
		if w == 0 {
			panic(fmt.Sprintf("bitpack: field %d has zero width", i))
		}
		p.widths[i] = w
		p.offsets[i] = uint8(total)
		if int(w) >= size {
			p.masks[i] = ^T(0)
		} else {
			p.masks[i] = T(1)<<w - 1
		}
		total += int(w)
	}
	if total > size {
		panic(fmt.Sprintf("bitpack: fields need %d bits, integer has %d", total, size))
	}
	return p
}

// Fields returns the number of packed fields.
func (p Packer[T]) Fields() int { return len(p.widths) }

// Width returns the bit width of field i.
func (p Packer[T]) Width(i int) uint8 { return p.widths[i] }

// Offset returns the bit offset of field i.
func (p Packer[T]) Offset(i int) uint8 { return p.offsets[i] }

// MaxValue returns the largest value field i can hold.
func (p Packer[T]) MaxValue(i int) T { return p.masks[i] }

// Pack ORs v into field i of *dst. Other fields are left untouched, so callers
// start from a zeroed integer. It panics when v does not fit the field.
func (p Packer[T]) Pack(dst *T, i int, v T) {
	if v > p.masks[i] {
		panic(fmt.Sprintf("bitpack: value %d overflows field %d (max %d)", v, i, p.masks[i]))
	}
	*dst |= (v & p.masks[i]) << p.offsets[i]
}

// Set clears field i of *dst and packs v into it.
func (p Packer[T]) Set(dst *T, i int, v T) {
	*dst &^= p.masks[i] << p.offsets[i]
	p.Pack(dst, i, v)
}

// Unpack extracts field i from src.
func (p Packer[T]) Unpack(src T, i int) T {
	return (src >> p.offsets[i]) & p.masks[i]
}
