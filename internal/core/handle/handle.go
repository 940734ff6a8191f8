// Package handle implements generation-tagged identifiers and the slot maps
// that issue them. A handle stays comparable and copyable like an integer, but
// the map that issued it can tell when the slot behind it has been destroyed,
// even after the slot is reused.
package handle

import (
	"errors"
	"fmt"

	"github.com/vortexengine/vortex/internal/core/bitpack"
)

var (
	// ErrCapacity is returned by Insert when no slot index is left.
	ErrCapacity = errors.New("handle: map capacity exhausted")
	// ErrInvalid reports a handle whose slot was destroyed or never issued.
	ErrInvalid = errors.New("handle: invalid handle")
)

// Field widths of the multi-type Handle, lowest field first.
const (
	IndexBits      = 10
	TypeBits       = 4
	GenerationBits = 18
)

const (
	fieldIndex = iota
	fieldType
	fieldGeneration
)

var layout = bitpack.New[uint32](IndexBits, TypeBits, GenerationBits)

// Handle identifies a slot in a Map. It packs index, type tag and generation
// into one uint32. The zero value is Null and is never issued.
type Handle uint32

// Null is the reserved empty handle.
const Null Handle = 0

// MaxGeneration is the largest generation a Handle can carry before wrapping.
const MaxGeneration = 1<<GenerationBits - 1

// New composes a handle from its fields. It panics when a field overflows.
func New(index uint32, typ uint8, generation uint32) Handle {
	var v uint32
	layout.Pack(&v, fieldIndex, index)
	layout.Pack(&v, fieldType, uint32(typ))
	layout.Pack(&v, fieldGeneration, generation)
	return Handle(v)
}

func (h Handle) Index() uint32      { return layout.Unpack(uint32(h), fieldIndex) }
func (h Handle) Type() uint8        { return uint8(layout.Unpack(uint32(h), fieldType)) }
func (h Handle) Generation() uint32 { return layout.Unpack(uint32(h), fieldGeneration) }
func (h Handle) IsNull() bool       { return h == Null }

func (h Handle) String() string {
	if h.IsNull() {
		return "Handle(null)"
	}
	return fmt.Sprintf("Handle(%d:%d t%d)", h.Index(), h.Generation(), h.Type())
}

// nextGeneration bumps g, wrapping to 0 at max instead of carrying into a
// neighbouring field.
func nextGeneration(g, max uint32) uint32 {
	if g >= max {
		return 0
	}
	return g + 1
}
