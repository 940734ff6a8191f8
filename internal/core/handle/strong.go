package handle

import (
	"fmt"

	"github.com/vortexengine/vortex/internal/core/bitpack"
)

// Field widths of Strong handles, lowest field first.
const (
	StrongIndexBits      = 24
	StrongGenerationBits = 8
)

// MaxStrongIndex is the largest slot index a Strong handle can address.
const MaxStrongIndex = 1<<StrongIndexBits - 1

// MaxStrongGeneration is the largest generation before wrapping to 0.
const MaxStrongGeneration = 1<<StrongGenerationBits - 1

var strongLayout = bitpack.New[uint32](StrongIndexBits, StrongGenerationBits)

// Strong is a handle to a value of type T issued by a StrongMap[T]. The type
// parameter only tags the handle so meshes and materials cannot be mixed up;
// the value itself is a packed index and generation.
type Strong[T any] uint32

// NewStrong composes a Strong handle. It panics when a field overflows.
func NewStrong[T any](index, generation uint32) Strong[T] {
	var v uint32
	strongLayout.Pack(&v, fieldIndex, index)
	strongLayout.Pack(&v, 1, generation)
	return Strong[T](v)
}

// FromRaw reinterprets a raw integer as a handle, e.g. one that went through Lua.
func FromRaw[T any](raw uint32) Strong[T] { return Strong[T](raw) }

func (h Strong[T]) Index() uint32      { return strongLayout.Unpack(uint32(h), fieldIndex) }
func (h Strong[T]) Generation() uint32 { return strongLayout.Unpack(uint32(h), 1) }
func (h Strong[T]) Raw() uint32        { return uint32(h) }
func (h Strong[T]) IsNull() bool       { return h == 0 }

func (h Strong[T]) String() string {
	if h.IsNull() {
		return "Strong(null)"
	}
	return fmt.Sprintf("Strong(%d:%d)", h.Index(), h.Generation())
}
