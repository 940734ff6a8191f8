// Package drawcall encodes draw commands into 64-bit sort keys. Sorting keys
// numerically groups commands by the state that is most expensive to change:
// view first, then layer, blend mode, and finally material and depth.
//
// Layout, high bits to low:
//
//	opaque:       view 8 | layer 2 | blend 2 | material 20 | depth 32
//	translucent:  view 8 | layer 2 | blend 2 | depth 32 (far first) | material 20
//	post-process: view 8 | layer 2 | blend 2 | effect 20 | 0
//
// View, layer and blend sit at the same position in every layout so they can
// be read without knowing which layout is in use.
package drawcall

import (
	"fmt"
	"math"

	"github.com/vortexengine/vortex/internal/core/bitpack"
)

// Key is a packed draw-call sort key.
type Key uint64

// Layer selects the pass semantics of a draw within a view.
type Layer uint8

const (
	LayerWorld Layer = iota
	LayerPostProcess
	LayerHUD
)

func (l Layer) String() string {
	switch l {
	case LayerWorld:
		return "world"
	case LayerPostProcess:
		return "postprocess"
	case LayerHUD:
		return "hud"
	default:
		return fmt.Sprintf("Layer(%d)", uint8(l))
	}
}

// ParseLayer maps a manifest name to a Layer.
func ParseLayer(s string) (Layer, error) {
	switch s {
	case "", "world":
		return LayerWorld, nil
	case "postprocess":
		return LayerPostProcess, nil
	case "hud":
		return LayerHUD, nil
	}
	return 0, fmt.Errorf("unknown view layer %q", s)
}

// BlendMode is the framebuffer blend function of a material.
type BlendMode uint8

const (
	BlendOpaque BlendMode = iota
	BlendAdditive
	BlendSubtractive
	BlendAlpha
)

// Translucent reports whether draws with this mode must be depth sorted back to front.
func (b BlendMode) Translucent() bool { return b != BlendOpaque }

func (b BlendMode) String() string {
	switch b {
	case BlendOpaque:
		return "opaque"
	case BlendAdditive:
		return "additive"
	case BlendSubtractive:
		return "subtractive"
	case BlendAlpha:
		return "alpha"
	default:
		return fmt.Sprintf("BlendMode(%d)", uint8(b))
	}
}

// ParseBlendMode maps a manifest name to a BlendMode.
func ParseBlendMode(s string) (BlendMode, error) {
	switch s {
	case "", "opaque":
		return BlendOpaque, nil
	case "additive":
		return BlendAdditive, nil
	case "subtractive":
		return BlendSubtractive, nil
	case "alpha":
		return BlendAlpha, nil
	}
	return 0, fmt.Errorf("unknown blend mode %q", s)
}

const (
	viewBits     = 8
	layerBits    = 2
	blendBits    = 2
	materialBits = 20
	depthBits    = 32
)

// Largest indices that fit in a key.
const (
	MaxView     = 1<<viewBits - 1
	MaxMaterial = 1<<materialBits - 1
)

// Field indices, lowest bits first.
const (
	opaqueDepth = iota
	opaqueMaterial
	fieldBlend
	fieldLayer
	fieldView
)

const (
	translucentMaterial = iota
	translucentDepth
)

var (
	opaqueLayout      = bitpack.New[uint64](depthBits, materialBits, blendBits, layerBits, viewBits)
	translucentLayout = bitpack.New[uint64](materialBits, depthBits, blendBits, layerBits, viewBits)
)

// Encode builds the key for a draw in view with the given material and depth.
// Submission usually passes depth 0 and patches it later with SetDepth.
func Encode(view uint32, layer Layer, blend BlendMode, material uint32, depth float32) Key {
	var k uint64
	opaqueLayout.Pack(&k, fieldView, uint64(view))
	opaqueLayout.Pack(&k, fieldLayer, uint64(layer))
	opaqueLayout.Pack(&k, fieldBlend, uint64(blend))
	if blend.Translucent() {
		translucentLayout.Pack(&k, translucentMaterial, uint64(material))
		translucentLayout.Pack(&k, translucentDepth, uint64(^depthBitsOf(depth)))
	} else {
		opaqueLayout.Pack(&k, opaqueMaterial, uint64(material))
		opaqueLayout.Pack(&k, opaqueDepth, uint64(depthBitsOf(depth)))
	}
	return Key(k)
}

// EncodePostProcess builds the key for a full-screen effect pass in view.
func EncodePostProcess(view uint32, effect uint32) Key {
	var k uint64
	opaqueLayout.Pack(&k, fieldView, uint64(view))
	opaqueLayout.Pack(&k, fieldLayer, uint64(LayerPostProcess))
	opaqueLayout.Pack(&k, opaqueMaterial, uint64(effect))
	return Key(k)
}

// Decode returns the blend mode, material index and depth of a draw key. The
// blend field picks which layout the remaining fields are read with.
func Decode(k Key) (blend BlendMode, material uint32, depth float32) {
	blend = Blending(k)
	if blend.Translucent() {
		material = uint32(translucentLayout.Unpack(uint64(k), translucentMaterial))
		depth = math.Float32frombits(^uint32(translucentLayout.Unpack(uint64(k), translucentDepth)))
		return blend, material, depth
	}
	material = uint32(opaqueLayout.Unpack(uint64(k), opaqueMaterial))
	depth = math.Float32frombits(uint32(opaqueLayout.Unpack(uint64(k), opaqueDepth)))
	return blend, material, depth
}

// PostProcessIndex returns the effect index of a post-process key.
func PostProcessIndex(k Key) uint32 {
	return uint32(opaqueLayout.Unpack(uint64(k), opaqueMaterial))
}

func ViewIndex(k Key) uint32   { return uint32(opaqueLayout.Unpack(uint64(k), fieldView)) }
func ViewLayer(k Key) Layer    { return Layer(opaqueLayout.Unpack(uint64(k), fieldLayer)) }
func Blending(k Key) BlendMode { return BlendMode(opaqueLayout.Unpack(uint64(k), fieldBlend)) }

// MaterialIndex returns the material index of a draw key in either layout.
func MaterialIndex(k Key) uint32 {
	_, m, _ := Decode(k)
	return m
}

// SetDepth replaces only the depth field of k.
func SetDepth(k *Key, depth float32) {
	v := uint64(*k)
	if Blending(*k).Translucent() {
		translucentLayout.Set(&v, translucentDepth, uint64(^depthBitsOf(depth)))
	} else {
		opaqueLayout.Set(&v, opaqueDepth, uint64(depthBitsOf(depth)))
	}
	*k = Key(v)
}

func (k Key) String() string {
	if ViewLayer(k) == LayerPostProcess {
		return fmt.Sprintf("Key(view=%d postprocess effect=%d)", ViewIndex(k), PostProcessIndex(k))
	}
	blend, material, depth := Decode(k)
	return fmt.Sprintf("Key(view=%d %s %s material=%d depth=%g)", ViewIndex(k), ViewLayer(k), blend, material, depth)
}

// depthBitsOf maps a distance to an integer that sorts like the distance.
// Non-negative IEEE floats already do; negatives and NaN collapse to 0.
func depthBitsOf(depth float32) uint32 {
	if !(depth > 0) {
		return 0
	}
	return math.Float32bits(depth)
}
