package drawcall

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpaqueRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		view     uint32
		layer    Layer
		material uint32
		depth    float32
	}{
		{0, LayerWorld, 0, 0},
		{1, LayerWorld, 7, 12.5},
		{MaxView, LayerHUD, MaxMaterial, 1e30},
		{42, LayerHUD, 1234, 0.001},
	} {
		k := Encode(tc.view, tc.layer, BlendOpaque, tc.material, tc.depth)
		blend, material, depth := Decode(k)
		assert.Equal(t, BlendOpaque, blend)
		assert.Equal(t, tc.material, material)
		assert.Equal(t, tc.depth, depth)
		assert.Equal(t, tc.view, ViewIndex(k))
		assert.Equal(t, tc.layer, ViewLayer(k))
	}
}

func TestTranslucentRoundTrip(t *testing.T) {
	for _, blend := range []BlendMode{BlendAdditive, BlendSubtractive, BlendAlpha} {
		k := Encode(3, LayerWorld, blend, 99, 4.25)
		b, material, depth := Decode(k)
		assert.Equal(t, blend, b)
		assert.Equal(t, uint32(99), material)
		assert.Equal(t, float32(4.25), depth)
		assert.Equal(t, uint32(3), ViewIndex(k))
		assert.Equal(t, LayerWorld, ViewLayer(k))
	}
}

func TestPostProcessKey(t *testing.T) {
	k := EncodePostProcess(5, 17)
	assert.Equal(t, uint32(5), ViewIndex(k))
	assert.Equal(t, LayerPostProcess, ViewLayer(k))
	assert.Equal(t, uint32(17), PostProcessIndex(k))
	assert.Equal(t, BlendOpaque, Blending(k))
}

func TestSetDepthOnlyTouchesDepth(t *testing.T) {
	for _, blend := range []BlendMode{BlendOpaque, BlendAlpha} {
		k := Encode(9, LayerHUD, blend, 321, 0)
		SetDepth(&k, 17.75)
		b, material, depth := Decode(k)
		assert.Equal(t, blend, b)
		assert.Equal(t, uint32(321), material)
		assert.Equal(t, float32(17.75), depth)
		assert.Equal(t, uint32(9), ViewIndex(k))
		assert.Equal(t, LayerHUD, ViewLayer(k))

		SetDepth(&k, 2)
		_, _, depth = Decode(k)
		assert.Equal(t, float32(2), depth)
	}
}

func TestFieldPriority(t *testing.T) {
	// A higher view always sorts after a lower one, whatever the other fields hold.
	assert.Less(t, uint64(Encode(1, LayerHUD, BlendAlpha, MaxMaterial, 1e9)), uint64(Encode(2, LayerWorld, BlendOpaque, 0, 0)))
	// Layers order within a view.
	assert.Less(t, uint64(Encode(1, LayerWorld, BlendAlpha, MaxMaterial, 1e9)), uint64(EncodePostProcess(1, 0)))
	assert.Less(t, uint64(EncodePostProcess(1, MaxMaterial)), uint64(Encode(1, LayerHUD, BlendOpaque, 0, 0)))
	// Opaque before translucent.
	assert.Less(t, uint64(Encode(1, LayerWorld, BlendOpaque, MaxMaterial, 1e9)), uint64(Encode(1, LayerWorld, BlendAdditive, 0, 0)))
}

func TestOpaqueGroupsByMaterialThenFrontToBack(t *testing.T) {
	keys := []Key{
		Encode(0, LayerWorld, BlendOpaque, 2, 1),
		Encode(0, LayerWorld, BlendOpaque, 1, 50),
		Encode(0, LayerWorld, BlendOpaque, 2, 0.5),
		Encode(0, LayerWorld, BlendOpaque, 1, 3),
	}
	slices.Sort(keys)
	var order [][2]float32
	for _, k := range keys {
		_, m, d := Decode(k)
		order = append(order, [2]float32{float32(m), d})
	}
	assert.Equal(t, [][2]float32{{1, 3}, {1, 50}, {2, 0.5}, {2, 1}}, order)
}

func TestTranslucentSortsBackToFrontAcrossMaterials(t *testing.T) {
	keys := []Key{
		Encode(0, LayerWorld, BlendAlpha, 1, 2),
		Encode(0, LayerWorld, BlendAlpha, 2, 10),
		Encode(0, LayerWorld, BlendAlpha, 1, 30),
		Encode(0, LayerWorld, BlendAlpha, 3, 0),
	}
	slices.Sort(keys)
	var depths []float32
	for _, k := range keys {
		_, _, d := Decode(k)
		depths = append(depths, d)
	}
	assert.Equal(t, []float32{30, 10, 2, 0}, depths)
}

func TestNegativeDepthClampsToZero(t *testing.T) {
	k := Encode(0, LayerWorld, BlendOpaque, 1, -5)
	_, _, d := Decode(k)
	assert.Zero(t, d)
}

func TestParseNames(t *testing.T) {
	b, err := ParseBlendMode("additive")
	assert.NoError(t, err)
	assert.Equal(t, BlendAdditive, b)
	_, err = ParseBlendMode("screen")
	assert.Error(t, err)

	l, err := ParseLayer("hud")
	assert.NoError(t, err)
	assert.Equal(t, LayerHUD, l)
	_, err = ParseLayer("sky")
	assert.Error(t, err)
}
