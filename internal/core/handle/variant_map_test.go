package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resource interface{ Variant }

type buffer struct{ size int }
type shader struct{ source string }

func (buffer) VariantTag() uint8 { return 1 }
func (shader) VariantTag() uint8 { return 2 }

func TestMapTypedAccess(t *testing.T) {
	m := NewMap[resource]()
	hb, err := m.Insert(buffer{size: 64})
	require.NoError(t, err)
	hs, err := m.Insert(shader{source: "void main() {}"})
	require.NoError(t, err)

	assert.Equal(t, uint8(1), hb.Type())
	assert.Equal(t, uint8(2), hs.Type())

	assert.True(t, Is[buffer](m, hb))
	assert.False(t, Is[shader](m, hb))

	b, ok := GetAs[buffer](m, hb)
	require.True(t, ok)
	assert.Equal(t, 64, b.size)

	_, ok = GetAs[buffer](m, hs)
	assert.False(t, ok)
	assert.Panics(t, func() { MustGetAs[buffer](m, hs) })
}

func TestMapRetaggedHandleIsInvalid(t *testing.T) {
	m := NewMap[resource]()
	hb, _ := m.Insert(buffer{})
	forged := New(hb.Index(), 2, hb.Generation())
	assert.False(t, m.Contains(forged))
}

func TestMapFIFOReuseAndStaleness(t *testing.T) {
	m := NewMap[resource]()
	var hs []Handle
	for i := 0; i < 8; i++ {
		h, _ := m.Insert(buffer{size: i})
		hs = append(hs, h)
	}
	m.Destroy(hs[2])
	m.Destroy(hs[6])
	m.Destroy(hs[0])
	assert.False(t, m.Destroy(hs[0]))

	var got []uint32
	for i := 0; i < 3; i++ {
		h, _ := m.Insert(buffer{})
		got = append(got, h.Index())
		assert.False(t, m.Contains(hs[h.Index()-1]))
	}
	assert.Equal(t, []uint32{hs[2].Index(), hs[6].Index(), hs[0].Index()}, got)
}

func TestMapCapacity(t *testing.T) {
	m := NewMap[resource]()
	for i := 1; i < Capacity; i++ {
		_, err := m.Insert(buffer{})
		require.NoError(t, err)
	}
	_, err := m.Insert(buffer{})
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, Capacity-1, m.Len())
}

type wide struct{}

func (wide) VariantTag() uint8 { return 16 }

func TestMapTagOverflowPanics(t *testing.T) {
	m := NewMap[resource]()
	assert.Panics(t, func() { m.Insert(wide{}) })
}
