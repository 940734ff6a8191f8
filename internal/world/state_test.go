package world

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vortexengine/vortex/internal/core/handle"
	"github.com/vortexengine/vortex/internal/jobs"
	"github.com/vortexengine/vortex/internal/render"
	"github.com/vortexengine/vortex/internal/render/drawcall"
)

type submission struct {
	view      render.ViewHandle
	layer     drawcall.Layer
	transform mgl32.Mat4
}

type fakeRenderer struct {
	draws   []submission
	cameras map[render.ViewHandle]mgl32.Vec3
}

func (f *fakeRenderer) Submit(view render.ViewHandle, layer drawcall.Layer, _ render.MaterialHandle, transform mgl32.Mat4, _ render.MeshHandle) {
	f.draws = append(f.draws, submission{view, layer, transform})
}

func (f *fakeRenderer) SetViewCamera(view render.ViewHandle, eye, _ mgl32.Vec3) {
	if f.cameras == nil {
		f.cameras = make(map[render.ViewHandle]mgl32.Vec3)
	}
	f.cameras[view] = eye
}

func TestAddAppliesDefaults(t *testing.T) {
	s := NewState(0)
	require.NoError(t, s.Add(Instance{Name: "box", Position: mgl32.Vec3{1, 2, 3}}))
	assert.Error(t, s.Add(Instance{Name: "box"}))

	box, ok := s.Instance("box")
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, box.Scale)
	assert.Equal(t, mgl32.Translate3D(1, 2, 3), box.Transform())

	_, ok = s.Instance("missing")
	assert.False(t, ok)
}

func TestAnimateSpinsInParallel(t *testing.T) {
	pool := jobs.New(4, zap.NewNop())
	defer pool.Close()

	s := NewState(8)
	for i := 0; i < 100; i++ {
		require.NoError(t, s.Add(Instance{Spin: mgl32.Vec3{0, math.Pi, 0}}))
	}
	require.NoError(t, s.Add(Instance{Name: "still", Position: mgl32.Vec3{0, 0, -5}}))

	s.Animate(500*time.Millisecond, pool)
	assert.Equal(t, 500*time.Millisecond, s.Elapsed())
	assert.Equal(t, 1, s.Frames())

	// a half turn per second for half a second is a quarter turn around Y
	want := mgl32.HomogRotate3DY(math.Pi / 2)
	for i := 0; i < 100; i++ {
		assert.True(t, s.instances[i].Transform().ApproxEqualThreshold(want, 1e-5), "instance %d", i)
	}
	still, _ := s.Instance("still")
	assert.Equal(t, mgl32.Translate3D(0, 0, -5), still.Transform())
}

func TestAnimateWithoutPool(t *testing.T) {
	s := NewState(0)
	require.NoError(t, s.Add(Instance{Name: "a", Spin: mgl32.Vec3{0, 0, math.Pi}}))
	s.Animate(time.Second, nil)
	a, _ := s.Instance("a")
	assert.True(t, a.Transform().ApproxEqualThreshold(mgl32.HomogRotate3DZ(math.Pi), 1e-5))
}

func TestCameraOrbit(t *testing.T) {
	s := NewState(0)
	view := handle.NewStrong[render.View](1, 0)
	s.AddCamera(Camera{Name: "main", View: view, Eye: mgl32.Vec3{0, 0, 10}, Orbit: math.Pi / 2})

	s.Animate(time.Second, nil)
	f := &fakeRenderer{}
	s.SyncCameras(f)

	eye := f.cameras[view]
	assert.True(t, eye.ApproxEqualThreshold(mgl32.Vec3{10, 0, 0}, 1e-4), "eye %v", eye)
	c, ok := s.Camera("main")
	require.True(t, ok)
	assert.Equal(t, eye, c.Eye)
}

func TestSubmitSkipsHidden(t *testing.T) {
	s := NewState(0)
	require.NoError(t, s.Add(Instance{Name: "a", Layer: drawcall.LayerHUD}))
	require.NoError(t, s.Add(Instance{Name: "b", Hidden: true}))
	require.NoError(t, s.Add(Instance{Name: "c"}))

	f := &fakeRenderer{}
	assert.Equal(t, 2, s.Submit(f))
	require.Len(t, f.draws, 2)
	assert.Equal(t, drawcall.LayerHUD, f.draws[0].layer)

	b, _ := s.Instance("b")
	b.Hidden = false
	f.draws = nil
	assert.Equal(t, 3, s.Submit(f))
}
