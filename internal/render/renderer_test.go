package render

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vortexengine/vortex/internal/config"
	"github.com/vortexengine/vortex/internal/core/event"
	"github.com/vortexengine/vortex/internal/core/handle"
	"github.com/vortexengine/vortex/internal/render/drawcall"
)

// recorder is a Backend that logs calls instead of touching a device.
type recorder struct {
	next   uint32
	live   map[handle.Handle]string
	ops    []string
	models []mgl32.Mat4
	blends []drawcall.BlendMode
	bound  []handle.Handle
}

func newRecorder() *recorder {
	return &recorder{live: make(map[handle.Handle]string)}
}

func (r *recorder) alloc(kind string) handle.Handle {
	r.next++
	h := handle.New(r.next, 0, 0)
	r.live[h] = kind
	return h
}

func (r *recorder) CreateBuffer(BufferKind, []byte) (handle.Handle, error) {
	return r.alloc("buffer"), nil
}
func (r *recorder) CreateTexture(TextureDesc) (handle.Handle, error) { return r.alloc("texture"), nil }
func (r *recorder) CreateShader(stage ShaderStage, src string) (handle.Handle, error) {
	if strings.Contains(src, "syntax error") {
		return handle.Null, fmt.Errorf("%w: %s: 0:1 syntax error", ErrCompile, stage)
	}
	return r.alloc("shader"), nil
}
func (r *recorder) CreateProgram(...handle.Handle) (handle.Handle, error) {
	return r.alloc("program"), nil
}
func (r *recorder) CreateFrameBuffer(_, _ handle.Handle) (handle.Handle, error) {
	return r.alloc("framebuffer"), nil
}
func (r *recorder) Destroy(h handle.Handle) { delete(r.live, h) }

func (r *recorder) BindProgram(p handle.Handle) {
	r.ops = append(r.ops, "program")
	r.bound = append(r.bound, p)
}
func (r *recorder) BindFrameBuffer(fb handle.Handle) {
	r.ops = append(r.ops, "framebuffer:"+fb.String())
}
func (r *recorder) BindTexture(slot int, tex handle.Handle) {
	r.ops = append(r.ops, fmt.Sprintf("texture%d:%s", slot, tex))
}
func (r *recorder) SetViewport(x, y, w, h int) {
	r.ops = append(r.ops, fmt.Sprintf("viewport:%dx%d", w, h))
}
func (r *recorder) Clear(ClearFlags, mgl32.Vec4, float32) { r.ops = append(r.ops, "clear") }
func (r *recorder) SetState(State, bool)                  {}
func (r *recorder) SetBlendFunction(m drawcall.BlendMode) {
	r.ops = append(r.ops, "blend:"+m.String())
	r.blends = append(r.blends, m)
}
func (r *recorder) SetDepthFunction(DepthFunc) {}
func (r *recorder) SetUniform(_ handle.Handle, name string, v any) {
	if name == "u_Model" {
		r.models = append(r.models, v.(mgl32.Mat4))
	}
}
func (r *recorder) Draw(_, _ handle.Handle, count int) {
	r.ops = append(r.ops, fmt.Sprintf("draw:%d", count))
}
func (r *recorder) Dispatch(x, y, z uint32) {
	r.ops = append(r.ops, fmt.Sprintf("dispatch:%d,%d,%d", x, y, z))
}
func (r *recorder) BeginTimer()              {}
func (r *recorder) EndTimer() time.Duration { return time.Millisecond }

func (r *recorder) count(prefix string) int {
	n := 0
	for _, op := range r.ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

const (
	vsSource = "void main() { gl_Position = u_Projection * u_View * u_Model * vec4(a_Position, 1.0); }"
	fsSource = "void main() { color = vec4(1.0); }"
)

func newTestRenderer(t *testing.T) (*Renderer, *recorder) {
	t.Helper()
	rec := newRecorder()
	r, err := New(rec, config.Defaults().Renderer, Viewport{Width: 640, Height: 480}, zap.NewNop())
	require.NoError(t, err)
	return r, rec
}

func mustMaterial(t *testing.T, r *Renderer, name string, blend drawcall.BlendMode) MaterialHandle {
	t.Helper()
	h, err := r.CreateMaterial(MaterialDesc{Name: name, VertexSource: vsSource, FragmentSource: fsSource, Blend: blend})
	require.NoError(t, err)
	return h
}

func mustView(t *testing.T, r *Renderer, desc ViewDesc) ViewHandle {
	t.Helper()
	h, err := r.CreateView(desc)
	require.NoError(t, err)
	return h
}

func mustMesh(t *testing.T, r *Renderer) MeshHandle {
	t.Helper()
	h, err := r.CreateMesh(Quad())
	require.NoError(t, err)
	return h
}

func at(z float32) mgl32.Mat4 { return mgl32.Translate3D(0, 0, z) }

func TestProcessBindsEachStateOnce(t *testing.T) {
	t.Run("one view", func(t *testing.T) {
		r, rec := newTestRenderer(t)
		view := mustView(t, r, ViewDesc{Name: "main", Eye: mgl32.Vec3{0, 0, 10}, FollowWindow: true})
		red := mustMaterial(t, r, "red", drawcall.BlendOpaque)
		blue := mustMaterial(t, r, "blue", drawcall.BlendOpaque)
		mesh := mustMesh(t, r)

		for i := 0; i < 4; i++ {
			mat := red
			if i%2 == 1 {
				mat = blue
			}
			r.Submit(view, drawcall.LayerWorld, mat, at(float32(-i)), mesh)
		}
		stats := r.Process()

		assert.Equal(t, 4, stats.Commands)
		assert.Equal(t, 4, stats.DrawCalls)
		assert.Equal(t, 1, stats.ViewBinds)
		assert.Equal(t, 2, stats.ProgramBinds, "draws are grouped by material")
		assert.Equal(t, 1, stats.BlendChanges)
		assert.Equal(t, 1, rec.count("clear"))

		draws, computes := r.Pending()
		assert.Zero(t, draws)
		assert.Zero(t, computes)
		assert.Equal(t, 1, r.Stats().Frames)
	})

	t.Run("two views", func(t *testing.T) {
		r, rec := newTestRenderer(t)
		scene := mustView(t, r, ViewDesc{Name: "scene", Offscreen: true, Viewport: Viewport{Width: 64, Height: 64}})
		screen := mustView(t, r, ViewDesc{Name: "screen", FollowWindow: true})
		stone := mustMaterial(t, r, "stone", drawcall.BlendOpaque)
		mesh := mustMesh(t, r)

		r.Submit(scene, drawcall.LayerWorld, stone, at(-1), mesh)
		r.Submit(screen, drawcall.LayerWorld, stone, at(-1), mesh)
		stats := r.Process()

		assert.Equal(t, 2, stats.ViewBinds)
		assert.Equal(t, 2, stats.ProgramBinds, "view uniforms change with the view")
		assert.Equal(t, 1, stats.BlendChanges)
		assert.Equal(t, []drawcall.BlendMode{drawcall.BlendOpaque}, rec.blends)
	})

	t.Run("after a post-process pass", func(t *testing.T) {
		r, rec := newTestRenderer(t)
		scene := mustView(t, r, ViewDesc{Name: "scene", Offscreen: true, Viewport: Viewport{Width: 64, Height: 64}})
		screen := mustView(t, r, ViewDesc{Name: "screen", FollowWindow: true})
		stone := mustMaterial(t, r, "stone", drawcall.BlendOpaque)
		glass := mustMaterial(t, r, "glass", drawcall.BlendAlpha)
		mesh := mustMesh(t, r)
		effect, err := r.CreatePostProcess(PostProcessDesc{Name: "grade", Source: scene, FragmentSource: fsSource})
		require.NoError(t, err)

		r.Submit(scene, drawcall.LayerWorld, stone, at(-1), mesh)
		r.SubmitPostProcess(screen, effect)
		r.Submit(screen, drawcall.LayerHUD, stone, at(0), mesh)
		r.Submit(screen, drawcall.LayerHUD, glass, at(0), mesh)
		stats := r.Process()

		// the pass itself switches to opaque, so the opaque HUD draw needs no blend call
		assert.Equal(t, []drawcall.BlendMode{drawcall.BlendOpaque, drawcall.BlendOpaque, drawcall.BlendAlpha}, rec.blends)
		assert.Equal(t, 2, stats.BlendChanges)
		assert.Equal(t, 4, stats.DrawCalls)
	})
}

func TestShutdownReportsLeakedHandles(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := config.Defaults().Renderer
	cfg.DebugHandles = true
	r, err := New(newRecorder(), cfg, Viewport{Width: 640, Height: 480}, zap.New(core))
	require.NoError(t, err)

	kept := mustMesh(t, r)
	released := mustMesh(t, r)
	r.DestroyMesh(released)
	r.Shutdown()

	leaks := logs.FilterMessage("handle leaked").All()
	require.Len(t, leaks, 1)
	assert.Equal(t, "meshes", leaks[0].ContextMap()["store"])
	assert.EqualValues(t, kept.Index(), leaks[0].ContextMap()["index"])

	summary := logs.FilterMessage("渲染資源未釋放").All()
	require.Len(t, summary, 1)
	assert.EqualValues(t, 1, summary[0].ContextMap()["count"])
}

func TestShutdownWithoutTrackingLogsNoLeaks(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := config.Defaults().Renderer
	cfg.DebugHandles = false
	r, err := New(newRecorder(), cfg, Viewport{Width: 640, Height: 480}, zap.New(core))
	require.NoError(t, err)

	mustMesh(t, r)
	r.Shutdown()
	assert.Zero(t, logs.Len())
}

func TestOpaqueDrawsFrontToBack(t *testing.T) {
	r, rec := newTestRenderer(t)
	view := mustView(t, r, ViewDesc{Name: "main", FollowWindow: true})
	mat := mustMaterial(t, r, "stone", drawcall.BlendOpaque)
	mesh := mustMesh(t, r)

	for _, z := range []float32{-5, -1, -10} {
		r.Submit(view, drawcall.LayerWorld, mat, at(z), mesh)
	}
	r.Process()

	require.Len(t, rec.models, 3)
	assert.Equal(t, at(-1), rec.models[0])
	assert.Equal(t, at(-5), rec.models[1])
	assert.Equal(t, at(-10), rec.models[2])
}

func TestTranslucentDrawsBackToFront(t *testing.T) {
	r, rec := newTestRenderer(t)
	view := mustView(t, r, ViewDesc{Name: "main", FollowWindow: true})
	glass := mustMaterial(t, r, "glass", drawcall.BlendAlpha)
	smoke := mustMaterial(t, r, "smoke", drawcall.BlendAlpha)
	mesh := mustMesh(t, r)

	r.Submit(view, drawcall.LayerWorld, glass, at(-5), mesh)
	r.Submit(view, drawcall.LayerWorld, smoke, at(-1), mesh)
	r.Submit(view, drawcall.LayerWorld, glass, at(-10), mesh)
	r.Process()

	require.Len(t, rec.models, 3)
	assert.Equal(t, at(-10), rec.models[0])
	assert.Equal(t, at(-5), rec.models[1])
	assert.Equal(t, at(-1), rec.models[2])
}

func TestOpaqueBeforeTranslucentAndHUDLast(t *testing.T) {
	r, rec := newTestRenderer(t)
	view := mustView(t, r, ViewDesc{Name: "main", FollowWindow: true})
	glass := mustMaterial(t, r, "glass", drawcall.BlendAlpha)
	stone := mustMaterial(t, r, "stone", drawcall.BlendOpaque)
	mesh := mustMesh(t, r)

	r.Submit(view, drawcall.LayerHUD, stone, at(0), mesh)
	r.Submit(view, drawcall.LayerWorld, glass, at(-2), mesh)
	r.Submit(view, drawcall.LayerWorld, stone, at(-3), mesh)
	r.Process()

	assert.Equal(t, []drawcall.BlendMode{drawcall.BlendOpaque, drawcall.BlendAlpha, drawcall.BlendOpaque}, rec.blends)
	require.Len(t, rec.models, 3)
	assert.Equal(t, at(-3), rec.models[0])
	assert.Equal(t, at(0), rec.models[2])
}

func TestViewsRenderInCreationOrder(t *testing.T) {
	r, rec := newTestRenderer(t)
	scene := mustView(t, r, ViewDesc{Name: "scene", Offscreen: true, Viewport: Viewport{Width: 320, Height: 240}})
	screen := mustView(t, r, ViewDesc{Name: "screen", FollowWindow: true})
	mat := mustMaterial(t, r, "stone", drawcall.BlendOpaque)
	mesh := mustMesh(t, r)
	effect, err := r.CreatePostProcess(PostProcessDesc{Name: "grade", Source: scene, FragmentSource: fsSource})
	require.NoError(t, err)

	r.SubmitPostProcess(screen, effect)
	r.Submit(scene, drawcall.LayerWorld, mat, at(-1), mesh)
	stats := r.Process()

	assert.Equal(t, 2, stats.ViewBinds)
	assert.Equal(t, 1, stats.PostProcessPasses)
	assert.Equal(t, 2, stats.DrawCalls)

	sceneView, _ := r.View(scene)
	color := sceneView.ColorTarget
	var fbs []string
	for _, op := range rec.ops {
		if strings.HasPrefix(op, "framebuffer:") {
			fbs = append(fbs, op)
		}
	}
	require.Len(t, fbs, 2)
	assert.Equal(t, "framebuffer:"+sceneView.FrameBuffer.String(), fbs[0])
	assert.Equal(t, "framebuffer:"+handle.Null.String(), fbs[1])
	assert.Contains(t, rec.ops, "texture0:"+color.String())
	assert.Equal(t, screen, r.DefaultView())
}

func TestPostProcessNeedsOffscreenSource(t *testing.T) {
	r, _ := newTestRenderer(t)
	screen := mustView(t, r, ViewDesc{Name: "screen", FollowWindow: true})

	h, err := r.CreatePostProcess(PostProcessDesc{Name: "grade", Source: screen, FragmentSource: fsSource})
	assert.Error(t, err)
	assert.True(t, h.IsNull())
}

func TestSubmitComputeValidatesGroups(t *testing.T) {
	r, rec := newTestRenderer(t)
	bound := 0
	cs, err := r.CreateComputeShader(ComputeShaderDesc{
		Name:   "particles",
		Source: "void main() {}",
		Bind:   func(Backend, handle.Handle) { bound++ },
	})
	require.NoError(t, err)

	assert.ErrorIs(t, r.SubmitCompute(cs, [3]uint32{0, 1, 1}), ErrInvalidGroupCount)
	assert.ErrorIs(t, r.SubmitCompute(cs, [3]uint32{4, 1, 0}), ErrInvalidGroupCount)
	require.NoError(t, r.SubmitCompute(cs, [3]uint32{64, 1, 1}))

	view := mustView(t, r, ViewDesc{Name: "main", FollowWindow: true})
	r.Submit(view, drawcall.LayerWorld, mustMaterial(t, r, "m", drawcall.BlendOpaque), at(-1), mustMesh(t, r))
	stats := r.Process()

	assert.Equal(t, 1, stats.ComputeDispatches)
	assert.Equal(t, time.Millisecond, stats.ComputeTime)
	assert.Equal(t, 1, bound)

	var dispatch, draw int
	for i, op := range rec.ops {
		switch {
		case strings.HasPrefix(op, "dispatch:"):
			dispatch = i
		case strings.HasPrefix(op, "draw:"):
			draw = i
		}
	}
	assert.Less(t, dispatch, draw, "compute runs before draws")
	assert.Contains(t, rec.ops, "dispatch:64,1,1")
}

func TestResizeUpdatesFollowingViews(t *testing.T) {
	r, _ := newTestRenderer(t)
	main := mustView(t, r, ViewDesc{Name: "main", FollowWindow: true})
	fixed := mustView(t, r, ViewDesc{Name: "minimap", Viewport: Viewport{Width: 128, Height: 128}})

	mv, _ := r.View(main)
	before := mv.projection

	r.OnEvent(event.WindowResized{Width: 800, Height: 200})
	r.OnEvent(event.WindowClosed{})

	mv, _ = r.View(main)
	assert.Equal(t, Viewport{Width: 800, Height: 200}, mv.Viewport)
	assert.NotEqual(t, before, mv.projection)

	fv, _ := r.View(fixed)
	assert.Equal(t, Viewport{Width: 128, Height: 128}, fv.Viewport)

	late := mustView(t, r, ViewDesc{Name: "late", FollowWindow: true})
	lv, _ := r.View(late)
	assert.Equal(t, Viewport{Width: 800, Height: 200}, lv.Viewport)
}

func TestCompileFailureReturnsNullAndReleasesPartials(t *testing.T) {
	r, rec := newTestRenderer(t)
	live := len(rec.live)

	h, err := r.CreateMaterial(MaterialDesc{Name: "broken", VertexSource: vsSource, FragmentSource: "syntax error"})
	assert.True(t, h.IsNull())
	assert.ErrorIs(t, err, ErrCompile)
	assert.Len(t, rec.live, live, "the compiled vertex shader is released")

	cs, err := r.CreateComputeShader(ComputeShaderDesc{Name: "broken", Source: "syntax error"})
	assert.True(t, cs.IsNull())
	assert.ErrorIs(t, err, ErrCompile)
}

func TestCreateMeshRejectsBadData(t *testing.T) {
	r, _ := newTestRenderer(t)
	_, err := r.CreateMesh(MeshDesc{Name: "bad", Vertices: []float32{0, 0, 0}, Indices: []uint32{3}, Stride: 3})
	assert.ErrorIs(t, err, ErrInvalidMesh)
	_, err = r.CreateMesh(MeshDesc{Name: "short", Vertices: []float32{0, 0}, Indices: []uint32{0}, Stride: 3})
	assert.ErrorIs(t, err, ErrInvalidMesh)
}

func TestSubmitWithStaleHandlePanics(t *testing.T) {
	r, _ := newTestRenderer(t)
	view := mustView(t, r, ViewDesc{Name: "main", FollowWindow: true})
	mat := mustMaterial(t, r, "stone", drawcall.BlendOpaque)
	mesh := mustMesh(t, r)
	r.DestroyMesh(mesh)

	assert.Panics(t, func() { r.Submit(view, drawcall.LayerWorld, mat, at(0), mesh) })
	assert.Panics(t, func() { r.Submit(view, drawcall.LayerPostProcess, mat, at(0), mustMesh(t, r)) })

	r.DestroyMaterial(mat)
	assert.Panics(t, func() { r.Submit(view, drawcall.LayerWorld, mat, at(0), mustMesh(t, r)) })
}

func TestShutdownReleasesBackendObjects(t *testing.T) {
	r, rec := newTestRenderer(t)
	scene := mustView(t, r, ViewDesc{Name: "scene", Offscreen: true, Viewport: Viewport{Width: 64, Height: 64}})
	mustView(t, r, ViewDesc{Name: "screen", FollowWindow: true})
	mustMaterial(t, r, "stone", drawcall.BlendOpaque)
	mustMesh(t, r)
	_, err := r.CreatePostProcess(PostProcessDesc{Name: "grade", Source: scene, FragmentSource: fsSource})
	require.NoError(t, err)
	_, err = r.CreateComputeShader(ComputeShaderDesc{Name: "cs", Source: "void main() {}"})
	require.NoError(t, err)

	r.Shutdown()
	assert.Empty(t, rec.live)
}

func TestSetViewCameraMovesDepth(t *testing.T) {
	r, rec := newTestRenderer(t)
	view := mustView(t, r, ViewDesc{Name: "main", FollowWindow: true})
	mat := mustMaterial(t, r, "stone", drawcall.BlendOpaque)
	mesh := mustMesh(t, r)

	r.SetViewCamera(view, mgl32.Vec3{0, 0, -20}, mgl32.Vec3{})
	r.Submit(view, drawcall.LayerWorld, mat, at(-1), mesh)
	r.Submit(view, drawcall.LayerWorld, mat, at(-15), mesh)
	r.Process()

	require.Len(t, rec.models, 2)
	assert.Equal(t, at(-15), rec.models[0], "nearest to the moved camera draws first")
}
