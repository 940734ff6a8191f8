package headless

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vortexengine/vortex/internal/config"
	"github.com/vortexengine/vortex/internal/core/handle"
	"github.com/vortexengine/vortex/internal/render"
	"github.com/vortexengine/vortex/internal/render/drawcall"
)

const (
	vs = "void main() { gl_Position = vec4(a_Position, 1.0); }"
	fs = "void main() { color = u_Color; }"
)

func TestShaderCompileErrors(t *testing.T) {
	b := New(zap.NewNop())

	_, err := b.CreateShader(render.VertexStage, "float x;")
	assert.ErrorIs(t, err, render.ErrCompile)
	_, err = b.CreateShader(render.FragmentStage, "void main() {")
	assert.ErrorIs(t, err, render.ErrCompile)
	assert.Zero(t, b.Live())

	v, err := b.CreateShader(render.VertexStage, vs)
	require.NoError(t, err)
	c, err := b.CreateShader(render.ComputeStage, "void main() {}")
	require.NoError(t, err)

	_, err = b.CreateProgram(v, c)
	assert.ErrorIs(t, err, render.ErrCompile, "graphics and compute stages do not mix")
	_, err = b.CreateProgram()
	assert.ErrorIs(t, err, render.ErrCompile)
}

func TestObjectsCarryTypeTags(t *testing.T) {
	b := New(zap.NewNop())
	buf, err := b.CreateBuffer(render.VertexBuffer, make([]byte, 96))
	require.NoError(t, err)
	tex, err := b.CreateTexture(render.TextureDesc{Width: 2, Height: 2})
	require.NoError(t, err)

	assert.Equal(t, tagBuffer, buf.Type())
	assert.Equal(t, tagTexture, tex.Type())

	_, err = b.CreateFrameBuffer(buf, handle.Null)
	assert.Error(t, err, "a buffer is not a color target")

	fb, err := b.CreateFrameBuffer(tex, handle.Null)
	require.NoError(t, err)
	assert.Equal(t, tagFrameBuffer, fb.Type())
	assert.Panics(t, func() { b.BindTexture(0, buf) })

	_, err = b.CreateTexture(render.TextureDesc{Width: 2, Height: 2, Pixels: make([]byte, 3)})
	assert.Error(t, err)
}

func TestDestroyIsIdempotent(t *testing.T) {
	b := New(zap.NewNop())
	tex, err := b.CreateTexture(render.TextureDesc{Width: 4, Height: 4})
	require.NoError(t, err)
	fb, err := b.CreateFrameBuffer(tex, handle.Null)
	require.NoError(t, err)
	b.BindFrameBuffer(fb)

	b.Destroy(fb)
	b.Destroy(fb)
	assert.Equal(t, handle.Null, b.Target())
	assert.Equal(t, 1, b.Live())
	assert.Panics(t, func() { b.BindFrameBuffer(fb) })
}

func TestRendererFrameOnHeadless(t *testing.T) {
	b := New(zap.NewNop())
	r, err := render.New(b, config.Defaults().Renderer, render.Viewport{Width: 320, Height: 200}, zap.NewNop())
	require.NoError(t, err)

	view, err := r.CreateView(render.ViewDesc{Name: "main", Eye: mgl32.Vec3{0, 0, 5}, FollowWindow: true})
	require.NoError(t, err)
	mat, err := r.CreateMaterial(render.MaterialDesc{
		Name:           "flat",
		VertexSource:   vs,
		FragmentSource: fs,
		Uniforms:       map[string]any{"u_Color": mgl32.Vec4{1, 0, 0, 1}},
	})
	require.NoError(t, err)
	mesh, err := r.CreateMesh(render.Cube())
	require.NoError(t, err)

	r.Submit(view, drawcall.LayerWorld, mat, mgl32.Ident4(), mesh)
	r.Submit(view, drawcall.LayerWorld, mat, mgl32.Translate3D(1, 0, 0), mesh)
	stats := r.Process()

	assert.Equal(t, 2, stats.DrawCalls)
	c := b.Counters()
	assert.Equal(t, 2, c.Draws)
	assert.Equal(t, 24, c.Triangles)
	assert.Equal(t, 1, c.Clears)

	m, _ := r.Material(mat)
	color, ok := b.Uniform(m.Program, "u_Color")
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, color)
	_, _, w, h := b.Viewport()
	assert.Equal(t, 320, w)
	assert.Equal(t, 200, h)

	r.Shutdown()
	assert.Zero(t, b.Live())
}
