package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/vortexengine/vortex/internal/core/handle"
	"github.com/vortexengine/vortex/internal/render/drawcall"
)

type (
	MeshHandle          = handle.Strong[Mesh]
	MaterialHandle      = handle.Strong[Material]
	ViewHandle          = handle.Strong[View]
	ComputeShaderHandle = handle.Strong[ComputeShader]
	PostProcessHandle   = handle.Strong[PostProcess]
)

// MeshDesc is caller-supplied geometry. Stride is the number of floats per
// vertex; the first three are the position.
type MeshDesc struct {
	Name     string
	Vertices []float32
	Indices  []uint32
	Stride   int
}

func (d MeshDesc) validate() error {
	if d.Stride < 3 {
		return fmt.Errorf("%w: stride %d < 3", ErrInvalidMesh, d.Stride)
	}
	if len(d.Vertices) == 0 || len(d.Vertices)%d.Stride != 0 {
		return fmt.Errorf("%w: %d floats is not a multiple of stride %d", ErrInvalidMesh, len(d.Vertices), d.Stride)
	}
	if len(d.Indices) == 0 {
		return fmt.Errorf("%w: no indices", ErrInvalidMesh)
	}
	count := uint32(len(d.Vertices) / d.Stride)
	for _, i := range d.Indices {
		if i >= count {
			return fmt.Errorf("%w: index %d out of %d vertices", ErrInvalidMesh, i, count)
		}
	}
	return nil
}

// Mesh is geometry uploaded to the backend.
type Mesh struct {
	Name        string
	Vertices    handle.Handle
	Indices     handle.Handle
	IndexCount  int
	VertexCount int
}

// MaterialDesc describes a shader program plus its fixed uniforms.
type MaterialDesc struct {
	Name           string
	VertexSource   string
	FragmentSource string
	Blend          drawcall.BlendMode
	Uniforms       map[string]any
	Textures       []TextureDesc
}

// Material is a linked program with blend mode, uniforms and textures.
type Material struct {
	Name     string
	Program  handle.Handle
	Shaders  []handle.Handle
	Textures []handle.Handle
	Blend    drawcall.BlendMode
	Uniforms map[string]any
}

// Viewport is a pixel rectangle.
type Viewport struct {
	X, Y, Width, Height int
}

func (v Viewport) aspect() float32 {
	if v.Height == 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}

// ViewDesc describes a camera plus the target it renders into.
type ViewDesc struct {
	Name       string
	Eye        mgl32.Vec3
	Target     mgl32.Vec3
	Up         mgl32.Vec3
	FovY       float32 // degrees
	Near, Far  float32
	Viewport   Viewport
	ClearColor mgl32.Vec4
	Clear      ClearFlags
	// Offscreen renders into a color texture that post-process effects can sample.
	Offscreen bool
	// FollowWindow resizes the viewport and projection on window resize.
	FollowWindow bool
}

// View is a render target with camera state. Views render in slot order, so
// offscreen views feeding a post-process effect are created first.
type View struct {
	Name         string
	Eye          mgl32.Vec3
	Target       mgl32.Vec3
	Up           mgl32.Vec3
	FovY         float32
	Near, Far    float32
	Viewport     Viewport
	ClearColor   mgl32.Vec4
	Clear        ClearFlags
	FrameBuffer  handle.Handle
	ColorTarget  handle.Handle
	DepthTarget  handle.Handle
	FollowWindow bool

	viewMatrix mgl32.Mat4
	projection mgl32.Mat4
}

func (v *View) update() {
	v.viewMatrix = mgl32.LookAtV(v.Eye, v.Target, v.Up)
	v.projection = mgl32.Perspective(mgl32.DegToRad(v.FovY), v.Viewport.aspect(), v.Near, v.Far)
}

// Matrices returns the view and projection matrices used for layer.
func (v *View) Matrices(layer drawcall.Layer) (view, projection mgl32.Mat4) {
	if layer == drawcall.LayerHUD {
		w, h := float32(v.Viewport.Width), float32(v.Viewport.Height)
		return mgl32.Ident4(), mgl32.Ortho(0, w, h, 0, -1, 1)
	}
	return v.viewMatrix, v.projection
}

// ComputeBindFn sets uniforms and storage bindings before a dispatch.
type ComputeBindFn func(b Backend, program handle.Handle)

// ComputeShaderDesc describes a compute program.
type ComputeShaderDesc struct {
	Name   string
	Source string
	Bind   ComputeBindFn
}

// ComputeShader is a linked compute program.
type ComputeShader struct {
	Name    string
	Shader  handle.Handle
	Program handle.Handle
	Bind    ComputeBindFn
}

// PostProcessDesc describes a full-screen effect sampling Source's color target.
type PostProcessDesc struct {
	Name           string
	Source         ViewHandle
	FragmentSource string
	Uniforms       map[string]any
}

// PostProcess is a linked full-screen effect.
type PostProcess struct {
	Name     string
	Source   ViewHandle
	Program  handle.Handle
	Shaders  []handle.Handle
	Uniforms map[string]any
}
