package render

import (
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/vortexengine/vortex/internal/core/handle"
	"github.com/vortexengine/vortex/internal/render/drawcall"
)

var (
	// ErrCompile is returned (wrapped) by backends when a shader fails to compile or link.
	ErrCompile = errors.New("render: shader compile failed")
	// ErrInvalidGroupCount rejects compute submissions with a zero dimension.
	ErrInvalidGroupCount = errors.New("render: compute group counts must be positive")
	// ErrInvalidMesh rejects malformed vertex or index data.
	ErrInvalidMesh = errors.New("render: invalid mesh data")
	// ErrTooMany is returned when a resource index no longer fits in a sort key.
	ErrTooMany = errors.New("render: too many resources")
)

// BufferKind selects how a GPU buffer is bound.
type BufferKind uint8

const (
	VertexBuffer BufferKind = iota
	IndexBuffer
	UniformBuffer
	StorageBuffer
)

// ShaderStage is the pipeline stage a shader compiles for.
type ShaderStage uint8

const (
	VertexStage ShaderStage = iota
	FragmentStage
	ComputeStage
)

func (s ShaderStage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	case ComputeStage:
		return "compute"
	default:
		return "unknown"
	}
}

// ClearFlags selects which attachments Clear resets.
type ClearFlags uint8

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
	ClearStencil
)

// State is a fixed-function toggle.
type State uint8

const (
	StateDepthTest State = iota
	StateDepthWrite
	StateCulling
	StateScissor
)

// DepthFunc is the depth comparison function.
type DepthFunc uint8

const (
	DepthLess DepthFunc = iota
	DepthLessEqual
	DepthAlways
)

// TextureFormat is the pixel layout of a texture.
type TextureFormat uint8

const (
	FormatRGBA8 TextureFormat = iota
	FormatDepth24
)

// TextureDesc describes texture storage; Pixels may be nil for render targets.
type TextureDesc struct {
	Width, Height int
	Format        TextureFormat
	Pixels        []byte
}

// Backend is the device layer the renderer drives. Every object it creates is
// addressed by a handle.Handle; implementations decide what the slot holds.
type Backend interface {
	CreateBuffer(kind BufferKind, data []byte) (handle.Handle, error)
	CreateTexture(desc TextureDesc) (handle.Handle, error)
	CreateShader(stage ShaderStage, source string) (handle.Handle, error)
	CreateProgram(shaders ...handle.Handle) (handle.Handle, error)
	CreateFrameBuffer(color, depth handle.Handle) (handle.Handle, error)
	Destroy(h handle.Handle)

	BindProgram(program handle.Handle)
	// BindFrameBuffer binds fb, or the window's default framebuffer for handle.Null.
	BindFrameBuffer(fb handle.Handle)
	BindTexture(slot int, texture handle.Handle)
	SetViewport(x, y, width, height int)
	Clear(flags ClearFlags, color mgl32.Vec4, depth float32)
	SetState(state State, enabled bool)
	SetBlendFunction(mode drawcall.BlendMode)
	SetDepthFunction(fn DepthFunc)
	SetUniform(program handle.Handle, name string, value any)

	Draw(vertices, indices handle.Handle, count int)
	Dispatch(x, y, z uint32)

	// BeginTimer and EndTimer bracket GPU work; EndTimer returns the elapsed time.
	BeginTimer()
	EndTimer() time.Duration
}
