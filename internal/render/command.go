package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vortexengine/vortex/internal/render/drawcall"
)

// DrawCommand is one queued mesh draw. Commands live for a single frame.
type DrawCommand struct {
	Key       drawcall.Key
	Target    ViewHandle
	Material  MaterialHandle
	Transform mgl32.Mat4
	Mesh      MeshHandle
	// Effect is set instead of Material and Mesh for post-process passes.
	Effect PostProcessHandle
}

// ComputeCommand is one queued compute dispatch.
type ComputeCommand struct {
	Shader ComputeShaderHandle
	Groups [3]uint32
}
