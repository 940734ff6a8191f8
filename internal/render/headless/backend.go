// Package headless is a render backend that keeps device objects in memory
// and counts work instead of drawing. The demo binary and tests run on it.
package headless

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/vortexengine/vortex/internal/core/handle"
	"github.com/vortexengine/vortex/internal/render"
	"github.com/vortexengine/vortex/internal/render/drawcall"
)

// object tags stored in the handle type field
const (
	tagBuffer uint8 = iota + 1
	tagTexture
	tagShader
	tagProgram
	tagFrameBuffer
)

type object interface {
	handle.Variant
}

type buffer struct {
	kind render.BufferKind
	size int
}

type texture struct {
	desc render.TextureDesc
}

type shader struct {
	stage render.ShaderStage
}

type program struct {
	stages   []render.ShaderStage
	uniforms map[string]any
}

type frameBuffer struct {
	color, depth handle.Handle
}

func (buffer) VariantTag() uint8      { return tagBuffer }
func (texture) VariantTag() uint8     { return tagTexture }
func (shader) VariantTag() uint8      { return tagShader }
func (*program) VariantTag() uint8    { return tagProgram }
func (frameBuffer) VariantTag() uint8 { return tagFrameBuffer }

// Counters is what the backend did since creation.
type Counters struct {
	Draws        int
	Triangles    int
	Dispatches   int
	Clears       int
	ProgramBinds int
	TargetBinds  int
	Uniforms     int
}

// Backend implements render.Backend without a device.
type Backend struct {
	log     *zap.Logger
	objects *handle.Map[object]

	bound      *program
	target     handle.Handle
	viewport   [4]int
	blend      drawcall.BlendMode
	depthFunc  render.DepthFunc
	states     map[render.State]bool
	textures   map[int]handle.Handle
	clearColor mgl32.Vec4
	timer      time.Time

	counters Counters
}

// New creates an empty backend. log receives one debug line per call.
func New(log *zap.Logger) *Backend {
	return &Backend{
		log:      log,
		objects:  handle.NewMap[object](),
		states:   make(map[render.State]bool),
		textures: make(map[int]handle.Handle),
	}
}

// Counters returns the work counted so far.
func (b *Backend) Counters() Counters { return b.counters }

// Live returns the number of device objects not yet destroyed.
func (b *Backend) Live() int { return b.objects.Len() }

// Viewport returns the last viewport set.
func (b *Backend) Viewport() (x, y, width, height int) {
	return b.viewport[0], b.viewport[1], b.viewport[2], b.viewport[3]
}

// Target returns the bound framebuffer, handle.Null for the window.
func (b *Backend) Target() handle.Handle { return b.target }

// Blend returns the current blend function.
func (b *Backend) Blend() drawcall.BlendMode { return b.blend }

// ClearColor returns the color of the last clear.
func (b *Backend) ClearColor() mgl32.Vec4 { return b.clearColor }

// Uniform returns the last value uploaded to name on program.
func (b *Backend) Uniform(prog handle.Handle, name string) (any, bool) {
	p, ok := handle.GetAs[*program](b.objects, prog)
	if !ok {
		return nil, false
	}
	v, ok := p.uniforms[name]
	return v, ok
}

func (b *Backend) insert(o object) (handle.Handle, error) {
	h, err := b.objects.Insert(o)
	if err != nil {
		return handle.Null, fmt.Errorf("headless: %T: %w", o, err)
	}
	return h, nil
}

func (b *Backend) CreateBuffer(kind render.BufferKind, data []byte) (handle.Handle, error) {
	h, err := b.insert(buffer{kind: kind, size: len(data)})
	b.log.Debug("create buffer", zap.Stringer("handle", h), zap.Int("bytes", len(data)))
	return h, err
}

func (b *Backend) CreateTexture(desc render.TextureDesc) (handle.Handle, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return handle.Null, fmt.Errorf("headless: texture %dx%d", desc.Width, desc.Height)
	}
	if desc.Pixels != nil && len(desc.Pixels) != desc.Width*desc.Height*4 {
		return handle.Null, fmt.Errorf("headless: texture %dx%d needs %d bytes, got %d",
			desc.Width, desc.Height, desc.Width*desc.Height*4, len(desc.Pixels))
	}
	h, err := b.insert(texture{desc: desc})
	b.log.Debug("create texture", zap.Stringer("handle", h), zap.Int("width", desc.Width), zap.Int("height", desc.Height))
	return h, err
}

// CreateShader accepts any source that declares a main function.
func (b *Backend) CreateShader(stage render.ShaderStage, source string) (handle.Handle, error) {
	if !strings.Contains(source, "main(") {
		return handle.Null, fmt.Errorf("%w: %s shader: no main entry point", render.ErrCompile, stage)
	}
	if strings.Count(source, "{") != strings.Count(source, "}") {
		return handle.Null, fmt.Errorf("%w: %s shader: unbalanced braces", render.ErrCompile, stage)
	}
	h, err := b.insert(shader{stage: stage})
	b.log.Debug("compile shader", zap.Stringer("handle", h), zap.Stringer("stage", stage))
	return h, err
}

func (b *Backend) CreateProgram(shaders ...handle.Handle) (handle.Handle, error) {
	if len(shaders) == 0 {
		return handle.Null, fmt.Errorf("%w: program without shaders", render.ErrCompile)
	}
	p := &program{uniforms: make(map[string]any)}
	for _, sh := range shaders {
		s, ok := handle.GetAs[shader](b.objects, sh)
		if !ok {
			return handle.Null, fmt.Errorf("%w: link: %s is not a shader", render.ErrCompile, sh)
		}
		p.stages = append(p.stages, s.stage)
	}
	if err := checkStages(p.stages); err != nil {
		return handle.Null, err
	}
	h, err := b.insert(p)
	b.log.Debug("link program", zap.Stringer("handle", h), zap.Int("shaders", len(shaders)))
	return h, err
}

func checkStages(stages []render.ShaderStage) error {
	var compute, vertex, fragment int
	for _, s := range stages {
		switch s {
		case render.ComputeStage:
			compute++
		case render.VertexStage:
			vertex++
		case render.FragmentStage:
			fragment++
		}
	}
	switch {
	case compute == 1 && vertex == 0 && fragment == 0:
		return nil
	case compute == 0 && vertex == 1 && fragment == 1:
		return nil
	}
	return fmt.Errorf("%w: link: stages %v", render.ErrCompile, stages)
}

func (b *Backend) CreateFrameBuffer(color, depth handle.Handle) (handle.Handle, error) {
	if !handle.Is[texture](b.objects, color) {
		return handle.Null, fmt.Errorf("headless: framebuffer color %s is not a texture", color)
	}
	if !depth.IsNull() && !handle.Is[texture](b.objects, depth) {
		return handle.Null, fmt.Errorf("headless: framebuffer depth %s is not a texture", depth)
	}
	h, err := b.insert(frameBuffer{color: color, depth: depth})
	b.log.Debug("create framebuffer", zap.Stringer("handle", h))
	return h, err
}

func (b *Backend) Destroy(h handle.Handle) {
	if !b.objects.Destroy(h) {
		b.log.Debug("destroy ignored", zap.Stringer("handle", h))
		return
	}
	if b.target == h {
		b.target = handle.Null
	}
}

func (b *Backend) BindProgram(prog handle.Handle) {
	b.bound = handle.MustGetAs[*program](b.objects, prog)
	b.counters.ProgramBinds++
}

func (b *Backend) BindFrameBuffer(fb handle.Handle) {
	if !fb.IsNull() {
		handle.MustGetAs[frameBuffer](b.objects, fb)
	}
	b.target = fb
	b.counters.TargetBinds++
}

func (b *Backend) BindTexture(slot int, tex handle.Handle) {
	handle.MustGetAs[texture](b.objects, tex)
	b.textures[slot] = tex
}

func (b *Backend) SetViewport(x, y, width, height int) {
	b.viewport = [4]int{x, y, width, height}
}

func (b *Backend) Clear(flags render.ClearFlags, color mgl32.Vec4, _ float32) {
	if flags&render.ClearColor != 0 {
		b.clearColor = color
	}
	b.counters.Clears++
}

func (b *Backend) SetState(state render.State, enabled bool) { b.states[state] = enabled }

func (b *Backend) SetBlendFunction(mode drawcall.BlendMode) { b.blend = mode }

func (b *Backend) SetDepthFunction(fn render.DepthFunc) { b.depthFunc = fn }

func (b *Backend) SetUniform(prog handle.Handle, name string, value any) {
	p := handle.MustGetAs[*program](b.objects, prog)
	p.uniforms[name] = value
	b.counters.Uniforms++
}

func (b *Backend) Draw(vertices, indices handle.Handle, count int) {
	if b.bound == nil {
		panic("headless: draw without a bound program")
	}
	handle.MustGetAs[buffer](b.objects, vertices)
	handle.MustGetAs[buffer](b.objects, indices)
	b.counters.Draws++
	b.counters.Triangles += count / 3
}

func (b *Backend) Dispatch(x, y, z uint32) {
	if b.bound == nil {
		panic("headless: dispatch without a bound program")
	}
	b.counters.Dispatches++
}

func (b *Backend) BeginTimer() { b.timer = time.Now() }

func (b *Backend) EndTimer() time.Duration {
	if b.timer.IsZero() {
		return 0
	}
	d := time.Since(b.timer)
	b.timer = time.Time{}
	return d
}

var _ render.Backend = (*Backend)(nil)
