package render

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/vortexengine/vortex/internal/config"
	"github.com/vortexengine/vortex/internal/core/event"
	"github.com/vortexengine/vortex/internal/core/handle"
	"github.com/vortexengine/vortex/internal/render/drawcall"
)

const fullscreenVertexSource = `#version 430
layout(location = 0) in vec3 a_Position;
layout(location = 2) in vec2 a_UV;
out vec2 v_UV;
void main() {
	v_UV = a_UV;
	gl_Position = vec4(a_Position, 1.0);
}
`

// Renderer owns render resources, accumulates one frame of draw and compute
// commands and submits them to a Backend in sorted order.
//
// All methods must be called from the thread that owns the backend.
type Renderer struct {
	backend Backend
	log     *zap.Logger
	cfg     config.RendererConfig

	meshes         handle.Store[Mesh]
	materials      handle.Store[Material]
	views          handle.Store[View]
	computeShaders handle.Store[ComputeShader]
	postProcesses  handle.Store[PostProcess]

	draws    []DrawCommand
	computes []ComputeCommand

	fullscreen  MeshHandle
	defaultView ViewHandle
	window      Viewport

	frame Stats
	total Stats
}

func newStore[T any](name string, debug bool, opts ...handle.Option) handle.Store[T] {
	m := handle.NewStrongMap[T](opts...)
	if debug {
		return handle.NewTracked[T](name, m)
	}
	return m
}

// New creates a renderer drawing through backend. window is the initial
// window size used by views that follow the window.
func New(backend Backend, cfg config.RendererConfig, window Viewport, log *zap.Logger) (*Renderer, error) {
	r := &Renderer{
		backend:        backend,
		log:            log,
		cfg:            cfg,
		meshes:         newStore[Mesh]("meshes", cfg.DebugHandles),
		materials:      newStore[Material]("materials", cfg.DebugHandles, handle.WithMaxIndex(drawcall.MaxMaterial)),
		views:          newStore[View]("views", cfg.DebugHandles, handle.WithMaxIndex(drawcall.MaxView)),
		computeShaders: newStore[ComputeShader]("compute_shaders", cfg.DebugHandles),
		postProcesses:  newStore[PostProcess]("post_processes", cfg.DebugHandles, handle.WithMaxIndex(drawcall.MaxMaterial)),
		draws:          make([]DrawCommand, 0, 1024),
		window:         window,
	}
	fs, err := r.createMesh(FullscreenQuad())
	if err != nil {
		return nil, fmt.Errorf("create fullscreen quad: %w", err)
	}
	r.fullscreen = fs
	backend.SetState(StateDepthTest, true)
	backend.SetDepthFunction(DepthLess)
	return r, nil
}

// Backend returns the device layer the renderer drives.
func (r *Renderer) Backend() Backend { return r.backend }

// DefaultView returns the first view created with FollowWindow, or the null handle.
func (r *Renderer) DefaultView() ViewHandle { return r.defaultView }

// ── Meshes ────────────────────────────────────────────────────────

// CreateMesh uploads desc. On failure it logs and returns the null handle.
func (r *Renderer) CreateMesh(desc MeshDesc) (MeshHandle, error) {
	h, err := r.createMesh(desc)
	if err != nil {
		r.log.Error("建立網格失敗", zap.String("mesh", desc.Name), zap.Error(err))
		return 0, fmt.Errorf("create mesh %s: %w", desc.Name, err)
	}
	return h, nil
}

func (r *Renderer) createMesh(desc MeshDesc) (MeshHandle, error) {
	if err := desc.validate(); err != nil {
		return 0, err
	}
	vb, err := r.backend.CreateBuffer(VertexBuffer, floatBytes(desc.Vertices))
	if err != nil {
		return 0, err
	}
	ib, err := r.backend.CreateBuffer(IndexBuffer, uintBytes(desc.Indices))
	if err != nil {
		r.backend.Destroy(vb)
		return 0, err
	}
	h, err := r.meshes.Insert(Mesh{
		Name:        desc.Name,
		Vertices:    vb,
		Indices:     ib,
		IndexCount:  len(desc.Indices),
		VertexCount: len(desc.Vertices) / desc.Stride,
	})
	if err != nil {
		r.backend.Destroy(vb)
		r.backend.Destroy(ib)
		return 0, err
	}
	return h, nil
}

// DestroyMesh releases a mesh; stale handles are ignored.
func (r *Renderer) DestroyMesh(h MeshHandle) {
	m, ok := r.meshes.GetIf(h)
	if !ok {
		return
	}
	r.backend.Destroy(m.Vertices)
	r.backend.Destroy(m.Indices)
	r.meshes.Destroy(h)
}

// Mesh returns the mesh behind h.
func (r *Renderer) Mesh(h MeshHandle) (*Mesh, bool) { return r.meshes.GetIf(h) }

// ── Materials ─────────────────────────────────────────────────────

// CreateMaterial compiles and links desc. Compile errors are logged and the
// null handle is returned with the error.
func (r *Renderer) CreateMaterial(desc MaterialDesc) (MaterialHandle, error) {
	h, err := r.createMaterial(desc)
	if err != nil {
		r.log.Error("建立材質失敗", zap.String("material", desc.Name), zap.Error(err))
		return 0, fmt.Errorf("create material %s: %w", desc.Name, err)
	}
	return h, nil
}

func (r *Renderer) createMaterial(desc MaterialDesc) (MaterialHandle, error) {
	var created []handle.Handle
	fail := func(err error) (MaterialHandle, error) {
		for i := len(created) - 1; i >= 0; i-- {
			r.backend.Destroy(created[i])
		}
		return 0, err
	}

	vs, err := r.backend.CreateShader(VertexStage, desc.VertexSource)
	if err != nil {
		return fail(err)
	}
	created = append(created, vs)
	fs, err := r.backend.CreateShader(FragmentStage, desc.FragmentSource)
	if err != nil {
		return fail(err)
	}
	created = append(created, fs)
	prog, err := r.backend.CreateProgram(vs, fs)
	if err != nil {
		return fail(err)
	}
	created = append(created, prog)

	mat := Material{
		Name:     desc.Name,
		Program:  prog,
		Shaders:  []handle.Handle{vs, fs},
		Blend:    desc.Blend,
		Uniforms: copyUniforms(desc.Uniforms),
	}
	for i, td := range desc.Textures {
		tex, err := r.backend.CreateTexture(td)
		if err != nil {
			return fail(fmt.Errorf("texture %d: %w", i, err))
		}
		created = append(created, tex)
		mat.Textures = append(mat.Textures, tex)
	}

	h, err := r.materials.Insert(mat)
	if err != nil {
		if err == handle.ErrCapacity {
			err = fmt.Errorf("%w: materials exceed %d", ErrTooMany, drawcall.MaxMaterial)
		}
		return fail(err)
	}
	return h, nil
}

// DestroyMaterial releases a material and its program, shaders and textures.
func (r *Renderer) DestroyMaterial(h MaterialHandle) {
	m, ok := r.materials.GetIf(h)
	if !ok {
		return
	}
	r.releaseMaterial(m)
	r.materials.Destroy(h)
}

func (r *Renderer) releaseMaterial(m *Material) {
	for _, t := range m.Textures {
		r.backend.Destroy(t)
	}
	r.backend.Destroy(m.Program)
	for _, s := range m.Shaders {
		r.backend.Destroy(s)
	}
}

// Material returns the material behind h.
func (r *Renderer) Material(h MaterialHandle) (*Material, bool) { return r.materials.GetIf(h) }

// SetMaterialUniform changes a uniform uploaded whenever the material is bound.
func (r *Renderer) SetMaterialUniform(h MaterialHandle, name string, value any) {
	m := r.materials.Get(h)
	if m.Uniforms == nil {
		m.Uniforms = make(map[string]any)
	}
	m.Uniforms[name] = value
}

// ── Views ─────────────────────────────────────────────────────────

// CreateView creates a camera view. Offscreen views get a color and depth target.
func (r *Renderer) CreateView(desc ViewDesc) (ViewHandle, error) {
	h, err := r.createView(desc)
	if err != nil {
		r.log.Error("建立視圖失敗", zap.String("view", desc.Name), zap.Error(err))
		return 0, fmt.Errorf("create view %s: %w", desc.Name, err)
	}
	return h, nil
}

func (r *Renderer) createView(desc ViewDesc) (ViewHandle, error) {
	v := View{
		Name:         desc.Name,
		Eye:          desc.Eye,
		Target:       desc.Target,
		Up:           desc.Up,
		FovY:         desc.FovY,
		Near:         desc.Near,
		Far:          desc.Far,
		Viewport:     desc.Viewport,
		ClearColor:   desc.ClearColor,
		Clear:        desc.Clear,
		FollowWindow: desc.FollowWindow,
	}
	if v.Up == (mgl32.Vec3{}) {
		v.Up = mgl32.Vec3{0, 1, 0}
	}
	if v.Target == v.Eye {
		v.Target = v.Eye.Sub(mgl32.Vec3{0, 0, 1})
	}
	if v.FovY == 0 {
		v.FovY = 60
	}
	if v.Near == 0 {
		v.Near = 0.1
	}
	if v.Far == 0 {
		v.Far = 1000
	}
	if v.ClearColor == (mgl32.Vec4{}) {
		c := r.cfg.ClearColor
		v.ClearColor = mgl32.Vec4{c[0], c[1], c[2], c[3]}
	}
	if v.Clear == 0 {
		v.Clear = ClearColor | ClearDepth
	}
	if v.FollowWindow {
		v.Viewport = r.window
	}
	if v.Viewport.Width <= 0 || v.Viewport.Height <= 0 {
		return 0, fmt.Errorf("viewport %dx%d is empty", v.Viewport.Width, v.Viewport.Height)
	}

	if desc.Offscreen {
		color, err := r.backend.CreateTexture(TextureDesc{Width: v.Viewport.Width, Height: v.Viewport.Height, Format: FormatRGBA8})
		if err != nil {
			return 0, err
		}
		depth, err := r.backend.CreateTexture(TextureDesc{Width: v.Viewport.Width, Height: v.Viewport.Height, Format: FormatDepth24})
		if err != nil {
			r.backend.Destroy(color)
			return 0, err
		}
		fb, err := r.backend.CreateFrameBuffer(color, depth)
		if err != nil {
			r.backend.Destroy(depth)
			r.backend.Destroy(color)
			return 0, err
		}
		v.ColorTarget, v.DepthTarget, v.FrameBuffer = color, depth, fb
	}
	v.update()

	h, err := r.views.Insert(v)
	if err != nil {
		r.releaseView(&v)
		if err == handle.ErrCapacity {
			err = fmt.Errorf("%w: views exceed %d", ErrTooMany, drawcall.MaxView)
		}
		return 0, err
	}
	if v.FollowWindow && r.defaultView.IsNull() {
		r.defaultView = h
	}
	return h, nil
}

// DestroyView releases a view and its offscreen targets.
func (r *Renderer) DestroyView(h ViewHandle) {
	v, ok := r.views.GetIf(h)
	if !ok {
		return
	}
	r.releaseView(v)
	r.views.Destroy(h)
	if h == r.defaultView {
		r.defaultView = 0
	}
}

func (r *Renderer) releaseView(v *View) {
	if !v.FrameBuffer.IsNull() {
		r.backend.Destroy(v.FrameBuffer)
		r.backend.Destroy(v.DepthTarget)
		r.backend.Destroy(v.ColorTarget)
	}
}

// View returns the view behind h.
func (r *Renderer) View(h ViewHandle) (*View, bool) { return r.views.GetIf(h) }

// SetViewCamera moves the camera of a view.
func (r *Renderer) SetViewCamera(h ViewHandle, eye, target mgl32.Vec3) {
	v := r.views.Get(h)
	v.Eye, v.Target = eye, target
	v.update()
}

// OnEvent applies window events: a resize updates the viewport and
// projection of every view that follows the window.
func (r *Renderer) OnEvent(e event.Event) {
	resized, ok := e.(event.WindowResized)
	if !ok || resized.Width <= 0 || resized.Height <= 0 {
		return
	}
	r.window = Viewport{Width: resized.Width, Height: resized.Height}
	r.views.Each(func(_ ViewHandle, v *View) {
		if !v.FollowWindow {
			return
		}
		v.Viewport = r.window
		v.update()
	})
	r.log.Debug("視窗尺寸變更", zap.Int("width", resized.Width), zap.Int("height", resized.Height))
}

// ── Compute shaders ───────────────────────────────────────────────

// CreateComputeShader compiles and links a compute program.
func (r *Renderer) CreateComputeShader(desc ComputeShaderDesc) (ComputeShaderHandle, error) {
	sh, err := r.backend.CreateShader(ComputeStage, desc.Source)
	if err != nil {
		r.log.Error("建立計算著色器失敗", zap.String("shader", desc.Name), zap.Error(err))
		return 0, fmt.Errorf("create compute shader %s: %w", desc.Name, err)
	}
	prog, err := r.backend.CreateProgram(sh)
	if err != nil {
		r.backend.Destroy(sh)
		r.log.Error("建立計算著色器失敗", zap.String("shader", desc.Name), zap.Error(err))
		return 0, fmt.Errorf("create compute shader %s: %w", desc.Name, err)
	}
	h, err := r.computeShaders.Insert(ComputeShader{Name: desc.Name, Shader: sh, Program: prog, Bind: desc.Bind})
	if err != nil {
		r.backend.Destroy(prog)
		r.backend.Destroy(sh)
		return 0, fmt.Errorf("create compute shader %s: %w", desc.Name, err)
	}
	return h, nil
}

// ComputeShader returns the compute shader behind h.
func (r *Renderer) ComputeShader(h ComputeShaderHandle) (*ComputeShader, bool) {
	return r.computeShaders.GetIf(h)
}

// DestroyComputeShader releases a compute program.
func (r *Renderer) DestroyComputeShader(h ComputeShaderHandle) {
	cs, ok := r.computeShaders.GetIf(h)
	if !ok {
		return
	}
	r.backend.Destroy(cs.Program)
	r.backend.Destroy(cs.Shader)
	r.computeShaders.Destroy(h)
}

// ── Post-process effects ──────────────────────────────────────────

// CreatePostProcess links a full-screen effect sampling desc.Source.
func (r *Renderer) CreatePostProcess(desc PostProcessDesc) (PostProcessHandle, error) {
	h, err := r.createPostProcess(desc)
	if err != nil {
		r.log.Error("建立後處理失敗", zap.String("effect", desc.Name), zap.Error(err))
		return 0, fmt.Errorf("create post-process %s: %w", desc.Name, err)
	}
	return h, nil
}

func (r *Renderer) createPostProcess(desc PostProcessDesc) (PostProcessHandle, error) {
	src, ok := r.views.GetIf(desc.Source)
	if !ok {
		return 0, fmt.Errorf("source view: %w", handle.ErrInvalid)
	}
	if src.ColorTarget.IsNull() {
		return 0, fmt.Errorf("source view %s is not offscreen", src.Name)
	}
	vs, err := r.backend.CreateShader(VertexStage, fullscreenVertexSource)
	if err != nil {
		return 0, err
	}
	fs, err := r.backend.CreateShader(FragmentStage, desc.FragmentSource)
	if err != nil {
		r.backend.Destroy(vs)
		return 0, err
	}
	prog, err := r.backend.CreateProgram(vs, fs)
	if err != nil {
		r.backend.Destroy(fs)
		r.backend.Destroy(vs)
		return 0, err
	}
	h, err := r.postProcesses.Insert(PostProcess{
		Name:     desc.Name,
		Source:   desc.Source,
		Program:  prog,
		Shaders:  []handle.Handle{vs, fs},
		Uniforms: copyUniforms(desc.Uniforms),
	})
	if err != nil {
		r.backend.Destroy(prog)
		r.backend.Destroy(fs)
		r.backend.Destroy(vs)
		return 0, err
	}
	return h, nil
}

// DestroyPostProcess releases an effect.
func (r *Renderer) DestroyPostProcess(h PostProcessHandle) {
	pp, ok := r.postProcesses.GetIf(h)
	if !ok {
		return
	}
	r.backend.Destroy(pp.Program)
	for _, s := range pp.Shaders {
		r.backend.Destroy(s)
	}
	r.postProcesses.Destroy(h)
}

// ── Submission ────────────────────────────────────────────────────

// Submit queues a mesh draw for this frame. Invalid handles are caller bugs
// and panic.
func (r *Renderer) Submit(view ViewHandle, layer drawcall.Layer, material MaterialHandle, transform mgl32.Mat4, mesh MeshHandle) {
	if layer == drawcall.LayerPostProcess {
		panic("render: use SubmitPostProcess for the post-process layer")
	}
	mustContain(r.views, view, "view")
	mustContain(r.meshes, mesh, "mesh")
	mat := r.materials.Get(material)
	r.draws = append(r.draws, DrawCommand{
		Key:       drawcall.Encode(view.Index(), layer, mat.Blend, material.Index(), 0),
		Target:    view,
		Material:  material,
		Transform: transform,
		Mesh:      mesh,
	})
}

// SubmitPostProcess queues a full-screen effect pass into view.
func (r *Renderer) SubmitPostProcess(view ViewHandle, effect PostProcessHandle) {
	mustContain(r.views, view, "view")
	mustContain(r.postProcesses, effect, "post-process")
	r.draws = append(r.draws, DrawCommand{
		Key:    drawcall.EncodePostProcess(view.Index(), effect.Index()),
		Target: view,
		Effect: effect,
	})
}

// SubmitCompute queues a compute dispatch for this frame.
func (r *Renderer) SubmitCompute(shader ComputeShaderHandle, groups [3]uint32) error {
	if groups[0] == 0 || groups[1] == 0 || groups[2] == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidGroupCount, groups)
	}
	mustContain(r.computeShaders, shader, "compute shader")
	r.computes = append(r.computes, ComputeCommand{Shader: shader, Groups: groups})
	return nil
}

// Pending returns the number of queued draw and compute commands.
func (r *Renderer) Pending() (draws, computes int) { return len(r.draws), len(r.computes) }

// Stats returns totals over every processed frame.
func (r *Renderer) Stats() Stats { return r.total }

// ── Shutdown ──────────────────────────────────────────────────────

// Shutdown reports leaked handles (when tracking is on) and releases every
// backend object still owned by the renderer.
func (r *Renderer) Shutdown() {
	r.draws, r.computes = r.draws[:0], r.computes[:0]
	r.DestroyMesh(r.fullscreen)

	leaks := 0
	for _, s := range []any{r.meshes, r.materials, r.views, r.computeShaders, r.postProcesses} {
		if rep, ok := s.(handle.LeakReporter); ok {
			leaks += rep.ReportLeaks(r.log)
		}
	}
	if leaks > 0 {
		r.log.Warn("渲染資源未釋放", zap.Int("count", leaks))
	}

	r.postProcesses.Each(func(h PostProcessHandle, _ *PostProcess) { r.DestroyPostProcess(h) })
	r.computeShaders.Each(func(h ComputeShaderHandle, _ *ComputeShader) { r.DestroyComputeShader(h) })
	r.materials.Each(func(h MaterialHandle, _ *Material) { r.DestroyMaterial(h) })
	r.meshes.Each(func(h MeshHandle, _ *Mesh) { r.DestroyMesh(h) })
	r.views.Each(func(h ViewHandle, _ *View) { r.DestroyView(h) })
}

func mustContain[T any](s handle.Store[T], h handle.Strong[T], what string) {
	if !s.Contains(h) {
		panic(fmt.Errorf("render: %s %s: %w", what, h, handle.ErrInvalid))
	}
}

func copyUniforms(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func floatBytes(fs []float32) []byte {
	b := make([]byte, 0, len(fs)*4)
	for _, f := range fs {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}

func uintBytes(us []uint32) []byte {
	b := make([]byte, 0, len(us)*4)
	for _, u := range us {
		b = binary.LittleEndian.AppendUint32(b, u)
	}
	return b
}
