package render

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/vortexengine/vortex/internal/core/handle"
	"github.com/vortexengine/vortex/internal/render/drawcall"
)

// Process runs one frame: compute dispatches first, then the draw queue in
// sort-key order. Both queues are empty afterwards.
func (r *Renderer) Process() Stats {
	r.frame = Stats{Frames: 1, Commands: len(r.draws)}

	r.processComputeCommands()
	r.SortDrawCommands()
	r.ProcessDrawCommands()

	r.draws = r.draws[:0]
	r.computes = r.computes[:0]
	r.total.Merge(r.frame)
	return r.frame
}

func (r *Renderer) processComputeCommands() {
	for _, cmd := range r.computes {
		cs, ok := r.computeShaders.GetIf(cmd.Shader)
		if !ok {
			// destroyed after submission
			r.log.Warn("略過已釋放的計算著色器", zap.Stringer("shader", cmd.Shader))
			continue
		}
		r.backend.BeginTimer()
		r.backend.BindProgram(cs.Program)
		if cs.Bind != nil {
			cs.Bind(r.backend, cs.Program)
		}
		r.backend.Dispatch(cmd.Groups[0], cmd.Groups[1], cmd.Groups[2])
		elapsed := r.backend.EndTimer()
		r.frame.ComputeDispatches++
		r.frame.ComputeTime += elapsed
		if r.cfg.LogCalls {
			r.log.Debug("compute",
				zap.String("shader", cs.Name),
				zap.Uint32s("groups", cmd.Groups[:]),
				zap.Duration("elapsed", elapsed))
		}
	}
}

// SortDrawCommands writes each command's camera distance into its key and
// sorts the queue. Post-process commands keep their effect index in place
// of material and depth.
func (r *Renderer) SortDrawCommands() {
	for i := range r.draws {
		cmd := &r.draws[i]
		if drawcall.ViewLayer(cmd.Key) == drawcall.LayerPostProcess {
			continue
		}
		v, ok := r.views.GetIf(cmd.Target)
		if !ok {
			continue
		}
		pos := cmd.Transform.Col(3).Vec3()
		drawcall.SetDepth(&cmd.Key, pos.Sub(v.Eye).Len())
	}
	slices.SortStableFunc(r.draws, func(a, b DrawCommand) int {
		return cmp.Compare(a.Key, b.Key)
	})
}

// ProcessDrawCommands walks the sorted queue and only touches backend state
// when the corresponding key field changes from the previous command.
func (r *Renderer) ProcessDrawCommands() {
	var (
		first        = true
		lastView     uint32
		lastLayer    drawcall.Layer
		lastBlend    drawcall.BlendMode
		blendSet     bool
		lastMaterial uint32
		lastEffect   uint32
		program      handle.Handle
		view         *View
	)

	for i := range r.draws {
		cmd := &r.draws[i]
		viewIdx := drawcall.ViewIndex(cmd.Key)
		layer := drawcall.ViewLayer(cmd.Key)

		viewChanged := first || viewIdx != lastView
		if viewChanged {
			v, ok := r.views.GetIf(cmd.Target)
			if !ok {
				r.log.Warn("略過已釋放的視圖", zap.Stringer("view", cmd.Target))
				continue
			}
			view = v
			r.bindView(v)
			lastView = viewIdx
		}
		layerChanged := viewChanged || layer != lastLayer
		lastLayer = layer

		if layer == drawcall.LayerPostProcess {
			effect := drawcall.PostProcessIndex(cmd.Key)
			if layerChanged || effect != lastEffect {
				program = r.bindPostProcess(cmd.Effect)
				lastEffect = effect
				if !program.IsNull() {
					// bindPostProcess leaves the backend blending opaque
					lastBlend, blendSet = drawcall.BlendOpaque, true
				}
			}
			if !program.IsNull() {
				r.drawFullscreen()
			}
			first = false
			continue
		}

		blend, materialIdx, _ := drawcall.Decode(cmd.Key)
		if !blendSet || blend != lastBlend {
			r.backend.SetBlendFunction(blend)
			r.frame.BlendChanges++
			lastBlend, blendSet = blend, true
		}
		if layerChanged || materialIdx != lastMaterial {
			program = r.bindMaterial(cmd.Material, view, layer)
			lastMaterial = materialIdx
		}
		first = false
		if program.IsNull() {
			continue
		}

		mesh, ok := r.meshes.GetIf(cmd.Mesh)
		if !ok {
			continue
		}
		r.backend.SetUniform(program, "u_Model", cmd.Transform)
		r.backend.Draw(mesh.Vertices, mesh.Indices, mesh.IndexCount)
		r.frame.DrawCalls++
		if r.cfg.LogCalls {
			r.log.Debug("draw", zap.Stringer("key", cmd.Key), zap.String("mesh", mesh.Name))
		}
	}
}

func (r *Renderer) bindView(v *View) {
	r.backend.BindFrameBuffer(v.FrameBuffer)
	r.backend.SetViewport(v.Viewport.X, v.Viewport.Y, v.Viewport.Width, v.Viewport.Height)
	r.backend.Clear(v.Clear, v.ClearColor, 1)
	r.frame.ViewBinds++
}

func (r *Renderer) bindMaterial(h MaterialHandle, v *View, layer drawcall.Layer) handle.Handle {
	m, ok := r.materials.GetIf(h)
	if !ok {
		r.log.Warn("略過已釋放的材質", zap.Stringer("material", h))
		return handle.Null
	}
	r.backend.BindProgram(m.Program)
	r.frame.ProgramBinds++
	for slot, tex := range m.Textures {
		r.backend.BindTexture(slot, tex)
	}
	viewMatrix, projection := v.Matrices(layer)
	r.backend.SetUniform(m.Program, "u_View", viewMatrix)
	r.backend.SetUniform(m.Program, "u_Projection", projection)
	r.backend.SetUniform(m.Program, "u_CameraPosition", v.Eye)
	for _, name := range sortedKeys(m.Uniforms) {
		r.backend.SetUniform(m.Program, name, m.Uniforms[name])
	}
	return m.Program
}

func (r *Renderer) bindPostProcess(h PostProcessHandle) handle.Handle {
	pp, ok := r.postProcesses.GetIf(h)
	if !ok {
		r.log.Warn("略過已釋放的後處理", zap.Stringer("effect", h))
		return handle.Null
	}
	src, ok := r.views.GetIf(pp.Source)
	if !ok {
		r.log.Warn("後處理來源視圖已釋放", zap.String("effect", pp.Name))
		return handle.Null
	}
	r.backend.SetBlendFunction(drawcall.BlendOpaque)
	r.backend.BindProgram(pp.Program)
	r.frame.ProgramBinds++
	r.backend.BindTexture(0, src.ColorTarget)
	r.backend.SetUniform(pp.Program, "u_Source", 0)
	for _, name := range sortedKeys(pp.Uniforms) {
		r.backend.SetUniform(pp.Program, name, pp.Uniforms[name])
	}
	return pp.Program
}

func (r *Renderer) drawFullscreen() {
	quad := r.meshes.Get(r.fullscreen)
	r.backend.Draw(quad.Vertices, quad.Indices, quad.IndexCount)
	r.frame.DrawCalls++
	r.frame.PostProcessPasses++
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
