package data

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/vortexengine/vortex/internal/audio"
	"github.com/vortexengine/vortex/internal/core/handle"
	"github.com/vortexengine/vortex/internal/render"
	"github.com/vortexengine/vortex/internal/render/drawcall"
	"github.com/vortexengine/vortex/internal/world"
)

// Dispatch is a compute dispatch repeated every frame.
type Dispatch struct {
	Shader render.ComputeShaderHandle
	Groups [3]uint32
}

// PostPass is an effect drawn into a view every frame.
type PostPass struct {
	View   render.ViewHandle
	Effect render.PostProcessHandle
}

// Resources maps manifest names to the handles Build created.
type Resources struct {
	Views     map[string]render.ViewHandle
	Materials map[string]render.MaterialHandle
	Meshes    map[string]render.MeshHandle
	Compute   map[string]render.ComputeShaderHandle
	Effects   map[string]render.PostProcessHandle
	Sounds    map[string]audio.SoundHandle
	Sources   map[string]audio.SourceHandle

	Dispatches []Dispatch
	PostPasses []PostPass
	Autoplay   []audio.SourceHandle
}

func newResources() *Resources {
	return &Resources{
		Views:     make(map[string]render.ViewHandle),
		Materials: make(map[string]render.MaterialHandle),
		Meshes:    make(map[string]render.MeshHandle),
		Compute:   make(map[string]render.ComputeShaderHandle),
		Effects:   make(map[string]render.PostProcessHandle),
		Sounds:    make(map[string]audio.SoundHandle),
		Sources:   make(map[string]audio.SourceHandle),
	}
}

// Build creates every resource of the scene. a may be nil when audio is
// disabled; sounds are then skipped. On error everything created so far is
// released.
func (s *Scene) Build(r *render.Renderer, a *audio.System, chunk int) (*Resources, *world.State, error) {
	res := newResources()
	state := world.NewState(chunk)
	if err := s.build(r, a, res, state); err != nil {
		res.Release(r, a)
		return nil, nil, err
	}
	return res, state, nil
}

func (s *Scene) build(r *render.Renderer, a *audio.System, res *Resources, state *world.State) error {
	followed := false
	for _, v := range s.Views {
		h, err := r.CreateView(render.ViewDesc{
			Name:         v.Name,
			Eye:          mgl32.Vec3(v.Eye),
			Target:       mgl32.Vec3(v.Target),
			FovY:         v.FovY,
			Near:         v.Near,
			Far:          v.Far,
			Viewport:     render.Viewport{Width: v.Width, Height: v.Height},
			ClearColor:   mgl32.Vec4(v.ClearColor),
			Offscreen:    v.Offscreen,
			FollowWindow: v.FollowWindow,
		})
		if err != nil {
			return err
		}
		res.Views[v.Name] = h
		followed = followed || v.FollowWindow
		view, _ := r.View(h)
		state.AddCamera(world.Camera{Name: v.Name, View: h, Eye: view.Eye, Target: view.Target, Orbit: v.Orbit})
	}
	if !followed {
		h, err := r.CreateView(render.ViewDesc{Name: "main", Eye: mgl32.Vec3{0, 0, 5}, FollowWindow: true})
		if err != nil {
			return err
		}
		res.Views["main"] = h
	}

	for _, m := range s.Materials {
		vs, err := s.source(m.VertexSource, m.Vertex)
		if err != nil {
			return fmt.Errorf("material %s: %w", m.Name, err)
		}
		fs, err := s.source(m.FragmentSource, m.Fragment)
		if err != nil {
			return fmt.Errorf("material %s: %w", m.Name, err)
		}
		blend, _ := drawcall.ParseBlendMode(m.Blend)
		h, err := r.CreateMaterial(render.MaterialDesc{
			Name:           m.Name,
			VertexSource:   vs,
			FragmentSource: fs,
			Blend:          blend,
			Uniforms:       convertUniforms(m.Uniforms),
		})
		if err != nil {
			return err
		}
		res.Materials[m.Name] = h
	}

	for _, m := range s.Meshes {
		desc, err := s.meshDesc(m)
		if err != nil {
			return fmt.Errorf("mesh %s: %w", m.Name, err)
		}
		h, err := r.CreateMesh(desc)
		if err != nil {
			return err
		}
		res.Meshes[m.Name] = h
	}

	for _, c := range s.Compute {
		src, err := s.source(c.Source, c.File)
		if err != nil {
			return fmt.Errorf("compute %s: %w", c.Name, err)
		}
		h, err := r.CreateComputeShader(render.ComputeShaderDesc{
			Name:   c.Name,
			Source: src,
			Bind:   bindUniforms(convertUniforms(c.Uniforms)),
		})
		if err != nil {
			return err
		}
		res.Compute[c.Name] = h
		if c.Groups != [3]uint32{} {
			res.Dispatches = append(res.Dispatches, Dispatch{Shader: h, Groups: c.Groups})
		}
	}

	for _, p := range s.PostProcess {
		fs, err := s.source(p.FragmentSource, p.Fragment)
		if err != nil {
			return fmt.Errorf("post-process %s: %w", p.Name, err)
		}
		h, err := r.CreatePostProcess(render.PostProcessDesc{
			Name:           p.Name,
			Source:         res.Views[p.Source],
			FragmentSource: fs,
			Uniforms:       convertUniforms(p.Uniforms),
		})
		if err != nil {
			return err
		}
		res.Effects[p.Name] = h
		res.PostPasses = append(res.PostPasses, PostPass{View: res.Views[p.Target], Effect: h})
	}

	if a != nil {
		if err := s.buildSounds(a, res); err != nil {
			return err
		}
	}

	for _, o := range s.Objects {
		layer, _ := drawcall.ParseLayer(o.Layer)
		view := r.DefaultView()
		if o.View != "" {
			view = res.Views[o.View]
		}
		err := state.Add(world.Instance{
			Name:     o.Name,
			View:     view,
			Layer:    layer,
			Material: res.Materials[o.Material],
			Mesh:     res.Meshes[o.Mesh],
			Position: mgl32.Vec3(o.Position),
			Scale:    mgl32.Vec3(o.Scale),
			Spin:     mgl32.Vec3(o.Spin),
			Hidden:   o.Hidden,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Scene) buildSounds(a *audio.System, res *Resources) error {
	rate := 44100
	if m, ok := a.Backend().(*audio.Mixer); ok {
		rate = int(m.SampleRate())
	}
	for _, snd := range s.Sounds {
		wave, _ := audio.ParseWave(snd.Tone.Wave)
		h, err := a.CreateSound(snd.Name, audio.Tone(snd.Tone.Freq, snd.Tone.Duration, rate, wave), rate)
		if err != nil {
			return err
		}
		res.Sounds[snd.Name] = h
		src, err := a.CreateSource(h)
		if err != nil {
			return err
		}
		res.Sources[snd.Name] = src
		if err := a.SetLooping(src, snd.Loop); err != nil {
			return err
		}
		if snd.Gain != nil {
			if err := a.SetGain(src, *snd.Gain); err != nil {
				return err
			}
		}
		if snd.Autoplay {
			res.Autoplay = append(res.Autoplay, src)
		}
	}
	return nil
}

// Release destroys every resource in res. a may be nil.
func (res *Resources) Release(r *render.Renderer, a *audio.System) {
	if a != nil {
		for _, h := range res.Sources {
			a.DestroySource(h)
		}
		for _, h := range res.Sounds {
			a.DestroySound(h)
		}
	}
	for _, h := range res.Effects {
		r.DestroyPostProcess(h)
	}
	for _, h := range res.Compute {
		r.DestroyComputeShader(h)
	}
	for _, h := range res.Meshes {
		r.DestroyMesh(h)
	}
	for _, h := range res.Materials {
		r.DestroyMaterial(h)
	}
	for _, h := range res.Views {
		r.DestroyView(h)
	}
	*res = *newResources()
}

func bindUniforms(uniforms map[string]any) render.ComputeBindFn {
	if len(uniforms) == 0 {
		return nil
	}
	return func(b render.Backend, program handle.Handle) {
		for name, v := range uniforms {
			b.SetUniform(program, name, v)
		}
	}
}

// convertUniforms turns YAML numbers and short number lists into float32
// and mgl32 vectors.
func convertUniforms(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = convertUniform(v)
	}
	return out
}

func convertUniform(v any) any {
	switch v := v.(type) {
	case int:
		return float32(v)
	case float64:
		return float32(v)
	case []any:
		fs := make([]float32, 0, len(v))
		for _, e := range v {
			switch n := e.(type) {
			case int:
				fs = append(fs, float32(n))
			case float64:
				fs = append(fs, float32(n))
			default:
				return v
			}
		}
		switch len(fs) {
		case 2:
			return mgl32.Vec2{fs[0], fs[1]}
		case 3:
			return mgl32.Vec3{fs[0], fs[1], fs[2]}
		case 4:
			return mgl32.Vec4{fs[0], fs[1], fs[2], fs[3]}
		}
		return fs
	}
	return v
}
