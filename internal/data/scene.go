package data

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vortexengine/vortex/internal/audio"
	"github.com/vortexengine/vortex/internal/render"
	"github.com/vortexengine/vortex/internal/render/drawcall"
)

// ViewEntry is a camera view. Views render in list order, so offscreen views
// sampled by a post-process effect come before the view showing the effect.
type ViewEntry struct {
	Name         string     `yaml:"name"`
	Offscreen    bool       `yaml:"offscreen,omitempty"`
	FollowWindow bool       `yaml:"follow_window,omitempty"`
	Width        int        `yaml:"width,omitempty"`
	Height       int        `yaml:"height,omitempty"`
	Eye          [3]float32 `yaml:"eye,omitempty"`
	Target       [3]float32 `yaml:"target,omitempty"`
	FovY         float32    `yaml:"fov,omitempty"`
	Near         float32    `yaml:"near,omitempty"`
	Far          float32    `yaml:"far,omitempty"`
	ClearColor   [4]float32 `yaml:"clear_color,omitempty"`
	Orbit        float32    `yaml:"orbit,omitempty"` // radians per second around target
}

// MaterialEntry is a shader pair. Sources are inline or read from files
// relative to the manifest.
type MaterialEntry struct {
	Name           string         `yaml:"name"`
	Vertex         string         `yaml:"vertex,omitempty"`
	Fragment       string         `yaml:"fragment,omitempty"`
	VertexSource   string         `yaml:"vertex_source,omitempty"`
	FragmentSource string         `yaml:"fragment_source,omitempty"`
	Blend          string         `yaml:"blend,omitempty"`
	Uniforms       map[string]any `yaml:"uniforms,omitempty"`
}

// MeshEntry is a built-in primitive, inline geometry or a mesh file written by objconv.
type MeshEntry struct {
	Name      string    `yaml:"name"`
	Primitive string    `yaml:"primitive,omitempty"`
	File      string    `yaml:"file,omitempty"`
	Stride    int       `yaml:"stride,omitempty"`
	Vertices  []float32 `yaml:"vertices,omitempty"`
	Indices   []uint32  `yaml:"indices,omitempty"`
}

// ComputeEntry is a compute program, optionally dispatched every frame.
type ComputeEntry struct {
	Name     string         `yaml:"name"`
	Source   string         `yaml:"source,omitempty"`
	File     string         `yaml:"file,omitempty"`
	Groups   [3]uint32      `yaml:"groups,omitempty"`
	Uniforms map[string]any `yaml:"uniforms,omitempty"`
}

// PostProcessEntry is a full-screen effect drawn into Target from Source's color target.
type PostProcessEntry struct {
	Name           string         `yaml:"name"`
	Source         string         `yaml:"source_view,omitempty"`
	Target         string         `yaml:"target_view,omitempty"`
	Fragment       string         `yaml:"fragment,omitempty"`
	FragmentSource string         `yaml:"fragment_source,omitempty"`
	Uniforms       map[string]any `yaml:"uniforms,omitempty"`
}

// ToneEntry synthesizes a sound.
type ToneEntry struct {
	Freq     float64       `yaml:"freq,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty"`
	Wave     string        `yaml:"wave,omitempty"`
}

// SoundEntry is a synthesized sound with one source.
type SoundEntry struct {
	Name     string    `yaml:"name"`
	Tone     ToneEntry `yaml:"tone,omitempty"`
	Gain     *float64  `yaml:"gain,omitempty"`
	Loop     bool      `yaml:"loop,omitempty"`
	Autoplay bool      `yaml:"autoplay,omitempty"`
}

// ObjectEntry places a mesh in a view.
type ObjectEntry struct {
	Name     string     `yaml:"name"`
	View     string     `yaml:"view,omitempty"`
	Layer    string     `yaml:"layer,omitempty"`
	Material string     `yaml:"material,omitempty"`
	Mesh     string     `yaml:"mesh,omitempty"`
	Position [3]float32 `yaml:"position,omitempty"`
	Scale    [3]float32 `yaml:"scale,omitempty"`
	Spin     [3]float32 `yaml:"spin,omitempty"`
	Hidden   bool       `yaml:"hidden,omitempty"`
}

// Scene is a parsed scene manifest.
type Scene struct {
	Name        string             `yaml:"name"`
	Views       []ViewEntry        `yaml:"views,omitempty"`
	Materials   []MaterialEntry    `yaml:"materials,omitempty"`
	Meshes      []MeshEntry        `yaml:"meshes,omitempty"`
	Compute     []ComputeEntry     `yaml:"compute,omitempty"`
	PostProcess []PostProcessEntry `yaml:"post_process,omitempty"`
	Sounds      []SoundEntry       `yaml:"sounds,omitempty"`
	Objects     []ObjectEntry      `yaml:"objects,omitempty"`

	dir string
}

// MeshFile is the on-disk mesh format written by objconv.
type MeshFile struct {
	Name     string    `yaml:"name"`
	Stride   int       `yaml:"stride,omitempty"`
	Vertices []float32 `yaml:"vertices,omitempty"`
	Indices  []uint32  `yaml:"indices,omitempty"`
}

// LoadScene loads and validates a scene manifest.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	s, err := ParseScene(raw, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return s, nil
}

// ParseScene parses a manifest; dir resolves shader and mesh file paths.
func ParseScene(raw []byte, dir string) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	s.dir = dir
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

type nameSet map[string]int

func (n nameSet) add(kind, name string, i int) error {
	if name == "" {
		return fmt.Errorf("%s #%d has no name", kind, i)
	}
	if _, dup := n[name]; dup {
		return fmt.Errorf("duplicate %s %q", kind, name)
	}
	n[name] = i
	return nil
}

func (s *Scene) validate() error {
	views := nameSet{}
	follows := false
	for i, v := range s.Views {
		follows = follows || v.FollowWindow
		if err := views.add("view", v.Name, i); err != nil {
			return err
		}
		if !v.FollowWindow && (v.Width <= 0 || v.Height <= 0) {
			return fmt.Errorf("view %q needs width and height or follow_window", v.Name)
		}
		if v.Offscreen && v.FollowWindow {
			return fmt.Errorf("view %q: offscreen views cannot follow the window", v.Name)
		}
	}
	limit := int(drawcall.MaxView)
	if !follows {
		// Build adds the implicit main view
		limit--
	}
	if len(s.Views) > limit {
		return fmt.Errorf("%d views exceed %d", len(s.Views), limit)
	}

	materials := nameSet{}
	for i, m := range s.Materials {
		if err := materials.add("material", m.Name, i); err != nil {
			return err
		}
		if _, err := drawcall.ParseBlendMode(m.Blend); err != nil {
			return fmt.Errorf("material %q: %w", m.Name, err)
		}
		if m.Vertex == "" && m.VertexSource == "" {
			return fmt.Errorf("material %q has no vertex shader", m.Name)
		}
		if m.Fragment == "" && m.FragmentSource == "" {
			return fmt.Errorf("material %q has no fragment shader", m.Name)
		}
	}

	meshes := nameSet{}
	for i, m := range s.Meshes {
		if err := meshes.add("mesh", m.Name, i); err != nil {
			return err
		}
		set := 0
		if m.Primitive != "" {
			set++
			if _, ok := render.Primitive(m.Primitive); !ok {
				return fmt.Errorf("mesh %q: unknown primitive %q", m.Name, m.Primitive)
			}
		}
		if m.File != "" {
			set++
		}
		if len(m.Vertices) > 0 {
			set++
		}
		if set != 1 {
			return fmt.Errorf("mesh %q needs exactly one of primitive, file or vertices", m.Name)
		}
	}

	compute := nameSet{}
	for i, c := range s.Compute {
		if err := compute.add("compute shader", c.Name, i); err != nil {
			return err
		}
		if c.Source == "" && c.File == "" {
			return fmt.Errorf("compute shader %q has no source", c.Name)
		}
	}

	effects := nameSet{}
	for i, p := range s.PostProcess {
		if err := effects.add("post-process effect", p.Name, i); err != nil {
			return err
		}
		src, ok := views[p.Source]
		if !ok {
			return fmt.Errorf("post-process %q: unknown source view %q", p.Name, p.Source)
		}
		if !s.Views[src].Offscreen {
			return fmt.Errorf("post-process %q: source view %q is not offscreen", p.Name, p.Source)
		}
		dst, ok := views[p.Target]
		if !ok {
			return fmt.Errorf("post-process %q: unknown target view %q", p.Name, p.Target)
		}
		if dst <= src {
			return fmt.Errorf("post-process %q: target view %q must come after source view %q", p.Name, p.Target, p.Source)
		}
		if p.Fragment == "" && p.FragmentSource == "" {
			return fmt.Errorf("post-process %q has no fragment shader", p.Name)
		}
	}

	sounds := nameSet{}
	for i, snd := range s.Sounds {
		if err := sounds.add("sound", snd.Name, i); err != nil {
			return err
		}
		if snd.Tone.Freq <= 0 || snd.Tone.Duration <= 0 {
			return fmt.Errorf("sound %q needs a positive tone freq and duration", snd.Name)
		}
		if _, ok := audio.ParseWave(snd.Tone.Wave); !ok {
			return fmt.Errorf("sound %q: unknown wave %q", snd.Name, snd.Tone.Wave)
		}
	}

	objects := nameSet{}
	for i, o := range s.Objects {
		if o.Name != "" {
			if err := objects.add("object", o.Name, i); err != nil {
				return err
			}
		}
		layer, err := drawcall.ParseLayer(o.Layer)
		if err != nil {
			return fmt.Errorf("object %q: %w", o.Name, err)
		}
		if layer == drawcall.LayerPostProcess {
			return fmt.Errorf("object %q: the postprocess layer is reserved for effects", o.Name)
		}
		if _, ok := materials[o.Material]; !ok {
			return fmt.Errorf("object %q: unknown material %q", o.Name, o.Material)
		}
		if _, ok := meshes[o.Mesh]; !ok {
			return fmt.Errorf("object %q: unknown mesh %q", o.Name, o.Mesh)
		}
		if o.View != "" {
			if _, ok := views[o.View]; !ok {
				return fmt.Errorf("object %q: unknown view %q", o.Name, o.View)
			}
		}
	}
	return nil
}

// source returns inline if set, else the contents of file relative to the manifest.
func (s *Scene) source(inline, file string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, file)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read shader: %w", err)
	}
	return string(raw), nil
}

func (s *Scene) meshDesc(m MeshEntry) (render.MeshDesc, error) {
	switch {
	case m.Primitive != "":
		d, _ := render.Primitive(m.Primitive)
		d.Name = m.Name
		return d, nil
	case m.File != "":
		path := m.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.dir, path)
		}
		f, err := LoadMeshFile(path)
		if err != nil {
			return render.MeshDesc{}, err
		}
		return render.MeshDesc{Name: m.Name, Vertices: f.Vertices, Indices: f.Indices, Stride: f.Stride}, nil
	}
	stride := m.Stride
	if stride == 0 {
		stride = 3
	}
	return render.MeshDesc{Name: m.Name, Vertices: m.Vertices, Indices: m.Indices, Stride: stride}, nil
}

// LoadMeshFile loads a mesh written by objconv.
func LoadMeshFile(path string) (*MeshFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mesh: %w", err)
	}
	var f MeshFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse mesh %s: %w", path, err)
	}
	if f.Stride == 0 {
		f.Stride = 3
	}
	return &f, nil
}
