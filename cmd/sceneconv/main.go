// sceneconv converts an XML scene description into a YAML scene manifest.
//
// Input shape:
//
//	<Scene Name="demo">
//	  <View Name="main" FollowWindow="true" Eye="0 2 6" Orbit="0.3"/>
//	  <Material Name="flat" Vertex="shaders/flat.vert" Fragment="shaders/flat.frag" Blend="opaque">
//	    <Uniform Name="u_Color" Value="1 0.5 0 1"/>
//	  </Material>
//	  <Mesh Name="cube" Primitive="cube"/>
//	  <Compute Name="sim" File="shaders/sim.comp" Groups="8 1 1"/>
//	  <PostProcess Name="fx" Source="world" Target="main" Fragment="shaders/fx.frag"/>
//	  <Sound Name="hum" Freq="110" Duration="2s" Wave="saw" Loop="true" Autoplay="true"/>
//	  <Object Name="box" Material="flat" Mesh="cube" Position="0 0 0" Spin="0 1 0"/>
//	</Scene>
//
// The result is checked with the scene validator before it is written.
//
// Usage:
//
//	go run ./cmd/sceneconv <scene.xml> [output.yaml]
package main

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vortexengine/vortex/internal/data"
)

// ---------------------------------------------------------------------------
// XML structures
// ---------------------------------------------------------------------------

type XMLScene struct {
	XMLName     xml.Name         `xml:"Scene"`
	Name        string           `xml:"Name,attr"`
	Views       []XMLView        `xml:"View"`
	Materials   []XMLMaterial    `xml:"Material"`
	Meshes      []XMLMesh        `xml:"Mesh"`
	Compute     []XMLCompute     `xml:"Compute"`
	PostProcess []XMLPostProcess `xml:"PostProcess"`
	Sounds      []XMLSound       `xml:"Sound"`
	Objects     []XMLObject      `xml:"Object"`
}

type XMLView struct {
	Name         string  `xml:"Name,attr"`
	Offscreen    bool    `xml:"Offscreen,attr"`
	FollowWindow bool    `xml:"FollowWindow,attr"`
	Width        int     `xml:"Width,attr"`
	Height       int     `xml:"Height,attr"`
	Eye          string  `xml:"Eye,attr"`
	Target       string  `xml:"Target,attr"`
	Fov          float32 `xml:"Fov,attr"`
	ClearColor   string  `xml:"ClearColor,attr"`
	Orbit        float32 `xml:"Orbit,attr"`
}

type XMLUniform struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

type XMLMaterial struct {
	Name     string       `xml:"Name,attr"`
	Vertex   string       `xml:"Vertex,attr"`
	Fragment string       `xml:"Fragment,attr"`
	Blend    string       `xml:"Blend,attr"`
	Uniforms []XMLUniform `xml:"Uniform"`
}

type XMLMesh struct {
	Name      string `xml:"Name,attr"`
	Primitive string `xml:"Primitive,attr"`
	File      string `xml:"File,attr"`
}

type XMLCompute struct {
	Name     string       `xml:"Name,attr"`
	File     string       `xml:"File,attr"`
	Groups   string       `xml:"Groups,attr"`
	Uniforms []XMLUniform `xml:"Uniform"`
}

type XMLPostProcess struct {
	Name     string       `xml:"Name,attr"`
	Source   string       `xml:"Source,attr"`
	Target   string       `xml:"Target,attr"`
	Fragment string       `xml:"Fragment,attr"`
	Uniforms []XMLUniform `xml:"Uniform"`
}

type XMLSound struct {
	Name     string   `xml:"Name,attr"`
	Freq     float64  `xml:"Freq,attr"`
	Duration string   `xml:"Duration,attr"`
	Wave     string   `xml:"Wave,attr"`
	Gain     *float64 `xml:"Gain,attr"`
	Loop     bool     `xml:"Loop,attr"`
	Autoplay bool     `xml:"Autoplay,attr"`
}

type XMLObject struct {
	Name     string `xml:"Name,attr"`
	View     string `xml:"View,attr"`
	Layer    string `xml:"Layer,attr"`
	Material string `xml:"Material,attr"`
	Mesh     string `xml:"Mesh,attr"`
	Position string `xml:"Position,attr"`
	Scale    string `xml:"Scale,attr"`
	Spin     string `xml:"Spin,attr"`
	Hidden   bool   `xml:"Hidden,attr"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: sceneconv <scene.xml> [output.yaml]")
		os.Exit(1)
	}
	inputPath := os.Args[1]
	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".yaml"
	if len(os.Args) >= 3 {
		outputPath = os.Args[2]
	}

	// ---- Read & parse XML ----
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", inputPath, err)
		os.Exit(1)
	}

	var src XMLScene
	if err := xml.Unmarshal(raw, &src); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing XML: %v\n", err)
		os.Exit(1)
	}

	scene, err := convert(&src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error converting %s: %v\n", inputPath, err)
		os.Exit(1)
	}

	// ---- Marshal & validate ----
	yamlData, err := yaml.Marshal(scene)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error marshalling YAML: %v\n", err)
		os.Exit(1)
	}
	if _, err := data.ParseScene(yamlData, filepath.Dir(outputPath)); err != nil {
		fmt.Fprintf(os.Stderr, "converted scene is invalid: %v\n", err)
		os.Exit(1)
	}

	header := fmt.Sprintf("# Scene %s - converted from %s\n\n", scene.Name, filepath.Base(inputPath))
	if err := os.WriteFile(outputPath, append([]byte(header), yamlData...), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", outputPath, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d views, %d materials, %d meshes, %d objects to %s\n",
		len(scene.Views), len(scene.Materials), len(scene.Meshes), len(scene.Objects), outputPath)
}

func convert(src *XMLScene) (*data.Scene, error) {
	out := &data.Scene{Name: src.Name}

	for _, v := range src.Views {
		e := data.ViewEntry{
			Name:         v.Name,
			Offscreen:    v.Offscreen,
			FollowWindow: v.FollowWindow,
			Width:        v.Width,
			Height:       v.Height,
			FovY:         v.Fov,
			Orbit:        v.Orbit,
		}
		var err error
		if e.Eye, err = vec3(v.Eye); err != nil {
			return nil, fmt.Errorf("view %s eye: %w", v.Name, err)
		}
		if e.Target, err = vec3(v.Target); err != nil {
			return nil, fmt.Errorf("view %s target: %w", v.Name, err)
		}
		cc, err := floats(v.ClearColor, 4)
		if err != nil {
			return nil, fmt.Errorf("view %s clear color: %w", v.Name, err)
		}
		for i, f := range cc {
			e.ClearColor[i] = float32(f)
		}
		out.Views = append(out.Views, e)
	}

	for _, m := range src.Materials {
		uniforms, err := uniformMap(m.Uniforms)
		if err != nil {
			return nil, fmt.Errorf("material %s: %w", m.Name, err)
		}
		out.Materials = append(out.Materials, data.MaterialEntry{
			Name:     m.Name,
			Vertex:   m.Vertex,
			Fragment: m.Fragment,
			Blend:    strings.ToLower(m.Blend),
			Uniforms: uniforms,
		})
	}

	for _, m := range src.Meshes {
		out.Meshes = append(out.Meshes, data.MeshEntry{Name: m.Name, Primitive: strings.ToLower(m.Primitive), File: m.File})
	}

	for _, c := range src.Compute {
		e := data.ComputeEntry{Name: c.Name, File: c.File}
		groups, err := floats(c.Groups, 3)
		if err != nil {
			return nil, fmt.Errorf("compute %s groups: %w", c.Name, err)
		}
		for i, g := range groups {
			e.Groups[i] = uint32(g)
		}
		if e.Uniforms, err = uniformMap(c.Uniforms); err != nil {
			return nil, fmt.Errorf("compute %s: %w", c.Name, err)
		}
		out.Compute = append(out.Compute, e)
	}

	for _, p := range src.PostProcess {
		uniforms, err := uniformMap(p.Uniforms)
		if err != nil {
			return nil, fmt.Errorf("post-process %s: %w", p.Name, err)
		}
		out.PostProcess = append(out.PostProcess, data.PostProcessEntry{
			Name:     p.Name,
			Source:   p.Source,
			Target:   p.Target,
			Fragment: p.Fragment,
			Uniforms: uniforms,
		})
	}

	for _, s := range src.Sounds {
		d, err := time.ParseDuration(s.Duration)
		if err != nil {
			return nil, fmt.Errorf("sound %s duration: %w", s.Name, err)
		}
		out.Sounds = append(out.Sounds, data.SoundEntry{
			Name:     s.Name,
			Tone:     data.ToneEntry{Freq: s.Freq, Duration: d, Wave: strings.ToLower(s.Wave)},
			Gain:     s.Gain,
			Loop:     s.Loop,
			Autoplay: s.Autoplay,
		})
	}

	for _, o := range src.Objects {
		e := data.ObjectEntry{
			Name:     o.Name,
			View:     o.View,
			Layer:    strings.ToLower(o.Layer),
			Material: o.Material,
			Mesh:     o.Mesh,
			Hidden:   o.Hidden,
		}
		var err error
		if e.Position, err = vec3(o.Position); err != nil {
			return nil, fmt.Errorf("object %s position: %w", o.Name, err)
		}
		if e.Scale, err = vec3(o.Scale); err != nil {
			return nil, fmt.Errorf("object %s scale: %w", o.Name, err)
		}
		if e.Spin, err = vec3(o.Spin); err != nil {
			return nil, fmt.Errorf("object %s spin: %w", o.Name, err)
		}
		out.Objects = append(out.Objects, e)
	}
	return out, nil
}

// floats parses up to n space- or comma-separated numbers; empty means none.
func floats(s string, n int) ([]float64, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	if len(parts) > n {
		return nil, fmt.Errorf("%q has more than %d values", s, n)
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func vec3(s string) ([3]float32, error) {
	var v [3]float32
	fs, err := floats(s, 3)
	if err != nil {
		return v, err
	}
	if len(fs) != 0 && len(fs) != 3 {
		return v, fmt.Errorf("%q needs 3 values", s)
	}
	for i, f := range fs {
		v[i] = float32(f)
	}
	return v, nil
}

// uniformMap turns one number into a scalar and several into a list, the
// shapes the scene loader converts to float32 and vectors.
func uniformMap(us []XMLUniform) (map[string]any, error) {
	if len(us) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(us))
	for _, u := range us {
		fs, err := floats(u.Value, 4)
		if err != nil {
			return nil, fmt.Errorf("uniform %s: %w", u.Name, err)
		}
		switch len(fs) {
		case 0:
			return nil, fmt.Errorf("uniform %s has no value", u.Name)
		case 1:
			out[u.Name] = fs[0]
		default:
			out[u.Name] = fs
		}
	}
	return out, nil
}
