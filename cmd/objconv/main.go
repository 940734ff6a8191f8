// objconv converts a Wavefront OBJ model into a mesh file for the scene loader.
//
// Faces are triangulated as fans. With normals present each vertex is
// position followed by normal (stride 6); otherwise positions only (stride 3).
//
// Usage:
//
//	go run ./cmd/objconv <model.obj> <output.yaml>
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vortexengine/vortex/internal/data"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: objconv <model.obj> <output.yaml>")
		os.Exit(1)
	}

	inFile, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer inFile.Close()

	name := strings.TrimSuffix(filepath.Base(os.Args[1]), filepath.Ext(os.Args[1]))
	mesh, err := convert(inFile, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error converting %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	yamlData, err := yaml.Marshal(mesh)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error marshalling YAML: %v\n", err)
		os.Exit(1)
	}
	header := fmt.Sprintf("# Mesh %s - converted from %s\n\n", name, filepath.Base(os.Args[1]))
	if err := os.WriteFile(os.Args[2], append([]byte(header), yamlData...), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", os.Args[2], err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d vertices, %d triangles to %s\n", len(mesh.Vertices)/mesh.Stride, len(mesh.Indices)/3, os.Args[2])
}

// corner is one face corner: 1-based position and normal indices, 0 = absent.
type corner struct {
	pos, normal int
}

func convert(r io.Reader, name string) (*data.MeshFile, error) {
	var (
		positions [][3]float32
		normals   [][3]float32
		faces     [][]corner
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v", "vn":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if fields[0] == "v" {
				positions = append(positions, v)
			} else {
				normals = append(normals, v)
			}
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 corners", lineNo)
			}
			var face []corner
			for _, f := range fields[1:] {
				c, err := parseCorner(f, len(positions), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				face = append(face, c)
			}
			faces = append(faces, face)
		}
		// vt, o, g, s, usemtl and mtllib are ignored
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, fmt.Errorf("no faces")
	}

	withNormals := len(normals) > 0
	for _, face := range faces {
		for _, c := range face {
			if c.normal == 0 {
				withNormals = false
			}
		}
	}

	mesh := &data.MeshFile{Name: name, Stride: 3}
	if withNormals {
		mesh.Stride = 6
	}
	seen := make(map[corner]uint32)
	index := func(c corner) uint32 {
		if !withNormals {
			c.normal = 0
		}
		if i, ok := seen[c]; ok {
			return i
		}
		i := uint32(len(mesh.Vertices) / mesh.Stride)
		p := positions[c.pos-1]
		mesh.Vertices = append(mesh.Vertices, p[0], p[1], p[2])
		if withNormals {
			n := normals[c.normal-1]
			mesh.Vertices = append(mesh.Vertices, n[0], n[1], n[2])
		}
		seen[c] = i
		return i
	}
	for _, face := range faces {
		first := index(face[0])
		for k := 1; k+1 < len(face); k++ {
			mesh.Indices = append(mesh.Indices, first, index(face[k]), index(face[k+1]))
		}
	}
	return mesh, nil
}

func parseVec3(fields []string) ([3]float32, error) {
	var v [3]float32
	if len(fields) < 3 {
		return v, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	for i := range v {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}

// parseCorner reads v, v/vt, v//vn or v/vt/vn. Negative indices count back
// from the latest element.
func parseCorner(s string, npos, nnorm int) (corner, error) {
	parts := strings.Split(s, "/")
	var c corner
	var err error
	if c.pos, err = resolve(parts[0], npos); err != nil {
		return c, fmt.Errorf("corner %q: %w", s, err)
	}
	if len(parts) == 3 && parts[2] != "" {
		if c.normal, err = resolve(parts[2], nnorm); err != nil {
			return c, fmt.Errorf("corner %q: %w", s, err)
		}
	}
	return c, nil
}

func resolve(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i = count + 1 + i
	}
	if i < 1 || i > count {
		return 0, fmt.Errorf("index %s out of %d", s, count)
	}
	return i, nil
}
