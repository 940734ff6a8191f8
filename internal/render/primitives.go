package render

// Built-in geometry. Vertices are position (3) + normal (3) + uv (2).
const primitiveStride = 8

// Quad returns a unit quad in the XY plane centred on the origin.
func Quad() MeshDesc {
	return MeshDesc{
		Name: "quad",
		Vertices: []float32{
			-0.5, -0.5, 0, 0, 0, 1, 0, 0,
			0.5, -0.5, 0, 0, 0, 1, 1, 0,
			0.5, 0.5, 0, 0, 0, 1, 1, 1,
			-0.5, 0.5, 0, 0, 0, 1, 0, 1,
		},
		Indices: []uint32{0, 1, 2, 2, 3, 0},
		Stride:  primitiveStride,
	}
}

// FullscreenQuad covers clip space; post-process passes draw it.
func FullscreenQuad() MeshDesc {
	d := Quad()
	d.Name = "fullscreen"
	for i := 0; i < len(d.Vertices); i += primitiveStride {
		d.Vertices[i] *= 2
		d.Vertices[i+1] *= 2
	}
	return d
}

// Triangle returns a single triangle in the XY plane.
func Triangle() MeshDesc {
	return MeshDesc{
		Name: "triangle",
		Vertices: []float32{
			-0.5, -0.5, 0, 0, 0, 1, 0, 0,
			0.5, -0.5, 0, 0, 0, 1, 1, 0,
			0, 0.5, 0, 0, 0, 1, 0.5, 1,
		},
		Indices: []uint32{0, 1, 2},
		Stride:  primitiveStride,
	}
}

// Cube returns a unit cube with per-face normals.
func Cube() MeshDesc {
	faces := [6]struct{ n, u, v [3]float32 }{
		{[3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{0, 0, -1}, [3]float32{-1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{1, 0, 0}, [3]float32{0, 0, -1}, [3]float32{0, 1, 0}},
		{[3]float32{-1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}},
		{[3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}},
		{[3]float32{0, -1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	d := MeshDesc{Name: "cube", Stride: primitiveStride}
	for f, face := range faces {
		for _, c := range corners {
			for axis := 0; axis < 3; axis++ {
				p := face.n[axis]*0.5 + face.u[axis]*c[0]*0.5 + face.v[axis]*c[1]*0.5
				d.Vertices = append(d.Vertices, p)
			}
			d.Vertices = append(d.Vertices, face.n[0], face.n[1], face.n[2], (c[0]+1)/2, (c[1]+1)/2)
		}
		base := uint32(f * 4)
		d.Indices = append(d.Indices, base, base+1, base+2, base+2, base+3, base)
	}
	return d
}

// Primitive returns a built-in mesh by name.
func Primitive(name string) (MeshDesc, bool) {
	switch name {
	case "quad":
		return Quad(), true
	case "triangle":
		return Triangle(), true
	case "cube":
		return Cube(), true
	case "fullscreen":
		return FullscreenQuad(), true
	}
	return MeshDesc{}, false
}
