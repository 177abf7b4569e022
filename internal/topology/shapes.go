package topology

// Quad is a single quadrilateral.
func Quad() *Mesh {
	return &Mesh{NumVertices: 4, Faces: [][]int{{0, 1, 2, 3}}}
}

// Grid is a w by h grid of quads over (w+1)*(h+1) vertices in row-major order.
func Grid(w, h int) *Mesh {
	m := &Mesh{NumVertices: (w + 1) * (h + 1)}
	for y := range h {
		for x := range w {
			v := y*(w+1) + x
			m.Faces = append(m.Faces, []int{v, v + 1, v + w + 2, v + w + 1})
		}
	}
	return m
}

// GridPositions returns unit-spaced positions for Grid(w, h) in the z=0 plane.
func GridPositions(w, h int) []float32 {
	pos := make([]float32, 0, 3*(w+1)*(h+1))
	for y := range h + 1 {
		for x := range w + 1 {
			pos = append(pos, float32(x), float32(y), 0)
		}
	}
	return pos
}

// Cube is the closed cube over CubePositions.
func Cube() *Mesh {
	return &Mesh{NumVertices: 8, Faces: [][]int{
		{0, 1, 3, 2}, {2, 3, 5, 4}, {4, 5, 7, 6},
		{6, 7, 1, 0}, {1, 7, 5, 3}, {6, 0, 2, 4},
	}}
}

// CubePositions places the cube corners at (±1, ±1, ±1).
func CubePositions() []float32 {
	return []float32{
		-1, -1, 1, 1, -1, 1, -1, 1, 1, 1, 1, 1,
		-1, 1, -1, 1, 1, -1, -1, -1, -1, 1, -1, -1,
	}
}

// Tetrahedron is the closed triangle mesh over TetrahedronPositions.
func Tetrahedron() *Mesh {
	return &Mesh{NumVertices: 4, Faces: [][]int{{0, 1, 2}, {0, 3, 1}, {1, 3, 2}, {2, 3, 0}}}
}

// TetrahedronPositions is a regular tetrahedron centred on the origin.
func TetrahedronPositions() []float32 {
	return []float32{1, 1, 1, 1, -1, -1, -1, 1, -1, -1, -1, 1}
}
