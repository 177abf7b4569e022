package topology

import (
	"errors"
	"testing"

	"github.com/samcharles93/subdiv/internal/tables"
)

func TestCompileCounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mesh   *Mesh
		scheme tables.Scheme
		levels int
		verts  []int // buffer size after each level
		faces  []int
	}{
		{"quad bilinear", Quad(), tables.Bilinear, 2, []int{13, 38}, []int{4, 16}},
		{"cube catmark", Cube(), tables.CatmullClark, 2, []int{34, 132}, []int{24, 96}},
		{"tetra loop", Tetrahedron(), tables.Loop, 2, []int{14, 48}, []int{16, 64}},
		{"pentagon catmark", &Mesh{NumVertices: 5, Faces: [][]int{{0, 1, 2, 3, 4}}}, tables.CatmullClark, 1, []int{16}, []int{5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ref, err := Compile(tt.mesh, tt.scheme, tt.levels)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			for level := 1; level <= tt.levels; level++ {
				if got := ref.Set.NumVertices(level); got != tt.verts[level-1] {
					t.Fatalf("level %d vertices = %d, want %d", level, got, tt.verts[level-1])
				}
				if got := len(ref.FacesAt(level)); got != tt.faces[level-1] {
					t.Fatalf("level %d faces = %d, want %d", level, got, tt.faces[level-1])
				}
			}
			if err := ref.Set.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestCompileVertexRules(t *testing.T) {
	t.Parallel()

	closed, err := Compile(Cube(), tables.CatmullClark, 1)
	if err != nil {
		t.Fatal(err)
	}
	b := closed.Set.Batch(1)
	if b.Vertex.Len() != 8 || !b.VertexA0.Empty() {
		t.Fatalf("closed cube ranges: B=%+v A0=%+v", b.Vertex, b.VertexA0)
	}

	// A 2x2 grid has one interior vertex, four creased edge midpoints and four corners.
	open, err := Compile(Grid(2, 2), tables.CatmullClark, 1)
	if err != nil {
		t.Fatal(err)
	}
	b = open.Set.Batch(1)
	if b.Vertex.Len() != 1 || b.VertexA0.Len() != 8 {
		t.Fatalf("grid ranges: B=%+v A0=%+v", b.Vertex, b.VertexA0)
	}
	vITa := open.Set.Indices[tables.VertexAddresses].Slice(0)
	corners, creases := 0, 0
	for i := b.VertexA0.Start; i < b.VertexA0.End; i++ {
		if vITa[5*i+3] == -1 {
			corners++
		} else {
			creases++
		}
	}
	if corners != 4 || creases != 4 {
		t.Fatalf("corners=%d creases=%d, want 4 and 4", corners, creases)
	}
}

func TestCompileChildFacesStayLocal(t *testing.T) {
	t.Parallel()

	if _, err := Compile(Grid(3, 2), tables.Loop, 2); err == nil {
		t.Fatal("loop accepted a quad grid")
	}
	ref, err := Compile(Grid(3, 2), tables.CatmullClark, 2)
	if err != nil {
		t.Fatal(err)
	}
	for level := 1; level <= 2; level++ {
		n := ref.Set.Batch(level).NumVertices()
		for fi, f := range ref.FacesAt(level) {
			for _, v := range f {
				if v < 0 || v >= n {
					t.Fatalf("level %d face %d references %d of %d", level, fi, v, n)
				}
			}
		}
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mesh *Mesh
		want error
	}{
		{"no faces", &Mesh{NumVertices: 3}, ErrInvalidMesh},
		{"out of range", &Mesh{NumVertices: 3, Faces: [][]int{{0, 1, 3}}}, ErrInvalidMesh},
		{"degenerate", &Mesh{NumVertices: 3, Faces: [][]int{{0, 1, 1}}}, ErrInvalidMesh},
		{"fin", &Mesh{NumVertices: 5, Faces: [][]int{{0, 1, 2}, {1, 0, 3}, {0, 1, 4}}}, ErrNonManifold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Compile(tt.mesh, tables.CatmullClark, 1); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := Compile(Quad(), tables.Bilinear, 0); err == nil {
		t.Fatal("max level 0 accepted")
	}
}
