package kernel

import (
	"testing"
)

// positions builds a position-only Desc from xyz triples plus room for extra
// output vertices.
func positions(extra int, xyz ...float32) *Desc {
	v := make([]float32, len(xyz)+3*extra)
	copy(v, xyz)
	return &Desc{Vertex: v}
}

func vertex(d *Desc, i int) []float32 {
	vs := d.VertexStride()
	return d.Vertex[i*vs : (i+1)*vs]
}

func assertNear(t *testing.T, got []float32, want ...float32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if !NearlyEqual(got[i], want[i], 1e-5) {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestComputeFace(t *testing.T) {
	t.Parallel()

	d := positions(2, 0, 0, 0, 2, 0, 0, 2, 2, 0, 0, 2, 0, 1, 1, 1)
	fIT := []int32{0, 1, 2, 3, 0, 1, 4}
	fITa := []int32{0, 4, 4, 3}
	ComputeFace(d, fIT, fITa, 5, 0, 2)

	assertNear(t, vertex(d, 5), 1, 1, 0)
	assertNear(t, vertex(d, 6), 1, 1.0/3, 1.0/3)
}

func TestComputeEdge(t *testing.T) {
	t.Parallel()

	// 0,1 edge ends; 2,3 face points; the second entry is a boundary edge.
	d := positions(2, 0, 0, 0, 4, 0, 0, 2, 2, 0, 2, -2, 0)
	d.NumVaryingElements = 1
	d.Varying = []float32{0, 10, 99, 99, 0, 0}
	eIT := []int32{0, 1, 2, 3, 0, 1, -1, -1}
	eW := []float32{0.25, 0.25, 0.5, 0}
	ComputeEdge(d, eIT, eW, 4, 0, 2)

	assertNear(t, vertex(d, 4), 2, 0, 0)
	assertNear(t, vertex(d, 5), 2, 0, 0)
	assertNear(t, d.Varying[4:6], 5, 5)
}

func TestComputeVertexPassA(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		vITa   []int32
		weight float32
		want   []float32
	}{
		{"corner", []int32{0, 2, 0, -1, -1}, 0, []float32{1, 1, 0}},
		{"crease", []int32{0, 3, 0, 1, 2}, 0, []float32{0.75 + 0.125*(0+4), 0.75, 0}},
		{"corner flag", []int32{0, -1, 0, 1, 2}, 0, []float32{1, 1, 0}},
		// A corner relaxing into a crease: (1-w) corner + w crease.
		{"blend", []int32{0, -1, 0, 1, 2}, 0.5, []float32{0.5 + 0.5*1.25, 0.5 + 0.5*0.75, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := positions(1, 1, 1, 0, 0, 0, 0, 4, 0, 0)
			vW := []float32{tt.weight}
			ComputeVertexA0(d, tt.vITa, vW, 3, 0, 1)
			ComputeVertexA1(d, tt.vITa, vW, 3, 0, 1)
			assertNear(t, vertex(d, 3), tt.want...)
		})
	}
}

func TestComputeVertexB(t *testing.T) {
	t.Parallel()

	// Valence 4 regular vertex at the origin with neighbours on the axes and
	// face points on the diagonals.
	d := positions(1,
		0, 0, 0,
		1, 0, 0, 1, 1, 0,
		0, 1, 0, -1, 1, 0,
		-1, 0, 0, -1, -1, 0,
		0, -1, 0, 1, -1, 0,
	)
	vITa := []int32{0, 4, 0, -1, -1}
	vIT := []int32{1, 2, 3, 4, 5, 6, 7, 8}

	d.Vertex[27] = 9 // stale output that a full-weight rule must overwrite
	ComputeVertexB(d, vITa, vIT, []float32{1}, 9, 0, 1)
	assertNear(t, vertex(d, 9), 0, 0, 0)

	// A fractional weight accumulates onto what pass A wrote.
	copy(vertex(d, 9), []float32{2, 0, 0})
	ComputeVertexB(d, vITa, vIT, []float32{0.5}, 9, 0, 1)
	assertNear(t, vertex(d, 9), 2, 0, 0)
}

func TestComputeLoopVertexB(t *testing.T) {
	t.Parallel()

	d := positions(1, 6, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	ComputeLoopVertexB(d, []int32{0, 3, 0, -1, -1}, []int32{1, 2, 3}, []float32{1}, 4, 0, 1)
	// 1 - 3 * 3/16 of the centre, neighbours at the origin.
	assertNear(t, vertex(d, 4), 6*(1-9.0/16), 0, 0)
}

func TestLoopBeta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want float32
	}{
		{3, 3.0 / 16},
		{6, 1.0 / 16},
	}
	for _, tt := range tests {
		if got := LoopBeta(tt.n); !NearlyEqual(got, tt.want, 1e-6) {
			t.Errorf("LoopBeta(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestBilinearKernels(t *testing.T) {
	t.Parallel()

	d := positions(2, 0, 0, 0, 2, 4, 6)
	ComputeBilinearEdge(d, []int32{0, 1}, 2, 0, 1)
	ComputeBilinearVertex(d, []int32{1}, 3, 0, 1)
	assertNear(t, vertex(d, 2), 1, 2, 3)
	assertNear(t, vertex(d, 3), 2, 4, 6)
}

func TestEditVertexAdd(t *testing.T) {
	t.Parallel()

	// Two user elements per vertex: stride 5.
	vertexData := make([]float32, 5*6)
	EditVertexAdd(vertexData, 2, 3, 2, 2, []int32{3, 5}, []float32{1, 2, 3, 4})

	for i, want := range map[int]float32{(2+1)*5 + 3: 1, (2+1)*5 + 4: 2, (2+3)*5 + 3: 3, (2+3)*5 + 4: 4} {
		if vertexData[i] != want {
			t.Fatalf("element %d = %v, want %v", i, vertexData[i], want)
		}
	}
	var sum float32
	for _, v := range vertexData {
		sum += v
	}
	if sum != 10 {
		t.Fatalf("edit touched other elements: sum %v", sum)
	}
}
