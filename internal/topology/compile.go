package topology

import (
	"fmt"

	"github.com/samcharles93/subdiv/internal/tables"
)

const (
	catmarkEdgeWeight = 0.25
	loopEdgeWeight    = 0.375
	loopOppWeight     = 0.125
)

// Refinement is the result of Compile: the table set plus the faces of every
// level, with indices local to that level (level 0 is the coarse mesh).
type Refinement struct {
	Set   *tables.Set
	Faces [][][]int
}

// FacesAt returns the faces of level with indices local to the level.
func (r *Refinement) FacesAt(level int) [][]int {
	if level < 0 || level >= len(r.Faces) {
		tables.Fail("Refinement.FacesAt", "level %d outside [0,%d]", level, len(r.Faces)-1)
	}
	return r.Faces[level]
}

// levelTables collects the per-level slices before they are flattened.
type levelTables struct {
	ints   [tables.NumKinds][][]int32
	floats [tables.NumKinds][][]float32
}

// Compile builds the subdivision tables that refine m uniformly to maxLevel
// under scheme.
func Compile(m *Mesh, scheme tables.Scheme, maxLevel int) (*Refinement, error) {
	if maxLevel < 1 {
		return nil, fmt.Errorf("topology: max level %d must be at least 1", maxLevel)
	}
	if err := m.Validate(scheme); err != nil {
		return nil, err
	}

	set := &tables.Set{Scheme: scheme, MaxLevel: maxLevel, NumCoarseVertices: m.NumVertices}
	ref := &Refinement{Set: set, Faces: [][][]int{m.Faces}}

	var lt levelTables
	base, next := 0, m.NumVertices
	faces, numVertices := m.Faces, m.NumVertices
	for level := 1; level <= maxLevel; level++ {
		adj, err := analyze(numVertices, faces)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", level-1, err)
		}
		b := &levelBuilder{scheme: scheme, adj: adj, base: base, offset: next}
		b.build()
		for _, k := range scheme.Required() {
			if k.IsWeight() {
				lt.floats[k] = append(lt.floats[k], b.floats[k])
			} else {
				lt.ints[k] = append(lt.ints[k], b.ints[k])
			}
		}
		set.Batches = append(set.Batches, b.batch)
		ref.Faces = append(ref.Faces, b.children)

		base, next = next, next+b.batch.NumVertices()
		faces, numVertices = b.children, b.batch.NumVertices()
	}
	for _, k := range scheme.Required() {
		if k.IsWeight() {
			set.Weights[k] = tables.NewTable(lt.floats[k]...)
		} else {
			set.Indices[k] = tables.NewTable(lt.ints[k]...)
		}
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return ref, nil
}

type levelBuilder struct {
	scheme tables.Scheme
	adj    *adjacency
	base   int // buffer index of parent vertex 0
	offset int // buffer index of the first vertex created here

	numFaces int
	pos      []int // parent vertex -> vertex point slot

	ints     [tables.NumKinds][]int32
	floats   [tables.NumKinds][]float32
	batch    tables.Batch
	children [][]int
}

func (b *levelBuilder) parent(v int) int32 { return int32(b.base + v) }

func (b *levelBuilder) facePoint(fi int) int32 { return int32(b.offset + fi) }

func (b *levelBuilder) build() {
	adj := b.adj
	if b.scheme != tables.Loop {
		b.numFaces = len(adj.faces)
	}
	b.batch = tables.Batch{
		VertexOffset:      b.offset,
		NumFaceVertices:   b.numFaces,
		NumEdgeVertices:   len(adj.edges),
		NumVertexVertices: adj.numVertices,
		Face:              tables.Range{End: b.numFaces},
		Edge:              tables.Range{End: len(adj.edges)},
	}
	if b.scheme != tables.Loop {
		b.faceTables()
	}
	b.edgeTables()
	b.vertexTables()
	b.childFaces()
}

func (b *levelBuilder) faceTables() {
	for _, f := range b.adj.faces {
		b.ints[tables.FaceAddresses] = append(b.ints[tables.FaceAddresses],
			int32(len(b.ints[tables.FaceIndices])), int32(len(f)))
		for _, v := range f {
			b.ints[tables.FaceIndices] = append(b.ints[tables.FaceIndices], b.parent(v))
		}
	}
}

func (b *levelBuilder) edgeTables() {
	eIT := b.ints[tables.EdgeIndices]
	eW := b.floats[tables.EdgeWeights]
	for i := range b.adj.edges {
		e := &b.adj.edges[i]
		if b.scheme == tables.Bilinear {
			eIT = append(eIT, b.parent(e.v0), b.parent(e.v1))
			continue
		}
		if e.boundary() {
			eIT = append(eIT, b.parent(e.v0), b.parent(e.v1), -1, -1)
			eW = append(eW, 0.5, 0)
			continue
		}
		switch b.scheme {
		case tables.CatmullClark:
			eIT = append(eIT, b.parent(e.v0), b.parent(e.v1), b.facePoint(e.faces[0]), b.facePoint(e.faces[1]))
			eW = append(eW, catmarkEdgeWeight, catmarkEdgeWeight)
		case tables.Loop:
			eIT = append(eIT, b.parent(e.v0), b.parent(e.v1),
				b.parent(b.opposite(e.faces[0], e)), b.parent(b.opposite(e.faces[1], e)))
			eW = append(eW, loopEdgeWeight, loopOppWeight)
		}
	}
	b.ints[tables.EdgeIndices] = eIT
	b.floats[tables.EdgeWeights] = eW
}

// opposite returns the corner of triangle fi that is not on e.
func (b *levelBuilder) opposite(fi int, e *edge) int {
	for _, v := range b.adj.faces[fi] {
		if v != e.v0 && v != e.v1 {
			return v
		}
	}
	return e.v0
}

func (b *levelBuilder) vertexTables() {
	adj := b.adj
	b.pos = make([]int, adj.numVertices)
	if b.scheme == tables.Bilinear {
		for v := range adj.numVertices {
			b.pos[v] = v
			b.ints[tables.VertexAddresses] = append(b.ints[tables.VertexAddresses], b.parent(v))
		}
		b.batch.Vertex = tables.Range{End: adj.numVertices}
		return
	}

	// Smooth vertices first so pass B and pass A each cover one contiguous range.
	type sharp struct {
		v      int
		e0, e1 int
	}
	var smooth []int
	var sharps []sharp
	for v := range adj.numVertices {
		rule, e0, e1 := adj.classify(v)
		if rule == ruleSmooth {
			smooth = append(smooth, v)
			continue
		}
		sharps = append(sharps, sharp{v: v, e0: e0, e1: e1})
	}

	vITa := b.ints[tables.VertexAddresses]
	vIT := b.ints[tables.VertexIndices]
	vW := b.floats[tables.VertexWeights]
	for i, v := range smooth {
		b.pos[v] = i
		n := len(adj.vertEdges[v])
		vITa = append(vITa, int32(len(vIT)), int32(n), b.parent(v), -1, -1)
		for j, ei := range adj.vertEdges[v] {
			vIT = append(vIT, b.parent(adj.edges[ei].other(v)))
			if b.scheme == tables.CatmullClark {
				vIT = append(vIT, b.facePoint(adj.vertFaces[v][j]))
			}
		}
		vW = append(vW, 1)
	}
	for i, s := range sharps {
		b.pos[s.v] = len(smooth) + i
		e0, e1 := int32(-1), int32(-1)
		if s.e0 >= 0 {
			e0, e1 = b.parent(s.e0), b.parent(s.e1)
		}
		vITa = append(vITa, int32(len(vIT)), int32(len(adj.vertEdges[s.v])), b.parent(s.v), e0, e1)
		vW = append(vW, 0)
	}
	b.ints[tables.VertexAddresses] = vITa
	b.ints[tables.VertexIndices] = vIT
	b.floats[tables.VertexWeights] = vW
	b.batch.Vertex = tables.Range{End: len(smooth)}
	b.batch.VertexA0 = tables.Range{Start: len(smooth), End: adj.numVertices}
}

func (b *levelBuilder) childFaces() {
	adj := b.adj
	edgePoint := func(v, w int) int { return b.numFaces + adj.edgeOf(v, w) }
	vertexPoint := func(v int) int { return b.numFaces + len(adj.edges) + b.pos[v] }

	for fi, f := range adj.faces {
		n := len(f)
		if b.scheme == tables.Loop {
			a, c, d := f[0], f[1], f[2]
			ac, cd, da := edgePoint(a, c), edgePoint(c, d), edgePoint(d, a)
			b.children = append(b.children,
				[]int{vertexPoint(a), ac, da},
				[]int{vertexPoint(c), cd, ac},
				[]int{vertexPoint(d), da, cd},
				[]int{ac, cd, da},
			)
			continue
		}
		for i, v := range f {
			next, prev := f[(i+1)%n], f[(i+n-1)%n]
			b.children = append(b.children, []int{vertexPoint(v), edgePoint(v, next), fi, edgePoint(prev, v)})
		}
	}
}
