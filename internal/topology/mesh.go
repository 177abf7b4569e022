// Package topology compiles subdivision tables for uniform refinement of
// manifold polygon meshes. Interior vertices follow the smooth rules of the
// scheme, boundary edges are treated as creases and vertices on a single
// face as corners.
package topology

import (
	"errors"
	"fmt"

	"github.com/samcharles93/subdiv/internal/tables"
)

var (
	ErrInvalidMesh = errors.New("topology: invalid mesh")
	ErrNonManifold = errors.New("topology: non-manifold mesh")
)

// Mesh is a polygon mesh given by its vertex count and faces of vertex indices.
type Mesh struct {
	NumVertices int
	Faces       [][]int
}

// Validate checks the faces reference existing vertices, have at least three
// distinct corners and, for Loop, are triangles.
func (m *Mesh) Validate(scheme tables.Scheme) error {
	if m.NumVertices <= 0 {
		return fmt.Errorf("%w: no vertices", ErrInvalidMesh)
	}
	if len(m.Faces) == 0 {
		return fmt.Errorf("%w: no faces", ErrInvalidMesh)
	}
	for fi, f := range m.Faces {
		if len(f) < 3 {
			return fmt.Errorf("%w: face %d has %d vertices", ErrInvalidMesh, fi, len(f))
		}
		if scheme == tables.Loop && len(f) != 3 {
			return fmt.Errorf("%w: loop requires triangles, face %d has %d vertices", ErrInvalidMesh, fi, len(f))
		}
		for i, v := range f {
			if v < 0 || v >= m.NumVertices {
				return fmt.Errorf("%w: face %d references vertex %d of %d", ErrInvalidMesh, fi, v, m.NumVertices)
			}
			if v == f[(i+1)%len(f)] {
				return fmt.Errorf("%w: face %d has a degenerate edge at vertex %d", ErrInvalidMesh, fi, v)
			}
		}
	}
	return nil
}

type edgeKey struct{ a, b int }

func keyOf(v, w int) edgeKey {
	if v > w {
		v, w = w, v
	}
	return edgeKey{v, w}
}

type edge struct {
	v0, v1 int
	faces  [2]int
	nfaces int
}

func (e *edge) other(v int) int {
	if e.v0 == v {
		return e.v1
	}
	return e.v0
}

func (e *edge) boundary() bool { return e.nfaces == 1 }

// adjacency is the edge and incidence structure of one level.
type adjacency struct {
	numVertices int
	faces       [][]int
	edges       []edge
	edgeIndex   map[edgeKey]int
	vertEdges   [][]int
	vertFaces   [][]int
}

func analyze(numVertices int, faces [][]int) (*adjacency, error) {
	adj := &adjacency{
		numVertices: numVertices,
		faces:       faces,
		edgeIndex:   make(map[edgeKey]int),
		vertEdges:   make([][]int, numVertices),
		vertFaces:   make([][]int, numVertices),
	}
	for fi, f := range faces {
		for i, v := range f {
			adj.vertFaces[v] = append(adj.vertFaces[v], fi)
			k := keyOf(v, f[(i+1)%len(f)])
			ei, ok := adj.edgeIndex[k]
			if !ok {
				ei = len(adj.edges)
				adj.edges = append(adj.edges, edge{v0: k.a, v1: k.b, faces: [2]int{-1, -1}})
				adj.edgeIndex[k] = ei
				adj.vertEdges[k.a] = append(adj.vertEdges[k.a], ei)
				adj.vertEdges[k.b] = append(adj.vertEdges[k.b], ei)
			}
			e := &adj.edges[ei]
			if e.nfaces == 2 {
				return nil, fmt.Errorf("%w: edge %d-%d is shared by more than two faces", ErrNonManifold, k.a, k.b)
			}
			e.faces[e.nfaces] = fi
			e.nfaces++
		}
	}
	return adj, nil
}

func (adj *adjacency) edgeOf(v, w int) int {
	return adj.edgeIndex[keyOf(v, w)]
}

type vertexRule uint8

const (
	ruleSmooth vertexRule = iota
	ruleCrease
	ruleCorner
)

// classify picks the rule for v and, for creases, the two boundary neighbours.
func (adj *adjacency) classify(v int) (rule vertexRule, e0, e1 int) {
	edges := adj.vertEdges[v]
	if len(edges) == 0 {
		return ruleCorner, -1, -1
	}
	var nbrs []int
	for _, ei := range edges {
		if adj.edges[ei].boundary() {
			nbrs = append(nbrs, adj.edges[ei].other(v))
		}
	}
	switch {
	case len(nbrs) == 0 && len(edges) == len(adj.vertFaces[v]):
		return ruleSmooth, -1, -1
	case len(nbrs) == 2 && len(adj.vertFaces[v]) > 1:
		return ruleCrease, nbrs[0], nbrs[1]
	default:
		return ruleCorner, -1, -1
	}
}
