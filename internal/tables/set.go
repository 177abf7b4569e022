package tables

import "fmt"

// Range is a half-open range of kernel entries.
type Range struct {
	Start, End int
}

func (r Range) Empty() bool { return r.Start >= r.End }
func (r Range) Len() int    { return max(r.End-r.Start, 0) }

// Overlaps reports whether r and o share an entry.
func (r Range) Overlaps(o Range) bool {
	return !r.Empty() && !o.Empty() && r.Start < o.End && o.Start < r.End
}

// Batch describes the vertices produced by one refinement level and the
// kernel entry ranges that produce them. Face, edge and vertex points are laid
// out in that order starting at VertexOffset.
type Batch struct {
	VertexOffset      int
	NumFaceVertices   int
	NumEdgeVertices   int
	NumVertexVertices int

	Face Range
	Edge Range
	// Vertex is the smooth (pass B) range, or the only vertex range for bilinear.
	// An entry in both B and A0 blends (1-w) of the sharp rule with w of the
	// smooth rule; one in both A0 and A1 blends corner and crease. A1 lies
	// inside A0 and never overlaps B.
	Vertex   Range
	VertexA0 Range
	VertexA1 Range
}

// NumVertices is the number of vertices created by the level.
func (b Batch) NumVertices() int {
	return b.NumFaceVertices + b.NumEdgeVertices + b.NumVertexVertices
}

// EdgeOffset is the buffer index of the first edge vertex.
func (b Batch) EdgeOffset() int { return b.VertexOffset + b.NumFaceVertices }

// VertexVertexOffset is the buffer index of the first vertex vertex.
func (b Batch) VertexVertexOffset() int { return b.EdgeOffset() + b.NumEdgeVertices }

// Set is the complete, immutable table set compiled for one mesh.
type Set struct {
	Scheme            Scheme
	MaxLevel          int
	NumCoarseVertices int
	Batches           []Batch

	Indices [NumKinds]*Table[int32]
	Weights [NumKinds]*Table[float32]
}

// Batch returns the batch that refines into level.
func (s *Set) Batch(level int) Batch {
	if level < 1 || level > len(s.Batches) {
		Fail("Set.Batch", "level %d outside [1,%d]", level, len(s.Batches))
	}
	return s.Batches[level-1]
}

// NumVertices returns the number of vertices in a buffer refined to level,
// counting every coarser level.
func (s *Set) NumVertices(level int) int {
	if level <= 0 {
		return s.NumCoarseVertices
	}
	b := s.Batch(level)
	return b.VertexOffset + b.NumVertices()
}

// Present reports whether the table of kind k exists.
func (s *Set) Present(k Kind) bool {
	if k.IsWeight() {
		return s.Weights[k] != nil
	}
	return s.Indices[k] != nil
}

// Levels returns the number of levels table k covers, or 0 when absent.
func (s *Set) Levels(k Kind) int {
	if k.IsWeight() {
		return s.Weights[k].Levels()
	}
	return s.Indices[k].Levels()
}

func (s *Set) entries(k Kind, level int) int {
	n := 0
	if k.IsWeight() {
		n = s.Weights[k].NumElements(level - 1)
	} else {
		n = s.Indices[k].NumElements(level - 1)
	}
	return n / s.Scheme.Stride(k)
}

// Validate checks the whole set against the contract the dispatcher relies
// on: CheckLayout plus CheckLevel for every level.
func (s *Set) Validate() error {
	if err := s.CheckLayout(); err != nil {
		return err
	}
	for level := 1; level <= s.MaxLevel; level++ {
		if err := s.CheckLevel(level); err != nil {
			return err
		}
	}
	return nil
}

// CheckLayout verifies that the batches describe contiguous, append-only
// vertex ranges and that each table holds the element type of its kind.
func (s *Set) CheckLayout() error {
	if s.MaxLevel != len(s.Batches) {
		return fmt.Errorf("tables: max level %d but %d batches", s.MaxLevel, len(s.Batches))
	}
	if s.NumCoarseVertices <= 0 {
		return fmt.Errorf("tables: %d coarse vertices", s.NumCoarseVertices)
	}
	for k := range NumKinds {
		kind := Kind(k)
		if kind.IsWeight() && s.Indices[k] != nil {
			return fmt.Errorf("tables: %s stored as an index table", kind)
		}
		if !kind.IsWeight() && s.Weights[k] != nil {
			return fmt.Errorf("tables: %s stored as a weight table", kind)
		}
	}
	next := s.NumCoarseVertices
	for i, b := range s.Batches {
		if b.VertexOffset != next {
			return fmt.Errorf("tables: level %d starts at vertex %d, want %d", i+1, b.VertexOffset, next)
		}
		next += b.NumVertices()
	}
	return nil
}

// CheckLevel verifies that every table the scheme needs to refine into level
// exists and covers it, and that the level's kernel ranges stay inside both
// the tables and the level's vertices.
func (s *Set) CheckLevel(level int) error {
	if level < 1 || level > len(s.Batches) {
		return fmt.Errorf("tables: level %d outside [1,%d]", level, len(s.Batches))
	}
	for _, k := range s.Scheme.Required() {
		if !s.Present(k) {
			return fmt.Errorf("%w: %s required by %s", ErrMissingTable, k, s.Scheme)
		}
		if got := s.Levels(k); got < level {
			return fmt.Errorf("%w: %s covers %d levels, refining level %d", ErrMissingTable, k, got, level)
		}
	}
	return s.checkBatch(level, s.Batches[level-1])
}

func (s *Set) checkBatch(level int, b Batch) error {
	check := func(name string, r Range, outputs int, kinds ...Kind) error {
		if r.Empty() {
			return nil
		}
		if r.Start < 0 || r.End > outputs {
			return fmt.Errorf("tables: level %d %s range [%d,%d) exceeds %d vertices", level, name, r.Start, r.End, outputs)
		}
		for _, k := range kinds {
			if n := s.entries(k, level); r.End > n {
				return fmt.Errorf("tables: level %d %s range [%d,%d) exceeds %d %s entries", level, name, r.Start, r.End, n, k)
			}
		}
		return nil
	}
	if s.Scheme == Loop && (!b.Face.Empty() || b.NumFaceVertices != 0) {
		return fmt.Errorf("tables: level %d has face vertices under loop", level)
	}
	if err := check("face", b.Face, b.NumFaceVertices, faceKinds(s.Scheme)...); err != nil {
		return err
	}
	if err := check("edge", b.Edge, b.NumEdgeVertices, edgeKinds(s.Scheme)...); err != nil {
		return err
	}
	if s.Scheme == Bilinear {
		if !b.VertexA0.Empty() || !b.VertexA1.Empty() {
			return fmt.Errorf("tables: level %d has pass A vertex ranges under bilinear", level)
		}
		return check("vertex", b.Vertex, b.NumVertexVertices, VertexAddresses)
	}
	for _, r := range []struct {
		name string
		r    Range
	}{{"vertex B", b.Vertex}, {"vertex A0", b.VertexA0}, {"vertex A1", b.VertexA1}} {
		if err := check(r.name, r.r, b.NumVertexVertices, VertexAddresses, VertexWeights); err != nil {
			return err
		}
	}
	if !b.VertexA1.Empty() && (b.VertexA1.Start < b.VertexA0.Start || b.VertexA1.End > b.VertexA0.End) {
		return fmt.Errorf("tables: level %d vertex A1 range [%d,%d) is not inside A0 range [%d,%d)",
			level, b.VertexA1.Start, b.VertexA1.End, b.VertexA0.Start, b.VertexA0.End)
	}
	if b.Vertex.Overlaps(b.VertexA1) {
		return fmt.Errorf("tables: level %d vertex B range [%d,%d) overlaps A1 range [%d,%d)",
			level, b.Vertex.Start, b.Vertex.End, b.VertexA1.Start, b.VertexA1.End)
	}
	return nil
}

func faceKinds(s Scheme) []Kind {
	if s == Loop {
		return nil
	}
	return []Kind{FaceIndices, FaceAddresses}
}

func edgeKinds(s Scheme) []Kind {
	if s == Bilinear {
		return []Kind{EdgeIndices}
	}
	return []Kind{EdgeIndices, EdgeWeights}
}
