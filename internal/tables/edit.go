package tables

import "fmt"

// EditOp is the operation a hierarchical edit performs on a primvar.
type EditOp uint8

const (
	// EditAdd accumulates the edit values into the primvar.
	EditAdd EditOp = iota
	// EditSet replaces the primvar. Dispatchers report it as unsupported.
	EditSet
)

func (op EditOp) String() string {
	switch op {
	case EditAdd:
		return "add"
	case EditSet:
		return "set"
	default:
		return fmt.Sprintf("EditOp(%d)", uint8(op))
	}
}

// ParseEditOp maps "add" and "set" to their EditOp.
func ParseEditOp(s string) (EditOp, error) {
	switch s {
	case "add":
		return EditAdd, nil
	case "set":
		return EditSet, nil
	default:
		return 0, fmt.Errorf("%w: unknown operation %q", ErrEditTable, s)
	}
}

// AllLevels makes an edit table apply at every level that has data for it.
const AllLevels = 0

// EditTable is a batch of hierarchical edits on one primvar. Indices hold
// absolute vertex buffer indices, each inside the vertices created by its
// level; Values hold PrimvarWidth floats per index.
type EditTable struct {
	Op            EditOp
	PrimvarOffset int
	PrimvarWidth  int
	Level         int
	Indices       *Table[int32]
	Values        *Table[float32]
}

// AppliesAt reports whether the table has edits to run after refining level.
func (e *EditTable) AppliesAt(level int) bool {
	if e.Level != AllLevels && e.Level != level {
		return false
	}
	if level < 1 || level > e.Indices.Levels() {
		return false
	}
	return e.Indices.NumElements(level-1) > 0
}

// Validate checks the edit table against a vertex record of numElements
// floats and the per-level vertex counts of set.
func (e *EditTable) Validate(numElements int, set *Set) error {
	if e.Indices == nil || e.Values == nil {
		return fmt.Errorf("%w: missing indices or values", ErrEditTable)
	}
	if e.PrimvarWidth <= 0 || e.PrimvarOffset < 0 || e.PrimvarOffset+e.PrimvarWidth > numElements {
		return fmt.Errorf("%w: primvar [%d,%d) outside vertex of %d elements",
			ErrEditTable, e.PrimvarOffset, e.PrimvarOffset+e.PrimvarWidth, numElements)
	}
	if e.Level < 0 || e.Level > set.MaxLevel {
		return fmt.Errorf("%w: level %d outside [0,%d]", ErrEditTable, e.Level, set.MaxLevel)
	}
	if e.Indices.Levels() != e.Values.Levels() {
		return fmt.Errorf("%w: indices cover %d levels, values cover %d",
			ErrEditTable, e.Indices.Levels(), e.Values.Levels())
	}
	if e.Indices.Levels() > set.MaxLevel {
		return fmt.Errorf("%w: edits cover %d levels, set has %d", ErrEditTable, e.Indices.Levels(), set.MaxLevel)
	}
	for l := 0; l < e.Indices.Levels(); l++ {
		n := e.Indices.NumElements(l)
		if got := e.Values.NumElements(l); got != n*e.PrimvarWidth {
			return fmt.Errorf("%w: level %d has %d values for %d indices of width %d",
				ErrEditTable, l+1, got, n, e.PrimvarWidth)
		}
		b := set.Batches[l]
		lo, hi := b.VertexOffset, b.VertexOffset+b.NumVertices()
		for _, idx := range e.Indices.Slice(l) {
			if int(idx) < lo || int(idx) >= hi {
				return fmt.Errorf("%w: level %d index %d outside the level's vertices [%d,%d)",
					ErrEditTable, l+1, idx, lo, hi)
			}
		}
	}
	return nil
}

// NewLevelEdit builds an edit table that touches only level. Each index
// takes width values.
func NewLevelEdit(op EditOp, level, primvarOffset, width int, indices []int32, values []float32) (*EditTable, error) {
	if level < 1 {
		return nil, fmt.Errorf("%w: level %d below 1", ErrEditTable, level)
	}
	if width <= 0 || len(values) != len(indices)*width {
		return nil, fmt.Errorf("%w: %d values for %d indices of width %d", ErrEditTable, len(values), len(indices), width)
	}
	idx := make([][]int32, level)
	val := make([][]float32, level)
	for l := range idx {
		idx[l] = []int32{}
		val[l] = []float32{}
	}
	idx[level-1] = indices
	val[level-1] = values
	return &EditTable{
		Op:            op,
		PrimvarOffset: primvarOffset,
		PrimvarWidth:  width,
		Level:         level,
		Indices:       NewTable(idx...),
		Values:        NewTable(val...),
	}, nil
}
