package tables

import "slices"

// Element is the set of element types a Table can hold.
type Element interface {
	~int32 | ~float32
}

// Table is a flattened array covering every refinement level, addressed
// through its Markers: the window for source level l (the data read while
// refining level l+1) is [Marker(l), Marker(l)+NumElements(l)).
type Table[T Element] struct {
	data    []T
	markers Markers
}

// NewTable flattens per-level slices; levels[0] feeds refinement of level 1.
func NewTable[T Element](levels ...[]T) *Table[T] {
	total := 0
	for _, l := range levels {
		total += len(l)
	}
	t := &Table[T]{
		data:    make([]T, 0, total),
		markers: make(Markers, 0, len(levels)+1),
	}
	for _, l := range levels {
		t.markers = append(t.markers, len(t.data))
		t.data = append(t.data, l...)
	}
	t.markers = append(t.markers, len(t.data))
	return t
}

// FromFlat wraps an already flattened buffer after checking its markers.
func FromFlat[T Element](data []T, markers []int) (*Table[T], error) {
	m := Markers(slices.Clone(markers))
	if err := m.Check(len(data)); err != nil {
		return nil, err
	}
	return &Table[T]{data: data, markers: m}, nil
}

// Levels is the number of refinement levels the table covers.
func (t *Table[T]) Levels() int {
	if t == nil {
		return 0
	}
	return t.markers.Levels()
}

// Marker returns the offset of the data used to refine level level+1.
func (t *Table[T]) Marker(level int) int {
	t.nonNil("Marker")
	return t.markers.Marker(level)
}

// NumElements returns the element count of source level level.
func (t *Table[T]) NumElements(level int) int {
	t.nonNil("NumElements")
	return t.markers.NumElements(level)
}

// Slice returns the window of source level level. It aliases the table.
func (t *Table[T]) Slice(level int) []T {
	start := t.Marker(level)
	end := start + t.markers.NumElements(level)
	return t.data[start:end:end]
}

// Data returns the whole flattened buffer.
func (t *Table[T]) Data() []T { return t.data }

// Markers returns a copy of the level markers.
func (t *Table[T]) Markers() Markers { return slices.Clone(t.markers) }

func (t *Table[T]) nonNil(op string) {
	if t == nil {
		Fail("Table."+op, "nil table")
	}
}
