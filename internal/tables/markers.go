package tables

import "fmt"

// Markers are the per-level offsets into a flattened table. Markers[l] is
// where the data for source level l begins; the last marker is the length
// of the table. A table with n markers covers n-1 levels.
type Markers []int

// Check verifies the markers start at zero, never decrease and end at length.
func (m Markers) Check(length int) error {
	if len(m) < 1 {
		return fmt.Errorf("%w: need at least one marker", ErrMarkers)
	}
	if m[0] != 0 {
		return fmt.Errorf("%w: first marker is %d, want 0", ErrMarkers, m[0])
	}
	for i := 1; i < len(m); i++ {
		if m[i] < m[i-1] {
			return fmt.Errorf("%w: marker %d (%d) precedes marker %d (%d)", ErrMarkers, i, m[i], i-1, m[i-1])
		}
	}
	if last := m[len(m)-1]; last != length {
		return fmt.Errorf("%w: last marker %d does not match %d elements", ErrMarkers, last, length)
	}
	return nil
}

// Levels is the number of levels the markers address.
func (m Markers) Levels() int {
	if len(m) == 0 {
		return 0
	}
	return len(m) - 1
}

// Marker returns the offset of source level level.
func (m Markers) Marker(level int) int {
	m.check("Marker", level)
	return m[level]
}

// NumElements returns the number of elements of source level level.
func (m Markers) NumElements(level int) int {
	m.check("NumElements", level)
	return m[level+1] - m[level]
}

func (m Markers) check(op string, level int) {
	if level < 0 || level >= len(m)-1 {
		Fail("Markers."+op, "level %d out of range [0,%d)", level, m.Levels())
	}
}
