// Package meshio reads and writes polygon meshes as Wavefront OBJ.
// Only vertex positions and face corners are kept; texture coordinates,
// normals, groups and materials are skipped.
package meshio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/samcharles93/subdiv/internal/topology"
)

var ErrFormat = errors.New("meshio: malformed OBJ")

// Mesh is a polygon mesh with xyz positions.
type Mesh struct {
	Positions []float32
	Faces     [][]int
	// Warnings lists statements that were skipped.
	Warnings []string
}

func (m *Mesh) NumVertices() int { return len(m.Positions) / 3 }

// Topology returns the connectivity for table compilation.
func (m *Mesh) Topology() *topology.Mesh {
	return &topology.Mesh{NumVertices: m.NumVertices(), Faces: m.Faces}
}

// Statements that carry no connectivity or position data.
var ignored = map[string]bool{
	"vn": true, "vt": true, "vp": true,
	"o": true, "g": true, "s": true,
	"mtllib": true, "usemtl": true,
}

type decoder struct {
	mesh *Mesh
	line int
}

func (d *decoder) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrFormat, d.line, fmt.Sprintf(format, args...))
}

// ReadOBJ parses an OBJ stream.
func ReadOBJ(r io.Reader) (*Mesh, error) {
	d := &decoder{mesh: &Mesh{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		d.line++
		if err := d.parseLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if d.mesh.NumVertices() == 0 {
		return nil, fmt.Errorf("%w: no vertices", ErrFormat)
	}
	return d.mesh, nil
}

func (d *decoder) parseLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	switch fields[0] {
	case "v":
		return d.parseVertex(fields[1:])
	case "f":
		return d.parseFace(fields[1:])
	default:
		if !ignored[fields[0]] {
			d.mesh.Warnings = append(d.mesh.Warnings, fmt.Sprintf("line %d: %s not supported", d.line, fields[0]))
		}
		return nil
	}
}

// v <x> <y> <z> [w]
func (d *decoder) parseVertex(fields []string) error {
	if len(fields) < 3 {
		return d.errorf("vertex with %d coordinates", len(fields))
	}
	for _, f := range fields[:3] {
		val, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return d.errorf("vertex coordinate %q", f)
		}
		d.mesh.Positions = append(d.mesh.Positions, float32(val))
	}
	return nil
}

// f v1[/vt1][/vn1] v2[/vt2][/vn2] v3[/vt3][/vn3] ...
func (d *decoder) parseFace(fields []string) error {
	if len(fields) < 3 {
		return d.errorf("face with %d corners", len(fields))
	}
	face := make([]int, len(fields))
	n := d.mesh.NumVertices()
	for i, f := range fields {
		ref, _, _ := strings.Cut(f, "/")
		val, err := strconv.Atoi(ref)
		if err != nil {
			return d.errorf("face index %q", f)
		}
		// Negative indices count back from the last vertex read.
		switch {
		case val > 0:
			face[i] = val - 1
		case val < 0:
			face[i] = n + val
		default:
			return d.errorf("face index 0")
		}
		if face[i] < 0 || face[i] >= n {
			return d.errorf("face index %d outside %d vertices", val, n)
		}
	}
	d.mesh.Faces = append(d.mesh.Faces, face)
	return nil
}

// Load reads the OBJ file at path.
func Load(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WriteOBJ writes xyz positions and faces. Face indices are zero based.
func WriteOBJ(w io.Writer, positions []float32, faces [][]int) error {
	if len(positions)%3 != 0 {
		return fmt.Errorf("meshio: %d position floats is not a multiple of 3", len(positions))
	}
	bw := bufio.NewWriter(w)
	for i := 0; i < len(positions); i += 3 {
		bw.WriteString("v ")
		bw.WriteString(formatFloat(positions[i]))
		bw.WriteByte(' ')
		bw.WriteString(formatFloat(positions[i+1]))
		bw.WriteByte(' ')
		bw.WriteString(formatFloat(positions[i+2]))
		bw.WriteByte('\n')
	}
	n := len(positions) / 3
	for fi, face := range faces {
		bw.WriteByte('f')
		for _, v := range face {
			if v < 0 || v >= n {
				return fmt.Errorf("meshio: face %d index %d outside %d vertices", fi, v, n)
			}
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(v + 1))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Save writes an OBJ file at path.
func Save(path string, positions []float32, faces [][]int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteOBJ(f, positions, faces)
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
