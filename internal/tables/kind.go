package tables

import "fmt"

// Kind identifies one of the subdivision tables produced for a mesh.
type Kind uint8

const (
	// FaceIndices (F_IT) lists the vertices of every parent face, per level.
	FaceIndices Kind = iota
	// FaceAddresses (F_ITa) holds (offset into F_IT, valence) per face vertex.
	FaceAddresses
	// EdgeIndices (E_IT) holds the stencil vertices of every edge vertex.
	EdgeIndices
	// EdgeWeights (E_W) holds (vertex weight, face weight) per edge vertex.
	EdgeWeights
	// VertexAddresses (V_ITa) holds (offset into V_IT, valence, parent, crease0, crease1).
	VertexAddresses
	// VertexIndices (V_IT) lists the neighbours of every smooth vertex vertex.
	VertexIndices
	// VertexWeights (V_W) holds the smooth-rule fraction of every vertex vertex.
	VertexWeights

	numKinds
)

// NumKinds is the number of table kinds.
const NumKinds = int(numKinds)

var kindNames = [...]string{
	FaceIndices:     "F_IT",
	FaceAddresses:   "F_ITa",
	EdgeIndices:     "E_IT",
	EdgeWeights:     "E_W",
	VertexAddresses: "V_ITa",
	VertexIndices:   "V_IT",
	VertexWeights:   "V_W",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsWeight reports whether the table stores float32 weights rather than int32 indices.
func (k Kind) IsWeight() bool {
	return k == EdgeWeights || k == VertexWeights
}

// ParseKind maps a table name such as "E_IT" back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}

// Scheme selects the subdivision rules applied by the dispatcher.
type Scheme uint8

const (
	Bilinear Scheme = iota
	CatmullClark
	Loop
)

func (s Scheme) String() string {
	switch s {
	case Bilinear:
		return "bilinear"
	case CatmullClark:
		return "catmark"
	case Loop:
		return "loop"
	default:
		return fmt.Sprintf("Scheme(%d)", uint8(s))
	}
}

// ParseScheme accepts the scheme names used on the command line and in files.
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "bilinear":
		return Bilinear, nil
	case "catmark", "catmull-clark", "catmullclark":
		return CatmullClark, nil
	case "loop":
		return Loop, nil
	default:
		return 0, fmt.Errorf("unknown scheme %q (expected bilinear, catmark, or loop)", name)
	}
}

// Stride returns the number of table elements consumed per kernel entry for
// the given kind under scheme s.
func (s Scheme) Stride(k Kind) int {
	switch k {
	case FaceAddresses, EdgeWeights:
		return 2
	case EdgeIndices:
		if s == Bilinear {
			return 2
		}
		return 4
	case VertexAddresses:
		if s == Bilinear {
			return 1
		}
		return 5
	default:
		return 1
	}
}

// Required lists the tables every level of scheme s must provide.
func (s Scheme) Required() []Kind {
	switch s {
	case Bilinear:
		return []Kind{FaceIndices, FaceAddresses, EdgeIndices, VertexAddresses}
	case CatmullClark:
		return []Kind{FaceIndices, FaceAddresses, EdgeIndices, EdgeWeights, VertexAddresses, VertexIndices, VertexWeights}
	case Loop:
		return []Kind{EdgeIndices, EdgeWeights, VertexAddresses, VertexIndices, VertexWeights}
	default:
		return nil
	}
}
