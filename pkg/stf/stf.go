// Package stf implements the Subdivision Table File format.
//
// An STF file is a single memory-mappable container holding the compiled
// subdivision tables of one mesh: a fixed header, aligned section payloads
// and a section directory at the end. It stores data only; refinement rules
// live in the code that reads it.
package stf

// These values must never change once files exist.
const (
	// Magic is "STF\0".
	Magic = "STF\x00"

	CurrentMajor uint16 = 1
	CurrentMinor uint16 = 0

	// FlagHasEdits is set when the file carries hierarchical edit tables.
	FlagHasEdits uint64 = 1 << 0
	// FlagHasTopology is set when per-level faces are stored.
	FlagHasTopology uint64 = 1 << 1
)

type SectionType uint32

const (
	SectionMeshInfo   SectionType = 0x0001
	SectionBatches    SectionType = 0x0002
	SectionTableIndex SectionType = 0x0003
	SectionTableData  SectionType = 0x0004
	SectionTopology   SectionType = 0x0005
)

func (t SectionType) String() string {
	switch t {
	case SectionMeshInfo:
		return "mesh-info"
	case SectionBatches:
		return "batches"
	case SectionTableIndex:
		return "table-index"
	case SectionTableData:
		return "table-data"
	case SectionTopology:
		return "topology"
	default:
		return "unknown"
	}
}

// Header is the fixed-size record at offset 0.
type Header struct {
	Magic            [4]byte
	Major            uint16
	Minor            uint16
	HeaderSize       uint32
	SectionCount     uint32
	SectionDirOffset uint64
	FileSize         uint64
	Flags            uint64
}

func (h *Header) Valid() bool {
	return string(h.Magic[:]) == Magic && h.HeaderSize >= headerSize && h.SectionCount > 0
}

func (h *Header) Compatible() bool {
	return h.Major == CurrentMajor
}

// Section is one entry of the section directory. Offsets are absolute.
type Section struct {
	Type    uint32
	Version uint32
	Offset  uint64
	Size    uint64
}

func (s *Section) End() uint64 {
	return s.Offset + s.Size
}
