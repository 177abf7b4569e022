package stf

import "fmt"

const BatchesVersion uint32 = 1

// BatchWords is the number of u32 words in one batch record: vertex offset,
// face, edge and vertex point counts, then the [start,end) pairs of the face,
// edge, vertex B, vertex A0 and vertex A1 kernel ranges.
const BatchWords = 14

// Batches is the payload of SectionBatches.
type Batches struct {
	NumCoarseVertices uint32
	Levels            [][BatchWords]uint32
}

// EncodeBatches stores u32 coarse vertices, u32 levels, then the records.
func EncodeBatches(b *Batches) []byte {
	out := make([]byte, 0, 8+len(b.Levels)*BatchWords*4)
	out = le.AppendUint32(out, b.NumCoarseVertices)
	out = le.AppendUint32(out, uint32(len(b.Levels)))
	for _, rec := range b.Levels {
		for _, w := range rec {
			out = le.AppendUint32(out, w)
		}
	}
	return out
}

func ParseBatches(sec []byte) (*Batches, error) {
	if len(sec) < 8 {
		return nil, fmt.Errorf("%w: batches section too short", ErrCorruptFile)
	}
	b := &Batches{NumCoarseVertices: le.Uint32(sec)}
	n := le.Uint32(sec[4:])
	if uint64(len(sec)-8) != uint64(n)*BatchWords*4 {
		return nil, fmt.Errorf("%w: batches section holds %d bytes for %d levels", ErrCorruptFile, len(sec)-8, n)
	}
	b.Levels = make([][BatchWords]uint32, n)
	p := sec[8:]
	for i := range b.Levels {
		for j := range BatchWords {
			b.Levels[i][j] = le.Uint32(p)
			p = p[4:]
		}
	}
	return b, nil
}
