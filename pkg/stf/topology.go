package stf

import "fmt"

const TopologyVersion uint32 = 1

// EncodeTopology stores the faces of every level as
// u32 levels, then per level u32 faces, u32 indices, u32 counts[faces],
// u32 indices[indices].
func EncodeTopology(levels [][][]int) []byte {
	out := le.AppendUint32(nil, uint32(len(levels)))
	for _, faces := range levels {
		n := 0
		for _, f := range faces {
			n += len(f)
		}
		out = le.AppendUint32(out, uint32(len(faces)))
		out = le.AppendUint32(out, uint32(n))
		for _, f := range faces {
			out = le.AppendUint32(out, uint32(len(f)))
		}
		for _, f := range faces {
			for _, v := range f {
				out = le.AppendUint32(out, uint32(v))
			}
		}
	}
	return out
}

func ParseTopology(sec []byte) ([][][]int, error) {
	r := u32Reader{buf: sec}
	numLevels := r.next()
	var levels [][][]int
	for range numLevels {
		numFaces, numIndices := r.next(), r.next()
		if r.err != nil || (uint64(numFaces)+uint64(numIndices))*4 > uint64(len(r.buf)) {
			return nil, fmt.Errorf("%w: topology section truncated", ErrCorruptFile)
		}
		counts := make([]int, numFaces)
		total := 0
		for i := range counts {
			counts[i] = int(r.next())
			total += counts[i]
		}
		if total != int(numIndices) {
			return nil, fmt.Errorf("%w: face counts sum to %d, want %d", ErrCorruptFile, total, numIndices)
		}
		faces := make([][]int, numFaces)
		for i, c := range counts {
			faces[i] = make([]int, c)
			for j := range faces[i] {
				faces[i][j] = int(r.next())
			}
		}
		levels = append(levels, faces)
	}
	if r.err != nil {
		return nil, r.err
	}
	return levels, nil
}

type u32Reader struct {
	buf []byte
	err error
}

func (r *u32Reader) next() uint32 {
	if len(r.buf) < 4 {
		r.err = fmt.Errorf("%w: topology section truncated", ErrCorruptFile)
		return 0
	}
	v := le.Uint32(r.buf)
	r.buf = r.buf[4:]
	return v
}
