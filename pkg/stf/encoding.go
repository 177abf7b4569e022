package stf

import "encoding/binary"

const (
	headerSize  = 40
	sectionSize = 24
	align       = 8
)

var le = binary.LittleEndian

func encodeHeader(dst []byte, h Header) bool {
	if len(dst) < headerSize {
		return false
	}
	copy(dst[0:4], h.Magic[:])
	le.PutUint16(dst[4:], h.Major)
	le.PutUint16(dst[6:], h.Minor)
	le.PutUint32(dst[8:], h.HeaderSize)
	le.PutUint32(dst[12:], h.SectionCount)
	le.PutUint64(dst[16:], h.SectionDirOffset)
	le.PutUint64(dst[24:], h.FileSize)
	le.PutUint64(dst[32:], h.Flags)
	return true
}

func decodeHeader(src []byte) (Header, bool) {
	var h Header
	if len(src) < headerSize {
		return h, false
	}
	copy(h.Magic[:], src[0:4])
	h.Major = le.Uint16(src[4:])
	h.Minor = le.Uint16(src[6:])
	h.HeaderSize = le.Uint32(src[8:])
	h.SectionCount = le.Uint32(src[12:])
	h.SectionDirOffset = le.Uint64(src[16:])
	h.FileSize = le.Uint64(src[24:])
	h.Flags = le.Uint64(src[32:])
	return h, true
}

func encodeSection(dst []byte, s Section) bool {
	if len(dst) < sectionSize {
		return false
	}
	le.PutUint32(dst[0:], s.Type)
	le.PutUint32(dst[4:], s.Version)
	le.PutUint64(dst[8:], s.Offset)
	le.PutUint64(dst[16:], s.Size)
	return true
}

func decodeSection(src []byte) (Section, bool) {
	if len(src) < sectionSize {
		return Section{}, false
	}
	return Section{
		Type:    le.Uint32(src[0:]),
		Version: le.Uint32(src[4:]),
		Offset:  le.Uint64(src[8:]),
		Size:    le.Uint64(src[16:]),
	}, true
}

func rangesOverlap(a0, a1, b0, b1 uint64) bool {
	return a0 < b1 && b0 < a1
}
