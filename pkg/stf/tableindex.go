package stf

import (
	"fmt"
	"math"
)

const TableIndexVersion uint32 = 1

// Role says what a stored table belongs to.
type Role uint16

const (
	RoleSet Role = iota
	RoleEditIndices
	RoleEditValues
)

// ElemType is the element encoding of a stored table.
type ElemType uint16

const (
	ElemInt32 ElemType = iota + 1
	ElemFloat32
)

// TableRecord is the fixed 40-byte index entry of one flattened table.
// MarkersOff and DataOff are absolute file offsets; markers are Levels+1
// little-endian uint64s and data is Count 4-byte elements.
type TableRecord struct {
	Role       Role
	Elem       ElemType
	Kind       uint32 // table kind for RoleSet, edit number otherwise
	Levels     uint32
	_          uint32
	MarkersOff uint64
	DataOff    uint64
	Count      uint64
}

const tableRecordSize = 40

func EncodeTableIndex(recs []TableRecord) []byte {
	out := make([]byte, 4, 4+len(recs)*tableRecordSize)
	le.PutUint32(out, uint32(len(recs)))
	for _, r := range recs {
		var b [tableRecordSize]byte
		le.PutUint16(b[0:], uint16(r.Role))
		le.PutUint16(b[2:], uint16(r.Elem))
		le.PutUint32(b[4:], r.Kind)
		le.PutUint32(b[8:], r.Levels)
		le.PutUint64(b[16:], r.MarkersOff)
		le.PutUint64(b[24:], r.DataOff)
		le.PutUint64(b[32:], r.Count)
		out = append(out, b[:]...)
	}
	return out
}

func ParseTableIndex(sec []byte) ([]TableRecord, error) {
	if len(sec) < 4 {
		return nil, fmt.Errorf("%w: table index too short", ErrCorruptFile)
	}
	n := int(le.Uint32(sec))
	if uint64(len(sec)-4) != uint64(n)*tableRecordSize {
		return nil, fmt.Errorf("%w: table index holds %d bytes for %d records", ErrCorruptFile, len(sec)-4, n)
	}
	recs := make([]TableRecord, n)
	for i := range recs {
		b := sec[4+i*tableRecordSize:]
		recs[i] = TableRecord{
			Role:       Role(le.Uint16(b[0:])),
			Elem:       ElemType(le.Uint16(b[2:])),
			Kind:       le.Uint32(b[4:]),
			Levels:     le.Uint32(b[8:]),
			MarkersOff: le.Uint64(b[16:]),
			DataOff:    le.Uint64(b[24:]),
			Count:      le.Uint64(b[32:]),
		}
		if recs[i].Elem != ElemInt32 && recs[i].Elem != ElemFloat32 {
			return nil, fmt.Errorf("%w: table record %d has element type %d", ErrCorruptFile, i, recs[i].Elem)
		}
	}
	return recs, nil
}

// Markers decodes the level markers of r.
func (f *File) Markers(r TableRecord) ([]int, error) {
	raw, err := f.Range(r.MarkersOff, (uint64(r.Levels)+1)*8)
	if err != nil {
		return nil, err
	}
	out := make([]int, r.Levels+1)
	for i := range out {
		v := le.Uint64(raw[8*i:])
		if v > math.MaxInt32 {
			return nil, fmt.Errorf("%w: marker %d out of range", ErrCorruptFile, v)
		}
		out[i] = int(v)
	}
	return out, nil
}

// Int32s copies the data of an int32 table.
func (f *File) Int32s(r TableRecord) ([]int32, error) {
	if r.Elem != ElemInt32 {
		return nil, fmt.Errorf("%w: table is not int32", ErrCorruptFile)
	}
	raw, err := f.Range(r.DataOff, r.Count*4)
	if err != nil {
		return nil, err
	}
	out := make([]int32, r.Count)
	for i := range out {
		out[i] = int32(le.Uint32(raw[4*i:]))
	}
	return out, nil
}

// Float32s copies the data of a float32 table.
func (f *File) Float32s(r TableRecord) ([]float32, error) {
	if r.Elem != ElemFloat32 {
		return nil, fmt.Errorf("%w: table is not float32", ErrCorruptFile)
	}
	raw, err := f.Range(r.DataOff, r.Count*4)
	if err != nil {
		return nil, err
	}
	out := make([]float32, r.Count)
	for i := range out {
		out[i] = math.Float32frombits(le.Uint32(raw[4*i:]))
	}
	return out, nil
}

// AppendMarkers encodes markers as little-endian uint64s.
func AppendMarkers(dst []byte, markers []int) []byte {
	for _, m := range markers {
		dst = le.AppendUint64(dst, uint64(m))
	}
	return dst
}

func AppendInt32s(dst []byte, data []int32) []byte {
	for _, v := range data {
		dst = le.AppendUint32(dst, uint32(v))
	}
	return dst
}

func AppendFloat32s(dst []byte, data []float32) []byte {
	for _, v := range data {
		dst = le.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
