package stfstore

import (
	"errors"
	"fmt"

	"github.com/samcharles93/subdiv/internal/tables"
	"github.com/samcharles93/subdiv/pkg/stf"
)

// File is an open STF file with its mesh info and table index parsed.
type File struct {
	file  *stf.File
	info  *stf.MeshInfo
	index []stf.TableRecord
}

func Open(path string) (*File, error) {
	sf, err := stf.Open(path)
	if err != nil {
		return nil, err
	}

	cleanup := func(err error) (*File, error) {
		_ = sf.Close()
		return nil, err
	}

	infoSec := sf.Section(stf.SectionMeshInfo)
	if infoSec == nil {
		return cleanup(errors.New("stf: missing mesh info section"))
	}
	info, err := stf.ParseMeshInfo(sf.SectionData(infoSec))
	if err != nil {
		return cleanup(err)
	}

	indexSec := sf.Section(stf.SectionTableIndex)
	if indexSec == nil {
		return cleanup(errors.New("stf: missing table index section"))
	}
	index, err := stf.ParseTableIndex(sf.SectionData(indexSec))
	if err != nil {
		return cleanup(err)
	}
	if sf.Section(stf.SectionTableData) == nil {
		return cleanup(errors.New("stf: missing table data section"))
	}

	return &File{file: sf, info: info, index: index}, nil
}

func (f *File) Close() error {
	if f == nil || f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	f.info = nil
	f.index = nil
	return err
}

// Info returns the mesh info section.
func (f *File) Info() *stf.MeshInfo { return f.info }

// Header returns the container header.
func (f *File) Header() *stf.Header { return f.file.Header }

// Sections returns the section directory.
func (f *File) Sections() []stf.Section { return f.file.Sections }

// Records returns the table index.
func (f *File) Records() []stf.TableRecord { return f.index }

func (f *File) find(role stf.Role, kind uint32) (stf.TableRecord, bool) {
	for _, r := range f.index {
		if r.Role == role && r.Kind == kind {
			return r, true
		}
	}
	return stf.TableRecord{}, false
}

func (f *File) ints(r stf.TableRecord) (*tables.Table[int32], error) {
	markers, err := f.file.Markers(r)
	if err != nil {
		return nil, err
	}
	data, err := f.file.Int32s(r)
	if err != nil {
		return nil, err
	}
	return tables.FromFlat(data, markers)
}

func (f *File) floats(r stf.TableRecord) (*tables.Table[float32], error) {
	markers, err := f.file.Markers(r)
	if err != nil {
		return nil, err
	}
	data, err := f.file.Float32s(r)
	if err != nil {
		return nil, err
	}
	return tables.FromFlat(data, markers)
}

// Set rebuilds the table set and validates it.
func (f *File) Set() (*tables.Set, error) {
	scheme, err := tables.ParseScheme(f.info.Scheme)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stf.ErrCorruptFile, err)
	}
	batchSec := f.file.Section(stf.SectionBatches)
	if batchSec == nil {
		return nil, errors.New("stf: missing batches section")
	}
	batches, err := stf.ParseBatches(f.file.SectionData(batchSec))
	if err != nil {
		return nil, err
	}
	if len(batches.Levels) != f.info.MaxLevel || int(batches.NumCoarseVertices) != f.info.NumCoarseVertices {
		return nil, fmt.Errorf("%w: batches describe %d levels over %d vertices, mesh info says %d over %d",
			stf.ErrCorruptFile, len(batches.Levels), batches.NumCoarseVertices, f.info.MaxLevel, f.info.NumCoarseVertices)
	}

	set := &tables.Set{
		Scheme:            scheme,
		MaxLevel:          f.info.MaxLevel,
		NumCoarseVertices: f.info.NumCoarseVertices,
	}
	for _, w := range batches.Levels {
		set.Batches = append(set.Batches, decodeBatch(w))
	}
	for _, r := range f.index {
		if r.Role != stf.RoleSet {
			continue
		}
		if r.Kind >= uint32(tables.NumKinds) {
			return nil, fmt.Errorf("%w: table kind %d", stf.ErrCorruptFile, r.Kind)
		}
		kind := tables.Kind(r.Kind)
		if kind.IsWeight() {
			t, err := f.floats(r)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", kind, err)
			}
			set.Weights[kind] = t
		} else {
			t, err := f.ints(r)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", kind, err)
			}
			set.Indices[kind] = t
		}
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Edits rebuilds the stored edit tables in file order.
func (f *File) Edits() ([]*tables.EditTable, error) {
	out := make([]*tables.EditTable, 0, len(f.info.Edits))
	for i, ei := range f.info.Edits {
		op, err := tables.ParseEditOp(ei.Op)
		if err != nil {
			return nil, fmt.Errorf("edit table %d: %w", i, err)
		}
		ir, ok := f.find(stf.RoleEditIndices, uint32(i))
		if !ok {
			return nil, fmt.Errorf("edit table %d indices: %w", i, ErrTableNotFound)
		}
		vr, ok := f.find(stf.RoleEditValues, uint32(i))
		if !ok {
			return nil, fmt.Errorf("edit table %d values: %w", i, ErrTableNotFound)
		}
		indices, err := f.ints(ir)
		if err != nil {
			return nil, fmt.Errorf("edit table %d: %w", i, err)
		}
		values, err := f.floats(vr)
		if err != nil {
			return nil, fmt.Errorf("edit table %d: %w", i, err)
		}
		out = append(out, &tables.EditTable{
			Op:            op,
			PrimvarOffset: ei.PrimvarOffset,
			PrimvarWidth:  ei.PrimvarWidth,
			Level:         ei.Level,
			Indices:       indices,
			Values:        values,
		})
	}
	return out, nil
}

// Faces returns the stored level topology, or nil when the file has none.
func (f *File) Faces() ([][][]int, error) {
	sec := f.file.Section(stf.SectionTopology)
	if sec == nil {
		return nil, nil
	}
	return stf.ParseTopology(f.file.SectionData(sec))
}

// Load reads a whole bundle and closes the file.
func Load(path string) (*Bundle, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	set, err := f.Set()
	if err != nil {
		return nil, err
	}
	edits, err := f.Edits()
	if err != nil {
		return nil, err
	}
	faces, err := f.Faces()
	if err != nil {
		return nil, err
	}
	return &Bundle{Set: set, Edits: edits, Faces: faces, Source: f.info.Source}, nil
}
