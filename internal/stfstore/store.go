// Package stfstore persists compiled table sets, edit tables and level
// topology in STF files.
package stfstore

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/samcharles93/subdiv/internal/tables"
	"github.com/samcharles93/subdiv/pkg/stf"
)

var ErrTableNotFound = errors.New("stfstore: table not found")

// Bundle is everything an STF file can hold.
type Bundle struct {
	Set   *tables.Set
	Edits []*tables.EditTable
	// Faces holds the faces of every level with level-local indices. Optional.
	Faces [][][]int
	// Source names the mesh the tables were compiled from. Optional.
	Source string
}

// Save writes b to path, replacing any existing file.
func Save(path string, b *Bundle) (err error) {
	if b == nil || b.Set == nil {
		return errors.New("stfstore: nothing to save")
	}
	if err := b.Set.CheckLayout(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w, err := stf.NewWriter(f)
	if err != nil {
		return err
	}

	info := &stf.MeshInfo{
		Scheme:            b.Set.Scheme.String(),
		MaxLevel:          b.Set.MaxLevel,
		NumCoarseVertices: b.Set.NumCoarseVertices,
		Source:            b.Source,
		Created:           time.Now().UTC(),
	}
	if len(b.Faces) > 0 {
		info.NumCoarseFaces = len(b.Faces[0])
	}
	for _, e := range b.Edits {
		info.Edits = append(info.Edits, stf.EditInfo{
			Op:            e.Op.String(),
			PrimvarOffset: e.PrimvarOffset,
			PrimvarWidth:  e.PrimvarWidth,
			Level:         e.Level,
		})
	}
	raw, err := stf.EncodeMeshInfo(info)
	if err != nil {
		return err
	}
	if err := w.WriteSection(stf.SectionMeshInfo, stf.MeshInfoVersion, raw); err != nil {
		return err
	}
	if err := w.WriteSection(stf.SectionBatches, stf.BatchesVersion, stf.EncodeBatches(encodeBatches(b.Set))); err != nil {
		return err
	}

	recs, err := writeTableData(w, b)
	if err != nil {
		return err
	}
	if err := w.WriteSection(stf.SectionTableIndex, stf.TableIndexVersion, stf.EncodeTableIndex(recs)); err != nil {
		return err
	}

	if len(b.Edits) > 0 {
		w.AddFlags(stf.FlagHasEdits)
	}
	if len(b.Faces) > 0 {
		w.AddFlags(stf.FlagHasTopology)
		if err := w.WriteSection(stf.SectionTopology, stf.TopologyVersion, stf.EncodeTopology(b.Faces)); err != nil {
			return err
		}
	}
	return w.Finalise()
}

func writeTableData(w *stf.Writer, b *Bundle) ([]stf.TableRecord, error) {
	sw, err := w.BeginSection(stf.SectionTableData, 1)
	if err != nil {
		return nil, err
	}
	var recs []stf.TableRecord
	put := func(rec stf.TableRecord, markers []int, payload []byte) error {
		if err := sw.Align(8); err != nil {
			return err
		}
		off, err := sw.Offset()
		if err != nil {
			return err
		}
		rec.Levels = uint32(len(markers) - 1)
		rec.MarkersOff = off
		rec.DataOff = off + uint64(len(markers))*8
		if _, err := sw.Write(stf.AppendMarkers(nil, markers)); err != nil {
			return err
		}
		if _, err := sw.Write(payload); err != nil {
			return err
		}
		recs = append(recs, rec)
		return nil
	}

	for k := range tables.NumKinds {
		kind := tables.Kind(k)
		if !b.Set.Present(kind) {
			continue
		}
		var err error
		if kind.IsWeight() {
			t := b.Set.Weights[k]
			err = put(stf.TableRecord{Role: stf.RoleSet, Elem: stf.ElemFloat32, Kind: uint32(k), Count: uint64(len(t.Data()))},
				t.Markers(), stf.AppendFloat32s(nil, t.Data()))
		} else {
			t := b.Set.Indices[k]
			err = put(stf.TableRecord{Role: stf.RoleSet, Elem: stf.ElemInt32, Kind: uint32(k), Count: uint64(len(t.Data()))},
				t.Markers(), stf.AppendInt32s(nil, t.Data()))
		}
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", kind, err)
		}
	}
	for i, e := range b.Edits {
		if e.Indices == nil || e.Values == nil {
			return nil, fmt.Errorf("edit table %d: %w", i, tables.ErrEditTable)
		}
		if err := put(stf.TableRecord{Role: stf.RoleEditIndices, Elem: stf.ElemInt32, Kind: uint32(i), Count: uint64(len(e.Indices.Data()))},
			e.Indices.Markers(), stf.AppendInt32s(nil, e.Indices.Data())); err != nil {
			return nil, fmt.Errorf("edit table %d: %w", i, err)
		}
		if err := put(stf.TableRecord{Role: stf.RoleEditValues, Elem: stf.ElemFloat32, Kind: uint32(i), Count: uint64(len(e.Values.Data()))},
			e.Values.Markers(), stf.AppendFloat32s(nil, e.Values.Data())); err != nil {
			return nil, fmt.Errorf("edit table %d: %w", i, err)
		}
	}
	return recs, sw.End()
}

func encodeBatches(s *tables.Set) *stf.Batches {
	out := &stf.Batches{NumCoarseVertices: uint32(s.NumCoarseVertices)}
	for _, b := range s.Batches {
		out.Levels = append(out.Levels, [stf.BatchWords]uint32{
			uint32(b.VertexOffset),
			uint32(b.NumFaceVertices),
			uint32(b.NumEdgeVertices),
			uint32(b.NumVertexVertices),
			uint32(b.Face.Start), uint32(b.Face.End),
			uint32(b.Edge.Start), uint32(b.Edge.End),
			uint32(b.Vertex.Start), uint32(b.Vertex.End),
			uint32(b.VertexA0.Start), uint32(b.VertexA0.End),
			uint32(b.VertexA1.Start), uint32(b.VertexA1.End),
		})
	}
	return out
}

func decodeBatch(w [stf.BatchWords]uint32) tables.Batch {
	r := func(i int) tables.Range { return tables.Range{Start: int(w[i]), End: int(w[i+1])} }
	return tables.Batch{
		VertexOffset:      int(w[0]),
		NumFaceVertices:   int(w[1]),
		NumEdgeVertices:   int(w[2]),
		NumVertexVertices: int(w[3]),
		Face:              r(4),
		Edge:              r(6),
		Vertex:            r(8),
		VertexA0:          r(10),
		VertexA1:          r(12),
	}
}
