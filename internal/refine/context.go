package refine

import (
	"errors"
	"fmt"

	"github.com/samcharles93/subdiv/internal/backend"
	"github.com/samcharles93/subdiv/internal/kernel"
	"github.com/samcharles93/subdiv/internal/tables"
)

// Table is a subdivision table resident on a backend. The markers stay on
// the host so level offsets can be resolved without touching the backend.
type Table struct {
	Kind    tables.Kind
	Handle  backend.Handle
	markers tables.Markers
}

func (t *Table) Levels() int               { return t.markers.Levels() }
func (t *Table) Marker(level int) int      { return t.markers.Marker(level) }
func (t *Table) NumElements(level int) int { return t.markers.NumElements(level) }

// At references the data read while refining into level.
func (t *Table) At(level int) backend.TableRef {
	return backend.TableRef{Handle: t.Handle, Offset: t.Marker(level - 1)}
}

// EditTable is an edit table whose indices and values are resident.
type EditTable struct {
	Op            tables.EditOp
	PrimvarOffset int
	PrimvarWidth  int
	Level         int
	Indices       *Table
	Values        *Table

	host *tables.EditTable
}

func (e *EditTable) AppliesAt(level int) bool { return e.host.AppliesAt(level) }

// NumVertices is the number of vertices edited after refining level.
func (e *EditTable) NumVertices(level int) int { return e.Indices.NumElements(level - 1) }

// Context holds everything one mesh needs to be refined on one backend: the
// uploaded table set, the edit tables and the currently bound buffers.
// A Context is not safe for concurrent use.
type Context struct {
	be     backend.Backend
	set    *tables.Set
	tables [tables.NumKinds]*Table
	edits  []*EditTable

	vertex  *VertexBuffer
	varying *VertexBuffer
}

// NewContext uploads every table of set, and of each edit table, to be. The
// tables stay resident and immutable until Close.
func NewContext(be backend.Backend, set *tables.Set, edits ...*tables.EditTable) (*Context, error) {
	if err := set.CheckLayout(); err != nil {
		return nil, err
	}
	c := &Context{be: be, set: set}
	for k := range tables.NumKinds {
		kind := tables.Kind(k)
		if !set.Present(kind) {
			continue
		}
		t, err := c.upload(kind, set)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("upload %s: %w", kind, err), c.Close())
		}
		c.tables[kind] = t
	}
	for i, e := range edits {
		if e.Indices == nil || e.Values == nil {
			return nil, errors.Join(fmt.Errorf("edit table %d: %w: missing indices or values", i, tables.ErrEditTable), c.Close())
		}
		idx, err := be.UploadIndices(e.Indices.Data())
		if err != nil {
			return nil, errors.Join(fmt.Errorf("upload edit table %d: %w", i, err), c.Close())
		}
		indices := &Table{Kind: tables.VertexIndices, Handle: idx, markers: e.Indices.Markers()}
		val, err := be.UploadWeights(e.Values.Data())
		if err != nil {
			return nil, errors.Join(fmt.Errorf("upload edit table %d: %w", i, err), be.Release(idx), c.Close())
		}
		c.edits = append(c.edits, &EditTable{
			Op:            e.Op,
			PrimvarOffset: e.PrimvarOffset,
			PrimvarWidth:  e.PrimvarWidth,
			Level:         e.Level,
			Indices:       indices,
			Values:        &Table{Kind: tables.VertexWeights, Handle: val, markers: e.Values.Markers()},
			host:          e,
		})
	}
	return c, nil
}

func (c *Context) upload(kind tables.Kind, set *tables.Set) (*Table, error) {
	var (
		h       backend.Handle
		markers tables.Markers
		err     error
	)
	if kind.IsWeight() {
		t := set.Weights[kind]
		markers = t.Markers()
		h, err = c.be.UploadWeights(t.Data())
	} else {
		t := set.Indices[kind]
		markers = t.Markers()
		h, err = c.be.UploadIndices(t.Data())
	}
	if err != nil {
		return nil, err
	}
	return &Table{Kind: kind, Handle: h, markers: markers}, nil
}

func (c *Context) Backend() backend.Backend { return c.be }
func (c *Context) Set() *tables.Set         { return c.set }

// GetTable returns the resident table of kind k, or nil when the set has none.
func (c *Context) GetTable(k tables.Kind) *Table {
	if int(k) >= tables.NumKinds {
		return nil
	}
	return c.tables[k]
}

func (c *Context) NumEditTables() int { return len(c.edits) }

func (c *Context) GetEditTable(i int) *EditTable {
	if i < 0 || i >= len(c.edits) {
		return nil
	}
	return c.edits[i]
}

// Bind selects the buffers the next Refine writes into. varying may be nil.
// The buffers stay owned by the caller.
func (c *Context) Bind(vertex, varying *VertexBuffer) error {
	if vertex == nil {
		return errors.New("refine: no vertex buffer")
	}
	if vertex.be != c.be || (varying != nil && varying.be != c.be) {
		return errors.New("refine: buffer belongs to another backend")
	}
	if vertex.NumElements() < kernel.ReservedElements {
		return fmt.Errorf("refine: vertex records of %d elements cannot hold the %d reserved components",
			vertex.NumElements(), kernel.ReservedElements)
	}
	if varying != nil && varying.NumVertices() < vertex.NumVertices() {
		return fmt.Errorf("refine: varying buffer holds %d vertices, vertex buffer %d",
			varying.NumVertices(), vertex.NumVertices())
	}
	for i, e := range c.edits {
		if err := e.host.Validate(vertex.NumElements(), c.set); err != nil {
			return fmt.Errorf("edit table %d: %w", i, err)
		}
	}
	c.vertex, c.varying = vertex, varying
	return nil
}

func (c *Context) VertexBuffer() *VertexBuffer  { return c.vertex }
func (c *Context) VaryingBuffer() *VertexBuffer { return c.varying }

func (c *Context) buffers() backend.Buffers {
	b := backend.Buffers{
		Vertex:                c.vertex.Handle(),
		NumUserVertexElements: c.vertex.NumElements() - kernel.ReservedElements,
	}
	if c.varying != nil {
		b.Varying = c.varying.Handle()
		b.NumVaryingElements = c.varying.NumElements()
	}
	return b
}

// Close releases every resident table. Bound buffers are left alone.
func (c *Context) Close() error {
	var errs []error
	for k, t := range c.tables {
		if t != nil {
			errs = append(errs, c.be.Release(t.Handle))
			c.tables[k] = nil
		}
	}
	for _, e := range c.edits {
		errs = append(errs, c.be.Release(e.Indices.Handle), c.be.Release(e.Values.Handle))
	}
	c.edits = nil
	c.vertex, c.varying = nil, nil
	return errors.Join(errs...)
}
