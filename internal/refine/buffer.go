package refine

import (
	"fmt"

	"github.com/samcharles93/subdiv/internal/backend"
)

// VertexBuffer is a caller-owned buffer of fixed-width vertex records in
// backend memory. Refinement appends each level after the previous one;
// Valid reports how many leading vertices hold finished data.
type VertexBuffer struct {
	be          backend.Backend
	handle      backend.Handle
	numElements int
	numVertices int
	valid       int
}

func NewVertexBuffer(be backend.Backend, numElements, numVertices int) (*VertexBuffer, error) {
	if numElements <= 0 || numVertices <= 0 {
		return nil, fmt.Errorf("refine: invalid vertex buffer shape %d x %d", numVertices, numElements)
	}
	h, err := be.NewBuffer(numElements * numVertices)
	if err != nil {
		return nil, err
	}
	return &VertexBuffer{be: be, handle: h, numElements: numElements, numVertices: numVertices}, nil
}

func (b *VertexBuffer) Handle() backend.Handle { return b.handle }
func (b *VertexBuffer) NumElements() int       { return b.numElements }
func (b *VertexBuffer) NumVertices() int       { return b.numVertices }

// Valid returns the range of vertices produced so far.
func (b *VertexBuffer) Valid() (offset, count int) { return 0, b.valid }

// UpdateData writes numVertices records starting at startVertex.
func (b *VertexBuffer) UpdateData(src []float32, startVertex, numVertices int) error {
	if err := b.check(startVertex, numVertices); err != nil {
		return err
	}
	if len(src) < numVertices*b.numElements {
		return fmt.Errorf("refine: %d floats for %d vertices of %d elements", len(src), numVertices, b.numElements)
	}
	if err := b.be.WriteBuffer(b.handle, startVertex*b.numElements, src[:numVertices*b.numElements]); err != nil {
		return err
	}
	b.valid = max(b.valid, startVertex+numVertices)
	return nil
}

// ReadData copies numVertices records starting at startVertex to the host.
func (b *VertexBuffer) ReadData(startVertex, numVertices int) ([]float32, error) {
	if err := b.check(startVertex, numVertices); err != nil {
		return nil, err
	}
	out := make([]float32, numVertices*b.numElements)
	if err := b.be.ReadBuffer(b.handle, startVertex*b.numElements, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *VertexBuffer) check(start, n int) error {
	if start < 0 || n < 0 || start+n > b.numVertices {
		return fmt.Errorf("%w: vertices [%d,%d) of %d", backend.ErrOutOfRange, start, start+n, b.numVertices)
	}
	return nil
}

func (b *VertexBuffer) Close() error {
	return b.be.Release(b.handle)
}
