package cpu

import (
	"github.com/samcharles93/subdiv/internal/backend"
	"github.com/samcharles93/subdiv/internal/kernel"
)

func (b *Backend) BilinearFaceVertices(buf backend.Buffers, fIT, fITa backend.TableRef, offset, start, end int) {
	b.FaceVertices(buf, fIT, fITa, offset, start, end)
}

func (b *Backend) BilinearEdgeVertices(buf backend.Buffers, eIT backend.TableRef, offset, start, end int) {
	b.launch(start, end, func() (func(rs, re int), error) {
		d, err := b.desc(buf)
		if err != nil {
			return nil, err
		}
		it, err := b.ints(eIT)
		if err != nil {
			return nil, err
		}
		return func(rs, re int) { kernel.ComputeBilinearEdge(d, it[0], offset, rs, re) }, nil
	})
}

func (b *Backend) BilinearVertexVertices(buf backend.Buffers, vITa backend.TableRef, offset, start, end int) {
	b.launch(start, end, func() (func(rs, re int), error) {
		d, err := b.desc(buf)
		if err != nil {
			return nil, err
		}
		it, err := b.ints(vITa)
		if err != nil {
			return nil, err
		}
		return func(rs, re int) { kernel.ComputeBilinearVertex(d, it[0], offset, rs, re) }, nil
	})
}

func (b *Backend) FaceVertices(buf backend.Buffers, fIT, fITa backend.TableRef, offset, start, end int) {
	b.launch(start, end, func() (func(rs, re int), error) {
		d, err := b.desc(buf)
		if err != nil {
			return nil, err
		}
		it, err := b.ints(fIT, fITa)
		if err != nil {
			return nil, err
		}
		return func(rs, re int) { kernel.ComputeFace(d, it[0], it[1], offset, rs, re) }, nil
	})
}

func (b *Backend) EdgeVertices(buf backend.Buffers, eIT, eW backend.TableRef, offset, start, end int) {
	b.launch(start, end, func() (func(rs, re int), error) {
		d, err := b.desc(buf)
		if err != nil {
			return nil, err
		}
		it, err := b.ints(eIT)
		if err != nil {
			return nil, err
		}
		w, err := b.floats(eW)
		if err != nil {
			return nil, err
		}
		return func(rs, re int) { kernel.ComputeEdge(d, it[0], w, offset, rs, re) }, nil
	})
}

func (b *Backend) VertexVerticesPassA0(buf backend.Buffers, vITa, vW backend.TableRef, offset, start, end int) {
	b.vertexA(kernel.ComputeVertexA0, buf, vITa, vW, offset, start, end)
}

func (b *Backend) VertexVerticesPassA1(buf backend.Buffers, vITa, vW backend.TableRef, offset, start, end int) {
	b.vertexA(kernel.ComputeVertexA1, buf, vITa, vW, offset, start, end)
}

func (b *Backend) vertexA(fn func(*kernel.Desc, []int32, []float32, int, int, int), buf backend.Buffers, vITa, vW backend.TableRef, offset, start, end int) {
	b.launch(start, end, func() (func(rs, re int), error) {
		d, err := b.desc(buf)
		if err != nil {
			return nil, err
		}
		it, err := b.ints(vITa)
		if err != nil {
			return nil, err
		}
		w, err := b.floats(vW)
		if err != nil {
			return nil, err
		}
		return func(rs, re int) { fn(d, it[0], w, offset, rs, re) }, nil
	})
}

func (b *Backend) VertexVerticesB(buf backend.Buffers, vITa, vIT, vW backend.TableRef, offset, start, end int) {
	b.vertexB(kernel.ComputeVertexB, buf, vITa, vIT, vW, offset, start, end)
}

func (b *Backend) LoopVertexVerticesB(buf backend.Buffers, vITa, vIT, vW backend.TableRef, offset, start, end int) {
	b.vertexB(kernel.ComputeLoopVertexB, buf, vITa, vIT, vW, offset, start, end)
}

func (b *Backend) vertexB(fn func(*kernel.Desc, []int32, []int32, []float32, int, int, int), buf backend.Buffers, vITa, vIT, vW backend.TableRef, offset, start, end int) {
	b.launch(start, end, func() (func(rs, re int), error) {
		d, err := b.desc(buf)
		if err != nil {
			return nil, err
		}
		it, err := b.ints(vITa, vIT)
		if err != nil {
			return nil, err
		}
		w, err := b.floats(vW)
		if err != nil {
			return nil, err
		}
		return func(rs, re int) { fn(d, it[0], it[1], w, offset, rs, re) }, nil
	})
}

// EditVertexAdd runs on a single worker: edit tables are small and their
// indices are not guaranteed to be distinct.
func (b *Backend) EditVertexAdd(buf backend.Buffers, primVarOffset, primVarWidth, numVertices int, indices, values backend.TableRef) {
	// A one-entry range keeps the whole edit table on the calling goroutine.
	b.launch(0, min(numVertices, 1), func() (func(rs, re int), error) {
		vertex, err := b.mem.Floats(buf.Vertex)
		if err != nil {
			return nil, err
		}
		it, err := b.ints(indices)
		if err != nil {
			return nil, err
		}
		v, err := b.floats(values)
		if err != nil {
			return nil, err
		}
		return func(int, int) {
			kernel.EditVertexAdd(vertex, buf.NumUserVertexElements, primVarOffset, primVarWidth, numVertices, it[0], v)
		}, nil
	})
}
