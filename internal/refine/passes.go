package refine

import (
	"github.com/samcharles93/subdiv/internal/backend"
	"github.com/samcharles93/subdiv/internal/tables"
)

// levelRun issues the kernels of one level. Table references are resolved
// up front so a missing table stops the level before anything runs.
type levelRun struct {
	k     backend.Kernels
	buf   backend.Buffers
	level int
	batch tables.Batch
	refs  [tables.NumKinds]backend.TableRef

	launches int
}

func (r *levelRun) issue(rg tables.Range, fn func(start, end int)) {
	if rg.Empty() {
		return
	}
	fn(rg.Start, rg.End)
	r.launches++
}

func (r *levelRun) face(bilinear bool) {
	r.issue(r.batch.Face, func(start, end int) {
		if bilinear {
			r.k.BilinearFaceVertices(r.buf, r.refs[tables.FaceIndices], r.refs[tables.FaceAddresses], r.batch.VertexOffset, start, end)
			return
		}
		r.k.FaceVertices(r.buf, r.refs[tables.FaceIndices], r.refs[tables.FaceAddresses], r.batch.VertexOffset, start, end)
	})
}

func (r *levelRun) edge() {
	r.issue(r.batch.Edge, func(start, end int) {
		r.k.EdgeVertices(r.buf, r.refs[tables.EdgeIndices], r.refs[tables.EdgeWeights], r.batch.EdgeOffset(), start, end)
	})
}

func (r *levelRun) bilinearEdge() {
	r.issue(r.batch.Edge, func(start, end int) {
		r.k.BilinearEdgeVertices(r.buf, r.refs[tables.EdgeIndices], r.batch.EdgeOffset(), start, end)
	})
}

func (r *levelRun) bilinearVertex() {
	r.issue(r.batch.Vertex, func(start, end int) {
		r.k.BilinearVertexVertices(r.buf, r.refs[tables.VertexAddresses], r.batch.VertexVertexOffset(), start, end)
	})
}

// passA0 issues the first sharp-rule pass. The second pass can only be
// issued through the returned value, so it always follows the first.
func (r *levelRun) passA0() passA1 {
	r.issue(r.batch.VertexA0, func(start, end int) {
		r.k.VertexVerticesPassA0(r.buf, r.refs[tables.VertexAddresses], r.refs[tables.VertexWeights], r.batch.VertexVertexOffset(), start, end)
	})
	return passA1{run: r}
}

// passA1 is the pending second sharp-rule pass of one level.
type passA1 struct {
	run *levelRun
}

func (p passA1) issue() {
	r := p.run
	if r == nil {
		tables.Fail("VertexVerticesPassA1", "pass 1 issued before pass 0")
	}
	r.issue(r.batch.VertexA1, func(start, end int) {
		r.k.VertexVerticesPassA1(r.buf, r.refs[tables.VertexAddresses], r.refs[tables.VertexWeights], r.batch.VertexVertexOffset(), start, end)
	})
}

func (r *levelRun) vertexB(loop bool) {
	r.issue(r.batch.Vertex, func(start, end int) {
		vITa, vIT, vW := r.refs[tables.VertexAddresses], r.refs[tables.VertexIndices], r.refs[tables.VertexWeights]
		if loop {
			r.k.LoopVertexVerticesB(r.buf, vITa, vIT, vW, r.batch.VertexVertexOffset(), start, end)
			return
		}
		r.k.VertexVerticesB(r.buf, vITa, vIT, vW, r.batch.VertexVertexOffset(), start, end)
	})
}
