package backend

// Kernels is the fixed operation set of the subdivision kernels. Each
// operation writes the vertices offset+start .. offset+end-1 of the vertex
// (and varying) buffer and reads table entries start .. end-1 of the table
// levels it is given.
//
// The two pass A operations are separate methods: pass 1 reads what pass 0
// wrote, so a caller must issue VertexVerticesPassA0 for a level before
// VertexVerticesPassA1.
type Kernels interface {
	BilinearFaceVertices(b Buffers, fIT, fITa TableRef, offset, start, end int)
	BilinearEdgeVertices(b Buffers, eIT TableRef, offset, start, end int)
	BilinearVertexVertices(b Buffers, vITa TableRef, offset, start, end int)

	FaceVertices(b Buffers, fIT, fITa TableRef, offset, start, end int)
	EdgeVertices(b Buffers, eIT, eW TableRef, offset, start, end int)
	VertexVerticesPassA0(b Buffers, vITa, vW TableRef, offset, start, end int)
	VertexVerticesPassA1(b Buffers, vITa, vW TableRef, offset, start, end int)
	VertexVerticesB(b Buffers, vITa, vIT, vW TableRef, offset, start, end int)
	LoopVertexVerticesB(b Buffers, vITa, vIT, vW TableRef, offset, start, end int)

	// EditVertexAdd adds primVarWidth values per vertex to numVertices
	// vertices. Indices are absolute vertex buffer indices.
	EditVertexAdd(b Buffers, primVarOffset, primVarWidth, numVertices int, indices, values TableRef)
}
