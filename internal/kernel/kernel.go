// Package kernel holds the scalar subdivision kernels. Each kernel writes the
// vertices offset+start .. offset+end-1 and only reads vertices of coarser
// levels or vertices an earlier kernel of the same level already finished, so
// any [start,end) range can be split across workers.
package kernel

// ReservedElements is the number of position components every vertex record
// carries ahead of the user elements.
const ReservedElements = 3

// Desc describes the vertex and varying buffers a kernel operates on.
type Desc struct {
	Vertex  []float32
	Varying []float32

	NumUserVertexElements int
	NumVaryingElements    int
}

// VertexStride is the number of floats per vertex record.
func (d *Desc) VertexStride() int {
	return d.NumUserVertexElements + ReservedElements
}

func (d *Desc) clear(dst int) {
	vs := d.VertexStride()
	clear(d.Vertex[dst*vs : (dst+1)*vs])
	if d.NumVaryingElements > 0 {
		ns := d.NumVaryingElements
		clear(d.Varying[dst*ns : (dst+1)*ns])
	}
}

func (d *Desc) addWithWeight(dst, src int, weight float32) {
	vs := d.VertexStride()
	out := d.Vertex[dst*vs : (dst+1)*vs]
	in := d.Vertex[src*vs : (src+1)*vs]
	for i := range out {
		out[i] += weight * in[i]
	}
}

func (d *Desc) addVaryingWithWeight(dst, src int, weight float32) {
	ns := d.NumVaryingElements
	if ns == 0 {
		return
	}
	out := d.Varying[dst*ns : (dst+1)*ns]
	in := d.Varying[src*ns : (src+1)*ns]
	for i := range out {
		out[i] += weight * in[i]
	}
}
