package kernel

import (
	"math"

	"github.com/chewxy/math32"
)

// ComputeFace averages the vertices of each parent face.
// fITa holds (offset into fIT, valence) pairs.
func ComputeFace(d *Desc, fIT, fITa []int32, offset, start, end int) {
	for i := start; i < end; i++ {
		h := int(fITa[2*i])
		n := int(fITa[2*i+1])
		weight := 1.0 / float32(n)
		dst := offset + i

		d.clear(dst)
		for j := range n {
			idx := int(fIT[h+j])
			d.addWithWeight(dst, idx, weight)
			d.addVaryingWithWeight(dst, idx, weight)
		}
	}
}

// ComputeEdge applies the smooth edge rule. Entries whose third index is -1
// are boundary edges and only blend the two end points.
func ComputeEdge(d *Desc, eIT []int32, eW []float32, offset, start, end int) {
	for i := start; i < end; i++ {
		e0 := int(eIT[4*i+0])
		e1 := int(eIT[4*i+1])
		e2 := int(eIT[4*i+2])
		e3 := int(eIT[4*i+3])
		vertWeight := eW[2*i]
		dst := offset + i

		d.clear(dst)
		d.addWithWeight(dst, e0, vertWeight)
		d.addWithWeight(dst, e1, vertWeight)
		if e2 != -1 {
			faceWeight := eW[2*i+1]
			d.addWithWeight(dst, e2, faceWeight)
			d.addWithWeight(dst, e3, faceWeight)
		}
		d.addVaryingWithWeight(dst, e0, 0.5)
		d.addVaryingWithWeight(dst, e1, 0.5)
	}
}

// ComputeBilinearEdge places each edge vertex at the edge midpoint.
func ComputeBilinearEdge(d *Desc, eIT []int32, offset, start, end int) {
	for i := start; i < end; i++ {
		e0 := int(eIT[2*i+0])
		e1 := int(eIT[2*i+1])
		dst := offset + i

		d.clear(dst)
		d.addWithWeight(dst, e0, 0.5)
		d.addWithWeight(dst, e1, 0.5)
		d.addVaryingWithWeight(dst, e0, 0.5)
		d.addVaryingWithWeight(dst, e1, 0.5)
	}
}

// ComputeBilinearVertex copies each parent vertex.
func ComputeBilinearVertex(d *Desc, vITa []int32, offset, start, end int) {
	for i := start; i < end; i++ {
		p := int(vITa[i])
		dst := offset + i

		d.clear(dst)
		d.addWithWeight(dst, p, 1.0)
		d.addVaryingWithWeight(dst, p, 1.0)
	}
}

// ComputeVertexA0 is the first sharp-rule pass. It resets each destination and
// writes the (1-w) share of the corner rule (no crease neighbours, or valence
// -1) or of the crease rule.
func ComputeVertexA0(d *Desc, vITa []int32, vW []float32, offset, start, end int) {
	for i := start; i < end; i++ {
		n := vITa[5*i+1]
		p := int(vITa[5*i+2])
		e0 := int(vITa[5*i+3])
		e1 := int(vITa[5*i+4])
		weight := 1 - vW[i]
		dst := offset + i

		d.clear(dst)
		if e0 == -1 || n == -1 {
			d.addWithWeight(dst, p, weight)
		} else {
			addCrease(d, dst, p, e0, e1, weight)
		}
		d.addVaryingWithWeight(dst, p, 1.0)
	}
}

// ComputeVertexA1 is the second sharp-rule pass. It adds the w share of the
// crease rule on top of what ComputeVertexA0 wrote, which blends a corner
// towards a crease.
func ComputeVertexA1(d *Desc, vITa []int32, vW []float32, offset, start, end int) {
	for i := start; i < end; i++ {
		p := int(vITa[5*i+2])
		e0 := int(vITa[5*i+3])
		e1 := int(vITa[5*i+4])
		weight := vW[i]
		dst := offset + i

		if e0 == -1 {
			d.addWithWeight(dst, p, weight)
		} else {
			addCrease(d, dst, p, e0, e1, weight)
		}
	}
}

func addCrease(d *Desc, dst, p, e0, e1 int, weight float32) {
	d.addWithWeight(dst, p, weight*0.75)
	d.addWithWeight(dst, e0, weight*0.125)
	d.addWithWeight(dst, e1, weight*0.125)
}

// ComputeVertexB applies the Catmull-Clark smooth vertex rule. vIT holds, per
// vertex, valence pairs of (edge neighbour, face vertex of this level).
// Entries with a full weight start from zero; fractional ones accumulate onto
// the pass A result.
func ComputeVertexB(d *Desc, vITa, vIT []int32, vW []float32, offset, start, end int) {
	for i := start; i < end; i++ {
		h := int(vITa[5*i])
		n := int(vITa[5*i+1])
		p := int(vITa[5*i+2])
		weight := vW[i]
		wp := 1.0 / float32(n*n)
		wv := float32(n-2) * float32(n) * wp
		dst := offset + i

		if weight >= 1 {
			d.clear(dst)
			d.addVaryingWithWeight(dst, p, 1.0)
		}
		d.addWithWeight(dst, p, weight*wv)
		for j := range n {
			d.addWithWeight(dst, int(vIT[h+j*2]), weight*wp)
			d.addWithWeight(dst, int(vIT[h+j*2+1]), weight*wp)
		}
	}
}

// ComputeLoopVertexB applies Loop's smooth vertex rule over the valence
// neighbours listed in vIT.
func ComputeLoopVertexB(d *Desc, vITa, vIT []int32, vW []float32, offset, start, end int) {
	for i := start; i < end; i++ {
		h := int(vITa[5*i])
		n := int(vITa[5*i+1])
		p := int(vITa[5*i+2])
		weight := vW[i]
		beta := LoopBeta(n)
		dst := offset + i

		if weight >= 1 {
			d.clear(dst)
			d.addVaryingWithWeight(dst, p, 1.0)
		}
		d.addWithWeight(dst, p, weight*(1.0-beta*float32(n)))
		for j := range n {
			d.addWithWeight(dst, int(vIT[h+j]), weight*beta)
		}
	}
}

// LoopBeta is the neighbour weight of Loop's vertex rule for valence n.
func LoopBeta(n int) float32 {
	wp := 1.0 / float32(n)
	beta := 0.25*math32.Cos(2*math.Pi*wp) + 0.375
	beta *= beta
	return (0.625 - beta) * wp
}

// EditVertexAdd adds primVarWidth values to each indexed vertex. Indices
// address the vertex buffer directly.
func EditVertexAdd(vertex []float32, numUserVertexElements, primVarOffset, primVarWidth, numVertices int, indices []int32, values []float32) {
	stride := numUserVertexElements + ReservedElements
	for i := range numVertices {
		base := int(indices[i])*stride + primVarOffset
		dst := vertex[base : base+primVarWidth]
		src := values[i*primVarWidth : (i+1)*primVarWidth]
		for j := range dst {
			dst[j] += src[j]
		}
	}
}

// NearlyEqual reports whether a and b differ by at most tol.
func NearlyEqual(a, b, tol float32) bool {
	return math32.Abs(a-b) <= tol
}
