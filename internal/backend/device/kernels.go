package device

import (
	"github.com/samcharles93/subdiv/internal/backend"
	"github.com/samcharles93/subdiv/internal/kernel"
)

func (d *Backend) BilinearFaceVertices(buf backend.Buffers, fIT, fITa backend.TableRef, offset, start, end int) {
	d.FaceVertices(buf, fIT, fITa, offset, start, end)
}

func (d *Backend) BilinearEdgeVertices(buf backend.Buffers, eIT backend.TableRef, offset, start, end int) {
	d.launch(start, end, func() error {
		desc, err := d.desc(buf)
		if err != nil {
			return err
		}
		it, err := d.mem.IntsAt(eIT)
		if err != nil {
			return err
		}
		kernel.ComputeBilinearEdge(desc, it, offset, start, end)
		return nil
	})
}

func (d *Backend) BilinearVertexVertices(buf backend.Buffers, vITa backend.TableRef, offset, start, end int) {
	d.launch(start, end, func() error {
		desc, err := d.desc(buf)
		if err != nil {
			return err
		}
		it, err := d.mem.IntsAt(vITa)
		if err != nil {
			return err
		}
		kernel.ComputeBilinearVertex(desc, it, offset, start, end)
		return nil
	})
}

func (d *Backend) FaceVertices(buf backend.Buffers, fIT, fITa backend.TableRef, offset, start, end int) {
	d.launch(start, end, func() error {
		desc, err := d.desc(buf)
		if err != nil {
			return err
		}
		it, err := d.mem.IntsAt(fIT)
		if err != nil {
			return err
		}
		ita, err := d.mem.IntsAt(fITa)
		if err != nil {
			return err
		}
		kernel.ComputeFace(desc, it, ita, offset, start, end)
		return nil
	})
}

func (d *Backend) EdgeVertices(buf backend.Buffers, eIT, eW backend.TableRef, offset, start, end int) {
	d.launch(start, end, func() error {
		desc, err := d.desc(buf)
		if err != nil {
			return err
		}
		it, err := d.mem.IntsAt(eIT)
		if err != nil {
			return err
		}
		w, err := d.mem.FloatsAt(eW)
		if err != nil {
			return err
		}
		kernel.ComputeEdge(desc, it, w, offset, start, end)
		return nil
	})
}

func (d *Backend) VertexVerticesPassA0(buf backend.Buffers, vITa, vW backend.TableRef, offset, start, end int) {
	d.vertexA(kernel.ComputeVertexA0, buf, vITa, vW, offset, start, end)
}

func (d *Backend) VertexVerticesPassA1(buf backend.Buffers, vITa, vW backend.TableRef, offset, start, end int) {
	d.vertexA(kernel.ComputeVertexA1, buf, vITa, vW, offset, start, end)
}

func (d *Backend) vertexA(fn func(*kernel.Desc, []int32, []float32, int, int, int), buf backend.Buffers, vITa, vW backend.TableRef, offset, start, end int) {
	d.launch(start, end, func() error {
		desc, err := d.desc(buf)
		if err != nil {
			return err
		}
		it, err := d.mem.IntsAt(vITa)
		if err != nil {
			return err
		}
		w, err := d.mem.FloatsAt(vW)
		if err != nil {
			return err
		}
		fn(desc, it, w, offset, start, end)
		return nil
	})
}

func (d *Backend) VertexVerticesB(buf backend.Buffers, vITa, vIT, vW backend.TableRef, offset, start, end int) {
	d.vertexB(kernel.ComputeVertexB, buf, vITa, vIT, vW, offset, start, end)
}

func (d *Backend) LoopVertexVerticesB(buf backend.Buffers, vITa, vIT, vW backend.TableRef, offset, start, end int) {
	d.vertexB(kernel.ComputeLoopVertexB, buf, vITa, vIT, vW, offset, start, end)
}

func (d *Backend) vertexB(fn func(*kernel.Desc, []int32, []int32, []float32, int, int, int), buf backend.Buffers, vITa, vIT, vW backend.TableRef, offset, start, end int) {
	d.launch(start, end, func() error {
		desc, err := d.desc(buf)
		if err != nil {
			return err
		}
		ita, err := d.mem.IntsAt(vITa)
		if err != nil {
			return err
		}
		it, err := d.mem.IntsAt(vIT)
		if err != nil {
			return err
		}
		w, err := d.mem.FloatsAt(vW)
		if err != nil {
			return err
		}
		fn(desc, ita, it, w, offset, start, end)
		return nil
	})
}

func (d *Backend) EditVertexAdd(buf backend.Buffers, primVarOffset, primVarWidth, numVertices int, indices, values backend.TableRef) {
	d.launch(0, numVertices, func() error {
		vertex, err := d.mem.Floats(buf.Vertex)
		if err != nil {
			return err
		}
		it, err := d.mem.IntsAt(indices)
		if err != nil {
			return err
		}
		v, err := d.mem.FloatsAt(values)
		if err != nil {
			return err
		}
		kernel.EditVertexAdd(vertex, buf.NumUserVertexElements, primVarOffset, primVarWidth, numVertices, it, v)
		return nil
	})
}
