package refine

import (
	"slices"
	"sync"
	"testing"

	"github.com/samcharles93/subdiv/internal/backend"
	"github.com/samcharles93/subdiv/internal/backend/cpu"
	"github.com/samcharles93/subdiv/internal/logger"
	"github.com/samcharles93/subdiv/internal/tables"
	"github.com/samcharles93/subdiv/internal/topology"
)

type event struct {
	op         string
	offset     int
	start, end int
}

// recorder is a CPU backend that logs every kernel and barrier it sees.
type recorder struct {
	*cpu.Backend

	mu      sync.Mutex
	events  []event
	syncErr error
}

func newRecorder(t *testing.T) *recorder {
	t.Helper()
	r := &recorder{Backend: cpu.New(cpu.WithWorkers(2), cpu.WithGrain(1))}
	t.Cleanup(func() { r.Close() })
	return r
}

func (r *recorder) record(op string, offset, start, end int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{op: op, offset: offset, start: start, end: end})
}

func (r *recorder) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.op
	}
	return out
}

func (r *recorder) kernelsFrom(offset int) []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event
	for _, e := range r.events {
		if e.op != "sync" && e.offset >= offset {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) BilinearFaceVertices(b backend.Buffers, fIT, fITa backend.TableRef, offset, start, end int) {
	r.record("bface", offset, start, end)
	r.Backend.BilinearFaceVertices(b, fIT, fITa, offset, start, end)
}

func (r *recorder) BilinearEdgeVertices(b backend.Buffers, eIT backend.TableRef, offset, start, end int) {
	r.record("bedge", offset, start, end)
	r.Backend.BilinearEdgeVertices(b, eIT, offset, start, end)
}

func (r *recorder) BilinearVertexVertices(b backend.Buffers, vITa backend.TableRef, offset, start, end int) {
	r.record("bvertex", offset, start, end)
	r.Backend.BilinearVertexVertices(b, vITa, offset, start, end)
}

func (r *recorder) FaceVertices(b backend.Buffers, fIT, fITa backend.TableRef, offset, start, end int) {
	r.record("face", offset, start, end)
	r.Backend.FaceVertices(b, fIT, fITa, offset, start, end)
}

func (r *recorder) EdgeVertices(b backend.Buffers, eIT, eW backend.TableRef, offset, start, end int) {
	r.record("edge", offset, start, end)
	r.Backend.EdgeVertices(b, eIT, eW, offset, start, end)
}

func (r *recorder) VertexVerticesPassA0(b backend.Buffers, vITa, vW backend.TableRef, offset, start, end int) {
	r.record("a0", offset, start, end)
	r.Backend.VertexVerticesPassA0(b, vITa, vW, offset, start, end)
}

func (r *recorder) VertexVerticesPassA1(b backend.Buffers, vITa, vW backend.TableRef, offset, start, end int) {
	r.record("a1", offset, start, end)
	r.Backend.VertexVerticesPassA1(b, vITa, vW, offset, start, end)
}

func (r *recorder) VertexVerticesB(b backend.Buffers, vITa, vIT, vW backend.TableRef, offset, start, end int) {
	r.record("b", offset, start, end)
	r.Backend.VertexVerticesB(b, vITa, vIT, vW, offset, start, end)
}

func (r *recorder) LoopVertexVerticesB(b backend.Buffers, vITa, vIT, vW backend.TableRef, offset, start, end int) {
	r.record("loopb", offset, start, end)
	r.Backend.LoopVertexVerticesB(b, vITa, vIT, vW, offset, start, end)
}

func (r *recorder) EditVertexAdd(b backend.Buffers, primVarOffset, primVarWidth, numVertices int, indices, values backend.TableRef) {
	r.record("edit", 0, 0, numVertices)
	r.Backend.EditVertexAdd(b, primVarOffset, primVarWidth, numVertices, indices, values)
}

func (r *recorder) Synchronize() error {
	r.record("sync", 0, 0, 0)
	r.mu.Lock()
	err := r.syncErr
	r.syncErr = nil
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.Backend.Synchronize()
}

type fixture struct {
	ctx    *Context
	vertex *VertexBuffer
}

// newFixture uploads ref to be, binds a position-only vertex buffer sized for
// the finest level and writes the coarse positions.
func newFixture(t *testing.T, be backend.Backend, set *tables.Set, coarse []float32, edits ...*tables.EditTable) *fixture {
	t.Helper()
	c, err := NewContext(be, set, edits...)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	vb, err := NewVertexBuffer(be, 3, set.NumVertices(set.MaxLevel))
	if err != nil {
		t.Fatalf("NewVertexBuffer: %v", err)
	}
	t.Cleanup(func() { vb.Close() })
	if err := vb.UpdateData(coarse, 0, set.NumCoarseVertices); err != nil {
		t.Fatalf("UpdateData: %v", err)
	}
	if err := c.Bind(vb, nil); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return &fixture{ctx: c, vertex: vb}
}

func (f *fixture) refine(t *testing.T, maxLevel int) *Report {
	t.Helper()
	report, err := NewDispatcher(logger.Discard()).Refine(t.Context(), f.ctx, maxLevel)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	return report
}

func (f *fixture) read(t *testing.T) []float32 {
	t.Helper()
	out, err := f.vertex.ReadData(0, f.vertex.NumVertices())
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	return out
}

func compile(t *testing.T, m *topology.Mesh, scheme tables.Scheme, levels int) *tables.Set {
	t.Helper()
	ref, err := topology.Compile(m, scheme, levels)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return ref.Set
}

func vertexAt(data []float32, i int) [3]float32 {
	return [3]float32{data[3*i], data[3*i+1], data[3*i+2]}
}

func assertVertex(t *testing.T, data []float32, i int, want [3]float32) {
	t.Helper()
	got := vertexAt(data, i)
	for k := range 3 {
		d := got[k] - want[k]
		if d < -1e-5 || d > 1e-5 {
			t.Fatalf("vertex %d = %v, want %v", i, got, want)
		}
	}
}

func expectPrecondition(t *testing.T, fn func()) *tables.PreconditionError {
	t.Helper()
	var pe *tables.PreconditionError
	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected a precondition panic")
			}
			var ok bool
			if pe, ok = r.(*tables.PreconditionError); !ok {
				t.Fatalf("panic value %T, want *tables.PreconditionError", r)
			}
		}()
		fn()
	}()
	return pe
}

func addEdit(level int, idx int32, value [3]float32) *tables.EditTable {
	levels := make([][]int32, level)
	values := make([][]float32, level)
	for l := range levels {
		levels[l] = []int32{}
		values[l] = []float32{}
	}
	levels[level-1] = []int32{idx}
	values[level-1] = slices.Clone(value[:])
	return &tables.EditTable{
		Op:           tables.EditAdd,
		PrimvarWidth: 3,
		Level:        level,
		Indices:      tables.NewTable(levels...),
		Values:       tables.NewTable(values...),
	}
}
