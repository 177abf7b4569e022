package device

import (
	"errors"
	"testing"

	"github.com/samcharles93/subdiv/internal/backend"
)

func newDevice(t *testing.T) *Backend {
	t.Helper()
	d := New(2)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestStreamRunsInIssueOrder(t *testing.T) {
	t.Parallel()

	d := newDevice(t)
	vertex, err := d.NewBuffer(4 * 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.WriteBuffer(vertex, 0, []float32{2, 4, 6, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	copyIdx, _ := d.UploadIndices([]int32{0, 1, 2})
	buf := backend.Buffers{Vertex: vertex}

	// Each copy reads the vertex the previous launch wrote; the queue is
	// shallower than the chain so the host blocks on enqueue too.
	for i := range 3 {
		d.BilinearVertexVertices(buf, backend.TableRef{Handle: copyIdx, Offset: i}, i+1, 0, 1)
	}
	if err := d.Synchronize(); err != nil {
		t.Fatal(err)
	}
	out := make([]float32, 3)
	if err := d.ReadBuffer(vertex, 9, out); err != nil {
		t.Fatal(err)
	}
	if [3]float32(out) != [3]float32{2, 4, 6} {
		t.Fatalf("vertex 3 = %v", out)
	}
	if d.Launches() != 3 {
		t.Fatalf("launches = %d", d.Launches())
	}
}

func TestFaultDropsLaterKernels(t *testing.T) {
	t.Parallel()

	d := newDevice(t)
	vertex, _ := d.NewBuffer(2 * 3)
	if err := d.WriteBuffer(vertex, 0, []float32{1, 1, 1}); err != nil {
		t.Fatal(err)
	}
	idx, _ := d.UploadIndices([]int32{0})
	buf := backend.Buffers{Vertex: vertex}

	d.BilinearVertexVertices(buf, backend.TableRef{Handle: 404}, 1, 0, 1)
	d.BilinearVertexVertices(buf, backend.TableRef{Handle: idx}, 1, 0, 1)

	if err := d.Synchronize(); !errors.Is(err, backend.ErrInvalidHandle) {
		t.Fatalf("Synchronize = %v, want ErrInvalidHandle", err)
	}
	out := make([]float32, 3)
	if err := d.ReadBuffer(vertex, 3, out); err != nil {
		t.Fatal(err)
	}
	if out[0] != 0 {
		t.Fatal("kernel queued behind a fault still ran")
	}

	// The fault is cleared by the barrier that reported it.
	d.BilinearVertexVertices(buf, backend.TableRef{Handle: idx}, 1, 0, 1)
	if err := d.Synchronize(); err != nil {
		t.Fatal(err)
	}
	if err := d.ReadBuffer(vertex, 3, out); err != nil {
		t.Fatal(err)
	}
	if out[0] != 1 {
		t.Fatalf("vertex 1 = %v after recovery", out)
	}
}

func TestKernelPanicIsReported(t *testing.T) {
	t.Parallel()

	d := newDevice(t)
	vertex, _ := d.NewBuffer(3)
	idx, _ := d.UploadIndices([]int32{7})
	d.BilinearVertexVertices(backend.Buffers{Vertex: vertex}, backend.TableRef{Handle: idx}, 0, 0, 1)
	if err := d.Synchronize(); err == nil {
		t.Fatal("out-of-bounds read did not fail")
	}
}

func TestUploadAccounting(t *testing.T) {
	t.Parallel()

	d := newDevice(t)
	a, _ := d.UploadIndices(make([]int32, 10))
	if _, err := d.UploadWeights(make([]float32, 6)); err != nil {
		t.Fatal(err)
	}
	if got := d.UploadedBytes(); got != 64 {
		t.Fatalf("uploaded %d bytes, want 64", got)
	}
	if err := d.Release(a); err != nil {
		t.Fatal(err)
	}
	if err := d.Release(a); !errors.Is(err, backend.ErrInvalidHandle) {
		t.Fatalf("double release = %v", err)
	}
	if got := d.Memory().Bytes(); got != 24 {
		t.Fatalf("resident bytes = %d, want 24", got)
	}
}

func TestClosedDevice(t *testing.T) {
	t.Parallel()

	d := New(0)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.NewBuffer(3); !errors.Is(err, backend.ErrClosed) {
		t.Fatalf("NewBuffer after close = %v", err)
	}
	if err := d.Synchronize(); !errors.Is(err, backend.ErrClosed) {
		t.Fatalf("Synchronize after close = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
}
