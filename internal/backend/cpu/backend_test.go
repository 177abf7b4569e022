package cpu

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/samcharles93/subdiv/internal/backend"
)

func TestRangePoolCoversRangeOnce(t *testing.T) {
	t.Parallel()

	p := newRangePool(4)
	defer p.close()

	tests := []struct {
		start, end, grain int
	}{
		{0, 1000, 10},
		{5, 6, 1},
		{3, 17, 100},
		{0, 0, 1},
	}
	for _, tt := range tests {
		hits := make([]atomic.Int32, tt.end)
		rec := p.run(tt.start, tt.end, tt.grain, func(rs, re int) {
			for i := rs; i < re; i++ {
				hits[i].Add(1)
			}
		})
		if rec != nil {
			t.Fatalf("unexpected panic: %v", rec)
		}
		for i := tt.start; i < tt.end; i++ {
			if n := hits[i].Load(); n != 1 {
				t.Fatalf("[%d,%d) grain %d: entry %d ran %d times", tt.start, tt.end, tt.grain, i, n)
			}
		}
	}
}

func TestRangePoolRecoversPanics(t *testing.T) {
	t.Parallel()

	p := newRangePool(3)
	defer p.close()

	rec := p.run(0, 90, 1, func(rs, re int) {
		if rs == 0 {
			panic("bad entry")
		}
	})
	if rec != "bad entry" {
		t.Fatalf("recovered %v", rec)
	}
	// The pool keeps working after a failed run.
	var n atomic.Int32
	if rec := p.run(0, 90, 1, func(rs, re int) { n.Add(int32(re - rs)) }); rec != nil || n.Load() != 90 {
		t.Fatalf("second run: rec=%v n=%d", rec, n.Load())
	}
}

// quadLevel refines one bilinear face over the four corners of a unit quad.
func quadLevel(t *testing.T, b *Backend) (backend.Buffers, backend.TableRef, backend.TableRef) {
	t.Helper()
	vertex, err := b.NewBuffer(5 * 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.WriteBuffer(vertex, 0, []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}); err != nil {
		t.Fatal(err)
	}
	fIT, err := b.UploadIndices([]int32{0, 1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	fITa, err := b.UploadIndices([]int32{0, 4})
	if err != nil {
		t.Fatal(err)
	}
	return backend.Buffers{Vertex: vertex}, backend.TableRef{Handle: fIT}, backend.TableRef{Handle: fITa}
}

func TestBackendFaceVertices(t *testing.T) {
	t.Parallel()

	b := New(WithWorkers(2), WithGrain(1))
	defer b.Close()
	buf, fIT, fITa := quadLevel(t, b)

	b.FaceVertices(buf, fIT, fITa, 4, 0, 1)
	if err := b.Synchronize(); err != nil {
		t.Fatal(err)
	}
	out := make([]float32, 3)
	if err := b.ReadBuffer(buf.Vertex, 12, out); err != nil {
		t.Fatal(err)
	}
	if [3]float32(out) != [3]float32{0.5, 0.5, 0} {
		t.Fatalf("face vertex = %v", out)
	}
	if b.Launches() != 1 {
		t.Fatalf("launches = %d", b.Launches())
	}
}

func TestBackendErrorsAreSticky(t *testing.T) {
	t.Parallel()

	b := New()
	defer b.Close()
	buf, fIT, fITa := quadLevel(t, b)

	b.FaceVertices(buf, backend.TableRef{Handle: 999}, fITa, 4, 0, 1)
	// Skipped: a failure is pending.
	b.FaceVertices(buf, fIT, fITa, 4, 0, 1)

	err := b.Synchronize()
	if !errors.Is(err, backend.ErrInvalidHandle) {
		t.Fatalf("Synchronize = %v, want ErrInvalidHandle", err)
	}
	if b.Launches() != 0 {
		t.Fatalf("launches = %d after failed resolve", b.Launches())
	}
	if err := b.Synchronize(); err != nil {
		t.Fatalf("error reported twice: %v", err)
	}
}

func TestBackendKernelPanicBecomesError(t *testing.T) {
	t.Parallel()

	b := New()
	defer b.Close()
	buf, fIT, _ := quadLevel(t, b)
	bad, err := b.UploadIndices([]int32{0, 40})
	if err != nil {
		t.Fatal(err)
	}

	b.FaceVertices(buf, fIT, backend.TableRef{Handle: bad}, 4, 0, 1)
	if err := b.Synchronize(); err == nil {
		t.Fatal("out-of-bounds face valence did not fail")
	}
}

func TestBackendUploadCopies(t *testing.T) {
	t.Parallel()

	b := New()
	defer b.Close()
	data := []int32{1, 2, 3}
	h, err := b.UploadIndices(data)
	if err != nil {
		t.Fatal(err)
	}
	data[0] = 100
	got, err := b.Memory().Ints(h)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1 {
		t.Fatal("upload aliases the caller's slice")
	}
}

func TestBackendEditVertexAdd(t *testing.T) {
	t.Parallel()

	b := New(WithWorkers(4), WithGrain(1))
	defer b.Close()
	vertex, err := b.NewBuffer(4 * 3)
	if err != nil {
		t.Fatal(err)
	}
	idx, _ := b.UploadIndices([]int32{3, 3})
	val, _ := b.UploadWeights([]float32{1, 0, 0, 1, 0, 0})

	b.EditVertexAdd(backend.Buffers{Vertex: vertex}, 0, 3, 2, backend.TableRef{Handle: idx}, backend.TableRef{Handle: val})
	if err := b.Synchronize(); err != nil {
		t.Fatal(err)
	}
	out := make([]float32, 3)
	if err := b.ReadBuffer(vertex, 9, out); err != nil {
		t.Fatal(err)
	}
	if out[0] != 2 {
		t.Fatalf("repeated index summed to %v, want 2", out[0])
	}
}

func TestBackendClosed(t *testing.T) {
	t.Parallel()

	b := New()
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.UploadWeights([]float32{1}); !errors.Is(err, backend.ErrClosed) {
		t.Fatalf("upload after close = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close = %v", err)
	}
}

func TestBackendCloseDuringLaunches(t *testing.T) {
	t.Parallel()

	const launchers = 8
	b := New(WithWorkers(4), WithGrain(1))
	type level struct {
		buf       backend.Buffers
		fIT, fITa backend.TableRef
	}
	levels := make([]level, launchers)
	for i := range levels {
		buf, fIT, fITa := quadLevel(t, b)
		levels[i] = level{buf, fIT, fITa}
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, l := range levels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for range 200 {
				b.FaceVertices(l.buf, l.fIT, l.fITa, 4, 0, 1)
			}
		}()
	}
	close(start)
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	wg.Wait()

	if err := b.Synchronize(); err != nil && !errors.Is(err, backend.ErrClosed) {
		t.Fatalf("Synchronize = %v", err)
	}
	b.FaceVertices(levels[0].buf, levels[0].fIT, levels[0].fITa, 4, 0, 1)
	if err := b.Synchronize(); !errors.Is(err, backend.ErrClosed) {
		t.Fatalf("launch after Close = %v", err)
	}
}

func BenchmarkFaceVertices(b *testing.B) {
	const faces = 1 << 16
	be := New()
	defer be.Close()

	fIT := make([]int32, 4*faces)
	fITa := make([]int32, 2*faces)
	for i := range faces {
		for j := range 4 {
			fIT[4*i+j] = int32((i + j) % faces)
		}
		fITa[2*i], fITa[2*i+1] = int32(4*i), 4
	}
	vertex, _ := be.NewBuffer(3 * 2 * faces)
	it, _ := be.UploadIndices(fIT)
	ita, _ := be.UploadIndices(fITa)
	buf := backend.Buffers{Vertex: vertex}

	for b.Loop() {
		be.FaceVertices(buf, backend.TableRef{Handle: it}, backend.TableRef{Handle: ita}, faces, 0, faces)
		if err := be.Synchronize(); err != nil {
			b.Fatal(err)
		}
	}
}
