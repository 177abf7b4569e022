// Package cpu is the reference backend. Tables and vertex buffers live in
// host memory and every kernel range is partitioned across a worker pool.
package cpu

import (
	"sync"
	"sync/atomic"

	"github.com/samcharles93/subdiv/internal/backend"
	"github.com/samcharles93/subdiv/internal/kernel"
)

const defaultGrain = 256

var _ backend.Backend = (*Backend)(nil)

type Backend struct {
	mem   *backend.Arena
	pool  *rangePool
	grain int

	mu     sync.Mutex
	err    error
	closed bool
	// inflight counts launches that may still hand work to the pool.
	inflight sync.WaitGroup

	launches atomic.Int64
}

type Option func(*config)

type config struct {
	workers int
	grain   int
}

// WithWorkers sets the pool size. Zero uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithGrain sets the smallest number of entries handed to one worker.
func WithGrain(n int) Option {
	return func(c *config) { c.grain = n }
}

func New(opts ...Option) *Backend {
	cfg := config{grain: defaultGrain}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Backend{
		mem:   backend.NewArena(),
		pool:  newRangePool(cfg.workers),
		grain: cfg.grain,
	}
}

// Factory registers the CPU backend with a backend.Registry.
func Factory() (backend.Backend, error) {
	return New(), nil
}

func (b *Backend) Name() string {
	return backend.CPU
}

// Launches returns the number of kernels executed.
func (b *Backend) Launches() int64 {
	return b.launches.Load()
}

// Memory exposes the arena for inspection.
func (b *Backend) Memory() *backend.Arena {
	return b.mem
}

func (b *Backend) UploadIndices(data []int32) (backend.Handle, error) {
	if err := b.checkOpen(); err != nil {
		return backend.InvalidHandle, err
	}
	return b.mem.PutInts(append([]int32(nil), data...)), nil
}

func (b *Backend) UploadWeights(data []float32) (backend.Handle, error) {
	if err := b.checkOpen(); err != nil {
		return backend.InvalidHandle, err
	}
	return b.mem.PutFloats(append([]float32(nil), data...)), nil
}

func (b *Backend) NewBuffer(n int) (backend.Handle, error) {
	if err := b.checkOpen(); err != nil {
		return backend.InvalidHandle, err
	}
	if n < 0 {
		return backend.InvalidHandle, backend.ErrOutOfRange
	}
	return b.mem.PutFloats(make([]float32, n)), nil
}

func (b *Backend) WriteBuffer(h backend.Handle, offset int, src []float32) error {
	return b.mem.Write(h, offset, src)
}

func (b *Backend) ReadBuffer(h backend.Handle, offset int, dst []float32) error {
	return b.mem.Read(h, offset, dst)
}

func (b *Backend) Release(h backend.Handle) error {
	return b.mem.Free(h)
}

// Synchronize returns and clears the first kernel failure. CPU kernels are
// complete when their call returns, so there is nothing to wait for.
func (b *Backend) Synchronize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.err
	b.err = nil
	return err
}

// Close waits for running launches before stopping the pool. Launches that
// start afterwards fail with backend.ErrClosed.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.inflight.Wait()
	b.pool.close()
	return nil
}

func (b *Backend) checkOpen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return backend.ErrClosed
	}
	return nil
}

func (b *Backend) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
}

// launch resolves a kernel's memory with prepare and runs the returned body
// over [start,end). Once a failure is pending, further launches are skipped
// until Synchronize reports it.
func (b *Backend) launch(start, end int, prepare func() (func(rs, re int), error)) {
	b.mu.Lock()
	if b.closed {
		if b.err == nil {
			b.err = backend.ErrClosed
		}
		b.mu.Unlock()
		return
	}
	pending := b.err != nil
	b.inflight.Add(1)
	b.mu.Unlock()
	defer b.inflight.Done()

	if pending || start >= end {
		return
	}

	body, err := prepare()
	if err != nil {
		b.fail(backend.ExecutionError(backend.CPU, err))
		return
	}
	b.launches.Add(1)
	if rec := b.pool.run(start, end, b.grain, body); rec != nil {
		b.fail(backend.ExecutionError(backend.CPU, rec))
	}
}

func (b *Backend) desc(buf backend.Buffers) (*kernel.Desc, error) {
	vertex, varying, err := b.mem.Desc(buf)
	if err != nil {
		return nil, err
	}
	return &kernel.Desc{
		Vertex:                vertex,
		Varying:               varying,
		NumUserVertexElements: buf.NumUserVertexElements,
		NumVaryingElements:    buf.NumVaryingElements,
	}, nil
}

func (b *Backend) ints(refs ...backend.TableRef) ([][]int32, error) {
	out := make([][]int32, len(refs))
	for i, ref := range refs {
		data, err := b.mem.IntsAt(ref)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

func (b *Backend) floats(ref backend.TableRef) ([]float32, error) {
	return b.mem.FloatsAt(ref)
}
