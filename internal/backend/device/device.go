// Package device is an accelerator-style backend. Tables are copied into
// device memory once at upload time, kernels are queued on a stream and run
// asynchronously in issue order, and Synchronize is the only point where the
// host learns about failures.
package device

import (
	"sync"
	"sync/atomic"

	"github.com/samcharles93/subdiv/internal/backend"
	"github.com/samcharles93/subdiv/internal/kernel"
)

const defaultQueueDepth = 64

var _ backend.Backend = (*Backend)(nil)

type command struct {
	run   func() error
	reply chan error
}

type Backend struct {
	mem    *backend.Arena
	stream chan command
	done   chan struct{}

	mu     sync.Mutex
	closed bool

	// owned by the stream goroutine
	fault error

	launches atomic.Int64
	uploaded atomic.Int64
}

// New starts a device with a stream of the given depth. Zero uses a default.
func New(queueDepth int) *Backend {
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	d := &Backend{
		mem:    backend.NewArena(),
		stream: make(chan command, queueDepth),
		done:   make(chan struct{}),
	}
	go d.loop()
	return d
}

// Factory registers the device backend with a backend.Registry.
func Factory() (backend.Backend, error) {
	return New(0), nil
}

func (d *Backend) Name() string {
	return backend.Device
}

// Launches returns the number of kernels that ran on the stream.
func (d *Backend) Launches() int64 { return d.launches.Load() }

// UploadedBytes returns the number of table bytes copied to the device.
func (d *Backend) UploadedBytes() int64 { return d.uploaded.Load() }

// Memory exposes device memory for inspection.
func (d *Backend) Memory() *backend.Arena { return d.mem }

func (d *Backend) loop() {
	defer close(d.done)
	for cmd := range d.stream {
		if cmd.reply != nil {
			cmd.reply <- cmd.run()
			continue
		}
		if d.fault != nil {
			continue
		}
		if err := execute(cmd.run); err != nil {
			d.fault = err
		}
	}
}

func execute(run func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = backend.ExecutionError(backend.Device, rec)
		}
	}()
	if err := run(); err != nil {
		return backend.ExecutionError(backend.Device, err)
	}
	return nil
}

// enqueue queues a kernel without waiting for it.
func (d *Backend) enqueue(run func() error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.stream <- command{run: run}
}

// call queues fn behind every earlier command and waits for its result.
func (d *Backend) call(fn func() error) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return backend.ErrClosed
	}
	reply := make(chan error, 1)
	d.stream <- command{run: fn, reply: reply}
	d.mu.Unlock()
	return <-reply
}

func (d *Backend) UploadIndices(data []int32) (backend.Handle, error) {
	h := backend.InvalidHandle
	err := d.call(func() error {
		h = d.mem.PutInts(append([]int32(nil), data...))
		d.uploaded.Add(int64(len(data)) * 4)
		return nil
	})
	return h, err
}

func (d *Backend) UploadWeights(data []float32) (backend.Handle, error) {
	h := backend.InvalidHandle
	err := d.call(func() error {
		h = d.mem.PutFloats(append([]float32(nil), data...))
		d.uploaded.Add(int64(len(data)) * 4)
		return nil
	})
	return h, err
}

func (d *Backend) NewBuffer(n int) (backend.Handle, error) {
	if n < 0 {
		return backend.InvalidHandle, backend.ErrOutOfRange
	}
	h := backend.InvalidHandle
	err := d.call(func() error {
		h = d.mem.PutFloats(make([]float32, n))
		return nil
	})
	return h, err
}

func (d *Backend) WriteBuffer(h backend.Handle, offset int, src []float32) error {
	staged := append([]float32(nil), src...)
	return d.call(func() error { return d.mem.Write(h, offset, staged) })
}

func (d *Backend) ReadBuffer(h backend.Handle, offset int, dst []float32) error {
	return d.call(func() error { return d.mem.Read(h, offset, dst) })
}

func (d *Backend) Release(h backend.Handle) error {
	return d.call(func() error { return d.mem.Free(h) })
}

// Synchronize waits for the stream to drain and returns the first kernel
// failure since the previous call. Kernels queued after a failure are dropped.
func (d *Backend) Synchronize() error {
	return d.call(func() error {
		err := d.fault
		d.fault = nil
		return err
	})
}

func (d *Backend) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.stream)
	d.mu.Unlock()
	<-d.done
	return nil
}

func (d *Backend) launch(start, end int, body func() error) {
	if start >= end {
		return
	}
	d.enqueue(func() error {
		d.launches.Add(1)
		return body()
	})
}

func (d *Backend) desc(buf backend.Buffers) (*kernel.Desc, error) {
	vertex, varying, err := d.mem.Desc(buf)
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
