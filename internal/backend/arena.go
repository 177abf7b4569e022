package backend

import (
	"fmt"
	"sync"
)

// Arena is handle-addressed host memory. Backends keep their resident tables
// and vertex buffers in one.
type Arena struct {
	mu     sync.RWMutex
	next   Handle
	ints   map[Handle][]int32
	floats map[Handle][]float32
	bytes  int64
}

func NewArena() *Arena {
	return &Arena{
		ints:   make(map[Handle][]int32),
		floats: make(map[Handle][]float32),
	}
}

// PutInts stores data under a new handle. The arena takes ownership of data.
func (a *Arena) PutInts(data []int32) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	a.ints[a.next] = data
	a.bytes += int64(len(data)) * 4
	return a.next
}

// PutFloats stores data under a new handle. The arena takes ownership of data.
func (a *Arena) PutFloats(data []float32) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	a.floats[a.next] = data
	a.bytes += int64(len(data)) * 4
	return a.next
}

func (a *Arena) Ints(h Handle) ([]int32, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.ints[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d is not an index table", ErrInvalidHandle, h)
	}
	return data, nil
}

func (a *Arena) Floats(h Handle) ([]float32, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.floats[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d is not a float buffer", ErrInvalidHandle, h)
	}
	return data, nil
}

// IntsAt resolves a table reference to the index data starting at its marker.
func (a *Arena) IntsAt(ref TableRef) ([]int32, error) {
	data, err := a.Ints(ref.Handle)
	if err != nil {
		return nil, err
	}
	if ref.Offset < 0 || ref.Offset > len(data) {
		return nil, fmt.Errorf("%w: marker %d in table of %d elements", ErrOutOfRange, ref.Offset, len(data))
	}
	return data[ref.Offset:], nil
}

// FloatsAt resolves a table reference to the weight data starting at its marker.
func (a *Arena) FloatsAt(ref TableRef) ([]float32, error) {
	data, err := a.Floats(ref.Handle)
	if err != nil {
		return nil, err
	}
	if ref.Offset < 0 || ref.Offset > len(data) {
		return nil, fmt.Errorf("%w: marker %d in table of %d elements", ErrOutOfRange, ref.Offset, len(data))
	}
	return data[ref.Offset:], nil
}

// Write copies src into the float buffer h starting at offset.
func (a *Arena) Write(h Handle, offset int, src []float32) error {
	dst, err := a.Floats(h)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(src) > len(dst) {
		return fmt.Errorf("%w: write [%d,%d) into buffer of %d", ErrOutOfRange, offset, offset+len(src), len(dst))
	}
	copy(dst[offset:], src)
	return nil
}

// Read copies from the float buffer h starting at offset into dst.
func (a *Arena) Read(h Handle, offset int, dst []float32) error {
	src, err := a.Floats(h)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(dst) > len(src) {
		return fmt.Errorf("%w: read [%d,%d) from buffer of %d", ErrOutOfRange, offset, offset+len(dst), len(src))
	}
	copy(dst, src[offset:])
	return nil
}

func (a *Arena) Free(h Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if data, ok := a.ints[h]; ok {
		a.bytes -= int64(len(data)) * 4
		delete(a.ints, h)
		return nil
	}
	if data, ok := a.floats[h]; ok {
		a.bytes -= int64(len(data)) * 4
		delete(a.floats, h)
		return nil
	}
	return fmt.Errorf("%w: %d", ErrInvalidHandle, h)
}

// Live returns the number of live allocations.
func (a *Arena) Live() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.ints) + len(a.floats)
}

// Bytes returns the number of bytes held by live allocations.
func (a *Arena) Bytes() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bytes
}

// Desc resolves the vertex and varying buffers of b. A missing varying
// buffer is allowed when it has no elements.
func (a *Arena) Desc(b Buffers) (vertex, varying []float32, err error) {
	vertex, err = a.Floats(b.Vertex)
	if err != nil {
		return nil, nil, fmt.Errorf("vertex buffer: %w", err)
	}
	if b.NumVaryingElements > 0 {
		varying, err = a.Floats(b.Varying)
		if err != nil {
			return nil, nil, fmt.Errorf("varying buffer: %w", err)
		}
	}
	return vertex, varying, nil
}
