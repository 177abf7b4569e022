// Package backend defines the capability boundary between the refinement
// dispatcher and the code that performs the arithmetic. A Backend owns the
// memory it computes on; the dispatcher only ever hands it opaque handles
// and integer offsets.
package backend

import (
	"fmt"
	"strings"
)

const (
	CPU    = "cpu"
	Device = "device"
	Auto   = "auto"
)

// Handle is an opaque reference to memory owned by a backend.
type Handle uint64

// InvalidHandle is never returned by a successful allocation.
const InvalidHandle Handle = 0

// TableRef addresses one level of a resident table: the table handle plus the
// marker at which that level's data begins.
type TableRef struct {
	Handle Handle
	Offset int
}

// Buffers is the vertex data every kernel operates on. NumUserVertexElements
// excludes the reserved position components.
type Buffers struct {
	Vertex  Handle
	Varying Handle

	NumUserVertexElements int
	NumVaryingElements    int
}

// Backend is one compute backend. Kernel calls issued on a Backend execute
// in issue order, and each one completes before the next starts.
// Failures inside kernels are sticky and reported by Synchronize.
type Backend interface {
	Kernels

	Name() string

	// UploadIndices and UploadWeights copy a flattened table into backend
	// memory once; the returned handle stays valid until Release.
	UploadIndices(data []int32) (Handle, error)
	UploadWeights(data []float32) (Handle, error)

	// NewBuffer allocates a zeroed float buffer of n elements.
	NewBuffer(n int) (Handle, error)
	WriteBuffer(h Handle, offset int, src []float32) error
	ReadBuffer(h Handle, offset int, dst []float32) error

	Release(h Handle) error

	// Synchronize waits for every issued kernel and returns the first
	// failure since the previous call.
	Synchronize() error

	Close() error
}

func Normalize(name string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(name))
	if backend == "" {
		return Auto, nil
	}
	switch backend {
	case CPU, Device, Auto:
		return backend, nil
	default:
		return "", fmt.Errorf("%w %q (expected auto, cpu, or device)", ErrUnknownBackend, backend)
	}
}
