package main

import (
	"github.com/samcharles93/subdiv/internal/backend"
	"github.com/samcharles93/subdiv/internal/backend/cpu"
	"github.com/samcharles93/subdiv/internal/backend/device"
)

// newRegistry registers every backend built into the binary. The cpu backend
// comes first, so "auto" picks it.
func newRegistry(cfg Config) *backend.Registry {
	reg := backend.NewRegistry()
	n := int(workers)
	reg.Register(backend.CPU, func() (backend.Backend, error) {
		return cpu.New(cpu.WithWorkers(n)), nil
	})
	depth := 0
	if cfg.QueueDepth != nil {
		depth = int(*cfg.QueueDepth)
	}
	reg.Register(backend.Device, func() (backend.Backend, error) {
		return device.New(depth), nil
	})
	return reg
}
