// Package pipeline runs complete refinements: it creates a backend, uploads
// the tables, fills a vertex buffer with the coarse records, refines and
// reads the requested level back.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samcharles93/subdiv/internal/backend"
	"github.com/samcharles93/subdiv/internal/kernel"
	"github.com/samcharles93/subdiv/internal/logger"
	"github.com/samcharles93/subdiv/internal/refine"
	"github.com/samcharles93/subdiv/internal/tables"
)

var ErrInvalidJob = errors.New("pipeline: invalid job")

// Job is one refinement request. Vertices holds the coarse records, Stride
// floats each with the position first; Varying is optional.
type Job struct {
	Set          *tables.Set
	Edits        []*tables.EditTable
	Vertices     []float32
	Stride       int
	Varying      []float32
	VaryingWidth int
	// Level is the level to read back; negative means the finest compiled.
	Level int
}

// Result holds the records of one refined level.
type Result struct {
	Report *refine.Report
	Level  int
	// Offset is the buffer index of the first returned vertex.
	Offset   int
	Count    int
	Vertices []float32
	Varying  []float32
	Duration time.Duration
}

// Runner executes jobs on backends from Registry.
type Runner struct {
	Registry *backend.Registry
	Backend  string
	Log      logger.Logger
}

func (j *Job) validate() (level int, err error) {
	if j == nil || j.Set == nil {
		return 0, fmt.Errorf("%w: no table set", ErrInvalidJob)
	}
	if j.Stride < kernel.ReservedElements {
		return 0, fmt.Errorf("%w: stride %d below %d", ErrInvalidJob, j.Stride, kernel.ReservedElements)
	}
	n := j.Set.NumCoarseVertices
	if len(j.Vertices) != n*j.Stride {
		return 0, fmt.Errorf("%w: %d floats for %d coarse vertices of stride %d", ErrInvalidJob, len(j.Vertices), n, j.Stride)
	}
	if j.VaryingWidth < 0 || (j.VaryingWidth == 0) != (len(j.Varying) == 0) || len(j.Varying) != n*j.VaryingWidth {
		return 0, fmt.Errorf("%w: %d varying floats of width %d for %d coarse vertices", ErrInvalidJob, len(j.Varying), j.VaryingWidth, n)
	}
	level = j.Level
	if level < 0 {
		level = j.Set.MaxLevel
	}
	if level > j.Set.MaxLevel {
		return 0, fmt.Errorf("%w: level %d beyond compiled level %d", ErrInvalidJob, level, j.Set.MaxLevel)
	}
	return level, nil
}

// Run refines job.Set to the requested level and returns that level's
// records. Precondition failures inside the dispatcher come back as errors.
func (r *Runner) Run(ctx context.Context, job *Job) (res *Result, err error) {
	level, err := job.validate()
	if err != nil {
		return nil, err
	}
	log := r.Log
	if log == nil {
		log = logger.FromContext(ctx)
	}
	start := time.Now()

	be, err := r.Registry.New(r.Backend)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, be.Close()) }()

	rc, err := refine.NewContext(be, job.Set, job.Edits...)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, rc.Close()) }()

	total := job.Set.NumVertices(level)
	coarse := job.Set.NumCoarseVertices
	vertex, err := refine.NewVertexBuffer(be, job.Stride, total)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, vertex.Close()) }()
	if err := vertex.UpdateData(job.Vertices, 0, coarse); err != nil {
		return nil, err
	}

	var varying *refine.VertexBuffer
	if job.VaryingWidth > 0 {
		varying, err = refine.NewVertexBuffer(be, job.VaryingWidth, total)
		if err != nil {
			return nil, err
		}
		defer func() { err = errors.Join(err, varying.Close()) }()
		if err := varying.UpdateData(job.Varying, 0, coarse); err != nil {
			return nil, err
		}
	}
	if err := rc.Bind(vertex, varying); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	report, err := safeRefine(ctx, refine.NewDispatcher(log), rc, level)
	if err != nil {
		return nil, err
	}

	res = &Result{Report: report, Level: level, Count: coarse}
	if level > 0 {
		b := job.Set.Batch(level)
		res.Offset, res.Count = b.VertexOffset, b.NumVertices()
	}
	if res.Vertices, err = vertex.ReadData(res.Offset, res.Count); err != nil {
		return nil, err
	}
	if varying != nil {
		if res.Varying, err = varying.ReadData(res.Offset, res.Count); err != nil {
			return nil, err
		}
	}
	res.Duration = time.Since(start)
	log.Debug("refinement finished",
		"backend", report.Backend,
		"level", level,
		"vertices", res.Count,
		"launches", report.Launches,
		"duration", res.Duration,
	)
	return res, nil
}

func safeRefine(ctx context.Context, d *refine.Dispatcher, rc *refine.Context, level int) (report *refine.Report, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if pe, ok := rec.(*tables.PreconditionError); ok {
				err = pe
				return
			}
			err = fmt.Errorf("panic in Refine: %v", rec)
		}
	}()
	return d.Refine(ctx, rc, level)
}

// Positions extracts the xyz position of every record.
func Positions(records []float32, stride int) []float32 {
	n := len(records) / stride
	out := make([]float32, 0, n*3)
	for i := range n {
		out = append(out, records[i*stride:i*stride+3]...)
	}
	return out
}
