// Package refine drives uniform subdivision on a backend. A Context holds the
// resident tables of one mesh; a Dispatcher walks the levels and issues the
// kernels of each scheme in their fixed order.
package refine

import (
	"context"
	"time"

	"github.com/samcharles93/subdiv/internal/logger"
	"github.com/samcharles93/subdiv/internal/tables"
)

// Dispatcher is stateless apart from its logger and may be shared.
type Dispatcher struct {
	log logger.Logger
}

func NewDispatcher(log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{log: log.With(logger.ComponentKey, "refine")}
}

// Refine fills the bound buffers level by level up to maxLevel, or to the
// finest compiled level when maxLevel is negative. The coarse vertices must
// already be written.
//
// A table set or buffer that cannot support the request is a programming
// error and panics with *tables.PreconditionError. Backend failures are
// returned as is; levels completed before the failure stay valid.
func (d *Dispatcher) Refine(ctx context.Context, c *Context, maxLevel int) (*Report, error) {
	if c == nil {
		tables.Fail("Refine", "nil context")
	}
	set := c.set
	if maxLevel < 0 {
		maxLevel = set.MaxLevel
	}
	if maxLevel > set.MaxLevel {
		tables.Fail("Refine", "level %d requested but tables stop at level %d", maxLevel, set.MaxLevel)
	}
	if c.vertex == nil {
		tables.Fail("Refine", "no vertex buffer bound")
	}
	need := set.NumVertices(maxLevel)
	if n := c.vertex.NumVertices(); n < need {
		tables.Fail("Refine", "vertex buffer holds %d vertices, level %d needs %d", n, maxLevel, need)
	}
	if c.varying != nil && c.varying.NumVertices() < need {
		tables.Fail("Refine", "varying buffer holds %d vertices, level %d needs %d", c.varying.NumVertices(), maxLevel, need)
	}

	report := &Report{Scheme: set.Scheme, Backend: c.be.Name(), Vertices: set.NumCoarseVertices}
	for level := 1; level <= maxLevel; level++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := d.refineLevel(c, level, report); err != nil {
			return report, err
		}
		report.Levels = level
		report.Vertices = set.NumVertices(level)
		c.vertex.valid = max(c.vertex.valid, report.Vertices)
		if c.varying != nil {
			c.varying.valid = max(c.varying.valid, report.Vertices)
		}
	}
	return report, nil
}

func (d *Dispatcher) refineLevel(c *Context, level int, report *Report) error {
	start := time.Now()
	run := d.prepare(c, level)

	switch c.set.Scheme {
	case tables.Bilinear:
		run.face(true)
		run.bilinearEdge()
		run.bilinearVertex()
	case tables.CatmullClark:
		run.face(false)
		run.edge()
		run.passA0().issue()
		run.vertexB(false)
	case tables.Loop:
		run.edge()
		run.passA0().issue()
		run.vertexB(true)
	default:
		tables.Fail("Refine", "unknown scheme %v", c.set.Scheme)
	}
	if err := c.be.Synchronize(); err != nil {
		return err
	}
	report.Launches += run.launches

	d.applyEdits(c, run, report)
	if err := c.be.Synchronize(); err != nil {
		return err
	}
	d.log.Debug("level refined",
		"level", level,
		"scheme", c.set.Scheme.String(),
		"vertices", run.batch.NumVertices(),
		"launches", run.launches,
		"elapsed", time.Since(start),
	)
	return nil
}

// prepare checks every table the scheme reads at level and resolves its
// reference. Nothing has been issued for the level when this panics.
func (d *Dispatcher) prepare(c *Context, level int) *levelRun {
	if err := c.set.CheckLevel(level); err != nil {
		tables.FailWith("Refine", err, "level %d", level)
	}
	run := &levelRun{
		k:     c.be,
		buf:   c.buffers(),
		level: level,
		batch: c.set.Batch(level),
	}
	for _, k := range c.set.Scheme.Required() {
		t := c.GetTable(k)
		if t == nil {
			tables.FailWith("Refine", tables.ErrMissingTable, "%s not resident at level %d", k, level)
		}
		if t.Levels() < level {
			tables.FailWith("Refine", tables.ErrMissingTable, "%s covers %d levels, refining level %d", k, t.Levels(), level)
		}
		run.refs[k] = t.At(level)
	}
	return run
}

// applyEdits issues the edit tables that have data at run.level.
func (d *Dispatcher) applyEdits(c *Context, run *levelRun, report *Report) {
	issued := 0
	for i, e := range c.edits {
		if !e.AppliesAt(run.level) {
			continue
		}
		n := e.NumVertices(run.level)
		switch e.Op {
		case tables.EditAdd:
			run.k.EditVertexAdd(run.buf, e.PrimvarOffset, e.PrimvarWidth, n, e.Indices.At(run.level), e.Values.At(run.level))
			issued++
			report.EditsApplied++
		case tables.EditSet:
			report.Unsupported = append(report.Unsupported, SkippedEdit{Table: i, Level: run.level, Op: e.Op, Vertices: n})
			d.log.Warn("edit skipped, set edits are not implemented",
				"table", i,
				"level", run.level,
				"vertices", n,
			)
		default:
			tables.Fail("Refine", "edit table %d has unknown operation %v", i, e.Op)
		}
	}
	report.Launches += issued
}
