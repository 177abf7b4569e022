package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samcharles93/subdiv/internal/backend"
	"github.com/samcharles93/subdiv/internal/logger"
	"github.com/samcharles93/subdiv/internal/pipeline"
	"github.com/samcharles93/subdiv/internal/tables"
	"github.com/samcharles93/subdiv/internal/topology"
)

// Limits bound the work a single request may ask for.
type Limits struct {
	MaxLevel    int
	MaxVertices int
}

var DefaultLimits = Limits{MaxLevel: 6, MaxVertices: 1 << 20}

// RefinementService compiles request meshes and refines them on a backend
// from its registry.
type RefinementService struct {
	registry *backend.Registry
	backend  string
	limits   Limits
	log      logger.Logger
	clock    func() time.Time
}

func NewRefinementService(registry *backend.Registry, defaultBackend string, limits Limits, log logger.Logger) *RefinementService {
	if log == nil {
		log = logger.Discard()
	}
	return &RefinementService{
		registry: registry,
		backend:  defaultBackend,
		limits:   limits,
		log:      log.With(logger.ComponentKey, "api"),
		clock:    time.Now,
	}
}

// Backends lists the registered backends and the one requests get by default.
func (s *RefinementService) Backends() (names []string, def string) {
	names = s.registry.Names()
	def, err := backend.Normalize(s.backend)
	if err == nil && def == backend.Auto && len(names) > 0 {
		def = names[0]
	}
	return names, def
}

func (s *RefinementService) resolveBackend(name string) (string, error) {
	if name == "" {
		name = s.backend
	}
	norm, err := backend.Normalize(name)
	if err != nil {
		return "", newInvalidRequest("backend", err.Error())
	}
	if norm != backend.Auto && !s.registry.Has(norm) {
		return "", newInvalidRequest("backend", fmt.Sprintf("backend %q is not available (have %s)", norm, s.registry.Available()))
	}
	return norm, nil
}

func checkWidth(param string, data []float32, width, n int) error {
	if width < 0 || (width == 0 && len(data) > 0) || len(data) != n*width {
		return newInvalidRequest(param, fmt.Sprintf("%d floats do not hold %d vertices of width %d", len(data), n, width))
	}
	return nil
}

// Refine runs one request to completion.
func (s *RefinementService) Refine(ctx context.Context, req *RefinementRequest) (*Refinement, error) {
	scheme, err := tables.ParseScheme(req.Scheme)
	if err != nil {
		return nil, newInvalidRequest("scheme", err.Error())
	}
	if req.Level < 1 || req.Level > s.limits.MaxLevel {
		return nil, newInvalidRequest("level", fmt.Sprintf("level must be between 1 and %d", s.limits.MaxLevel))
	}
	if len(req.Positions) == 0 || len(req.Positions)%3 != 0 {
		return nil, newInvalidRequest("positions", "positions must hold xyz triples")
	}
	n := len(req.Positions) / 3
	if err := checkWidth("attributes", req.Attributes, req.AttributeWidth, n); err != nil {
		return nil, err
	}
	if err := checkWidth("varying", req.Varying, req.VaryingWidth, n); err != nil {
		return nil, err
	}
	beName, err := s.resolveBackend(req.Backend)
	if err != nil {
		return nil, err
	}

	ref, err := topology.Compile(&topology.Mesh{NumVertices: n, Faces: req.Faces}, scheme, req.Level)
	if err != nil {
		return nil, newInvalidRequest("faces", err.Error())
	}
	if total := ref.Set.NumVertices(req.Level); total > s.limits.MaxVertices {
		return nil, newInvalidRequest("level", fmt.Sprintf("level %d needs %d vertices, limit is %d", req.Level, total, s.limits.MaxVertices))
	}
	edits, err := editTables(req.Edits, req.Level)
	if err != nil {
		return nil, err
	}

	stride := 3 + req.AttributeWidth
	job := &pipeline.Job{
		Set:          ref.Set,
		Edits:        edits,
		Vertices:     interleave(req.Positions, req.Attributes, req.AttributeWidth),
		Stride:       stride,
		Varying:      req.Varying,
		VaryingWidth: req.VaryingWidth,
		Level:        req.Level,
	}
	runner := &pipeline.Runner{Registry: s.registry, Backend: beName, Log: s.log}
	res, err := runner.Run(ctx, job)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidJob) {
			return nil, newInvalidRequest("", err.Error())
		}
		return nil, err
	}

	out := &Refinement{
		ID:           newRefinementID(),
		Object:       "refinement",
		CreatedAt:    s.clock().Unix(),
		Scheme:       scheme.String(),
		Backend:      res.Report.Backend,
		Level:        res.Level,
		VertexOffset: res.Offset,
		NumVertices:  res.Count,
		Positions:    pipeline.Positions(res.Vertices, stride),
		Varying:      res.Varying,
		Stats: RefinementStats{
			Launches:     res.Report.Launches,
			EditsApplied: res.Report.EditsApplied,
			DurationMS:   float64(res.Duration.Microseconds()) / 1000,
		},
	}
	if req.AttributeWidth > 0 {
		out.Attributes = attributes(res.Vertices, stride)
	}
	if req.IncludeFaces {
		out.Faces = ref.FacesAt(res.Level)
	}
	for _, sk := range res.Report.Unsupported {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s edit %d at level %d was not applied to %d vertices", sk.Op, sk.Table, sk.Level, sk.Vertices))
	}
	return out, nil
}

func editTables(reqs []EditRequest, level int) ([]*tables.EditTable, error) {
	out := make([]*tables.EditTable, 0, len(reqs))
	for i, er := range reqs {
		param := fmt.Sprintf("edits[%d]", i)
		op, err := tables.ParseEditOp(er.Op)
		if err != nil {
			return nil, newInvalidRequest(param, err.Error())
		}
		if er.Level < 1 || er.Level > level {
			return nil, newInvalidRequest(param, fmt.Sprintf("edit level %d outside [1,%d]", er.Level, level))
		}
		if len(er.Vertices) == 0 || len(er.Values)%len(er.Vertices) != 0 || len(er.Values) == 0 {
			return nil, newInvalidRequest(param, fmt.Sprintf("%d values for %d vertices", len(er.Values), len(er.Vertices)))
		}
		et, err := tables.NewLevelEdit(op, er.Level, er.PrimvarOffset, len(er.Values)/len(er.Vertices), er.Vertices, er.Values)
		if err != nil {
			return nil, newInvalidRequest(param, err.Error())
		}
		out = append(out, et)
	}
	return out, nil
}

func interleave(positions, attrs []float32, width int) []float32 {
	n := len(positions) / 3
	out := make([]float32, 0, n*(3+width))
	for i := range n {
		out = append(out, positions[i*3:i*3+3]...)
		out = append(out, attrs[i*width:(i+1)*width]...)
	}
	return out
}

func attributes(records []float32, stride int) []float32 {
	n := len(records) / stride
	out := make([]float32, 0, n*(stride-3))
	for i := range n {
		out = append(out, records[i*stride+3:(i+1)*stride]...)
	}
	return out
}
