package pipeline

import (
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/samcharles93/subdiv/internal/backend"
	"github.com/samcharles93/subdiv/internal/backend/cpu"
	"github.com/samcharles93/subdiv/internal/backend/device"
	"github.com/samcharles93/subdiv/internal/logger"
	"github.com/samcharles93/subdiv/internal/logger/logtest"
	"github.com/samcharles93/subdiv/internal/refine"
	"github.com/samcharles93/subdiv/internal/tables"
	"github.com/samcharles93/subdiv/internal/topology"
)

func testRegistry() *backend.Registry {
	reg := backend.NewRegistry()
	reg.Register(backend.CPU, cpu.Factory)
	reg.Register(backend.Device, device.Factory)
	return reg
}

func cubeSet(t *testing.T, levels int) *tables.Set {
	t.Helper()
	ref, err := topology.Compile(topology.Cube(), tables.CatmullClark, levels)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return ref.Set
}

// withAttribute appends one constant user element to each xyz position.
func withAttribute(positions []float32, v float32) []float32 {
	out := make([]float32, 0, len(positions)/3*4)
	for i := 0; i < len(positions); i += 3 {
		out = append(out, positions[i:i+3]...)
		out = append(out, v)
	}
	return out
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-5 }

func TestRunCube(t *testing.T) {
	t.Parallel()

	for _, name := range []string{backend.CPU, backend.Device} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			set := cubeSet(t, 2)
			r := &Runner{Registry: testRegistry(), Backend: name, Log: logger.Discard()}
			res, err := r.Run(t.Context(), &Job{
				Set:          set,
				Vertices:     withAttribute(topology.CubePositions(), 0.5),
				Stride:       4,
				Varying:      []float32{2, 2, 2, 2, 2, 2, 2, 2},
				VaryingWidth: 1,
				Level:        1,
			})
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if res.Offset != 8 || res.Count != 26 || len(res.Vertices) != 26*4 || len(res.Varying) != 26 {
				t.Fatalf("level 1 window: offset %d count %d, %d floats", res.Offset, res.Count, len(res.Vertices))
			}
			if got := res.Vertices[0:3]; !near(got[0], 0) || !near(got[1], 0) || !near(got[2], 1) {
				t.Fatalf("first face point = %v", got)
			}
			for i := range res.Count {
				if !near(res.Vertices[i*4+3], 0.5) || !near(res.Varying[i], 2) {
					t.Fatalf("vertex %d: attribute %v varying %v", i, res.Vertices[i*4+3], res.Varying[i])
				}
			}
			if res.Report.Backend != name || res.Report.Levels != 1 {
				t.Fatalf("report = %+v", res.Report)
			}
		})
	}
}

func TestRunLevels(t *testing.T) {
	t.Parallel()

	set := cubeSet(t, 2)
	r := &Runner{Registry: testRegistry()}
	job := &Job{Set: set, Vertices: topology.CubePositions(), Stride: 3, Level: 0}

	res, err := r.Run(t.Context(), job)
	if err != nil {
		t.Fatalf("level 0: %v", err)
	}
	if res.Offset != 0 || res.Count != 8 || res.Report.Levels != 0 {
		t.Fatalf("level 0 result: %+v", res)
	}

	job.Level = -1
	res, err = r.Run(t.Context(), job)
	if err != nil {
		t.Fatalf("finest: %v", err)
	}
	if res.Level != 2 || res.Count != 98 || res.Offset != set.Batch(2).VertexOffset {
		t.Fatalf("finest result: level %d offset %d count %d", res.Level, res.Offset, res.Count)
	}
	if got := Positions(res.Vertices, 3); len(got) != 98*3 {
		t.Fatalf("positions = %d floats", len(got))
	}
}

func TestRunRejectsInvalidJobs(t *testing.T) {
	t.Parallel()

	set := cubeSet(t, 1)
	pos := topology.CubePositions()
	tests := []struct {
		name string
		job  *Job
	}{
		{"nil", nil},
		{"no set", &Job{Vertices: pos, Stride: 3}},
		{"narrow stride", &Job{Set: set, Vertices: pos, Stride: 2}},
		{"short vertices", &Job{Set: set, Vertices: pos[:21], Stride: 3}},
		{"varying without width", &Job{Set: set, Vertices: pos, Stride: 3, Varying: make([]float32, 8)}},
		{"level beyond tables", &Job{Set: set, Vertices: pos, Stride: 3, Level: 2}},
		{"edit outside record", &Job{Set: set, Vertices: pos, Stride: 3, Edits: []*tables.EditTable{{
			PrimvarOffset: 2,
			PrimvarWidth:  2,
			Indices:       tables.NewTable([]int32{8}),
			Values:        tables.NewTable([]float32{1, 1}),
		}}}},
	}
	r := &Runner{Registry: testRegistry()}
	for _, tt := range tests {
		if _, err := r.Run(t.Context(), tt.job); !errors.Is(err, ErrInvalidJob) {
			t.Errorf("%s: err = %v, want ErrInvalidJob", tt.name, err)
		}
	}
}

func TestRunReportsBackendAndPreconditionFailures(t *testing.T) {
	t.Parallel()

	set := cubeSet(t, 1)
	r := &Runner{Registry: testRegistry(), Backend: "metal"}
	job := &Job{Set: set, Vertices: topology.CubePositions(), Stride: 3}
	if _, err := r.Run(t.Context(), job); !errors.Is(err, backend.ErrUnknownBackend) {
		t.Fatalf("unknown backend: %v", err)
	}

	set.Weights[tables.EdgeWeights] = nil
	r.Backend = backend.CPU
	_, err := r.Run(t.Context(), job)
	var pe *tables.PreconditionError
	if !errors.As(err, &pe) || !errors.Is(err, tables.ErrMissingTable) {
		t.Fatalf("missing table: %v", err)
	}
}

func TestRunSurfacesUnsupportedEdits(t *testing.T) {
	t.Parallel()

	rec := logtest.NewRecorder()
	r := &Runner{Registry: testRegistry(), Log: rec.Logger()}
	res, err := r.Run(t.Context(), &Job{
		Set:      cubeSet(t, 1),
		Vertices: topology.CubePositions(),
		Stride:   3,
		Edits: []*tables.EditTable{{
			Op:           tables.EditSet,
			PrimvarWidth: 3,
			Level:        1,
			Indices:      tables.NewTable([]int32{8}),
			Values:       tables.NewTable([]float32{9, 9, 9}),
		}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !errors.Is(res.Report.Err(), refine.ErrEditUnsupported) {
		t.Fatalf("report err = %v", res.Report.Err())
	}
	if got := rec.Entries(slog.LevelWarn); len(got) != 1 {
		t.Fatalf("warnings = %+v", got)
	}
}
