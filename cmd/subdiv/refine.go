package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/subdiv/internal/logger"
	"github.com/samcharles93/subdiv/internal/meshio"
	"github.com/samcharles93/subdiv/internal/pipeline"
	"github.com/samcharles93/subdiv/internal/stfstore"
	"github.com/samcharles93/subdiv/internal/tables"
	"github.com/samcharles93/subdiv/internal/topology"
)

func refineCmd() *cli.Command {
	var (
		inPath     string
		tablesPath string
		outPath    string
		editsPath  string
		scheme     string
		levels     int64
		level      int64
	)

	return &cli.Command{
		Name:  "refine",
		Usage: "Refine an OBJ mesh with compiled or freshly built tables",
		Flags: append(append(schemeFlags(&scheme, &levels), backendFlags()...),
			&cli.StringFlag{
				Name:        "in",
				Aliases:     []string{"i"},
				Usage:       "coarse .obj mesh supplying the vertex positions",
				Destination: &inPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "tables",
				Aliases:     []string{"t"},
				Usage:       ".stf file from compile; tables are built from --in when omitted",
				Destination: &tablesPath,
			},
			&cli.Int64Flag{
				Name:        "level",
				Usage:       "level to write (-1 = finest compiled)",
				Value:       -1,
				Destination: &level,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output .obj for the refined level",
				Destination: &outPath,
			},
			&cli.StringFlag{
				Name:        "edits",
				Usage:       "YAML file of additional hierarchical edits",
				Destination: &editsPath,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyCompileConfig(cmd, loaded, &scheme, &levels)
			applyBackendConfig(cmd, loaded)

			mesh, err := meshio.Load(inPath)
			if err != nil {
				return err
			}
			bundle, err := loadOrCompile(mesh, tablesPath, scheme, int(levels))
			if err != nil {
				return err
			}
			extra, err := loadEdits(editsPath)
			if err != nil {
				return err
			}
			bundle.Edits = append(bundle.Edits, extra...)

			runner := &pipeline.Runner{Registry: newRegistry(loaded), Backend: backendName, Log: log}
			res, err := runner.Run(ctx, &pipeline.Job{
				Set:      bundle.Set,
				Edits:    bundle.Edits,
				Vertices: mesh.Positions,
				Stride:   3,
				Level:    int(level),
			})
			if err != nil {
				return err
			}
			if err := res.Report.Err(); err != nil {
				log.Warn("refinement incomplete", "error", err)
			}
			log.Info("refined",
				"backend", res.Report.Backend,
				"scheme", res.Report.Scheme,
				"level", res.Level,
				"vertices", res.Count,
				"launches", res.Report.Launches,
				"edits", res.Report.EditsApplied,
				"duration", res.Duration,
			)

			if outPath == "" {
				return nil
			}
			var faces [][]int
			if res.Level < len(bundle.Faces) {
				faces = bundle.Faces[res.Level]
			} else {
				log.Warn("tables carry no topology, writing points only", "tables", tablesPath)
			}
			if err := meshio.Save(outPath, res.Vertices, faces); err != nil {
				return err
			}
			log.Info("wrote mesh", "out", outPath, "faces", len(faces))
			return nil
		},
	}
}

// loadOrCompile reads the tables at path, or compiles them for mesh when
// path is empty.
func loadOrCompile(mesh *meshio.Mesh, path, scheme string, levels int) (*stfstore.Bundle, error) {
	if path == "" {
		sch, err := tables.ParseScheme(scheme)
		if err != nil {
			return nil, err
		}
		ref, err := topology.Compile(mesh.Topology(), sch, levels)
		if err != nil {
			return nil, err
		}
		return &stfstore.Bundle{Set: ref.Set, Faces: ref.Faces}, nil
	}

	b, err := stfstore.Load(path)
	if err != nil {
		return nil, err
	}
	if b.Set.NumCoarseVertices != mesh.NumVertices() {
		return nil, fmt.Errorf("%s was compiled for %d vertices, mesh has %d", path, b.Set.NumCoarseVertices, mesh.NumVertices())
	}
	if len(b.Faces) > 0 && len(b.Faces[0]) != len(mesh.Faces) {
		return nil, errors.New("mesh faces differ from the compiled topology")
	}
	return b, nil
}
