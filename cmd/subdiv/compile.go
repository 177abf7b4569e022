package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/subdiv/internal/logger"
	"github.com/samcharles93/subdiv/internal/meshio"
	"github.com/samcharles93/subdiv/internal/stfstore"
	"github.com/samcharles93/subdiv/internal/tables"
	"github.com/samcharles93/subdiv/internal/topology"
)

func schemeFlags(scheme *string, levels *int64) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "scheme",
			Aliases:     []string{"s"},
			Usage:       "subdivision scheme (bilinear, catmark, loop)",
			Value:       "catmark",
			Destination: scheme,
		},
		&cli.Int64Flag{
			Name:        "levels",
			Aliases:     []string{"l"},
			Usage:       "number of refinement levels to compile",
			Value:       2,
			Destination: levels,
		},
	}
}

func compileCmd() *cli.Command {
	var (
		inPath    string
		outPath   string
		editsPath string
		scheme    string
		levels    int64
		noFaces   bool
	)

	return &cli.Command{
		Name:  "compile",
		Usage: "Compile subdivision tables for an OBJ mesh into an .stf file",
		Flags: append(schemeFlags(&scheme, &levels),
			&cli.StringFlag{
				Name:        "in",
				Aliases:     []string{"i"},
				Usage:       "input .obj mesh",
				Destination: &inPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output .stf file (defaults to the input name)",
				Destination: &outPath,
			},
			&cli.StringFlag{
				Name:        "edits",
				Usage:       "YAML file of hierarchical edits to store with the tables",
				Destination: &editsPath,
			},
			&cli.BoolFlag{
				Name:        "no-faces",
				Usage:       "do not store the refined faces",
				Destination: &noFaces,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyCompileConfig(cmd, loaded, &scheme, &levels)

			sch, err := tables.ParseScheme(scheme)
			if err != nil {
				return err
			}
			mesh, err := meshio.Load(inPath)
			if err != nil {
				return err
			}
			for _, w := range mesh.Warnings {
				log.Warn("obj statement skipped", "file", inPath, "detail", w)
			}
			edits, err := loadEdits(editsPath)
			if err != nil {
				return err
			}

			start := time.Now()
			ref, err := topology.Compile(mesh.Topology(), sch, int(levels))
			if err != nil {
				return fmt.Errorf("compile %s: %w", inPath, err)
			}
			for i, e := range edits {
				// Only levels and indices can be checked before a buffer is bound.
				if err := e.Validate(e.PrimvarOffset+e.PrimvarWidth, ref.Set); err != nil {
					return fmt.Errorf("edit %d: %w", i, err)
				}
			}

			if outPath == "" {
				outPath = strings.TrimSuffix(inPath, filepath.Ext(inPath)) + ".stf"
			}
			b := &stfstore.Bundle{Set: ref.Set, Edits: edits, Source: filepath.Base(inPath)}
			if !noFaces {
				b.Faces = ref.Faces
			}
			if err := stfstore.Save(outPath, b); err != nil {
				return err
			}
			log.Info("tables compiled",
				"scheme", sch,
				"levels", levels,
				"coarse_vertices", ref.Set.NumCoarseVertices,
				"vertices", ref.Set.NumVertices(int(levels)),
				"edits", len(edits),
				"out", outPath,
				"duration", time.Since(start),
			)
			return nil
		},
	}
}
