package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/subdiv/internal/stfstore"
	"github.com/samcharles93/subdiv/internal/tables"
	"github.com/samcharles93/subdiv/pkg/stf"
)

func inspectCmd() *cli.Command {
	var (
		path         string
		showSections bool
		showTables   bool
		showBatches  bool
		showAll      bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect the contents of an .stf table file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "tables",
				Aliases:     []string{"t"},
				Usage:       "path to .stf file",
				Destination: &path,
				Required:    true,
			},
			&cli.BoolFlag{Name: "all", Usage: "show everything", Destination: &showAll},
			&cli.BoolFlag{Name: "sections", Usage: "show section directory", Destination: &showSections},
			&cli.BoolFlag{Name: "tables-index", Usage: "list stored tables", Destination: &showTables},
			&cli.BoolFlag{Name: "batches", Usage: "show per-level batches", Destination: &showBatches},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if showAll {
				showSections, showTables, showBatches = true, true, true
			}

			stat, err := os.Stat(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: stat %q: %v", path, err), 1)
			}
			f, err := stfstore.Open(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open stf: %v", err), 1)
			}
			defer func() { _ = f.Close() }()

			w := cmd.Root().Writer
			fmt.Fprintf(w, "STF Inspect: %s (%s)\n", path, formatBytes(uint64(stat.Size())))
			printHeader(w, f.Header())
			printMeshInfo(w, f.Info())

			if showSections {
				printSections(w, f.Sections())
			}
			if showTables {
				printTableIndex(w, f.Records())
			}
			if showBatches {
				set, err := f.Set()
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: read tables: %v", err), 1)
				}
				printBatches(w, set)
			}
			return nil
		},
	}
}

func printHeader(w io.Writer, h *stf.Header) {
	var flags []string
	if h.Flags&stf.FlagHasEdits != 0 {
		flags = append(flags, "edits")
	}
	if h.Flags&stf.FlagHasTopology != 0 {
		flags = append(flags, "topology")
	}
	flagStr := "none"
	if len(flags) > 0 {
		flagStr = strings.Join(flags, ", ")
	}
	fmt.Fprintf(w, "STF Header: v%d.%d sections=%d header=%dB flags=%s\n",
		h.Major, h.Minor, h.SectionCount, h.HeaderSize, flagStr)
}

func printMeshInfo(w io.Writer, mi *stf.MeshInfo) {
	section(w, "Mesh")
	row(w, "scheme", mi.Scheme)
	row(w, "levels", fmt.Sprint(mi.MaxLevel))
	row(w, "coarse_vertices", fmt.Sprint(mi.NumCoarseVertices))
	if mi.NumCoarseFaces > 0 {
		row(w, "coarse_faces", fmt.Sprint(mi.NumCoarseFaces))
	}
	if mi.Source != "" {
		row(w, "source", mi.Source)
	}
	if !mi.Created.IsZero() {
		row(w, "created", mi.Created.Format("2006-01-02 15:04:05 MST"))
	}
	for i, e := range mi.Edits {
		row(w, fmt.Sprintf("edit[%d]", i), fmt.Sprintf("%s level=%d primvar=%d+%d", e.Op, e.Level, e.PrimvarOffset, e.PrimvarWidth))
	}
}

func printSections(w io.Writer, sections []stf.Section) {
	section(w, "Sections")
	for _, s := range sections {
		fmt.Fprintf(w, "%-14s v%-2d off=%-10d size=%s\n", stf.SectionType(s.Type), s.Version, s.Offset, formatBytes(s.Size))
	}
}

func printTableIndex(w io.Writer, recs []stf.TableRecord) {
	section(w, "Tables")
	for _, r := range recs {
		var name string
		switch r.Role {
		case stf.RoleSet:
			name = tables.Kind(r.Kind).String()
		case stf.RoleEditIndices:
			name = fmt.Sprintf("edit[%d].indices", r.Kind)
		case stf.RoleEditValues:
			name = fmt.Sprintf("edit[%d].values", r.Kind)
		default:
			name = "?"
		}
		elem := "i32"
		if r.Elem == stf.ElemFloat32 {
			elem = "f32"
		}
		fmt.Fprintf(w, "%-16s %s levels=%-2d count=%-8d data=%s\n", name, elem, r.Levels, r.Count, formatBytes(r.Count*4))
	}
}

func printBatches(w io.Writer, set *tables.Set) {
	section(w, "Batches")
	for level := 1; level <= set.MaxLevel; level++ {
		b := set.Batch(level)
		fmt.Fprintf(w, "level %-2d offset=%-8d face=%-7d edge=%-7d vertex=%-7d total=%d\n",
			level, b.VertexOffset, b.NumFaceVertices, b.NumEdgeVertices, b.NumVertexVertices, set.NumVertices(level))
	}
}

func section(w io.Writer, name string) {
	fmt.Fprintf(w, "\n== %s ==\n", name)
}

func row(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%-18s %s\n", key+":", value)
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
