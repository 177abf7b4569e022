package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/samcharles93/subdiv/internal/tables"
)

// editFile is the YAML document read by --edits:
//
//	edits:
//	  - op: add
//	    level: 1
//	    primvar_offset: 0
//	    vertices: [8, 11]
//	    values: [0, 0, 1, 0, 0, 1]
//
// Vertices index the refined buffer and must lie inside the vertices the
// level creates.
type editFile struct {
	Edits []editSpec `yaml:"edits"`
}

type editSpec struct {
	Op            string    `yaml:"op"`
	Level         int       `yaml:"level"`
	PrimvarOffset int       `yaml:"primvar_offset"`
	Vertices      []int32   `yaml:"vertices"`
	Values        []float32 `yaml:"values"`
}

func loadEdits(path string) ([]*tables.EditTable, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc editFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("edits %s: %w", path, err)
	}
	out := make([]*tables.EditTable, 0, len(doc.Edits))
	for i, e := range doc.Edits {
		op, err := tables.ParseEditOp(e.Op)
		if err != nil {
			return nil, fmt.Errorf("edits %s: entry %d: %w", path, i, err)
		}
		if len(e.Vertices) == 0 {
			return nil, fmt.Errorf("edits %s: entry %d has no vertices", path, i)
		}
		et, err := tables.NewLevelEdit(op, e.Level, e.PrimvarOffset, len(e.Values)/len(e.Vertices), e.Vertices, e.Values)
		if err != nil {
			return nil, fmt.Errorf("edits %s: entry %d: %w", path, i, err)
		}
		out = append(out, et)
	}
	return out, nil
}
