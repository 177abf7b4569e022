package stf

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

const MeshInfoVersion uint32 = 1

// MeshInfo is the JSON payload of SectionMeshInfo.
type MeshInfo struct {
	Scheme            string     `json:"scheme"`
	MaxLevel          int        `json:"max_level"`
	NumCoarseVertices int        `json:"num_coarse_vertices"`
	NumCoarseFaces    int        `json:"num_coarse_faces,omitempty"`
	Source            string     `json:"source,omitempty"`
	Created           time.Time  `json:"created"`
	Edits             []EditInfo `json:"edits,omitempty"`
}

// EditInfo describes one stored edit table; its indices and values are
// table records with role RoleEditIndices and RoleEditValues.
type EditInfo struct {
	Op            string `json:"op"`
	PrimvarOffset int    `json:"primvar_offset"`
	PrimvarWidth  int    `json:"primvar_width"`
	Level         int    `json:"level"`
}

func EncodeMeshInfo(mi *MeshInfo) ([]byte, error) {
	if mi == nil {
		return nil, fmt.Errorf("stf: nil mesh info")
	}
	return json.Marshal(mi)
}

func ParseMeshInfo(data []byte) (*MeshInfo, error) {
	var mi MeshInfo
	if err := json.Unmarshal(data, &mi); err != nil {
		return nil, fmt.Errorf("%w: mesh info: %v", ErrCorruptFile, err)
	}
	if mi.MaxLevel < 1 || mi.NumCoarseVertices < 1 {
		return nil, fmt.Errorf("%w: mesh info has max level %d and %d coarse vertices",
			ErrCorruptFile, mi.MaxLevel, mi.NumCoarseVertices)
	}
	return &mi, nil
}
