package api

// RefinementRequest is the body of POST /v1/refinements.
type RefinementRequest struct {
	Scheme  string `json:"scheme"`
	Level   int    `json:"level"`
	Backend string `json:"backend,omitempty"`
	// Positions holds xyz per coarse vertex.
	Positions []float32 `json:"positions"`
	Faces     [][]int   `json:"faces"`
	// Attributes holds AttributeWidth user floats per coarse vertex,
	// refined with the vertex rules.
	Attributes     []float32 `json:"attributes,omitempty"`
	AttributeWidth int       `json:"attribute_width,omitempty"`
	// Varying holds VaryingWidth floats per coarse vertex, refined linearly.
	Varying      []float32     `json:"varying,omitempty"`
	VaryingWidth int           `json:"varying_width,omitempty"`
	Edits        []EditRequest `json:"edits,omitempty"`
	// IncludeFaces returns the faces of the refined level.
	IncludeFaces bool  `json:"include_faces,omitempty"`
	Store        *bool `json:"store,omitempty"`
}

// EditRequest adds or sets values on vertices of one refined level. Vertex
// indices address the refined buffer and must fall inside the level's
// vertices, so level 1 of a single quad starts at index 4.
type EditRequest struct {
	Op            string    `json:"op"`
	Level         int       `json:"level"`
	PrimvarOffset int       `json:"primvar_offset"`
	Vertices      []int32   `json:"vertices"`
	Values        []float32 `json:"values"`
}

// Refinement is a finished refinement.
type Refinement struct {
	ID           string          `json:"id"`
	Object       string          `json:"object"`
	CreatedAt    int64           `json:"created_at"`
	Scheme       string          `json:"scheme"`
	Backend      string          `json:"backend"`
	Level        int             `json:"level"`
	VertexOffset int             `json:"vertex_offset"`
	NumVertices  int             `json:"num_vertices"`
	Positions    []float32       `json:"positions"`
	Attributes   []float32       `json:"attributes,omitempty"`
	Varying      []float32       `json:"varying,omitempty"`
	Faces        [][]int         `json:"faces,omitempty"`
	Stats        RefinementStats `json:"stats"`
	Warnings     []string        `json:"warnings,omitempty"`
}

type RefinementStats struct {
	Launches     int     `json:"launches"`
	EditsApplied int     `json:"edits_applied"`
	DurationMS   float64 `json:"duration_ms"`
}

type DeleteRefinementResp struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type BackendInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Default bool   `json:"default,omitempty"`
}

type BackendList struct {
	Object string        `json:"object"`
	Data   []BackendInfo `json:"data"`
}

type APIError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
