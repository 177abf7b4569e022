package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"
	"github.com/samcharles93/subdiv/internal/backend"
	"github.com/samcharles93/subdiv/internal/backend/cpu"
	"github.com/samcharles93/subdiv/internal/backend/device"
	"github.com/samcharles93/subdiv/internal/logger"
)

const quadBody = `{
	"scheme": "bilinear",
	"level": 1,
	"positions": [0,0,0, 2,0,0, 2,2,0, 0,2,0],
	"faces": [[0,1,2,3]],
	"attributes": [1,1,1,1],
	"attribute_width": 1,
	"include_faces": true
}`

func newTestEcho(limits Limits) (*echo.Echo, *RefinementStore) {
	reg := backend.NewRegistry()
	reg.Register(backend.CPU, cpu.Factory)
	reg.Register(backend.Device, device.Factory)
	store := NewRefinementStore(0)
	server := NewServer(store, NewRefinementService(reg, backend.Auto, limits, logger.Discard()))
	e := echo.New()
	server.Register(e)
	return e, store
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func TestCreateGetDeleteRefinementLifecycle(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(DefaultLimits)
	createRec := doJSON(t, e, http.MethodPost, "/v1/refinements", quadBody)
	if createRec.Code != http.StatusOK {
		t.Fatalf("create status: got %d body=%s", createRec.Code, createRec.Body.String())
	}
	created := decode[Refinement](t, createRec)
	if !strings.HasPrefix(created.ID, "ref_") {
		t.Fatalf("unexpected id %q", created.ID)
	}
	// One face point, four edge points and four vertex points.
	if created.NumVertices != 9 || created.VertexOffset != 4 || len(created.Positions) != 27 {
		t.Fatalf("level 1: %d vertices at %d, %d floats", created.NumVertices, created.VertexOffset, len(created.Positions))
	}
	if got := created.Positions[0:3]; got[0] != 1 || got[1] != 1 || got[2] != 0 {
		t.Fatalf("face point = %v", got)
	}
	for i, a := range created.Attributes {
		if a != 1 {
			t.Fatalf("attribute %d = %v", i, a)
		}
	}
	if len(created.Faces) != 4 || created.Backend != backend.CPU {
		t.Fatalf("faces %d backend %q", len(created.Faces), created.Backend)
	}

	getRec := doJSON(t, e, http.MethodGet, "/v1/refinements/"+created.ID, "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", getRec.Code, getRec.Body.String())
	}

	delRec := doJSON(t, e, http.MethodDelete, "/v1/refinements/"+created.ID, "")
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete status: got %d body=%s", delRec.Code, delRec.Body.String())
	}
	if !strings.Contains(delRec.Body.String(), `"deleted":true`) {
		t.Fatalf("delete response missing deleted=true: %s", delRec.Body.String())
	}

	getDeletedRec := doJSON(t, e, http.MethodGet, "/v1/refinements/"+created.ID, "")
	if getDeletedRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d body=%s", getDeletedRec.Code, getDeletedRec.Body.String())
	}
}

func TestCreateWithEditsAndUnstoredResult(t *testing.T) {
	t.Parallel()

	e, store := newTestEcho(DefaultLimits)
	body := `{
		"scheme": "catmark", "level": 1, "backend": "device", "store": false,
		"positions": [0,0,0, 2,0,0, 2,2,0, 0,2,0],
		"faces": [[0,1,2,3]],
		"edits": [
			{"op": "add", "level": 1, "vertices": [4], "values": [0,0,0.5]},
			{"op": "set", "level": 1, "vertices": [5], "values": [9,9,9]}
		]
	}`
	rec := doJSON(t, e, http.MethodPost, "/v1/refinements", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status: got %d body=%s", rec.Code, rec.Body.String())
	}
	out := decode[Refinement](t, rec)
	if out.Backend != backend.Device || out.Stats.EditsApplied != 1 {
		t.Fatalf("backend %q, %d edits applied", out.Backend, out.Stats.EditsApplied)
	}
	if got := out.Positions[0:3]; got[0] != 1 || got[1] != 1 || got[2] != 0.5 {
		t.Fatalf("edited face point = %v", got)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "set edit") {
		t.Fatalf("warnings = %v", out.Warnings)
	}
	if store.Len() != 0 {
		t.Fatalf("unstored refinement was saved")
	}
}

func TestCreateValidationErrors(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(Limits{MaxLevel: 3, MaxVertices: 20})
	tests := []struct {
		name, body, param string
	}{
		{"bad json", `{"scheme":`, ""},
		{"unknown field", `{"scheme":"loop","colour":1}`, ""},
		{"scheme", `{"scheme":"doo-sabin","level":1,"positions":[0,0,0],"faces":[]}`, "scheme"},
		{"level", `{"scheme":"bilinear","level":4,"positions":[0,0,0],"faces":[]}`, "level"},
		{"positions", `{"scheme":"bilinear","level":1,"positions":[0,0],"faces":[]}`, "positions"},
		{"attributes", `{"scheme":"bilinear","level":1,"positions":[0,0,0],"faces":[],"attributes":[1,2],"attribute_width":1}`, "attributes"},
		{"backend", `{"scheme":"bilinear","level":1,"positions":[0,0,0],"faces":[],"backend":"metal"}`, "backend"},
		{"faces", `{"scheme":"loop","level":1,"positions":[0,0,0, 1,0,0, 1,1,0, 0,1,0],"faces":[[0,1,2,3]]}`, "faces"},
		{"vertex limit", `{"scheme":"bilinear","level":2,"positions":[0,0,0, 2,0,0, 2,2,0, 0,2,0],"faces":[[0,1,2,3]]}`, "level"},
		{"edit op", `{"scheme":"bilinear","level":1,"positions":[0,0,0, 2,0,0, 2,2,0, 0,2,0],"faces":[[0,1,2,3]],
			"edits":[{"op":"mul","level":1,"vertices":[0],"values":[1,1,1]}]}`, "edits[0]"},
		{"edit index", `{"scheme":"bilinear","level":1,"positions":[0,0,0, 2,0,0, 2,2,0, 0,2,0],"faces":[[0,1,2,3]],
			"edits":[{"op":"add","level":1,"vertices":[9],"values":[1,1,1]}]}`, ""},
	}
	for _, tt := range tests {
		rec := doJSON(t, e, http.MethodPost, "/v1/refinements", tt.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d body=%s", tt.name, rec.Code, rec.Body.String())
			continue
		}
		body := decode[map[string]APIError](t, rec)
		if body["error"].Type != "invalid_request_error" || body["error"].Param != tt.param {
			t.Errorf("%s: error = %+v, want param %q", tt.name, body["error"], tt.param)
		}
	}
}

func TestListBackends(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(DefaultLimits)
	rec := doJSON(t, e, http.MethodGet, "/v1/backends", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	list := decode[BackendList](t, rec)
	if len(list.Data) != 2 || list.Data[0].ID != backend.CPU || !list.Data[0].Default || list.Data[1].Default {
		t.Fatalf("backends = %+v", list.Data)
	}
}

func TestConsolePage(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(DefaultLimits)
	rec := doJSON(t, e, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "subdiv console") {
		t.Fatalf("unexpected body: %.80s", rec.Body.String())
	}
}

func TestRefinementStoreEvictsOldest(t *testing.T) {
	t.Parallel()

	s := NewRefinementStore(2)
	for _, id := range []string{"a", "b", "c"} {
		s.Save(&Refinement{ID: id})
	}
	if _, ok := s.Get("a"); ok {
		t.Fatalf("oldest refinement kept")
	}
	if !s.Delete("b") || s.Delete("b") || s.Len() != 1 {
		t.Fatalf("delete bookkeeping broken, len %d", s.Len())
	}
}
