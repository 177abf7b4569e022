package webui

import (
	"bytes"
	"io"
	"testing"
)

func TestIndexServedFromStaticFS(t *testing.T) {
	t.Parallel()

	idx := Index()
	if !bytes.Contains(idx, []byte("/v1/refinements")) {
		t.Fatalf("index page does not call the refinements endpoint")
	}

	f, err := StaticFS().Open("index.html")
	if err != nil {
		t.Fatalf("open index.html: %v", err)
	}
	defer func() { _ = f.Close() }()
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, idx) {
		t.Fatalf("StaticFS and Index disagree")
	}
}
