// Package webui embeds the single-page refinement console served at "/".
package webui

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var staticFS embed.FS

// StaticFS returns the embedded files rooted at static/.
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Index returns the console page.
func Index() []byte {
	b, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		panic(err)
	}
	return b
}
