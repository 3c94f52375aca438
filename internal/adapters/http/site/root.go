// Package site serves the embedded checkpoint map.
package site

import (
	"context"
	"net/http"
)

// Route prefix for the map page and its assets.
const Prefix = "/map/"

// Register attaches the embedded map routes to mux. /map redirects to /map/.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := http.StripPrefix(Prefix, http.FileServer(FS()))
	mux.Handle(Prefix, files)
	mux.Handle("/map", http.RedirectHandler(Prefix, http.StatusMovedPermanently))
}
