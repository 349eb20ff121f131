// Package site serves the embedded documentation pages.
package site

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
)

// Error constants
var (
	ErrServe = errors.New("docs site serve failed")
)

//go:embed static
var staticFS embed.FS

// Pages returns the embedded pages rooted at the static directory.
func Pages() (http.FileSystem, error) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServe, err)
	}
	return http.FS(sub), nil
}

// Register attaches the documentation routes to mux:
//
//	GET /docs   -> redirect to /docs/
//	GET /docs/* -> embedded pages
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.Handle("/docs", http.RedirectHandler("/docs/", http.StatusMovedPermanently))

	pages, err := Pages()
	if err != nil {
		mux.HandleFunc("/docs/", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		})
		return
	}
	mux.Handle("/docs/", http.StripPrefix("/docs", http.FileServer(pages)))
}
