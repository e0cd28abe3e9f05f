// Package web holds the embedded scene viewer.
package web

import (
	"embed"
	"io/fs"
)

//go:embed dist
var dist embed.FS

func FS() fs.FS {
	fsys, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}
	return fsys
}
