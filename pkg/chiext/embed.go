package chiext

import (
	"io/fs"
	"net/http"
	"strings"
)

type StaticFSConfig struct {
	FileSystem fs.FS
	Root       string
	// Fallback serves index.html for unknown GET requests outside of Exclude.
	Fallback bool
	Exclude  []string
}

// StaticFS serves the top level files and folders of the filesystem and passes
// every other request to the next handler.
func StaticFS(config StaticFSConfig) (func(next http.Handler) http.Handler, error) {
	fsys := config.FileSystem
	if config.Root != "" {
		sub, err := fs.Sub(fsys, config.Root)
		if err != nil {
			return nil, err
		}
		fsys = sub
	}

	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	routes := make([]string, 0, len(files))
	for _, f := range files {
		routes = append(routes, "/"+f.Name())
	}

	fsHandler := http.FileServer(http.FS(fsys))
	serveIndex := func(w http.ResponseWriter, r *http.Request) {
		index, err := http.FS(fsys).Open("/index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer index.Close()

		stat, err := index.Stat()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		http.ServeContent(w, r, "index.html", stat.ModTime(), index)
	}

	excluded := func(path string) bool {
		for _, prefix := range config.Exclude {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			if r.URL.Path == "/" || r.URL.Path == "/index.html" {
				serveIndex(w, r)
				return
			}
			for _, route := range routes {
				if r.URL.Path == route || strings.HasPrefix(r.URL.Path, route+"/") {
					fsHandler.ServeHTTP(w, r)
					return
				}
			}
			if config.Fallback && !excluded(r.URL.Path) {
				serveIndex(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}
