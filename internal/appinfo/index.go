package appinfo

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"
)

// Dir is a directory of desktop entries or icons.
type Dir struct {
	Path string
	FS   fs.FS
}

func OSDirs(paths []string) []Dir {
	dirs := make([]Dir, 0, len(paths))
	for _, p := range paths {
		dirs = append(dirs, Dir{Path: p, FS: os.DirFS(p)})
	}
	return dirs
}

// Index holds the desktop entries of every directory. Entries from earlier
// directories shadow later ones with the same id.
type Index struct {
	entries map[string]Entry
	ids     []string
	lower   []string
}

// Load reads all directories concurrently. Missing directories are skipped.
func Load(ctx context.Context, dirs []Dir) (*Index, error) {
	found := make([][]Entry, len(dirs))

	g, ctx := errgroup.WithContext(ctx)
	for i, dir := range dirs {
		g.Go(func() error {
			entries, err := scan(ctx, dir)
			found[i] = entries
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := &Index{entries: make(map[string]Entry)}
	for _, entries := range found {
		for _, e := range entries {
			if _, ok := idx.entries[e.ID]; ok {
				continue
			}
			idx.entries[e.ID] = e
			idx.ids = append(idx.ids, e.ID)
			idx.lower = append(idx.lower, strings.ToLower(e.ID))
		}
	}
	return idx, nil
}

func scan(ctx context.Context, dir Dir) ([]Entry, error) {
	var entries []Entry
	err := fs.WalkDir(dir.FS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == "." && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".desktop" {
			return nil
		}

		f, err := dir.FS.Open(p)
		if err != nil {
			return err
		}
		entry, err := Parse(f)
		f.Close()
		if err != nil {
			if !errors.Is(err, ErrNotApplication) {
				slog.Debug("Skipped desktop entry", "package", "appinfo", "path", filepath.Join(dir.Path, p), "error", err)
			}
			return nil
		}

		// Desktop file ids replace directory separators with dashes.
		entry.ID = strings.ReplaceAll(strings.TrimSuffix(p, ".desktop"), "/", "-")
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}

func (i *Index) Len() int {
	return len(i.ids)
}

// Lookup finds the entry for an application id. It tries the desktop file id, the
// last component of a reverse-DNS id, the WM class and finally a fuzzy match.
func (i *Index) Lookup(app string) (Entry, bool) {
	if app == "" {
		return Entry{}, false
	}
	if e, ok := i.entries[app]; ok {
		return e, true
	}

	lower := strings.ToLower(app)
	for idx, id := range i.lower {
		if id == lower || id[strings.LastIndex(id, ".")+1:] == lower {
			return i.entries[i.ids[idx]], true
		}
	}
	for _, id := range i.ids {
		if e := i.entries[id]; e.WMClass != "" && strings.EqualFold(e.WMClass, app) {
			return e, true
		}
	}

	matches := fuzzy.Find(lower, i.lower)
	if len(matches) == 0 {
		return Entry{}, false
	}
	return i.entries[i.ids[matches[0].Index]], true
}

var iconExts = []string{".png", ".svg", ".xpm"}

// ResolveIcon turns an icon name into a file path using dirs in order. Absolute
// paths are returned unchanged and unknown names resolve to "".
func ResolveIcon(dirs []Dir, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}

	candidates := []string{name}
	if path.Ext(name) == "" {
		candidates = candidates[:0]
		for _, ext := range iconExts {
			candidates = append(candidates, name+ext)
		}
	}

	for _, dir := range dirs {
		for _, c := range candidates {
			if info, err := fs.Stat(dir.FS, c); err == nil && !info.IsDir() {
				return filepath.Join(dir.Path, c)
			}
		}
	}
	return ""
}
