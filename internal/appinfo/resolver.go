package appinfo

import (
	"context"
	"log/slog"
)

type Result struct {
	AppID string
	Name  string
	Icon  string
	Exec  string
}

// Resolver answers application info requests in the background.
type Resolver struct {
	dirs     []Dir
	iconDirs []Dir
	requests chan string
	results  func(Result)
}

func NewResolver(dirs, iconDirs []Dir, results func(Result)) *Resolver {
	return &Resolver{
		dirs:     dirs,
		iconDirs: iconDirs,
		requests: make(chan string, 64),
		results:  results,
	}
}

func (r *Resolver) String() string {
	return "appinfo.Resolver"
}

// Request queues app for resolution. It returns false if the queue is full.
func (r *Resolver) Request(app string) bool {
	select {
	case r.requests <- app:
		return true
	default:
		slog.Warn("Dropped application info request", "package", "appinfo", "app", app)
		return false
	}
}

func (r *Resolver) Serve(ctx context.Context) error {
	index, err := Load(ctx, r.dirs)
	if err != nil {
		return err
	}
	slog.Debug("Loaded desktop entries", "package", "appinfo", "count", index.Len())

	cache := make(map[string]Result)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case app := <-r.requests:
			res, ok := cache[app]
			if !ok {
				res = r.resolve(index, app)
				cache[app] = res
			}
			r.results(res)
		}
	}
}

func (r *Resolver) resolve(index *Index, app string) Result {
	entry, ok := index.Lookup(app)
	if !ok {
		slog.Debug("No desktop entry", "package", "appinfo", "app", app)
		return Result{AppID: app}
	}
	return Result{
		AppID: app,
		Name:  entry.Name,
		Icon:  ResolveIcon(r.iconDirs, entry.Icon),
		Exec:  entry.Exec,
	}
}
