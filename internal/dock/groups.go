package dock

import (
	"fmt"
	"slices"
	"time"

	"github.com/ItsNotGoodName/composer/internal/window"
)

type group struct {
	app        string
	windows    []window.ID
	closing    bool
	emptySince time.Time
}

// Groups maps applications to their windows. Applications keep the order in which
// their first window opened.
type Groups struct {
	order  []string
	groups map[string]*group
	owner  map[window.ID]string
	// grace is how long an empty group survives. Zero or less keeps it until it is
	// explicitly closed.
	grace time.Duration
}

func NewGroups(grace time.Duration) *Groups {
	return &Groups{
		groups: make(map[string]*group),
		owner:  make(map[window.ID]string),
		grace:  grace,
	}
}

func (g *Groups) SetGrace(grace time.Duration) {
	g.grace = grace
}

func (g *Groups) Add(app string, id window.ID) error {
	if id == window.None {
		return fmt.Errorf("group add: %w: zero id", window.ErrInvalidState)
	}
	if _, ok := g.owner[id]; ok {
		return fmt.Errorf("group add %d: %w", id, window.ErrDuplicateID)
	}

	grp, ok := g.groups[app]
	if !ok {
		grp = &group{app: app}
		g.groups[app] = grp
		g.order = append(g.order, app)
	}
	grp.windows = append(grp.windows, id)
	grp.closing = false
	grp.emptySince = time.Time{}
	g.owner[id] = app

	return nil
}

// Remove takes id out of its group. A group that becomes empty while closing is
// pruned at once.
func (g *Groups) Remove(id window.ID, now time.Time) error {
	app, ok := g.owner[id]
	if !ok {
		return fmt.Errorf("group remove %d: %w", id, window.ErrNotFound)
	}
	delete(g.owner, id)

	grp := g.groups[app]
	grp.windows = slices.DeleteFunc(grp.windows, func(w window.ID) bool { return w == id })
	if len(grp.windows) == 0 {
		grp.emptySince = now
		if grp.closing {
			g.drop(app)
		}
	}

	return nil
}

func (g *Groups) drop(app string) {
	delete(g.groups, app)
	g.order = slices.DeleteFunc(g.order, func(a string) bool { return a == app })
}

// Close marks app as closing and returns its windows. The group is pruned once its
// last window is removed.
func (g *Groups) Close(app string) ([]window.ID, error) {
	grp, ok := g.groups[app]
	if !ok {
		return nil, fmt.Errorf("close app %q: %w", app, window.ErrNotFound)
	}
	if len(grp.windows) == 0 {
		g.drop(app)
		return nil, nil
	}
	grp.closing = true
	return slices.Clone(grp.windows), nil
}

// Prune drops empty groups whose grace period has elapsed and returns their apps.
func (g *Groups) Prune(now time.Time) []string {
	var pruned []string
	for _, app := range g.order {
		grp := g.groups[app]
		if len(grp.windows) > 0 {
			continue
		}
		if grp.closing || (g.grace > 0 && now.Sub(grp.emptySince) >= g.grace) {
			pruned = append(pruned, app)
		}
	}
	for _, app := range pruned {
		g.drop(app)
	}
	return pruned
}

// Windows returns the windows of app in the order they opened.
func (g *Groups) Windows(app string) []window.ID {
	grp, ok := g.groups[app]
	if !ok {
		return nil
	}
	return slices.Clone(grp.windows)
}

// Apps returns every group, including empty ones still within their grace period.
func (g *Groups) Apps() []string {
	return slices.Clone(g.order)
}

// Running returns the apps that have at least one window.
func (g *Groups) Running() []string {
	var apps []string
	for _, app := range g.order {
		if len(g.groups[app].windows) > 0 {
			apps = append(apps, app)
		}
	}
	return apps
}

func (g *Groups) AppOf(id window.ID) (string, bool) {
	app, ok := g.owner[id]
	return app, ok
}

func (g *Groups) Has(app string) bool {
	_, ok := g.groups[app]
	return ok
}

func (g *Groups) Closing(app string) bool {
	grp, ok := g.groups[app]
	return ok && grp.closing
}

func (g *Groups) Len() int {
	return len(g.owner)
}

func (g *Groups) Clone() *Groups {
	c := &Groups{
		order:  slices.Clone(g.order),
		groups: make(map[string]*group, len(g.groups)),
		owner:  make(map[window.ID]string, len(g.owner)),
		grace:  g.grace,
	}
	for app, grp := range g.groups {
		cp := *grp
		cp.windows = slices.Clone(grp.windows)
		c.groups[app] = &cp
	}
	for id, app := range g.owner {
		c.owner[id] = app
	}
	return c
}

func (g *Groups) Reset(src *Groups) {
	c := src.Clone()
	g.order, g.groups, g.owner, g.grace = c.order, c.groups, c.owner, c.grace
}

// Pending reports whether an empty group is waiting for Prune.
func (g *Groups) Pending() bool {
	for _, grp := range g.groups {
		if len(grp.windows) == 0 && (grp.closing || g.grace > 0) {
			return true
		}
	}
	return false
}
