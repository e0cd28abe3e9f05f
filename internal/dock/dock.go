// Package dock groups windows by application and implements the dock and the
// application switcher on top of those groups.
package dock

import (
	"fmt"
	"slices"
	"time"

	"github.com/ItsNotGoodName/composer/internal/stack"
	"github.com/ItsNotGoodName/composer/internal/window"
)

// Info is application metadata resolved in the background.
type Info struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
	Exec string `json:"exec,omitempty"`
}

// Launcher is a pinned application.
type Launcher struct {
	UUID  string `json:"uuid"`
	AppID string `json:"app_id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Exec  string `json:"exec"`
}

type Item struct {
	AppID   string `json:"app_id"`
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	Pinned  bool   `json:"pinned"`
	Windows int    `json:"windows"`
	Focused bool   `json:"focused"`
}

type MinimizedWindow struct {
	ID    window.ID `json:"id"`
	AppID string    `json:"app_id"`
	Title string    `json:"title"`
}

// Model is the read-only view the dock renders.
type Model struct {
	Launchers []Item            `json:"launchers"`
	Running   []Item            `json:"running"`
	Minimized []MinimizedWindow `json:"minimized"`
}

// Unminimizer brings a minimized window back.
type Unminimizer interface {
	SetVisibility(id window.ID, v window.Visibility, now time.Time) error
}

// Activation is what activating an application did.
type Activation struct {
	AppID       string
	Window      window.ID
	Unminimized bool
	// Launch is set when the application had no windows and a launcher exists for it.
	Launch *Launcher
}

type Dock struct {
	*Groups
	registry    *window.Registry
	stack       *stack.Stack
	unminimizer Unminimizer
	info        map[string]Info
	launchers   []Launcher
	switcher    switcher
}

func New(registry *window.Registry, stack *stack.Stack, unminimizer Unminimizer, grace time.Duration) *Dock {
	return &Dock{
		Groups:      NewGroups(grace),
		registry:    registry,
		stack:       stack,
		unminimizer: unminimizer,
		info:        make(map[string]Info),
	}
}

func (d *Dock) SetInfo(app string, info Info) {
	d.info[app] = info
}

func (d *Dock) Info(app string) (Info, bool) {
	info, ok := d.info[app]
	return info, ok
}

func (d *Dock) SetLaunchers(launchers []Launcher) {
	d.launchers = slices.Clone(launchers)
}

func (d *Dock) Launchers() []Launcher {
	return slices.Clone(d.launchers)
}

func (d *Dock) launcher(app string) (Launcher, bool) {
	for _, l := range d.launchers {
		if l.AppID == app {
			return l, true
		}
	}
	return Launcher{}, false
}

func (d *Dock) item(app string) Item {
	item := Item{AppID: app, Name: app}
	if l, ok := d.launcher(app); ok {
		item.Pinned = true
		item.Name = l.Name
		item.Icon = l.Icon
	}
	if info, ok := d.info[app]; ok {
		if info.Name != "" {
			item.Name = info.Name
		}
		if item.Icon == "" {
			item.Icon = info.Icon
		}
	}
	item.Windows = len(d.Windows(app))
	if focused, ok := d.AppOf(d.stack.Focused()); ok && focused == app {
		item.Focused = true
	}
	return item
}

func (d *Dock) Model() Model {
	m := Model{
		Launchers: []Item{},
		Running:   []Item{},
		Minimized: []MinimizedWindow{},
	}
	for _, l := range d.launchers {
		m.Launchers = append(m.Launchers, d.item(l.AppID))
	}
	for _, app := range d.Running() {
		m.Running = append(m.Running, d.item(app))
		for _, id := range d.Windows(app) {
			w, err := d.registry.Get(id)
			if err != nil || w.Visibility != window.Minimized {
				continue
			}
			m.Minimized = append(m.Minimized, MinimizedWindow{ID: id, AppID: app, Title: w.Title})
		}
	}
	return m
}

// Activate focuses app. An app without windows is launched if it has a launcher.
func (d *Dock) Activate(app string, now time.Time) (Activation, error) {
	if len(d.Windows(app)) == 0 {
		if l, ok := d.launcher(app); ok {
			return Activation{AppID: app, Launch: &l}, nil
		}
		return Activation{}, fmt.Errorf("activate %q: %w", app, window.ErrNotFound)
	}
	return d.activate(app, now)
}

// activate raises and focuses the front-most window of app. If app already has focus
// its bottom-most window is activated instead, which cycles through its windows.
func (d *Dock) activate(app string, now time.Time) (Activation, error) {
	candidates := d.stacked(app)
	if len(candidates) == 0 {
		return Activation{}, fmt.Errorf("activate %q: %w: no stacked windows", app, window.ErrNotFound)
	}

	var target window.Window
	focusedApp, ok := d.AppOf(d.stack.Focused())
	switch {
	case ok && focusedApp == app && len(candidates) > 1:
		target = candidates[len(candidates)-1]
	default:
		target = candidates[0]
		for _, w := range candidates {
			if w.Visible() {
				target = w
				break
			}
		}
	}

	act := Activation{AppID: app, Window: target.ID}
	if target.Visibility == window.Minimized {
		if d.unminimizer == nil {
			return Activation{}, fmt.Errorf("activate %q: %w: window %d is minimized", app, window.ErrInvalidState, target.ID)
		}
		if err := d.unminimizer.SetVisibility(target.ID, window.Normal, now); err != nil {
			return Activation{}, err
		}
		act.Unminimized = true
	}
	if err := d.stack.Raise(target.ID); err != nil {
		return Activation{}, err
	}
	if err := d.stack.Focus(target.ID); err != nil {
		return Activation{}, err
	}

	return act, nil
}

// stacked returns the top-level windows of app in stack order, front first. Popups
// and transients ride along with their parents.
func (d *Dock) stacked(app string) []window.Window {
	var windows []window.Window
	for _, id := range d.stack.Order() {
		owner, ok := d.AppOf(id)
		if !ok || owner != app {
			continue
		}
		w, err := d.registry.Get(id)
		if err != nil || w.Parent != window.None {
			continue
		}
		windows = append(windows, w)
	}
	return windows
}

func (d *Dock) Clone() *Dock {
	cp := *d
	cp.Groups = d.Groups.Clone()
	cp.info = make(map[string]Info, len(d.info))
	for k, v := range d.info {
		cp.info[k] = v
	}
	cp.launchers = slices.Clone(d.launchers)
	return &cp
}

// Reset replaces the state of d with a copy of src, keeping d's collaborators.
func (d *Dock) Reset(src *Dock) {
	cp := src.Clone()
	d.Groups.Reset(cp.Groups)
	d.info, d.launchers, d.switcher = cp.info, cp.launchers, cp.switcher
}
