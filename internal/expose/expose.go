// Package expose implements the overview mode that shows every visible window as a
// thumbnail, and the show-desktop mode that slides every visible window off-screen.
//
// Expose only animates the visual geometry of windows. Their logical geometry is never
// touched, which is what lets an exit restore every window exactly.
package expose

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/ItsNotGoodName/composer/internal/animation"
	"github.com/ItsNotGoodName/composer/internal/stack"
	"github.com/ItsNotGoodName/composer/internal/window"
	"github.com/ItsNotGoodName/composer/mosaic"
	"github.com/tanema/gween/ease"
)

const (
	// OpenThreshold is the swipe progress past which a closed overview opens.
	OpenThreshold = 0.1
	// CloseThreshold is the swipe progress an open overview must stay above to stay open.
	CloseThreshold = 0.9
)

type Options struct {
	Gap           float64
	Padding       float64
	MaxDistortion float64
	Duration      time.Duration
	Easing        ease.TweenFunc
}

func DefaultOptions() Options {
	return Options{
		Gap:           24,
		Padding:       48,
		MaxDistortion: 1.15,
		Duration:      300 * time.Millisecond,
		Easing:        ease.OutCubic,
	}
}

// Thumb is the overview rectangle of one window.
type Thumb struct {
	ID   window.ID       `json:"id"`
	Rect window.Geometry `json:"rect"`
}

type Controller struct {
	registry  *window.Registry
	stack     *stack.Stack
	scheduler *animation.Scheduler
	opts      Options
	output    window.Geometry

	active  bool
	desktop bool
	// swiping is set while a swipe drives the overview. progress is how far the swipe
	// got, 0 being closed and 1 open.
	swiping  bool
	progress float64
	focused  window.ID
	members  []window.ID
	thumbs   map[window.ID]window.Geometry
	saved    map[window.ID]window.Geometry
}

func New(registry *window.Registry, stack *stack.Stack, scheduler *animation.Scheduler, opts Options, output window.Geometry) *Controller {
	if opts.Easing == nil {
		opts.Easing = ease.OutCubic
	}
	return &Controller{
		registry:  registry,
		stack:     stack,
		scheduler: scheduler,
		opts:      opts,
		output:    output,
		thumbs:    make(map[window.ID]window.Geometry),
		saved:     make(map[window.ID]window.Geometry),
	}
}

func (c *Controller) SetOptions(opts Options) {
	if opts.Easing == nil {
		opts.Easing = c.opts.Easing
	}
	c.opts = opts
}

func (c *Controller) SetOutput(output window.Geometry) {
	c.output = output
}

func (c *Controller) Active() bool {
	return c.active
}

// Desktop reports whether the windows are slid off-screen.
func (c *Controller) Desktop() bool {
	return c.desktop
}

func (c *Controller) Swiping() bool {
	return c.swiping
}

// Engaged reports whether the overview, the desktop or a swipe owns the windows.
func (c *Controller) Engaged() bool {
	return c.active || c.desktop || c.swiping
}

func (c *Controller) busy(op string) error {
	switch {
	case c.swiping:
		return fmt.Errorf("expose %s: %w: swipe in progress", op, window.ErrInvalidState)
	case c.desktop:
		return fmt.Errorf("expose %s: %w: desktop is shown", op, window.ErrInvalidState)
	}
	return nil
}

// Enter opens the overview. Nothing changes if it is already open or no layout fits.
func (c *Controller) Enter(now time.Time) error {
	if c.active {
		return fmt.Errorf("expose enter: %w: already active", window.ErrInvalidState)
	}
	if err := c.busy("enter"); err != nil {
		return err
	}
	c.scheduler.Sync(now)

	members, windows := c.capture()
	thumbs, err := c.layout(members, windows)
	if err != nil {
		return err
	}

	c.active = true
	c.focused = c.stack.Focused()
	c.members = members
	c.thumbs = thumbs
	c.saved = make(map[window.ID]window.Geometry, len(members))
	for _, id := range members {
		w := windows[id]
		c.saved[id] = w.Geometry
		c.scheduler.StartGeometry(id, w.Current, thumbs[id], c.opts.Duration, c.opts.Easing)
	}

	return nil
}

// capture returns the visible windows in stack order, front first.
func (c *Controller) capture() ([]window.ID, map[window.ID]window.Window) {
	var members []window.ID
	windows := make(map[window.ID]window.Window)
	for _, id := range c.stack.Order() {
		w, err := c.registry.Get(id)
		if err != nil || !w.Visible() {
			continue
		}
		members = append(members, id)
		windows[id] = w
	}
	return members, windows
}

func (c *Controller) layout(members []window.ID, windows map[window.ID]window.Window) (map[window.ID]window.Geometry, error) {
	items := make([]mosaic.Size, len(members))
	for i, id := range members {
		g := windows[id].Geometry
		items[i] = mosaic.Size{W: g.W, H: g.H}
	}

	p := c.opts.Padding
	area := mosaic.Rect{X: c.output.X + p, Y: c.output.Y + p, W: c.output.W - 2*p, H: c.output.H - 2*p}
	rects, _, err := mosaic.Grid(items, area, mosaic.Options{Gap: c.opts.Gap, MaxDistortion: c.opts.MaxDistortion})
	if err != nil {
		return nil, fmt.Errorf("expose layout: %w: %w", window.ErrInvalidState, err)
	}

	thumbs := make(map[window.ID]window.Geometry, len(members))
	for i, id := range members {
		r := rects[i]
		thumbs[id] = window.Geometry{X: r.X, Y: r.Y, W: r.W, H: r.H, Scale: windows[id].Geometry.Scale}
	}
	return thumbs, nil
}

// Select closes the overview, raises and focuses id and sends every window back to
// its own geometry.
func (c *Controller) Select(id window.ID, now time.Time) error {
	if !c.active {
		return fmt.Errorf("expose select %d: %w: not active", id, window.ErrInvalidState)
	}
	if err := c.busy("select"); err != nil {
		return err
	}
	if !slices.Contains(c.members, id) {
		return fmt.Errorf("expose select %d: %w", id, window.ErrNotFound)
	}
	if err := c.stack.Raise(id); err != nil {
		return err
	}
	if err := c.stack.Focus(id); err != nil {
		return err
	}

	c.restore(now)
	return nil
}

// Exit closes the overview, selecting the window that had focus on entry if it is
// still there.
func (c *Controller) Exit(now time.Time) error {
	if !c.active {
		return fmt.Errorf("expose exit: %w: not active", window.ErrInvalidState)
	}
	if err := c.busy("exit"); err != nil {
		return err
	}
	if c.focused != window.None && slices.Contains(c.members, c.focused) {
		return c.Select(c.focused, now)
	}

	c.restore(now)
	return nil
}

func (c *Controller) restore(now time.Time) {
	c.scheduler.Sync(now)
	for _, id := range c.members {
		w, err := c.registry.Get(id)
		if err != nil {
			continue
		}
		c.scheduler.StartGeometry(id, w.Current, c.saved[id], c.opts.Duration, c.opts.Easing)
	}

	c.active = false
	c.desktop = false
	c.swiping = false
	c.progress = 0
	c.focused = window.None
	c.members = nil
	clear(c.thumbs)
	clear(c.saved)
}

// ShowDesktop slides every visible window to the top-left of its own size, out of the
// output. HideDesktop brings them back.
func (c *Controller) ShowDesktop(now time.Time) error {
	if c.active {
		return fmt.Errorf("expose show desktop: %w: overview is open", window.ErrInvalidState)
	}
	if c.desktop {
		return fmt.Errorf("expose show desktop: %w: already shown", window.ErrInvalidState)
	}
	if err := c.busy("show desktop"); err != nil {
		return err
	}
	c.scheduler.Sync(now)

	members, windows := c.capture()
	c.desktop = true
	c.focused = c.stack.Focused()
	c.members = members
	c.thumbs = make(map[window.ID]window.Geometry, len(members))
	c.saved = make(map[window.ID]window.Geometry, len(members))
	for _, id := range members {
		w := windows[id]
		off := w.Geometry
		off.X, off.Y = -off.W, -off.H
		c.thumbs[id] = off
		c.saved[id] = w.Geometry
		c.scheduler.StartGeometry(id, w.Current, off, c.opts.Duration, c.opts.Easing)
	}
	return nil
}

func (c *Controller) HideDesktop(now time.Time) error {
	if !c.desktop {
		return fmt.Errorf("expose hide desktop: %w: not shown", window.ErrInvalidState)
	}
	c.restore(now)
	return nil
}

// Swipe moves the overview by delta, a full swipe being 1. The windows follow the
// swipe between their own geometry and their thumbnail. When end is set the overview
// opens if it was closed and the swipe got past OpenThreshold, and stays open if it
// was open and the swipe stayed above CloseThreshold.
func (c *Controller) Swipe(delta float64, end bool, now time.Time) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return fmt.Errorf("expose swipe: %w: delta %g", window.ErrInvalidState, delta)
	}
	if c.desktop {
		return fmt.Errorf("expose swipe: %w: desktop is shown", window.ErrInvalidState)
	}
	c.scheduler.Sync(now)

	if !c.swiping {
		if c.active {
			c.progress = 1
		} else {
			members, windows := c.capture()
			thumbs, err := c.layout(members, windows)
			if err != nil {
				return err
			}
			c.focused = c.stack.Focused()
			c.members = members
			c.thumbs = thumbs
			c.saved = make(map[window.ID]window.Geometry, len(members))
			for _, id := range members {
				c.saved[id] = windows[id].Geometry
			}
			c.progress = 0
		}
		c.swiping = true
	}
	c.progress += delta

	if !end {
		c.follow(min(max(c.progress, 0), 1))
		return nil
	}

	open := c.progress >= OpenThreshold
	if c.active {
		open = c.progress > CloseThreshold
	}
	c.swiping = false
	c.progress = 0

	switch {
	case open:
		c.active = true
		for _, id := range c.members {
			w, err := c.registry.Get(id)
			if err != nil {
				continue
			}
			c.scheduler.StartGeometry(id, w.Current, c.thumbs[id], c.opts.Duration, c.opts.Easing)
		}
		return nil
	case c.active:
		return c.Exit(now)
	default:
		c.restore(now)
		return nil
	}
}

// follow places every member at p between its saved geometry and its thumbnail.
func (c *Controller) follow(p float64) {
	for _, id := range c.members {
		w, err := c.registry.Get(id)
		if err != nil {
			continue
		}
		from, to := c.saved[id], c.thumbs[id]
		at := window.Geometry{
			X:     from.X + (to.X-from.X)*p,
			Y:     from.Y + (to.Y-from.Y)*p,
			W:     from.W + (to.W-from.W)*p,
			H:     from.H + (to.H-from.H)*p,
			Scale: from.Scale,
		}
		c.scheduler.StartGeometry(id, w.Current, at, 0, c.opts.Easing)
	}
}

// Preview raises the window behind a thumbnail without focusing it.
func (c *Controller) Preview(id window.ID) error {
	if !c.active || c.swiping {
		return fmt.Errorf("expose preview %d: %w: not active", id, window.ErrInvalidState)
	}
	if !slices.Contains(c.members, id) {
		return fmt.Errorf("expose preview %d: %w", id, window.ErrNotFound)
	}
	return c.stack.Raise(id)
}

// Refresh recomputes the overview after the window set or a member's geometry changed.
// Windows that are already on their thumbnail are not animated again.
func (c *Controller) Refresh(now time.Time) error {
	if !c.active || c.swiping {
		return nil
	}
	c.scheduler.Sync(now)

	members, windows := c.capture()
	if slices.Equal(members, c.members) && c.unchanged(windows) {
		return nil
	}

	thumbs, err := c.layout(members, windows)
	if err != nil {
		c.members = slices.DeleteFunc(c.members, func(id window.ID) bool {
			_, ok := windows[id]
			return !ok
		})
		return err
	}

	for _, id := range members {
		w := windows[id]
		c.saved[id] = w.Geometry
		if prev, ok := c.thumbs[id]; ok && prev == thumbs[id] {
			continue
		}
		c.scheduler.StartGeometry(id, w.Current, thumbs[id], c.opts.Duration, c.opts.Easing)
	}
	maps.DeleteFunc(c.saved, func(id window.ID, _ window.Geometry) bool {
		_, ok := windows[id]
		return !ok
	})

	c.members = members
	c.thumbs = thumbs
	return nil
}

func (c *Controller) unchanged(windows map[window.ID]window.Window) bool {
	for id, w := range windows {
		if c.saved[id] != w.Geometry {
			return false
		}
	}
	return true
}

// Members returns the windows in the overview in stack order at entry.
func (c *Controller) Members() []window.ID {
	return slices.Clone(c.members)
}

func (c *Controller) Thumbnail(id window.ID) (window.Geometry, bool) {
	g, ok := c.thumbs[id]
	return g, ok
}

// Saved returns the geometry id returns to when the overview closes.
func (c *Controller) Saved(id window.ID) (window.Geometry, bool) {
	g, ok := c.saved[id]
	return g, ok
}

func (c *Controller) Layout() []Thumb {
	if !c.active {
		return []Thumb{}
	}
	thumbs := make([]Thumb, 0, len(c.members))
	for _, id := range c.members {
		thumbs = append(thumbs, Thumb{ID: id, Rect: c.thumbs[id]})
	}
	return thumbs
}

func (c *Controller) Clone() *Controller {
	cp := *c
	cp.members = slices.Clone(c.members)
	cp.thumbs = maps.Clone(c.thumbs)
	cp.saved = maps.Clone(c.saved)
	return &cp
}

func (c *Controller) Reset(src *Controller) {
	cp := src.Clone()
	c.active, c.desktop, c.focused = cp.active, cp.desktop, cp.focused
	c.swiping, c.progress = cp.swiping, cp.progress
	c.members, c.thumbs, c.saved = cp.members, cp.thumbs, cp.saved
}
