// Package interaction drives pointer gestures (move, resize, drag-and-drop) and
// visibility intents (maximize, fullscreen, minimize, restore).
//
// Live gesture updates are written straight to the registry. Everything that ends in
// a new resting geometry flips the logical state at once and animates the visual
// geometry through the animation scheduler.
package interaction

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/ItsNotGoodName/composer/internal/animation"
	"github.com/ItsNotGoodName/composer/internal/stack"
	"github.com/ItsNotGoodName/composer/internal/window"
	"github.com/tanema/gween/ease"
)

// GestureID identifies a pointer or touch point slot.
type GestureID uint32

type State int

const (
	Idle State = iota
	Moving
	Resizing
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Moving:
		return "moving"
	case Resizing:
		return "resizing"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Edge is a bitmask of the window edges being resized.
type Edge uint8

const (
	EdgeTop Edge = 1 << iota
	EdgeBottom
	EdgeLeft
	EdgeRight

	EdgeTopLeft     = EdgeTop | EdgeLeft
	EdgeTopRight    = EdgeTop | EdgeRight
	EdgeBottomLeft  = EdgeBottom | EdgeLeft
	EdgeBottomRight = EdgeBottom | EdgeRight
)

func (e Edge) Has(o Edge) bool {
	return e&o == o
}

func (e Edge) Valid() bool {
	if e == 0 || e > EdgeTop|EdgeBottom|EdgeLeft|EdgeRight {
		return false
	}
	return !e.Has(EdgeTop|EdgeBottom) && !e.Has(EdgeLeft|EdgeRight)
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

type Policy struct {
	MinWidth  float64
	MinHeight float64
	// SnapDistance is how close to an output edge a move must end to snap.
	SnapDistance float64
	// SnapVelocity is the upward release speed in pixels per second that maximizes a
	// window released within twice SnapDistance of the top edge.
	SnapVelocity float64
	// ReservedBottom is kept free below maximized and tiled windows for the dock.
	ReservedBottom float64
	Duration       time.Duration
	FadeDuration   time.Duration
	Easing         ease.TweenFunc
}

func DefaultPolicy() Policy {
	return Policy{
		MinWidth:     64,
		MinHeight:    48,
		SnapDistance: 16,
		SnapVelocity: 1200,
		Duration:     250 * time.Millisecond,
		FadeDuration: 150 * time.Millisecond,
		Easing:       ease.OutCubic,
	}
}

type Gesture struct {
	ID       GestureID
	State    State
	Window   window.ID
	Edge     Edge
	Origin   Point
	Last     Point
	LastAt   time.Time
	Velocity Point
	Anchor   window.Geometry
}

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeMaximize
	OutcomeTileLeft
	OutcomeTileRight
	OutcomeFullscreen
	OutcomeDrop
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeMaximize:
		return "maximize"
	case OutcomeTileLeft:
		return "tile-left"
	case OutcomeTileRight:
		return "tile-right"
	case OutcomeFullscreen:
		return "fullscreen"
	case OutcomeDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// Result describes how a gesture ended.
type Result struct {
	Gesture GestureID
	Window  window.ID
	State   State
	Outcome Outcome
	// Target is the window a drag was released over.
	Target window.ID
	At     Point
}

// DragIcon is the proxy that follows the pointer during a drag.
type DragIcon struct {
	Gesture GestureID `json:"gesture"`
	Window  window.ID `json:"window"`
	Origin  Point     `json:"origin"`
	At      Point     `json:"at"`
}

type Engine struct {
	registry  *window.Registry
	stack     *stack.Stack
	scheduler *animation.Scheduler
	policy    Policy
	output    window.Geometry
	gestures  map[GestureID]*Gesture
}

func NewEngine(registry *window.Registry, stack *stack.Stack, scheduler *animation.Scheduler, policy Policy, output window.Geometry) *Engine {
	if policy.Easing == nil {
		policy.Easing = ease.OutCubic
	}
	return &Engine{
		registry:  registry,
		stack:     stack,
		scheduler: scheduler,
		policy:    policy,
		output:    output,
		gestures:  make(map[GestureID]*Gesture),
	}
}

func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) SetPolicy(policy Policy) {
	if policy.Easing == nil {
		policy.Easing = e.policy.Easing
	}
	e.policy = policy
}

func (e *Engine) Output() window.Geometry {
	return e.output
}

func (e *Engine) SetOutput(output window.Geometry) {
	e.output = output
}

// WorkArea is the output minus the area reserved for the dock.
func (e *Engine) WorkArea() window.Geometry {
	area := e.output
	area.H = max(area.H-e.policy.ReservedBottom, 0)
	return area
}

func (e *Engine) BeginMove(g GestureID, id window.ID, at Point) error {
	w, err := e.begin(g, id)
	if err != nil {
		return err
	}
	if w.Visibility == window.Fullscreen {
		return fmt.Errorf("move %d: %w: fullscreen", id, window.ErrInvalidState)
	}

	anchor := e.settle(w)
	if w.Visibility == window.Maximized {
		// Keep the grab point at the same relative x offset on the restored window.
		restored := w.Restore
		if anchor.W > 0 {
			restored.X = at.X - (at.X-anchor.X)*restored.W/anchor.W
		}
		restored.Y = anchor.Y
		if err := e.registry.SetVisibility(id, window.Normal); err != nil {
			return err
		}
		if err := e.registry.UpdateGeometry(id, restored); err != nil {
			return err
		}
		anchor = restored
	}

	e.gestures[g] = e.newGesture(g, Moving, id, at, anchor)
	return nil
}

func (e *Engine) BeginResize(g GestureID, id window.ID, edge Edge, at Point) error {
	if !edge.Valid() {
		return fmt.Errorf("resize %d: %w: edge %d", id, window.ErrInvalidState, edge)
	}
	w, err := e.begin(g, id)
	if err != nil {
		return err
	}
	if w.Visibility != window.Normal {
		return fmt.Errorf("resize %d: %w: %s", id, window.ErrInvalidState, w.Visibility)
	}

	gesture := e.newGesture(g, Resizing, id, at, e.settle(w))
	gesture.Edge = edge
	e.gestures[g] = gesture
	return nil
}

func (e *Engine) BeginDrag(g GestureID, id window.ID, at Point) error {
	w, err := e.begin(g, id)
	if err != nil {
		return err
	}

	e.gestures[g] = e.newGesture(g, Dragging, id, at, w.Geometry)
	return nil
}

// begin validates that gesture slot g is free and that id can be interacted with.
func (e *Engine) begin(g GestureID, id window.ID) (window.Window, error) {
	if _, ok := e.gestures[g]; ok {
		return window.Window{}, fmt.Errorf("gesture %d: %w: busy", g, window.ErrInvalidState)
	}
	w, err := e.registry.Get(id)
	if err != nil {
		return window.Window{}, err
	}
	if e.Busy(id) {
		return window.Window{}, fmt.Errorf("window %d: %w: already under interaction", id, window.ErrInvalidState)
	}
	if !w.Visible() {
		return window.Window{}, fmt.Errorf("window %d: %w: not visible", id, window.ErrInvalidState)
	}
	return w, nil
}

// settle stops geometry animations on w and makes the frozen visual geometry the
// window's geometry, so a gesture starts from what is on screen.
func (e *Engine) settle(w window.Window) window.Geometry {
	g := w.Geometry
	moving := e.scheduler.Active(w.ID, animation.Position)
	sizing := e.scheduler.Active(w.ID, animation.Size)
	if !moving && !sizing {
		return g
	}

	g = w.Current
	if v, ok := e.scheduler.Cancel(w.ID, animation.Position); ok {
		g.X, g.Y = v.X, v.Y
	}
	if v, ok := e.scheduler.Cancel(w.ID, animation.Size); ok {
		g.W, g.H = v.X, v.Y
	}
	if err := e.registry.UpdateGeometry(w.ID, g); err != nil {
		return w.Geometry
	}
	return g
}

func (e *Engine) newGesture(g GestureID, state State, id window.ID, at Point, anchor window.Geometry) *Gesture {
	return &Gesture{
		ID:     g,
		State:  state,
		Window: id,
		Origin: at,
		Last:   at,
		LastAt: e.scheduler.Now(),
		Anchor: anchor,
	}
}

// Update moves gesture g to screen position at.
func (e *Engine) Update(g GestureID, at Point) error {
	gesture, ok := e.gestures[g]
	if !ok {
		return fmt.Errorf("update gesture %d: %w: idle", g, window.ErrInvalidState)
	}

	if err := e.apply(gesture, at); err != nil {
		return err
	}

	now := e.scheduler.Now()
	if dt := now.Sub(gesture.LastAt).Seconds(); dt > 0 {
		d := at.Sub(gesture.Last)
		gesture.Velocity = Point{X: d.X / dt, Y: d.Y / dt}
		gesture.LastAt = now
	}
	gesture.Last = at

	return nil
}

func (e *Engine) apply(gesture *Gesture, at Point) error {
	delta := at.Sub(gesture.Origin)
	switch gesture.State {
	case Moving:
		g := gesture.Anchor
		g.X += delta.X
		g.Y += delta.Y
		return e.registry.UpdateGeometry(gesture.Window, g)
	case Resizing:
		return e.registry.UpdateGeometry(gesture.Window, e.resize(gesture.Anchor, gesture.Edge, delta))
	default:
		return nil
	}
}

// resize applies delta to the edges of anchor, keeping the opposite edges fixed and
// never going below the minimum size.
func (e *Engine) resize(anchor window.Geometry, edge Edge, delta Point) window.Geometry {
	g := anchor
	minW, minH := max(e.policy.MinWidth, 1), max(e.policy.MinHeight, 1)

	if edge.Has(EdgeRight) {
		g.W = max(anchor.W+delta.X, minW)
	}
	if edge.Has(EdgeLeft) {
		g.W = max(anchor.W-delta.X, minW)
		g.X = anchor.X + anchor.W - g.W
	}
	if edge.Has(EdgeBottom) {
		g.H = max(anchor.H+delta.Y, minH)
	}
	if edge.Has(EdgeTop) {
		g.H = max(anchor.H-delta.Y, minH)
		g.Y = anchor.Y + anchor.H - g.H
	}

	return g
}

// End finishes gesture g at position at and applies the snap and drop policy.
func (e *Engine) End(g GestureID, at Point, now time.Time) (Result, error) {
	gesture, ok := e.gestures[g]
	if !ok {
		return Result{}, fmt.Errorf("end gesture %d: %w: idle", g, window.ErrInvalidState)
	}
	e.scheduler.Sync(now)

	if err := e.Update(g, at); err != nil {
		delete(e.gestures, g)
		return Result{}, err
	}
	delete(e.gestures, g)

	res := Result{
		Gesture: g,
		Window:  gesture.Window,
		State:   gesture.State,
		At:      at,
	}

	switch gesture.State {
	case Moving:
		res.Outcome = e.snap(gesture, at)
		switch res.Outcome {
		case OutcomeMaximize:
			return res, e.SetVisibility(gesture.Window, window.Maximized, now)
		case OutcomeTileLeft, OutcomeTileRight:
			return res, e.tile(gesture.Window, res.Outcome)
		}
	case Dragging:
		if at.Y-e.output.Y <= e.policy.SnapDistance {
			res.Outcome = OutcomeFullscreen
			return res, e.toggleFullscreen(gesture.Window, now)
		}
		if target := e.dropTarget(gesture.Window, at); target != window.None {
			res.Outcome = OutcomeDrop
			res.Target = target
		}
	}

	return res, nil
}

func (e *Engine) snap(gesture *Gesture, at Point) Outcome {
	out := e.output
	d := e.policy.SnapDistance
	top := at.Y - out.Y

	switch {
	case top <= d:
		return OutcomeMaximize
	case top <= 2*d && -gesture.Velocity.Y > e.policy.SnapVelocity && e.policy.SnapVelocity > 0:
		return OutcomeMaximize
	case at.X-out.X <= d:
		return OutcomeTileLeft
	case out.X+out.W-at.X <= d:
		return OutcomeTileRight
	default:
		return OutcomeNone
	}
}

func (e *Engine) tile(id window.ID, outcome Outcome) error {
	area := e.WorkArea()
	g := window.Rect(area.X, area.Y, area.W/2, area.H)
	if outcome == OutcomeTileRight {
		g.X += area.W / 2
	}
	return e.animateTo(id, g)
}

func (e *Engine) toggleFullscreen(id window.ID, now time.Time) error {
	w, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if w.Visibility == window.Fullscreen {
		return e.SetVisibility(id, window.Normal, now)
	}
	return e.SetVisibility(id, window.Fullscreen, now)
}

// dropTarget returns the front-most other visible window containing at.
func (e *Engine) dropTarget(source window.ID, at Point) window.ID {
	return e.stack.Top(func(id window.ID) bool {
		if id == source {
			return false
		}
		w, err := e.registry.Get(id)
		if err != nil || !w.Visible() {
			return false
		}
		return w.Current.Contains(at.X, at.Y)
	})
}

// Cancel aborts gesture g and returns its window to the anchor geometry.
func (e *Engine) Cancel(g GestureID) error {
	gesture, ok := e.gestures[g]
	if !ok {
		return fmt.Errorf("cancel gesture %d: %w: idle", g, window.ErrInvalidState)
	}
	delete(e.gestures, g)

	if gesture.State == Dragging {
		return nil
	}
	return e.registry.UpdateGeometry(gesture.Window, gesture.Anchor)
}

// Forget drops every gesture on id without touching the registry.
func (e *Engine) Forget(id window.ID) int {
	n := 0
	for g, gesture := range e.gestures {
		if gesture.Window == id {
			delete(e.gestures, g)
			n++
		}
	}
	return n
}

// Clear drops every gesture.
func (e *Engine) Clear() {
	clear(e.gestures)
}

func (e *Engine) Busy(id window.ID) bool {
	for _, gesture := range e.gestures {
		if gesture.Window == id {
			return true
		}
	}
	return false
}

func (e *Engine) Gesture(g GestureID) (Gesture, bool) {
	gesture, ok := e.gestures[g]
	if !ok {
		return Gesture{}, false
	}
	return *gesture, true
}

func (e *Engine) State(g GestureID) State {
	if gesture, ok := e.gestures[g]; ok {
		return gesture.State
	}
	return Idle
}

func (e *Engine) Len() int {
	return len(e.gestures)
}

// DragIcons returns the in-progress drag proxies ordered by gesture.
func (e *Engine) DragIcons() []DragIcon {
	var icons []DragIcon
	for _, gesture := range e.gestures {
		if gesture.State != Dragging {
			continue
		}
		icons = append(icons, DragIcon{
			Gesture: gesture.ID,
			Window:  gesture.Window,
			Origin:  gesture.Origin,
			At:      gesture.Last,
		})
	}
	slices.SortFunc(icons, func(a, b DragIcon) int {
		return cmp.Compare(a.Gesture, b.Gesture)
	})
	return icons
}

// Gestures returns a copy of the in-flight gestures.
func (e *Engine) Gestures() map[GestureID]Gesture {
	gestures := make(map[GestureID]Gesture, len(e.gestures))
	for g, gesture := range e.gestures {
		gestures[g] = *gesture
	}
	return gestures
}

// SetGestures replaces the in-flight gestures.
func (e *Engine) SetGestures(gestures map[GestureID]Gesture) {
	e.gestures = make(map[GestureID]*Gesture, len(gestures))
	for g, gesture := range gestures {
		e.gestures[g] = &gesture
	}
}
