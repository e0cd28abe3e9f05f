// Package compositor runs the single-threaded tick that owns all window management
// state.
//
// Every tick drains the inbound queue, applies each message atomically, advances the
// animations, publishes acknowledgements and emits a scene.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/ItsNotGoodName/composer/internal/animation"
	"github.com/ItsNotGoodName/composer/internal/bus"
	"github.com/ItsNotGoodName/composer/internal/dock"
	"github.com/ItsNotGoodName/composer/internal/expose"
	"github.com/ItsNotGoodName/composer/internal/interaction"
	"github.com/ItsNotGoodName/composer/internal/scene"
	"github.com/ItsNotGoodName/composer/internal/window"
	"github.com/mitchellh/hashstructure/v2"
)

// View is a read-only copy of the state after a tick.
type View struct {
	Scene   scene.Scene     `json:"scene"`
	Windows []window.Window `json:"windows"`
	Dock    dock.Model      `json:"dock"`
	Expose  []expose.Thumb  `json:"expose"`
}

type Compositor struct {
	bus   *bus.Bus
	queue *Queue
	opts  Options
	state *State

	frame     uint64
	serial    uint64
	focus     window.ID
	order     []window.ID
	requested map[string]struct{}
	// published is the hash of the last scene sent as a Frame.
	published uint64

	// dirty and outbox collect the effects of committed messages until the end of the tick.
	dirty  map[window.ID]struct{}
	outbox []func()
	// pending and staged collect the effects of the message being applied.
	pending map[window.ID]struct{}
	staged  []func()

	mu   sync.RWMutex
	view View
}

func New(b *bus.Bus, opts Options) *Compositor {
	c := &Compositor{
		bus:       b,
		queue:     NewQueue(),
		opts:      opts,
		state:     NewState(b, opts),
		requested: make(map[string]struct{}),
		dirty:     make(map[window.ID]struct{}),
		pending:   make(map[window.ID]struct{}),
	}
	c.view = View{Scene: scene.Scene{Mode: scene.ModeNormal, Output: opts.Output, Entries: []scene.Entry{}}}

	bus.Subscribe(b, c.String(), func(ctx context.Context, event window.Changed) error {
		if event.Logical && event.Kind != window.Removed {
			c.pending[event.ID] = struct{}{}
		}
		return nil
	})

	return c
}

func (c *Compositor) String() string {
	return "compositor.Compositor"
}

// Push queues messages for the next tick. It is safe for concurrent use.
func (c *Compositor) Push(msgs ...Message) {
	c.queue.Push(msgs...)
}

// Latest returns the view published by the last tick.
func (c *Compositor) Latest() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

func (c *Compositor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.Interval())
	defer ticker.Stop()

	c.Tick(time.Now())

	for {
		if c.idle() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.queue.Wake():
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick(time.Now())
		}
	}
}

// idle reports whether the next tick would do nothing.
func (c *Compositor) idle() bool {
	return c.queue.Len() == 0 && c.state.Scheduler.Len() == 0 && !c.state.Dock.Pending()
}

// Tick runs one frame at now and returns the emitted scene.
func (c *Compositor) Tick(now time.Time) scene.Scene {
	s := c.state
	s.Scheduler.Sync(now)

	msgs := c.queue.Drain()
	for _, msg := range msgs {
		c.apply(msg, now)
	}

	c.advance(now)

	c.flush()

	c.frame++
	sc := scene.Emit(scene.Input{
		Frame:      c.frame,
		Time:       now,
		Mode:       s.Mode(),
		Output:     s.Engine.Output(),
		Registry:   s.Registry,
		Stack:      s.Stack,
		Animations: s.Scheduler,
		Thumbnails: s.Expose,
		Dock:       s.Dock,
		Drags:      s.Engine.DragIcons(),
	})

	c.mu.Lock()
	c.view = View{
		Scene:   sc,
		Windows: s.Registry.Windows(),
		Dock:    s.Dock.Model(),
		Expose:  s.Expose.Layout(),
	}
	c.mu.Unlock()

	hash, err := hashstructure.Hash(sc, hashstructure.FormatV2, nil)
	if err != nil {
		slog.Error("Failed to hash scene", "package", "compositor", "error", err)
	}
	if err != nil || hash != c.published || c.frame == 1 {
		c.published = hash
		bus.Publish(c.bus, Frame{Scene: sc})
	}

	return sc
}

// advance steps the animations and prunes the dock. A step that breaks an invariant is
// rolled back.
func (c *Compositor) advance(now time.Time) {
	s := c.state
	snap := s.snapshot()

	samples := s.Scheduler.Advance(now)
	if err := animation.Apply(s.Registry, samples); err != nil {
		slog.Error("Failed to apply animation samples", "package", "compositor", "error", err)
	}
	if pruned := s.Dock.Prune(now); len(pruned) > 0 {
		slog.Debug("Pruned application groups", "package", "compositor", "apps", pruned)
	}
	if err := s.Check(); err != nil {
		slog.Error("Invariant violated after advancing", "package", "compositor", "error", err)
		if errors.Is(err, window.ErrInvariantViolation) {
			s.restore(snap)
			s.Engine.Clear()
		}
	}
}

// apply runs msg against a snapshot. A rejected message or a broken invariant leaves
// the state as it was before msg.
func (c *Compositor) apply(msg Message, now time.Time) {
	s := c.state
	snap := s.snapshot()
	clear(c.pending)
	c.staged = nil

	err := c.Update(msg, now)
	if err == nil && s.Expose.Active() {
		if err := s.Expose.Refresh(now); err != nil {
			slog.Debug("Kept previous overview layout", "package", "compositor", "error", err)
		}
	}
	if err == nil {
		err = s.Check()
	}

	if err != nil {
		s.restore(snap)
		if errors.Is(err, window.ErrInvariantViolation) {
			s.Engine.Clear()
		}
		clear(c.pending)
		c.staged = nil
		logRejected(msg, err)
		return
	}

	for id := range c.pending {
		c.dirty[id] = struct{}{}
	}
	c.outbox = append(c.outbox, c.staged...)
}

func logRejected(msg Message, err error) {
	kind := fmt.Sprintf("%T", msg)
	switch {
	case errors.Is(err, window.ErrInvariantViolation), errors.Is(err, window.ErrDuplicateID):
		slog.Error("Rejected message", "package", "compositor", "message", kind, "error", err)
	default:
		slog.Debug("Rejected message", "package", "compositor", "message", kind, "error", err)
	}
}

// stage defers fn until the current message is committed.
func (c *Compositor) stage(fn func()) {
	c.staged = append(c.staged, fn)
}

// flush publishes the acknowledgements and notifications gathered during the tick.
func (c *Compositor) flush() {
	s := c.state

	ids := make([]window.ID, 0, len(c.dirty))
	for id := range c.dirty {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	clear(c.dirty)
	for _, id := range ids {
		w, err := s.Registry.Get(id)
		if err != nil {
			continue
		}
		c.serial++
		bus.Publish(c.bus, Configure{
			Serial:     c.serial,
			ID:         id,
			Geometry:   w.Geometry,
			Visibility: w.Visibility,
		})
	}

	if focus := s.Stack.Focused(); focus != c.focus {
		bus.Publish(c.bus, FocusChanged{From: c.focus, To: focus})
		c.focus = focus
	}
	if order := s.Stack.Order(); !slices.Equal(order, c.order) {
		bus.Publish(c.bus, StackingChanged{Order: order})
		c.order = order
	}

	outbox := c.outbox
	c.outbox = nil
	for _, fn := range outbox {
		fn()
	}
}

// Update applies a single message to the state.
func (c *Compositor) Update(msg Message, now time.Time) error {
	s := c.state

	switch msg := msg.(type) {
	case WindowMapped:
		return c.mapWindow(msg)
	case WindowUnmapped:
		return c.unmapWindow(msg.ID, now)
	case WindowTitleChanged:
		return s.Registry.SetTitle(msg.ID, msg.Title)
	case WindowRequestsClose:
		if !s.Registry.Has(msg.ID) {
			return fmt.Errorf("close window %d: %w", msg.ID, window.ErrNotFound)
		}
		c.stage(func() { bus.Publish(c.bus, CloseRequested{ID: msg.ID}) })
		return nil
	case WindowConfigureRequested:
		return c.configureWindow(msg)
	case WindowStateRequested:
		return c.setVisibility(msg.ID, msg.Visibility, now)
	case PointerBegin:
		return c.beginGesture(msg)
	case PointerUpdate:
		return s.Engine.Update(msg.Gesture, msg.At)
	case PointerEnd:
		return c.endGesture(msg, now)
	case PointerCancel:
		return s.Engine.Cancel(msg.Gesture)
	case FocusRequested:
		w, err := s.Registry.Get(msg.ID)
		if err != nil {
			return err
		}
		if !w.Visible() {
			return fmt.Errorf("focus window %d: %w: not visible", msg.ID, window.ErrInvalidState)
		}
		return s.Stack.Focus(msg.ID)
	case RaiseRequested:
		return s.Stack.Raise(msg.ID)
	case ExposeToggled:
		if s.Expose.Active() {
			return s.Expose.Exit(now)
		}
		if s.Dock.Switching() {
			return fmt.Errorf("expose: %w: switcher is open", window.ErrInvalidState)
		}
		return s.Expose.Enter(now)
	case ExposeGesture:
		if s.Dock.Switching() {
			return fmt.Errorf("expose gesture: %w: switcher is open", window.ErrInvalidState)
		}
		return s.Expose.Swipe(msg.Delta, msg.End, now)
	case ShowDesktopToggled:
		if s.Expose.Desktop() {
			return s.Expose.HideDesktop(now)
		}
		if mode := s.Mode(); mode != scene.ModeNormal {
			return fmt.Errorf("show desktop: %w: %s is open", window.ErrInvalidState, mode)
		}
		return s.Expose.ShowDesktop(now)
	case ExposeSelected:
		return s.Expose.Select(msg.ID, now)
	case ExposePreviewed:
		return s.Expose.Preview(msg.ID)
	case SwitcherNext, SwitcherPrevious:
		if s.Expose.Engaged() {
			return fmt.Errorf("switcher: %w: %s is open", window.ErrInvalidState, s.Mode())
		}
		var err error
		if _, ok := msg.(SwitcherNext); ok {
			_, err = s.Dock.Next()
		} else {
			_, err = s.Dock.Previous()
		}
		return err
	case SwitcherCommit:
		act, err := s.Dock.Commit(now)
		if err != nil {
			return err
		}
		c.activated(act)
		return nil
	case SwitcherCancel:
		return s.Dock.Cancel()
	case SwitcherQuit:
		ids, err := s.Dock.CloseCandidate()
		if err != nil {
			return err
		}
		c.requestClose(ids)
		return nil
	case DockActivated:
		if mode := s.Mode(); mode != scene.ModeNormal {
			return fmt.Errorf("dock activate %q: %w: %s is open", msg.AppID, window.ErrInvalidState, mode)
		}
		act, err := s.Dock.Activate(msg.AppID, now)
		if err != nil {
			return err
		}
		c.activated(act)
		return nil
	case DockClosed:
		ids, err := s.Dock.Close(msg.AppID)
		if err != nil {
			return err
		}
		c.requestClose(ids)
		return nil
	case AppIconResolved:
		s.Dock.SetInfo(msg.AppID, dock.Info{Name: msg.Name, Icon: msg.Icon, Exec: msg.Exec})
		return nil
	case AppInfoDropped:
		app := msg.AppID
		c.stage(func() { delete(c.requested, app) })
		return nil
	case OutputResized:
		return c.resizeOutput(msg, now)
	default:
		return fmt.Errorf("%w: unknown message %T", window.ErrInvalidState, msg)
	}
}

func (c *Compositor) mapWindow(msg WindowMapped) error {
	s := c.state

	_, err := s.Registry.Create(window.Window{
		ID:       msg.ID,
		AppID:    msg.AppID,
		Title:    msg.Title,
		Kind:     msg.Kind,
		Parent:   msg.Parent,
		Surface:  msg.Surface,
		Geometry: msg.Geometry,
		Mapped:   true,
	})
	if err != nil {
		return err
	}
	if err := s.Stack.Insert(msg.ID, msg.Parent); err != nil {
		return err
	}
	if err := s.Dock.Add(msg.AppID, msg.ID); err != nil {
		return err
	}

	if _, ok := s.Dock.Info(msg.AppID); !ok {
		app := msg.AppID
		c.stage(func() {
			if _, ok := c.requested[app]; ok {
				return
			}
			c.requested[app] = struct{}{}
			bus.Publish(c.bus, AppInfoRequested{AppID: app})
		})
	}

	return nil
}

func (c *Compositor) unmapWindow(id window.ID, now time.Time) error {
	s := c.state
	if !s.Registry.Has(id) {
		return fmt.Errorf("unmap window %d: %w", id, window.ErrNotFound)
	}
	focused := s.Stack.Focused() == id

	s.Engine.Forget(id)
	s.Scheduler.CancelEntity(id)
	if err := s.Dock.Remove(id, now); err != nil {
		return err
	}
	if err := s.Stack.Remove(id); err != nil {
		return err
	}
	if err := s.Registry.Remove(id); err != nil {
		return err
	}

	if focused {
		c.refocus()
	}
	s.Dock.Revalidate()
	return nil
}

// configureWindow applies a client-requested geometry to a normal window.
func (c *Compositor) configureWindow(msg WindowConfigureRequested) error {
	s := c.state

	w, err := s.Registry.Get(msg.ID)
	if err != nil {
		return err
	}
	g := msg.Geometry
	if g.Scale == 0 {
		g.Scale = w.Geometry.Scale
	}
	if !g.Valid() || g.W <= 0 || g.H <= 0 {
		return fmt.Errorf("configure window %d: %w: geometry %s", msg.ID, window.ErrInvalidState, g)
	}
	if w.Visibility != window.Normal {
		return fmt.Errorf("configure window %d: %w: %s", msg.ID, window.ErrInvalidState, w.Visibility)
	}
	if s.Engine.Busy(msg.ID) {
		return fmt.Errorf("configure window %d: %w: under interaction", msg.ID, window.ErrInvalidState)
	}

	if _, ok := s.Expose.Thumbnail(msg.ID); ok {
		// The window stays on its thumbnail until the overview closes.
		return s.Registry.SetDesired(msg.ID, g)
	}
	s.Scheduler.Cancel(msg.ID, animation.Position)
	s.Scheduler.Cancel(msg.ID, animation.Size)
	return s.Registry.UpdateGeometry(msg.ID, g)
}

func (c *Compositor) setVisibility(id window.ID, v window.Visibility, now time.Time) error {
	s := c.state
	focused := s.Stack.Focused() == id

	if err := s.Engine.SetVisibility(id, v, now); err != nil {
		return err
	}

	if focused && v == window.Minimized {
		c.refocus()
	}
	return nil
}

// refocus moves focus to the front-most visible window when the focused one went away.
func (c *Compositor) refocus() {
	s := c.state
	if w, err := s.Registry.Get(s.Stack.Focused()); err == nil && w.Visible() {
		return
	}

	top := s.Stack.Top(func(id window.ID) bool {
		w, err := s.Registry.Get(id)
		return err == nil && w.Visible()
	})
	if top == window.None {
		s.Stack.Unfocus()
		return
	}
	s.Stack.Focus(top)
}

func (c *Compositor) beginGesture(msg PointerBegin) error {
	s := c.state
	if s.Expose.Engaged() {
		return fmt.Errorf("gesture %d: %w: %s is open", msg.Gesture, window.ErrInvalidState, s.Mode())
	}

	id := msg.Window
	if id == window.None {
		id = c.hit(msg.At)
		if id == window.None {
			return fmt.Errorf("gesture %d: %w: no window at %v", msg.Gesture, window.ErrNotFound, msg.At)
		}
	}

	var err error
	switch msg.Action {
	case ActionMove:
		err = s.Engine.BeginMove(msg.Gesture, id, msg.At)
	case ActionResize:
		err = s.Engine.BeginResize(msg.Gesture, id, msg.Edge, msg.At)
	case ActionDrag:
		return s.Engine.BeginDrag(msg.Gesture, id, msg.At)
	default:
		return fmt.Errorf("gesture %d: %w: action %d", msg.Gesture, window.ErrInvalidState, msg.Action)
	}
	if err != nil {
		return err
	}

	if err := s.Stack.Raise(id); err != nil {
		return err
	}
	return s.Stack.Focus(id)
}

// hit returns the front-most visible window under at as it is drawn.
func (c *Compositor) hit(at interaction.Point) window.ID {
	s := c.state
	return s.Stack.Top(func(id window.ID) bool {
		w, err := s.Registry.Get(id)
		if err != nil || !w.Visible() {
			return false
		}
		return s.Scheduler.Resolve(id, w.Current).Contains(at.X, at.Y)
	})
}

func (c *Compositor) endGesture(msg PointerEnd, now time.Time) error {
	res, err := c.state.Engine.End(msg.Gesture, msg.At, now)
	if err != nil {
		return err
	}

	slog.Debug("Gesture ended", "package", "compositor", "gesture", res.Gesture, "window", res.Window, "state", res.State, "outcome", res.Outcome)
	if res.Outcome == interaction.OutcomeDrop {
		c.stage(func() {
			bus.Publish(c.bus, DropPerformed{Source: res.Window, Target: res.Target, At: res.At})
		})
	}
	return nil
}

func (c *Compositor) activated(act dock.Activation) {
	if act.Launch != nil {
		launcher := *act.Launch
		c.stage(func() { bus.Publish(c.bus, LaunchRequested{Launcher: launcher}) })
	}
}

func (c *Compositor) requestClose(ids []window.ID) {
	for _, id := range ids {
		c.stage(func() { bus.Publish(c.bus, CloseRequested{ID: id}) })
	}
}

func (c *Compositor) resizeOutput(msg OutputResized, now time.Time) error {
	if !(msg.Width > 0 && msg.Height > 0) || math.IsInf(msg.Width, 0) || math.IsInf(msg.Height, 0) {
		return fmt.Errorf("resize output: %w: %gx%g", window.ErrInvalidState, msg.Width, msg.Height)
	}

	s := c.state
	prev := s.Engine.Output()
	output := window.Rect(0, 0, msg.Width, msg.Height)
	s.Engine.SetOutput(output)
	s.Expose.SetOutput(output)
	if err := s.Engine.Reflow(now); err != nil {
		s.Engine.SetOutput(prev)
		s.Expose.SetOutput(prev)
		return err
	}
	return nil
}
