package compositor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ItsNotGoodName/composer/internal/animation"
	"github.com/ItsNotGoodName/composer/internal/bus"
	"github.com/ItsNotGoodName/composer/internal/dock"
	"github.com/ItsNotGoodName/composer/internal/expose"
	"github.com/ItsNotGoodName/composer/internal/interaction"
	"github.com/ItsNotGoodName/composer/internal/scene"
	"github.com/ItsNotGoodName/composer/internal/stack"
	"github.com/ItsNotGoodName/composer/internal/window"
)

// State is the single owner of all compositor state. Only the tick touches it.
type State struct {
	Registry  *window.Registry
	Stack     *stack.Stack
	Scheduler *animation.Scheduler
	Engine    *interaction.Engine
	Expose    *expose.Controller
	Dock      *dock.Dock
}

func NewState(b *bus.Bus, opts Options) *State {
	registry := window.NewRegistry(b)
	stk := stack.New()
	scheduler := animation.NewScheduler()
	engine := interaction.NewEngine(registry, stk, scheduler, opts.Policy, opts.Output)
	dck := dock.New(registry, stk, engine, opts.DockGrace)
	dck.SetLaunchers(opts.Launchers)

	return &State{
		Registry:  registry,
		Stack:     stk,
		Scheduler: scheduler,
		Engine:    engine,
		Expose:    expose.New(registry, stk, scheduler, opts.Expose, opts.Output),
		Dock:      dck,
	}
}

func (s *State) Mode() scene.Mode {
	switch {
	case s.Expose.Active(), s.Expose.Swiping():
		return scene.ModeExpose
	case s.Expose.Desktop():
		return scene.ModeDesktop
	case s.Dock.Switching():
		return scene.ModeSwitcher
	default:
		return scene.ModeNormal
	}
}

type snapshot struct {
	registry  *window.Registry
	stack     *stack.Stack
	scheduler *animation.Scheduler
	expose    *expose.Controller
	dock      *dock.Dock
	gestures  map[interaction.GestureID]interaction.Gesture
}

func (s *State) snapshot() snapshot {
	return snapshot{
		registry:  s.Registry.Clone(),
		stack:     s.Stack.Clone(),
		scheduler: s.Scheduler.Clone(),
		expose:    s.Expose.Clone(),
		dock:      s.Dock.Clone(),
		gestures:  s.Engine.Gestures(),
	}
}

// restore rolls every component back to snap in place, so collaborators keep
// sharing the same instances.
func (s *State) restore(snap snapshot) {
	s.Registry.Reset(snap.registry)
	s.Stack.Reset(snap.stack)
	s.Scheduler.Reset(snap.scheduler)
	s.Expose.Reset(snap.expose)
	s.Dock.Reset(snap.dock)
	s.Engine.SetGestures(snap.gestures)
}

// Check verifies the cross-component invariants.
func (s *State) Check() error {
	var errs []error
	violation := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{window.ErrInvariantViolation}, args...)...))
	}

	ids := s.Registry.IDs()
	order := s.Stack.Order()

	if len(order) != len(ids) {
		violation("stack has %d windows, registry has %d", len(order), len(ids))
	}
	seen := make(map[window.ID]struct{}, len(order))
	for _, id := range order {
		if _, ok := seen[id]; ok {
			violation("window %d stacked twice", id)
		}
		seen[id] = struct{}{}

		w, err := s.Registry.Get(id)
		if err != nil {
			violation("stacked window %d is not registered", id)
			continue
		}
		if !w.Mapped {
			violation("stacked window %d is unmapped", id)
		}
	}

	if focused := s.Stack.Focused(); focused != window.None && !slices.Contains(order, focused) {
		violation("focused window %d is not stacked", focused)
	}

	for _, w := range s.Registry.Windows() {
		if !w.Geometry.Valid() || !w.Current.Valid() || !w.Restore.Valid() {
			violation("window %d has invalid geometry %s", w.ID, w.Geometry)
		}
		if _, ok := s.Dock.AppOf(w.ID); !ok {
			violation("window %d has no application group", w.ID)
		}
	}

	for _, app := range s.Dock.Apps() {
		for _, id := range s.Dock.Windows(app) {
			if !s.Registry.Has(id) {
				violation("group %q holds unknown window %d", app, id)
			}
		}
	}

	for _, key := range s.Scheduler.Keys() {
		if !s.Registry.Has(key.Entity) {
			violation("transition %s targets unknown window", key)
		}
	}

	if s.Expose.Engaged() && s.Dock.Switching() {
		violation("switcher is open in %s mode", s.Mode())
	}
	if s.Expose.Active() && s.Expose.Desktop() {
		violation("expose and desktop are both shown")
	}

	return errors.Join(errs...)
}
