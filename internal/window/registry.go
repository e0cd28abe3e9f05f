package window

import (
	"fmt"
	"slices"

	"github.com/ItsNotGoodName/composer/internal/bus"
)

type ChangeKind int

const (
	Created ChangeKind = iota
	Updated
	Removed
)

// Changed is published on the bus after every committed registry mutation.
type Changed struct {
	ID   ID
	Kind ChangeKind
	// Logical is set when client-visible state changed (desired geometry,
	// visibility, mapping) and the client needs an acknowledgement.
	Logical bool
}

// Registry is the canonical store of known windows. It is not safe for concurrent use.
type Registry struct {
	bus     *bus.Bus
	windows map[ID]*Window
	ids     []ID
}

func NewRegistry(b *bus.Bus) *Registry {
	return &Registry{
		bus:     b,
		windows: make(map[ID]*Window),
	}
}

func (r *Registry) Create(w Window) (ID, error) {
	if w.ID == None {
		return None, fmt.Errorf("create window: %w: zero id", ErrInvalidState)
	}
	if _, ok := r.windows[w.ID]; ok {
		return None, fmt.Errorf("create window %d: %w", w.ID, ErrDuplicateID)
	}
	if w.Geometry.Scale == 0 {
		w.Geometry.Scale = 1
	}
	if w.Current == (Geometry{}) {
		w.Current = w.Geometry
	}
	if w.Restore == (Geometry{}) {
		w.Restore = w.Geometry
	}
	if !w.Geometry.Valid() || !w.Current.Valid() || !w.Restore.Valid() {
		return None, fmt.Errorf("create window %d: %w: geometry %s", w.ID, ErrInvalidState, w.Geometry)
	}

	r.windows[w.ID] = &w
	r.ids = append(r.ids, w.ID)
	bus.Publish(r.bus, Changed{ID: w.ID, Kind: Created, Logical: true})

	return w.ID, nil
}

func (r *Registry) Get(id ID) (Window, error) {
	w, ok := r.windows[id]
	if !ok {
		return Window{}, fmt.Errorf("window %d: %w", id, ErrNotFound)
	}
	return *w, nil
}

func (r *Registry) Has(id ID) bool {
	_, ok := r.windows[id]
	return ok
}

// mutate applies fn to a copy and commits it only if fn succeeds and the result is valid.
func (r *Registry) mutate(id ID, fn func(w *Window) (logical bool, err error)) error {
	w, ok := r.windows[id]
	if !ok {
		return fmt.Errorf("window %d: %w", id, ErrNotFound)
	}

	next := *w
	logical, err := fn(&next)
	if err != nil {
		return fmt.Errorf("window %d: %w", id, err)
	}
	if !next.Geometry.Valid() || !next.Current.Valid() || !next.Restore.Valid() {
		return fmt.Errorf("window %d: %w: geometry %s", id, ErrInvalidState, next.Geometry)
	}
	if next == *w {
		return nil
	}

	*w = next
	bus.Publish(r.bus, Changed{ID: id, Kind: Updated, Logical: logical})
	return nil
}

// UpdateGeometry sets both the logical and the visual geometry.
func (r *Registry) UpdateGeometry(id ID, g Geometry) error {
	return r.mutate(id, func(w *Window) (bool, error) {
		logical := w.Geometry != g
		w.Geometry = g
		w.Current = g
		return logical, nil
	})
}

func (r *Registry) SetDesired(id ID, g Geometry) error {
	return r.mutate(id, func(w *Window) (bool, error) {
		logical := w.Geometry != g
		w.Geometry = g
		return logical, nil
	})
}

func (r *Registry) SetCurrent(id ID, g Geometry) error {
	return r.mutate(id, func(w *Window) (bool, error) {
		w.Current = g
		return false, nil
	})
}

func (r *Registry) SetRestore(id ID, g Geometry) error {
	return r.mutate(id, func(w *Window) (bool, error) {
		w.Restore = g
		return false, nil
	})
}

func (r *Registry) SetVisibility(id ID, v Visibility) error {
	return r.mutate(id, func(w *Window) (bool, error) {
		if v < Normal || v > Fullscreen {
			return false, fmt.Errorf("%w: visibility %d", ErrInvalidState, v)
		}
		logical := w.Visibility != v
		w.Visibility = v
		return logical, nil
	})
}

func (r *Registry) SetMapped(id ID, mapped bool) error {
	return r.mutate(id, func(w *Window) (bool, error) {
		logical := w.Mapped != mapped
		w.Mapped = mapped
		return logical, nil
	})
}

func (r *Registry) SetTitle(id ID, title string) error {
	return r.mutate(id, func(w *Window) (bool, error) {
		w.Title = title
		return false, nil
	})
}

// Remove deletes a window. Removing an unknown id is an error, not a no-op.
func (r *Registry) Remove(id ID) error {
	if _, ok := r.windows[id]; !ok {
		return fmt.Errorf("remove window %d: %w", id, ErrNotFound)
	}

	delete(r.windows, id)
	r.ids = slices.DeleteFunc(r.ids, func(i ID) bool { return i == id })
	bus.Publish(r.bus, Changed{ID: id, Kind: Removed, Logical: true})

	return nil
}

// IDs returns window ids in creation order.
func (r *Registry) IDs() []ID {
	return slices.Clone(r.ids)
}

func (r *Registry) Windows() []Window {
	windows := make([]Window, 0, len(r.ids))
	for _, id := range r.ids {
		windows = append(windows, *r.windows[id])
	}
	return windows
}

func (r *Registry) Len() int {
	return len(r.ids)
}

// Clone returns a deep copy sharing the same bus.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		bus:     r.bus,
		windows: make(map[ID]*Window, len(r.windows)),
		ids:     slices.Clone(r.ids),
	}
	for id, w := range r.windows {
		cp := *w
		c.windows[id] = &cp
	}
	return c
}

// Reset replaces the contents of r with a copy of src without publishing events.
func (r *Registry) Reset(src *Registry) {
	c := src.Clone()
	r.windows = c.windows
	r.ids = c.ids
}
