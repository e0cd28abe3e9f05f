// Package animation is the single authority for running transitions.
//
// Every transition interpolates one property of one entity. Values are computed
// from elapsed time only, so Advance can be called at any rate without drift.
package animation

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ItsNotGoodName/composer/internal/window"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

type Property int

const (
	Position Property = iota
	Size
	Opacity
	Scale
)

func (p Property) String() string {
	switch p {
	case Position:
		return "position"
	case Size:
		return "size"
	case Opacity:
		return "opacity"
	case Scale:
		return "scale"
	default:
		return "unknown"
	}
}

// Persistent reports whether a completed transition of p is written back to the registry.
func (p Property) Persistent() bool {
	return p == Position || p == Size
}

// Value holds up to two components. Scalar properties use X.
type Value struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func Scalar(v float64) Value {
	return Value{X: v}
}

type Key struct {
	Entity   window.ID
	Property Property
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", k.Entity, k.Property)
}

type Transition struct {
	Key
	From     Value
	To       Value
	Start    time.Time
	Duration time.Duration

	easing ease.TweenFunc
	tweens [2]*gween.Tween
}

func newTransition(key Key, from, to Value, start time.Time, duration time.Duration, easing ease.TweenFunc) *Transition {
	if easing == nil {
		easing = ease.Linear
	}
	seconds := float32(duration.Seconds())
	return &Transition{
		Key:      key,
		From:     from,
		To:       to,
		Start:    start,
		Duration: duration,
		easing:   easing,
		tweens: [2]*gween.Tween{
			gween.New(float32(from.X), float32(to.X), seconds, easing),
			gween.New(float32(from.Y), float32(to.Y), seconds, easing),
		},
	}
}

// at evaluates the transition at now. Completed transitions report the exact To value.
func (t *Transition) at(now time.Time) (Value, bool) {
	elapsed := now.Sub(t.Start)
	if t.Duration <= 0 || elapsed >= t.Duration {
		return t.To, true
	}
	if elapsed <= 0 {
		return t.From, false
	}

	seconds := float32(elapsed.Seconds())
	x, _ := t.tweens[0].Set(seconds)
	y, _ := t.tweens[1].Set(seconds)
	return Value{X: float64(x), Y: float64(y)}, false
}

// Sample is one interpolated value produced by Advance.
type Sample struct {
	Key
	Value Value
	Done  bool
}

type Scheduler struct {
	now    time.Time
	active map[Key]*Transition
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		active: make(map[Key]*Transition),
	}
}

// Now returns the scheduler clock.
func (s *Scheduler) Now() time.Time {
	return s.now
}

// Sync moves the clock forward without producing samples. Transitions started
// afterwards begin at now.
func (s *Scheduler) Sync(now time.Time) {
	if now.After(s.now) {
		s.now = now
	}
}

// Start begins a transition on (entity, property). If one is already running on that
// pair it is replaced and its current interpolated value becomes the new from.
func (s *Scheduler) Start(entity window.ID, property Property, from, to Value, duration time.Duration, easing ease.TweenFunc) *Transition {
	key := Key{Entity: entity, Property: property}
	if prev, ok := s.active[key]; ok {
		from, _ = prev.at(s.now)
	}

	t := newTransition(key, from, to, s.now, duration, easing)
	s.active[key] = t
	return t
}

// StartGeometry starts Position and Size transitions of entity from one rectangle to
// another. Components that are already at rest on their target are left alone.
func (s *Scheduler) StartGeometry(entity window.ID, from, to window.Geometry, duration time.Duration, easing ease.TweenFunc) {
	if s.Active(entity, Position) || from.X != to.X || from.Y != to.Y {
		s.Start(entity, Position, Value{X: from.X, Y: from.Y}, Value{X: to.X, Y: to.Y}, duration, easing)
	}
	if s.Active(entity, Size) || from.W != to.W || from.H != to.H {
		s.Start(entity, Size, Value{X: from.W, Y: from.H}, Value{X: to.W, Y: to.H}, duration, easing)
	}
}

// Resolve overlays active Position and Size transitions of entity on g.
func (s *Scheduler) Resolve(entity window.ID, g window.Geometry) window.Geometry {
	if v, ok := s.Value(entity, Position); ok {
		g.X, g.Y = v.X, v.Y
	}
	if v, ok := s.Value(entity, Size); ok {
		g.W, g.H = v.X, v.Y
	}
	return g
}

// Advance moves the clock to now and returns every active transition's value, sorted by
// key. Completed transitions are removed and reported with Done set.
func (s *Scheduler) Advance(now time.Time) []Sample {
	s.Sync(now)

	samples := make([]Sample, 0, len(s.active))
	for key, t := range s.active {
		value, done := t.at(s.now)
		samples = append(samples, Sample{Key: key, Value: value, Done: done})
		if done {
			delete(s.active, key)
		}
	}

	slices.SortFunc(samples, func(a, b Sample) int {
		return compareKeys(a.Key, b.Key)
	})

	return samples
}

// Apply writes completed Position and Size samples back to the current geometry of
// their windows. Unknown windows are skipped.
func Apply(r *window.Registry, samples []Sample) error {
	var errs []error
	for _, sample := range samples {
		if !sample.Done || !sample.Property.Persistent() {
			continue
		}
		w, err := r.Get(sample.Entity)
		if err != nil {
			continue
		}

		g := w.Current
		switch sample.Property {
		case Position:
			g.X, g.Y = sample.Value.X, sample.Value.Y
		case Size:
			g.W, g.H = sample.Value.X, sample.Value.Y
		}
		if err := r.SetCurrent(sample.Entity, g); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func compareKeys(a, b Key) int {
	if c := cmp.Compare(a.Entity, b.Entity); c != 0 {
		return c
	}
	return cmp.Compare(a.Property, b.Property)
}

// Cancel removes a transition and returns the value it was frozen at.
func (s *Scheduler) Cancel(entity window.ID, property Property) (Value, bool) {
	key := Key{Entity: entity, Property: property}
	t, ok := s.active[key]
	if !ok {
		return Value{}, false
	}
	delete(s.active, key)
	value, _ := t.at(s.now)
	return value, true
}

// CancelEntity removes every transition of entity.
func (s *Scheduler) CancelEntity(entity window.ID) int {
	n := 0
	for key := range s.active {
		if key.Entity == entity {
			delete(s.active, key)
			n++
		}
	}
	return n
}

// Value returns the interpolated value of an active transition at the scheduler clock.
func (s *Scheduler) Value(entity window.ID, property Property) (Value, bool) {
	t, ok := s.active[Key{Entity: entity, Property: property}]
	if !ok {
		return Value{}, false
	}
	value, _ := t.at(s.now)
	return value, true
}

func (s *Scheduler) Active(entity window.ID, property Property) bool {
	_, ok := s.active[Key{Entity: entity, Property: property}]
	return ok
}

// Transition returns a copy of an active transition.
func (s *Scheduler) Transition(entity window.ID, property Property) (Transition, bool) {
	t, ok := s.active[Key{Entity: entity, Property: property}]
	if !ok {
		return Transition{}, false
	}
	return *t, true
}

// Keys returns the active keys sorted by entity then property.
func (s *Scheduler) Keys() []Key {
	keys := make([]Key, 0, len(s.active))
	for key := range s.active {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

func (s *Scheduler) Len() int {
	return len(s.active)
}

func (s *Scheduler) Clone() *Scheduler {
	c := &Scheduler{
		now:    s.now,
		active: make(map[Key]*Transition, len(s.active)),
	}
	for key, t := range s.active {
		c.active[key] = newTransition(key, t.From, t.To, t.Start, t.Duration, t.easing)
	}
	return c
}

func (s *Scheduler) Reset(src *Scheduler) {
	c := src.Clone()
	s.now, s.active = c.now, c.active
}

var easings = map[string]ease.TweenFunc{
	"linear":       ease.Linear,
	"in-quad":      ease.InQuad,
	"out-quad":     ease.OutQuad,
	"in-out-quad":  ease.InOutQuad,
	"out-cubic":    ease.OutCubic,
	"in-out-cubic": ease.InOutCubic,
	"out-back":     ease.OutBack,
	"in-out-sine":  ease.InOutSine,
	"out-expo":     ease.OutExpo,
}

// Easing resolves an easing function by name.
func Easing(name string) (ease.TweenFunc, error) {
	fn, ok := easings[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q", name)
	}
	return fn, nil
}

// EasingNames returns every name accepted by Easing.
func EasingNames() []string {
	names := make([]string, 0, len(easings))
	for name := range easings {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
