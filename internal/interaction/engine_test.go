package interaction

import (
	"errors"
	"testing"
	"time"

	"github.com/ItsNotGoodName/composer/internal/animation"
	"github.com/ItsNotGoodName/composer/internal/stack"
	"github.com/ItsNotGoodName/composer/internal/window"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	*Engine
	registry  *window.Registry
	stack     *stack.Stack
	scheduler *animation.Scheduler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	r := window.NewRegistry(nil)
	s := stack.New()
	sch := animation.NewScheduler()
	sch.Sync(t0)
	return fixture{
		Engine:    NewEngine(r, s, sch, DefaultPolicy(), window.Rect(0, 0, 1920, 1080)),
		registry:  r,
		stack:     s,
		scheduler: sch,
	}
}

func (f fixture) add(t *testing.T, id window.ID, g window.Geometry) {
	t.Helper()
	if _, err := f.registry.Create(window.Window{ID: id, AppID: "app", Geometry: g, Mapped: true}); err != nil {
		t.Fatal(err)
	}
	if err := f.stack.Insert(id, window.None); err != nil {
		t.Fatal(err)
	}
}

func (f fixture) geometry(t *testing.T, id window.ID) window.Geometry {
	t.Helper()
	w, err := f.registry.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	return w.Geometry
}

func TestResizeBottomRight(t *testing.T) {
	f := newFixture(t)
	f.add(t, 1, window.Rect(100, 100, 200, 150))

	if err := f.BeginResize(1, 1, EdgeBottomRight, Point{300, 250}); err != nil {
		t.Fatal(err)
	}

	if err := f.Update(1, Point{350, 300}); err != nil {
		t.Fatal(err)
	}
	if got, want := f.geometry(t, 1), window.Rect(100, 100, 250, 200); got != want {
		t.Errorf("geometry = %s, want %s", got, want)
	}

	if err := f.Update(1, Point{0, -50}); err != nil {
		t.Fatal(err)
	}
	got := f.geometry(t, 1)
	if got.W != f.Policy().MinWidth || got.H != f.Policy().MinHeight {
		t.Errorf("geometry = %s, want clamped to %gx%g", got, f.Policy().MinWidth, f.Policy().MinHeight)
	}
	if got.X != 100 || got.Y != 100 {
		t.Errorf("geometry = %s, top-left edge moved", got)
	}
}

func TestResizeTopLeftKeepsOppositeEdges(t *testing.T) {
	f := newFixture(t)
	f.add(t, 1, window.Rect(100, 100, 200, 150))

	f.BeginResize(1, 1, EdgeTopLeft, Point{100, 100})
	f.Update(1, Point{600, 600})

	got := f.geometry(t, 1)
	if got.X+got.W != 300 || got.Y+got.H != 250 {
		t.Errorf("geometry = %s, want bottom-right fixed at 300,250", got)
	}
	if got.W != f.Policy().MinWidth || got.H != f.Policy().MinHeight {
		t.Errorf("geometry = %s, want minimum size", got)
	}
}

func TestBeginErrors(t *testing.T) {
	f := newFixture(t)
	f.add(t, 1, window.Rect(0, 0, 100, 100))
	f.add(t, 2, window.Rect(0, 0, 100, 100))
	f.registry.SetVisibility(2, window.Fullscreen)

	if err := f.BeginMove(1, 1, Point{}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"busy slot", f.BeginMove(1, 2, Point{}), window.ErrInvalidState},
		{"window under gesture", f.BeginResize(2, 1, EdgeRight, Point{}), window.ErrInvalidState},
		{"unknown window", f.BeginDrag(3, 9, Point{}), window.ErrNotFound},
		{"fullscreen move", f.BeginMove(4, 2, Point{}), window.ErrInvalidState},
		{"fullscreen resize", f.BeginResize(5, 2, EdgeLeft, Point{}), window.ErrInvalidState},
		{"bad edge", f.BeginResize(6, 2, EdgeLeft|EdgeRight, Point{}), window.ErrInvalidState},
		{"idle update", f.Update(7, Point{}), window.ErrInvalidState},
		{"idle cancel", f.Cancel(7), window.ErrInvalidState},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, tt.err, tt.want)
		}
	}
	if f.Len() != 1 {
		t.Errorf("Len() = %d, want 1", f.Len())
	}
}

func TestMoveSnapsToMaximize(t *testing.T) {
	f := newFixture(t)
	f.add(t, 1, window.Rect(100, 100, 200, 150))

	f.BeginMove(1, 1, Point{200, 200})
	res, err := f.End(1, Point{200, 5}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeMaximize {
		t.Fatalf("Outcome = %s, want maximize", res.Outcome)
	}

	w, _ := f.registry.Get(1)
	if w.Visibility != window.Maximized {
		t.Errorf("Visibility = %s, want maximized", w.Visibility)
	}
	if w.Geometry != f.WorkArea() {
		t.Errorf("Geometry = %s, want %s", w.Geometry, f.WorkArea())
	}
	if want := window.Rect(100, -95, 200, 150); w.Restore != want {
		t.Errorf("Restore = %s, want %s", w.Restore, want)
	}
	if !f.scheduler.Active(1, animation.Position) || !f.scheduler.Active(1, animation.Size) {
		t.Fatal("no geometry transition started")
	}

	for _, s := range f.scheduler.Advance(t0.Add(time.Second)) {
		if !s.Done {
			t.Errorf("sample %s not done", s.Key)
		}
		if s.Property == animation.Size && (s.Value.X != 1920 || s.Value.Y != 1080) {
			t.Errorf("final size = %+v", s.Value)
		}
	}
	if f.Len() != 0 {
		t.Errorf("Len() = %d after End, want 0", f.Len())
	}
}

func TestMoveSnapsOnUpwardFling(t *testing.T) {
	f := newFixture(t)
	f.add(t, 1, window.Rect(400, 400, 200, 150))

	f.BeginMove(1, 1, Point{500, 500})
	f.Update(1, Point{500, 40})
	f.scheduler.Sync(t0.Add(10 * time.Millisecond))
	f.Update(1, Point{500, 25})

	res, err := f.End(1, Point{500, 25}, t0.Add(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeMaximize {
		t.Errorf("Outcome = %s, want maximize", res.Outcome)
	}
}

func TestMoveTiles(t *testing.T) {
	tests := []struct {
		at      Point
		outcome Outcome
		want    window.Geometry
	}{
		{Point{5, 500}, OutcomeTileLeft, window.Rect(0, 0, 960, 1080)},
		{Point{1915, 500}, OutcomeTileRight, window.Rect(960, 0, 960, 1080)},
		{Point{900, 500}, OutcomeNone, window.Rect(900, 400, 200, 150)},
	}
	for _, tt := range tests {
		f := newFixture(t)
		f.add(t, 1, window.Rect(400, 400, 200, 150))

		f.BeginMove(1, 1, Point{400, 500})
		res, err := f.End(1, tt.at, t0)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != tt.outcome {
			t.Errorf("End(%v) outcome = %s, want %s", tt.at, res.Outcome, tt.outcome)
		}
		if got := f.geometry(t, 1); got != tt.want {
			t.Errorf("End(%v) geometry = %s, want %s", tt.at, got, tt.want)
		}
	}
}

func TestCancelRestoresAnchor(t *testing.T) {
	f := newFixture(t)
	f.add(t, 1, window.Rect(100, 100, 200, 150))

	f.BeginMove(1, 1, Point{0, 0})
	f.Update(1, Point{300, 300})
	if err := f.Cancel(1); err != nil {
		t.Fatal(err)
	}
	if got, want := f.geometry(t, 1), window.Rect(100, 100, 200, 150); got != want {
		t.Errorf("geometry = %s, want %s", got, want)
	}
	if f.State(1) != Idle {
		t.Errorf("State() = %s, want idle", f.State(1))
	}
}

func TestDragDrop(t *testing.T) {
	f := newFixture(t)
	f.add(t, 1, window.Rect(0, 100, 500, 500))
	f.add(t, 2, window.Rect(600, 100, 500, 500))

	if err := f.BeginDrag(1, 1, Point{100, 200}); err != nil {
		t.Fatal(err)
	}
	f.Update(1, Point{650, 300})

	icons := f.DragIcons()
	if len(icons) != 1 || icons[0].Origin != (Point{100, 200}) || icons[0].At != (Point{650, 300}) {
		t.Errorf("DragIcons() = %+v", icons)
	}

	res, err := f.End(1, Point{700, 300}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeDrop || res.Target != 2 {
		t.Errorf("End() = %+v, want drop on 2", res)
	}
	if got := f.geometry(t, 1); got != window.Rect(0, 100, 500, 500) {
		t.Errorf("dragged window moved to %s", got)
	}
	if len(f.DragIcons()) != 0 {
		t.Error("drag icon left after End")
	}
}

func TestDragToTopTogglesFullscreen(t *testing.T) {
	f := newFixture(t)
	f.add(t, 1, window.Rect(0, 100, 500, 500))

	f.BeginDrag(1, 1, Point{100, 200})
	res, err := f.End(1, Point{100, 0}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeFullscreen {
		t.Errorf("Outcome = %s, want fullscreen", res.Outcome)
	}
	w, _ := f.registry.Get(1)
	if w.Visibility != window.Fullscreen || w.Geometry != f.Output() {
		t.Errorf("window = %s %s", w.Visibility, w.Geometry)
	}

	f.BeginDrag(1, 1, Point{100, 200})
	f.End(1, Point{100, 0}, t0)
	w, _ = f.registry.Get(1)
	if w.Visibility != window.Normal || w.Geometry != window.Rect(0, 100, 500, 500) {
		t.Errorf("window = %s %s after second toggle", w.Visibility, w.Geometry)
	}
}

func TestMaximizeRestoreIsExact(t *testing.T) {
	f := newFixture(t)
	orig := window.Rect(123.5, 77.25, 640, 480)
	f.add(t, 1, orig)

	if err := f.SetVisibility(1, window.Maximized, t0); err != nil {
		t.Fatal(err)
	}
	f.scheduler.Advance(t0.Add(100 * time.Millisecond))
	if err := f.SetVisibility(1, window.Normal, t0.Add(100*time.Millisecond)); err != nil {
		t.Fatal(err)
	}

	if got := f.geometry(t, 1); got != orig {
		t.Errorf("Geometry = %s, want %s", got, orig)
	}
	for _, s := range f.scheduler.Advance(t0.Add(time.Hour)) {
		switch s.Property {
		case animation.Position:
			if s.Value != (animation.Value{X: orig.X, Y: orig.Y}) {
				t.Errorf("final position = %+v", s.Value)
			}
		case animation.Size:
			if s.Value != (animation.Value{X: orig.W, Y: orig.H}) {
				t.Errorf("final size = %+v", s.Value)
			}
		}
	}
}

func TestMinimizeMaximizedThenRestore(t *testing.T) {
	f := newFixture(t)
	orig := window.Rect(10, 10, 300, 200)
	f.add(t, 1, orig)

	f.SetVisibility(1, window.Maximized, t0)
	if err := f.SetVisibility(1, window.Minimized, t0); err != nil {
		t.Fatal(err)
	}
	w, _ := f.registry.Get(1)
	if w.Visible() || w.Geometry != orig || f.scheduler.Len() != 0 {
		t.Errorf("minimized window = %+v, %d transitions", w, f.scheduler.Len())
	}

	if err := f.SetVisibility(1, window.Normal, t0); err != nil {
		t.Fatal(err)
	}
	if !f.scheduler.Active(1, animation.Opacity) {
		t.Error("unminimize did not fade in")
	}
	if got := f.geometry(t, 1); got != orig {
		t.Errorf("Geometry = %s, want %s", got, orig)
	}
}

func TestMoveMaximizedRestoresFirst(t *testing.T) {
	f := newFixture(t)
	f.add(t, 1, window.Rect(100, 100, 400, 300))
	f.SetVisibility(1, window.Maximized, t0)
	f.scheduler.Advance(t0.Add(time.Second))

	if err := f.BeginMove(1, 1, Point{960, 10}); err != nil {
		t.Fatal(err)
	}
	w, _ := f.registry.Get(1)
	if w.Visibility != window.Normal {
		t.Errorf("Visibility = %s, want normal", w.Visibility)
	}
	if w.Geometry.W != 400 || w.Geometry.H != 300 {
		t.Errorf("Geometry = %s, want restored size", w.Geometry)
	}
	if !w.Geometry.Contains(960, 10) {
		t.Errorf("Geometry = %s does not stay under the pointer", w.Geometry)
	}
}

func TestForget(t *testing.T) {
	f := newFixture(t)
	f.add(t, 1, window.Rect(0, 0, 100, 100))
	f.add(t, 2, window.Rect(0, 0, 100, 100))
	f.BeginMove(1, 1, Point{})
	f.BeginDrag(2, 2, Point{})

	if n := f.Forget(1); n != 1 {
		t.Errorf("Forget() = %d, want 1", n)
	}
	if f.Busy(1) || !f.Busy(2) {
		t.Error("Forget() dropped the wrong gesture")
	}
}
