package dock

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/ItsNotGoodName/composer/internal/stack"
	"github.com/ItsNotGoodName/composer/internal/window"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeUnminimizer struct {
	registry *window.Registry
	calls    []window.ID
}

func (f *fakeUnminimizer) SetVisibility(id window.ID, v window.Visibility, now time.Time) error {
	f.calls = append(f.calls, id)
	return f.registry.SetVisibility(id, v)
}

type fixture struct {
	*Dock
	registry *window.Registry
	stack    *stack.Stack
	un       *fakeUnminimizer
}

func newFixture(grace time.Duration) fixture {
	r := window.NewRegistry(nil)
	s := stack.New()
	un := &fakeUnminimizer{registry: r}
	return fixture{
		Dock:     New(r, s, un, grace),
		registry: r,
		stack:    s,
		un:       un,
	}
}

func (f fixture) open(t *testing.T, id window.ID, app string) {
	t.Helper()
	if _, err := f.registry.Create(window.Window{ID: id, AppID: app, Geometry: window.Rect(0, 0, 100, 100), Mapped: true}); err != nil {
		t.Fatal(err)
	}
	if err := f.stack.Insert(id, window.None); err != nil {
		t.Fatal(err)
	}
	if err := f.Add(app, id); err != nil {
		t.Fatal(err)
	}
}

func (f fixture) close(t *testing.T, id window.ID, now time.Time) {
	t.Helper()
	if err := f.Remove(id, now); err != nil {
		t.Fatal(err)
	}
	f.stack.Remove(id)
	f.registry.Remove(id)
}

func assertApps(t *testing.T, got []string, want ...string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("apps = %v, want %v", got, want)
	}
}

func TestOrderStableWhenOtherAppCloses(t *testing.T) {
	f := newFixture(time.Second)
	f.open(t, 1, "a")
	f.open(t, 2, "b")
	f.open(t, 3, "c")
	f.open(t, 4, "a")

	f.close(t, 2, t0)
	assertApps(t, f.Apps(), "a", "b", "c")
	assertApps(t, f.Running(), "a", "c")

	if pruned := f.Prune(t0.Add(500 * time.Millisecond)); len(pruned) != 0 {
		t.Errorf("Prune() within grace = %v", pruned)
	}
	if pruned := f.Prune(t0.Add(time.Second)); !slices.Equal(pruned, []string{"b"}) {
		t.Errorf("Prune() = %v, want [b]", pruned)
	}
	assertApps(t, f.Apps(), "a", "c")

	f.open(t, 5, "b")
	assertApps(t, f.Apps(), "a", "c", "b")
	if got := f.Windows("a"); !slices.Equal(got, []window.ID{1, 4}) {
		t.Errorf("Windows(a) = %v, want [1 4]", got)
	}
}

func TestReopenWithinGraceKeepsPosition(t *testing.T) {
	f := newFixture(time.Second)
	f.open(t, 1, "a")
	f.open(t, 2, "b")

	f.close(t, 1, t0)
	f.open(t, 3, "a")
	f.Prune(t0.Add(time.Hour))
	assertApps(t, f.Apps(), "a", "b")
}

func TestZeroGraceKeepsEmptyGroups(t *testing.T) {
	f := newFixture(0)
	f.open(t, 1, "a")
	f.close(t, 1, t0)

	if pruned := f.Prune(t0.Add(time.Hour)); len(pruned) != 0 {
		t.Errorf("Prune() = %v, want none", pruned)
	}
	assertApps(t, f.Apps(), "a")
	assertApps(t, f.Running())
}

func TestCloseWaitsForUnmap(t *testing.T) {
	f := newFixture(0)
	f.open(t, 1, "a")
	f.open(t, 2, "a")
	f.open(t, 3, "b")

	ids, err := f.Close("a")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []window.ID{1, 2}) {
		t.Errorf("Close() = %v, want [1 2]", ids)
	}
	assertApps(t, f.Apps(), "a", "b")
	if !f.Closing("a") {
		t.Error("Closing(a) = false")
	}

	f.close(t, 1, t0)
	assertApps(t, f.Apps(), "a", "b")
	f.close(t, 2, t0)
	assertApps(t, f.Apps(), "b")

	if _, err := f.Close("zzz"); !errors.Is(err, window.ErrNotFound) {
		t.Errorf("Close(unknown) error = %v", err)
	}
}

func TestGroupErrors(t *testing.T) {
	f := newFixture(0)
	f.open(t, 1, "a")

	if err := f.Add("b", 1); !errors.Is(err, window.ErrDuplicateID) {
		t.Errorf("Add(duplicate) error = %v", err)
	}
	if err := f.Remove(9, t0); !errors.Is(err, window.ErrNotFound) {
		t.Errorf("Remove(unknown) error = %v", err)
	}
	if app, _ := f.AppOf(1); app != "a" {
		t.Errorf("AppOf(1) = %q, want a", app)
	}
}

func TestSwitcher(t *testing.T) {
	f := newFixture(0)
	f.open(t, 1, "a")
	f.open(t, 2, "b")
	f.open(t, 3, "c")

	steps := []struct {
		next bool
		want string
	}{
		{true, "a"},
		{true, "b"},
		{false, "a"},
		{false, "c"},
		{true, "a"},
	}
	for i, s := range steps {
		var got string
		var err error
		if s.next {
			got, err = f.Next()
		} else {
			got, err = f.Previous()
		}
		if err != nil || got != s.want {
			t.Errorf("step %d = %q, %v, want %q", i, got, err, s.want)
		}
		if f.stack.Focused() != 3 {
			t.Errorf("step %d changed focus to %d", i, f.stack.Focused())
		}
	}

	act, err := f.Commit(t0)
	if err != nil {
		t.Fatal(err)
	}
	if act.Window != 1 || f.stack.Focused() != 1 || f.stack.Order()[0] != 1 {
		t.Errorf("Commit() = %+v, focus %d, order %v", act, f.stack.Focused(), f.stack.Order())
	}
	if f.Switching() {
		t.Error("switcher still open after Commit")
	}

	if _, err := f.Commit(t0); !errors.Is(err, window.ErrInvalidState) {
		t.Errorf("Commit() while closed error = %v", err)
	}
}

func TestSwitcherSkipsClosedApp(t *testing.T) {
	f := newFixture(time.Second)
	f.open(t, 1, "a")
	f.open(t, 2, "b")
	f.open(t, 3, "c")

	if got, _ := f.Next(); got != "a" {
		t.Fatalf("Next() = %q, want a", got)
	}
	f.close(t, 1, t0)

	if !f.Revalidate() {
		t.Fatal("Revalidate() closed the switcher")
	}
	if got, ok := f.Candidate(); !ok || got != "b" {
		t.Errorf("Candidate() = %q, %v, want b", got, ok)
	}

	act, err := f.Commit(t0)
	if err != nil {
		t.Fatal(err)
	}
	if act.AppID != "b" || f.stack.Focused() != 2 || f.Switching() {
		t.Errorf("Commit() = %+v, focus %d, switching %v", act, f.stack.Focused(), f.Switching())
	}
}

func TestSwitcherClosesWhenNoAppLeft(t *testing.T) {
	f := newFixture(0)
	f.open(t, 1, "a")
	f.Next()
	f.close(t, 1, t0)

	act, err := f.Commit(t0)
	if err != nil {
		t.Fatal(err)
	}
	if act.AppID != "" || f.Switching() {
		t.Errorf("Commit() = %+v, switching %v", act, f.Switching())
	}
}

func TestSwitcherCancel(t *testing.T) {
	f := newFixture(0)
	f.open(t, 1, "a")
	f.open(t, 2, "b")
	order := f.stack.Order()

	f.Next()
	if err := f.Cancel(); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(f.stack.Order(), order) || f.stack.Focused() != 2 {
		t.Errorf("Cancel() changed stack to %v focus %d", f.stack.Order(), f.stack.Focused())
	}
	if err := f.Cancel(); !errors.Is(err, window.ErrInvalidState) {
		t.Errorf("second Cancel() error = %v", err)
	}
}

func TestSwitcherEmpty(t *testing.T) {
	f := newFixture(0)
	if _, err := f.Next(); !errors.Is(err, window.ErrInvalidState) {
		t.Errorf("Next() error = %v", err)
	}
	if f.Switching() {
		t.Error("switcher opened without applications")
	}
}

func TestActivateFocusedAppCycles(t *testing.T) {
	f := newFixture(0)
	f.open(t, 1, "a")
	f.open(t, 2, "b")
	f.open(t, 3, "a")
	f.open(t, 4, "a")

	want := []window.ID{1, 3, 4, 1}
	for i, w := range want {
		act, err := f.Activate("a", t0)
		if err != nil {
			t.Fatal(err)
		}
		if act.Window != w || f.stack.Focused() != w {
			t.Errorf("activation %d = %d, focus %d, want %d", i, act.Window, f.stack.Focused(), w)
		}
	}
}

func TestActivateUnminimizes(t *testing.T) {
	f := newFixture(0)
	f.open(t, 1, "a")
	f.open(t, 2, "a")
	f.open(t, 3, "b")
	f.registry.SetVisibility(1, window.Minimized)
	f.registry.SetVisibility(2, window.Minimized)

	act, err := f.Activate("a", t0)
	if err != nil {
		t.Fatal(err)
	}
	if !act.Unminimized || act.Window != 2 {
		t.Errorf("Activate() = %+v, want window 2 unminimized", act)
	}
	if !slices.Equal(f.un.calls, []window.ID{2}) {
		t.Errorf("unminimize calls = %v", f.un.calls)
	}
	if f.stack.Focused() != 2 {
		t.Errorf("Focused() = %d, want 2", f.stack.Focused())
	}
}

func TestActivateLaunches(t *testing.T) {
	f := newFixture(0)
	f.SetLaunchers([]Launcher{{UUID: "u1", AppID: "term", Name: "Terminal", Exec: "foot"}})

	act, err := f.Activate("term", t0)
	if err != nil {
		t.Fatal(err)
	}
	if act.Launch == nil || act.Launch.Exec != "foot" {
		t.Errorf("Activate() = %+v, want launch", act)
	}

	if _, err := f.Activate("nope", t0); !errors.Is(err, window.ErrNotFound) {
		t.Errorf("Activate(unknown) error = %v", err)
	}
}

func TestModel(t *testing.T) {
	f := newFixture(0)
	f.SetLaunchers([]Launcher{{UUID: "u1", AppID: "term", Name: "Terminal"}})
	f.SetInfo("web", Info{Name: "Web Browser", Icon: "/icons/web.png"})
	f.open(t, 1, "web")
	f.open(t, 2, "term")
	f.registry.SetTitle(1, "News")
	f.registry.SetVisibility(1, window.Minimized)

	m := f.Model()
	if len(m.Launchers) != 1 || !m.Launchers[0].Pinned || m.Launchers[0].Windows != 1 || !m.Launchers[0].Focused {
		t.Errorf("Launchers = %+v", m.Launchers)
	}
	if len(m.Running) != 2 || m.Running[0].Name != "Web Browser" || m.Running[0].Icon != "/icons/web.png" {
		t.Errorf("Running = %+v", m.Running)
	}
	if len(m.Minimized) != 1 || m.Minimized[0] != (MinimizedWindow{ID: 1, AppID: "web", Title: "News"}) {
		t.Errorf("Minimized = %+v", m.Minimized)
	}
}

func TestCloneReset(t *testing.T) {
	f := newFixture(0)
	f.open(t, 1, "a")
	snap := f.Clone()

	f.open(t, 2, "b")
	f.Next()

	f.Reset(snap)
	assertApps(t, f.Apps(), "a")
	if f.Switching() {
		t.Error("Reset() kept the switcher open")
	}
}
