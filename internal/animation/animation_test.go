package animation

import (
	"math"
	"testing"
	"time"

	"github.com/tanema/gween/ease"
)

const epsilon = 0.01

func near(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestLinearMidpoint(t *testing.T) {
	s := NewScheduler()
	s.Sync(t0)
	s.Start(1, Position, Value{X: 0, Y: 0}, Value{X: 100, Y: 50}, time.Second, ease.Linear)

	samples := s.Advance(t0.Add(500 * time.Millisecond))
	if len(samples) != 1 {
		t.Fatalf("Advance() returned %d samples, want 1", len(samples))
	}
	got := samples[0]
	if got.Done {
		t.Error("sample is done halfway")
	}
	if !near(got.Value.X, 50) || !near(got.Value.Y, 25) {
		t.Errorf("Value = %+v, want {50 25}", got.Value)
	}
}

func TestCompletionIsExact(t *testing.T) {
	s := NewScheduler()
	s.Sync(t0)
	to := Value{X: 123.456, Y: 789.012}
	s.Start(1, Size, Value{X: 1, Y: 1}, to, 200*time.Millisecond, ease.OutCubic)

	samples := s.Advance(t0.Add(time.Second))
	if len(samples) != 1 || !samples[0].Done {
		t.Fatalf("Advance() = %+v, want one done sample", samples)
	}
	if samples[0].Value != to {
		t.Errorf("final Value = %+v, want exactly %+v", samples[0].Value, to)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after completion, want 0", s.Len())
	}
	if samples := s.Advance(t0.Add(2 * time.Second)); len(samples) != 0 {
		t.Errorf("Advance() after completion = %+v, want none", samples)
	}
}

func TestReplaceIsContinuous(t *testing.T) {
	s := NewScheduler()
	s.Sync(t0)
	s.Start(7, Position, Value{X: 0}, Value{X: 200}, time.Second, ease.InOutQuad)

	mid := t0.Add(300 * time.Millisecond)
	samples := s.Advance(mid)
	before := samples[0].Value

	tr := s.Start(7, Position, Value{X: -999}, Value{X: 0}, time.Second, ease.Linear)
	if tr.From != before {
		t.Errorf("replacement From = %+v, want %+v", tr.From, before)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	v, ok := s.Value(7, Position)
	if !ok || v != before {
		t.Errorf("Value() = %+v, %v, want %+v", v, ok, before)
	}
}

func TestCancelFreezes(t *testing.T) {
	s := NewScheduler()
	s.Sync(t0)
	s.Start(2, Opacity, Scalar(0), Scalar(1), time.Second, ease.Linear)
	s.Advance(t0.Add(250 * time.Millisecond))

	v, ok := s.Cancel(2, Opacity)
	if !ok {
		t.Fatal("Cancel() found nothing")
	}
	if !near(v.X, 0.25) {
		t.Errorf("Cancel() = %v, want 0.25", v.X)
	}
	if s.Active(2, Opacity) {
		t.Error("transition still active after Cancel")
	}
	if _, ok := s.Cancel(2, Opacity); ok {
		t.Error("second Cancel() reported a transition")
	}
}

func TestCancelEntity(t *testing.T) {
	s := NewScheduler()
	s.Start(1, Position, Value{}, Value{X: 1}, time.Second, nil)
	s.Start(1, Size, Value{}, Value{X: 1}, time.Second, nil)
	s.Start(2, Size, Value{}, Value{X: 1}, time.Second, nil)

	if n := s.CancelEntity(1); n != 2 {
		t.Errorf("CancelEntity() = %d, want 2", n)
	}
	keys := s.Keys()
	if len(keys) != 1 || keys[0] != (Key{Entity: 2, Property: Size}) {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestAdvanceSorted(t *testing.T) {
	s := NewScheduler()
	s.Sync(t0)
	s.Start(3, Opacity, Scalar(0), Scalar(1), time.Second, nil)
	s.Start(1, Size, Value{}, Value{X: 1}, time.Second, nil)
	s.Start(1, Position, Value{}, Value{X: 1}, time.Second, nil)
	s.Start(2, Scale, Scalar(1), Scalar(2), time.Second, nil)

	samples := s.Advance(t0.Add(time.Millisecond))
	want := []Key{{1, Position}, {1, Size}, {2, Scale}, {3, Opacity}}
	if len(samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(samples), len(want))
	}
	for i := range want {
		if samples[i].Key != want[i] {
			t.Errorf("sample[%d] = %s, want %s", i, samples[i].Key, want[i])
		}
	}
}

func TestZeroDurationCompletesNextAdvance(t *testing.T) {
	s := NewScheduler()
	s.Sync(t0)
	s.Start(1, Scale, Scalar(1), Scalar(0.5), 0, nil)

	samples := s.Advance(t0)
	if len(samples) != 1 || !samples[0].Done || samples[0].Value.X != 0.5 {
		t.Errorf("Advance() = %+v, want done at 0.5", samples)
	}
}

func TestClockIsMonotonic(t *testing.T) {
	s := NewScheduler()
	s.Sync(t0.Add(time.Second))
	s.Start(1, Opacity, Scalar(0), Scalar(1), time.Second, nil)

	samples := s.Advance(t0)
	if samples[0].Done || samples[0].Value.X != 0 {
		t.Errorf("Advance(past) = %+v, want from value", samples[0])
	}
}

func TestCloneReset(t *testing.T) {
	s := NewScheduler()
	s.Sync(t0)
	s.Start(1, Position, Value{}, Value{X: 10}, time.Second, nil)
	snap := s.Clone()

	s.Start(2, Position, Value{}, Value{X: 10}, time.Second, nil)
	s.Cancel(1, Position)

	s.Reset(snap)
	if !s.Active(1, Position) || s.Active(2, Position) {
		t.Errorf("Keys() = %v after reset", s.Keys())
	}
}

func TestEasing(t *testing.T) {
	for _, name := range EasingNames() {
		fn, err := Easing(name)
		if err != nil || fn == nil {
			t.Errorf("Easing(%q) = %v", name, err)
		}
	}
	if _, err := Easing("In-Out-Quad"); err != nil {
		t.Errorf("Easing is case sensitive: %v", err)
	}
	if _, err := Easing("bounce-forever"); err == nil {
		t.Error("Easing(unknown) returned no error")
	}
}
