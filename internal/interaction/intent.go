package interaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/ItsNotGoodName/composer/internal/animation"
	"github.com/ItsNotGoodName/composer/internal/window"
)

// SetVisibility flips the logical visibility of id immediately and animates its
// visual geometry to match. Leaving Minimized fades the window in.
func (e *Engine) SetVisibility(id window.ID, v window.Visibility, now time.Time) error {
	if v < window.Normal || v > window.Fullscreen {
		return fmt.Errorf("window %d: %w: visibility %d", id, window.ErrInvalidState, v)
	}
	w, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if w.Visibility == v {
		return nil
	}
	if !w.Mapped {
		return fmt.Errorf("window %d: %w: unmapped", id, window.ErrInvalidState)
	}
	if e.Busy(id) {
		return fmt.Errorf("window %d: %w: under interaction", id, window.ErrInvalidState)
	}
	e.scheduler.Sync(now)

	from := w.Visibility
	stretched := from == window.Maximized || from == window.Fullscreen
	target, restore := w.Geometry, w.Restore

	switch v {
	case window.Normal, window.Minimized:
		if stretched {
			target = w.Restore
		}
	case window.Maximized:
		target = e.WorkArea()
	case window.Fullscreen:
		target = e.output
	}
	if !stretched && (v == window.Maximized || v == window.Fullscreen) {
		restore = w.Geometry
	}
	target.Scale = w.Geometry.Scale
	if !target.Valid() {
		return fmt.Errorf("window %d: %w: target %s", id, window.ErrInvalidState, target)
	}

	if err := e.registry.SetRestore(id, restore); err != nil {
		return err
	}
	if err := e.registry.SetVisibility(id, v); err != nil {
		return err
	}

	switch {
	case v == window.Minimized:
		e.scheduler.CancelEntity(id)
		return e.registry.UpdateGeometry(id, target)
	case from == window.Minimized:
		if err := e.registry.UpdateGeometry(id, target); err != nil {
			return err
		}
		e.scheduler.Start(id, animation.Opacity, animation.Scalar(0), animation.Scalar(1), e.policy.FadeDuration, e.policy.Easing)
		return nil
	default:
		return e.animateTo(id, target)
	}
}

// animateTo sets the desired geometry of id to target and starts Position and Size
// transitions from the visual geometry.
func (e *Engine) animateTo(id window.ID, target window.Geometry) error {
	w, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	target.Scale = w.Geometry.Scale

	if e.policy.Duration <= 0 {
		e.scheduler.Cancel(id, animation.Position)
		e.scheduler.Cancel(id, animation.Size)
		return e.registry.UpdateGeometry(id, target)
	}

	if err := e.registry.SetDesired(id, target); err != nil {
		return err
	}
	e.scheduler.StartGeometry(id, w.Current, target, e.policy.Duration, e.policy.Easing)

	return nil
}

// Reflow moves maximized and fullscreen windows onto the current work area and output.
func (e *Engine) Reflow(now time.Time) error {
	e.scheduler.Sync(now)

	var errs []error
	for _, w := range e.registry.Windows() {
		switch w.Visibility {
		case window.Maximized:
			errs = append(errs, e.animateTo(w.ID, e.WorkArea()))
		case window.Fullscreen:
			errs = append(errs, e.animateTo(w.ID, e.output))
		}
	}
	return errors.Join(errs...)
}
