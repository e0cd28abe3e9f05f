package dock

import (
	"fmt"
	"slices"
	"time"

	"github.com/ItsNotGoodName/composer/internal/window"
)

type switcher struct {
	active    bool
	candidate string
	// index is the position of candidate among the running apps when it was chosen.
	index int
}

// Switching reports whether the application switcher is open.
func (d *Dock) Switching() bool {
	return d.switcher.active
}

// Candidate returns the application the switcher points at.
func (d *Dock) Candidate() (string, bool) {
	return d.switcher.candidate, d.switcher.active
}

// Next opens the switcher on the application after the focused one, or moves the
// candidate forward. Focus does not change.
func (d *Dock) Next() (string, error) {
	return d.step(1)
}

func (d *Dock) Previous() (string, error) {
	return d.step(-1)
}

func (d *Dock) step(dir int) (string, error) {
	apps := d.Running()
	if len(apps) == 0 {
		return "", fmt.Errorf("switcher: %w: no applications", window.ErrInvalidState)
	}

	from := -1
	if d.switcher.active {
		from = slices.Index(apps, d.switcher.candidate)
	} else if app, ok := d.AppOf(d.stack.Focused()); ok {
		from = slices.Index(apps, app)
	}

	var idx int
	switch {
	case from == -1 && dir > 0:
		idx = 0
	case from == -1:
		idx = len(apps) - 1
	default:
		idx = (from + dir + len(apps)) % len(apps)
	}

	d.switcher = switcher{active: true, candidate: apps[idx], index: idx}
	return apps[idx], nil
}

// Revalidate moves the candidate to the next running application when its last
// window went away, or closes the switcher when no application is left. It reports
// whether the switcher is still open.
func (d *Dock) Revalidate() bool {
	if !d.switcher.active {
		return false
	}

	apps := d.Running()
	if idx := slices.Index(apps, d.switcher.candidate); idx != -1 {
		d.switcher.index = idx
		return true
	}
	if len(apps) == 0 {
		d.switcher = switcher{}
		return false
	}

	// The apps after the old candidate moved up by one.
	idx := d.switcher.index % len(apps)
	d.switcher = switcher{active: true, candidate: apps[idx], index: idx}
	return true
}

// Commit activates the candidate and closes the switcher.
func (d *Dock) Commit(now time.Time) (Activation, error) {
	if !d.switcher.active {
		return Activation{}, fmt.Errorf("switcher commit: %w: not active", window.ErrInvalidState)
	}
	if !d.Revalidate() {
		return Activation{}, nil
	}

	act, err := d.activate(d.switcher.candidate, now)
	if err != nil {
		return Activation{}, err
	}

	d.switcher = switcher{}
	return act, nil
}

// Cancel closes the switcher without changing anything.
func (d *Dock) Cancel() error {
	if !d.switcher.active {
		return fmt.Errorf("switcher cancel: %w: not active", window.ErrInvalidState)
	}
	d.switcher = switcher{}
	return nil
}

// CloseCandidate asks the candidate application to close and keeps the switcher open.
func (d *Dock) CloseCandidate() ([]window.ID, error) {
	if !d.switcher.active {
		return nil, fmt.Errorf("switcher close: %w: not active", window.ErrInvalidState)
	}
	return d.Close(d.switcher.candidate)
}
