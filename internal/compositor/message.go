package compositor

import (
	"fmt"
	"strings"

	"github.com/ItsNotGoodName/composer/internal/interaction"
	"github.com/ItsNotGoodName/composer/internal/window"
)

// Message is an inbound event. Messages are queued and applied at the start of the
// next tick in arrival order.
type Message interface {
	message()
}

type (
	WindowMapped struct {
		ID       window.ID
		AppID    string
		Title    string
		Kind     window.Kind
		Parent   window.ID
		Surface  window.SurfaceID
		Geometry window.Geometry
	}

	WindowUnmapped struct {
		ID window.ID
	}

	WindowTitleChanged struct {
		ID    window.ID
		Title string
	}

	// WindowRequestsClose asks for a window to be closed. The window stays until it
	// is unmapped.
	WindowRequestsClose struct {
		ID window.ID
	}

	// WindowConfigureRequested is a client asking for a new geometry.
	WindowConfigureRequested struct {
		ID       window.ID
		Geometry window.Geometry
	}

	WindowStateRequested struct {
		ID         window.ID
		Visibility window.Visibility
	}

	PointerBegin struct {
		Gesture interaction.GestureID
		// Window is the window under the pointer. None hit-tests At.
		Window    window.ID
		Action    Action
		Edge      interaction.Edge
		At        interaction.Point
		Modifiers Modifiers
	}

	PointerUpdate struct {
		Gesture   interaction.GestureID
		At        interaction.Point
		Modifiers Modifiers
	}

	PointerEnd struct {
		Gesture   interaction.GestureID
		At        interaction.Point
		Modifiers Modifiers
	}

	PointerCancel struct {
		Gesture interaction.GestureID
	}

	FocusRequested struct {
		ID window.ID
	}

	RaiseRequested struct {
		ID window.ID
	}

	// ExposeToggled opens the overview or closes it without a selection.
	ExposeToggled struct{}

	ExposeSelected struct {
		ID window.ID
	}

	ExposePreviewed struct {
		ID window.ID
	}

	// ExposeGesture moves a swipe that opens or closes the overview. Delta is a
	// fraction of a full swipe and End releases it.
	ExposeGesture struct {
		Delta float64
		End   bool
	}

	// ShowDesktopToggled slides every visible window off-screen or brings them back.
	ShowDesktopToggled struct{}

	SwitcherNext     struct{}
	SwitcherPrevious struct{}
	SwitcherCommit   struct{}
	SwitcherCancel   struct{}
	// SwitcherQuit closes every window of the switcher's candidate.
	SwitcherQuit struct{}

	DockActivated struct {
		AppID string
	}

	DockClosed struct {
		AppID string
	}

	AppIconResolved struct {
		AppID string
		Name  string
		Icon  string
		Exec  string
	}

	// AppInfoDropped reports that a resolver could not take an AppInfoRequested. The
	// next window of the application requests it again.
	AppInfoDropped struct {
		AppID string
	}

	OutputResized struct {
		Width  float64
		Height float64
	}
)

func (WindowMapped) message()             {}
func (WindowUnmapped) message()           {}
func (WindowTitleChanged) message()       {}
func (WindowRequestsClose) message()      {}
func (WindowConfigureRequested) message() {}
func (WindowStateRequested) message()     {}
func (PointerBegin) message()             {}
func (PointerUpdate) message()            {}
func (PointerEnd) message()               {}
func (PointerCancel) message()            {}
func (FocusRequested) message()           {}
func (RaiseRequested) message()           {}
func (ExposeToggled) message()            {}
func (ExposeSelected) message()           {}
func (ExposePreviewed) message()          {}
func (ExposeGesture) message()            {}
func (ShowDesktopToggled) message()       {}
func (SwitcherNext) message()             {}
func (SwitcherPrevious) message()         {}
func (SwitcherCommit) message()           {}
func (SwitcherCancel) message()           {}
func (SwitcherQuit) message()             {}
func (DockActivated) message()            {}
func (DockClosed) message()               {}
func (AppIconResolved) message()          {}
func (AppInfoDropped) message()           {}
func (OutputResized) message()            {}

// Action is what a pointer gesture does to its window.
type Action int

const (
	ActionMove Action = iota
	ActionResize
	ActionDrag
)

func (a Action) String() string {
	switch a {
	case ActionMove:
		return "move"
	case ActionResize:
		return "resize"
	case ActionDrag:
		return "drag"
	default:
		return "unknown"
	}
}

func ParseAction(s string) (Action, error) {
	switch strings.ToLower(s) {
	case "", "move":
		return ActionMove, nil
	case "resize":
		return ActionResize, nil
	case "drag":
		return ActionDrag, nil
	default:
		return 0, fmt.Errorf("%w: unknown action %q", window.ErrInvalidState, s)
	}
}

// Modifiers is a bitmask of held keyboard modifiers.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)

func ParseModifiers(names []string) (Modifiers, error) {
	var m Modifiers
	for _, name := range names {
		switch strings.ToLower(name) {
		case "shift":
			m |= ModShift
		case "ctrl", "control":
			m |= ModCtrl
		case "alt":
			m |= ModAlt
		case "super", "logo", "meta":
			m |= ModSuper
		default:
			return 0, fmt.Errorf("%w: unknown modifier %q", window.ErrInvalidState, name)
		}
	}
	return m, nil
}
