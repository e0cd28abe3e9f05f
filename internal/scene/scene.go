// Package scene assembles the per-frame description handed to the renderer.
package scene

import (
	"time"

	"github.com/ItsNotGoodName/composer/internal/animation"
	"github.com/ItsNotGoodName/composer/internal/dock"
	"github.com/ItsNotGoodName/composer/internal/interaction"
	"github.com/ItsNotGoodName/composer/internal/window"
)

type Mode int

const (
	ModeNormal Mode = iota
	ModeExpose
	ModeSwitcher
	ModeDesktop
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeExpose:
		return "expose"
	case ModeSwitcher:
		return "switcher"
	case ModeDesktop:
		return "desktop"
	default:
		return "unknown"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

type Entry struct {
	ID      window.ID        `json:"id"`
	AppID   string           `json:"app_id"`
	Title   string           `json:"title"`
	Surface window.SurfaceID `json:"surface"`
	// Geometry is the interpolated geometry when a transition is running.
	Geometry  window.Geometry `json:"geometry"`
	Opacity   float64         `json:"opacity"`
	Index     int             `json:"index"`
	Focused   bool            `json:"focused"`
	Thumbnail bool            `json:"thumbnail"`
}

type Switcher struct {
	Apps      []dock.Item `json:"apps"`
	Candidate string      `json:"candidate"`
}

type Drag struct {
	Window  window.ID         `json:"window"`
	Surface window.SurfaceID  `json:"surface"`
	Origin  interaction.Point `json:"origin"`
	At      interaction.Point `json:"at"`
}

type Scene struct {
	Frame    uint64          `json:"frame" hash:"ignore"`
	Time     time.Time       `json:"time" hash:"ignore"`
	Mode     Mode            `json:"mode"`
	Output   window.Geometry `json:"output"`
	Entries  []Entry         `json:"entries"`
	Switcher *Switcher       `json:"switcher,omitempty"`
	Drags    []Drag          `json:"drags,omitempty"`
}

// Order returns the window ids of the scene front to back.
func (s Scene) Order() []window.ID {
	ids := make([]window.ID, len(s.Entries))
	for i, e := range s.Entries {
		ids[i] = e.ID
	}
	return ids
}

type (
	Registry interface {
		Get(id window.ID) (window.Window, error)
	}

	Stack interface {
		Order() []window.ID
		Focused() window.ID
	}

	Animations interface {
		Resolve(id window.ID, g window.Geometry) window.Geometry
		Value(id window.ID, property animation.Property) (animation.Value, bool)
	}

	Thumbnails interface {
		Thumbnail(id window.ID) (window.Geometry, bool)
	}

	Dock interface {
		Candidate() (string, bool)
		Model() dock.Model
	}
)

type Input struct {
	Frame      uint64
	Time       time.Time
	Mode       Mode
	Output     window.Geometry
	Registry   Registry
	Stack      Stack
	Animations Animations
	// Thumbnails is consulted only in ModeExpose.
	Thumbnails Thumbnails
	// Dock is consulted only in ModeSwitcher.
	Dock  Dock
	Drags []interaction.DragIcon
}

// Emit builds the scene for in. It only reads its input.
func Emit(in Input) Scene {
	s := Scene{
		Frame:   in.Frame,
		Time:    in.Time,
		Mode:    in.Mode,
		Output:  in.Output,
		Entries: []Entry{},
	}

	focused := in.Stack.Focused()
	for _, id := range in.Stack.Order() {
		w, err := in.Registry.Get(id)
		if err != nil || !w.Visible() {
			continue
		}

		e := Entry{
			ID:       id,
			AppID:    w.AppID,
			Title:    w.Title,
			Surface:  w.Surface,
			Geometry: w.Current,
			Opacity:  1,
			Index:    len(s.Entries),
			Focused:  id == focused,
		}
		if in.Animations != nil {
			e.Geometry = in.Animations.Resolve(id, w.Current)
			if v, ok := in.Animations.Value(id, animation.Opacity); ok {
				e.Opacity = v.X
			}
			if v, ok := in.Animations.Value(id, animation.Scale); ok {
				e.Geometry.Scale = v.X
			}
		}
		if in.Mode == ModeExpose && in.Thumbnails != nil {
			_, e.Thumbnail = in.Thumbnails.Thumbnail(id)
		}

		s.Entries = append(s.Entries, e)
	}

	if in.Mode == ModeSwitcher && in.Dock != nil {
		if candidate, ok := in.Dock.Candidate(); ok {
			s.Switcher = &Switcher{
				Apps:      in.Dock.Model().Running,
				Candidate: candidate,
			}
		}
	}

	for _, d := range in.Drags {
		drag := Drag{Window: d.Window, Origin: d.Origin, At: d.At}
		if w, err := in.Registry.Get(d.Window); err == nil {
			drag.Surface = w.Surface
		}
		s.Drags = append(s.Drags, drag)
	}

	return s
}
