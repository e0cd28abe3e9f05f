package window

import (
	"fmt"
	"math"
	"strings"
)

// ID identifies a client window. The zero ID is never a valid window.
type ID uint32

const None ID = 0

// SurfaceID references rendering content owned by the renderer.
type SurfaceID uint64

type Kind int

const (
	KindToplevel Kind = iota
	KindPopup
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindToplevel:
		return "toplevel"
	case KindPopup:
		return "popup"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "toplevel":
		return KindToplevel, nil
	case "popup":
		return KindPopup, nil
	case "transient":
		return KindTransient, nil
	default:
		return 0, fmt.Errorf("%w: unknown window kind %q", ErrInvalidState, s)
	}
}

type Visibility int

const (
	Normal Visibility = iota
	Minimized
	Maximized
	Fullscreen
)

func (v Visibility) String() string {
	switch v {
	case Normal:
		return "normal"
	case Minimized:
		return "minimized"
	case Maximized:
		return "maximized"
	case Fullscreen:
		return "fullscreen"
	default:
		return "unknown"
	}
}

func (v Visibility) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToLower(s) {
	case "normal":
		return Normal, nil
	case "minimized":
		return Minimized, nil
	case "maximized":
		return Maximized, nil
	case "fullscreen":
		return Fullscreen, nil
	default:
		return 0, fmt.Errorf("%w: unknown visibility %q", ErrInvalidState, s)
	}
}

// Geometry is a rectangle in screen space plus a uniform scale.
type Geometry struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Scale float64 `json:"scale"`
}

func Rect(x, y, w, h float64) Geometry {
	return Geometry{X: x, Y: y, W: w, H: h, Scale: 1}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Valid reports whether every component is finite and the size and scale are non-negative.
func (g Geometry) Valid() bool {
	return finite(g.X) && finite(g.Y) && finite(g.W) && finite(g.H) && finite(g.Scale) &&
		g.W >= 0 && g.H >= 0 && g.Scale >= 0
}

func (g Geometry) Contains(x, y float64) bool {
	return g.X <= x && x < g.X+g.W && g.Y <= y && y < g.Y+g.H
}

func (g Geometry) Overlaps(o Geometry) bool {
	return g.X < o.X+o.W && o.X < g.X+g.W && g.Y < o.Y+o.H && o.Y < g.Y+g.H
}

func (g Geometry) String() string {
	return fmt.Sprintf("%gx%g+%g+%g@%g", g.W, g.H, g.X, g.Y, g.Scale)
}

type Window struct {
	ID      ID        `json:"id"`
	AppID   string    `json:"app_id"`
	Title   string    `json:"title"`
	Kind    Kind      `json:"kind"`
	Parent  ID        `json:"parent,omitempty"`
	Surface SurfaceID `json:"surface"`
	// Geometry is the logical geometry negotiated with the client.
	Geometry Geometry `json:"geometry"`
	// Current is the visual resting geometry. It trails Geometry while a transition runs.
	Current Geometry `json:"current"`
	// Restore is where the window returns when it leaves Maximized or Fullscreen.
	Restore    Geometry   `json:"restore"`
	Visibility Visibility `json:"visibility"`
	Mapped     bool       `json:"mapped"`
}

// Visible reports whether the window takes part in the scene.
func (w Window) Visible() bool {
	return w.Mapped && w.Visibility != Minimized
}

func (w Window) String() string {
	return fmt.Sprintf("window.Window(id=%d, app=%s)", w.ID, w.AppID)
}
