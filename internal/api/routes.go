package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ItsNotGoodName/composer/internal/build"
	"github.com/ItsNotGoodName/composer/internal/bus"
	"github.com/ItsNotGoodName/composer/internal/compositor"
	"github.com/ItsNotGoodName/composer/internal/core"
	"github.com/ItsNotGoodName/composer/internal/dock"
	"github.com/ItsNotGoodName/composer/internal/expose"
	"github.com/ItsNotGoodName/composer/internal/interaction"
	"github.com/ItsNotGoodName/composer/internal/scene"
	"github.com/ItsNotGoodName/composer/internal/window"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
)

type (
	Rect struct {
		X     float64  `json:"x"`
		Y     float64  `json:"y"`
		W     float64  `json:"w" minimum:"0"`
		H     float64  `json:"h" minimum:"0"`
		Scale *float64 `json:"scale,omitempty" minimum:"0" doc:"Defaults to 1"`
	}

	WindowPath struct {
		ID uint32 `path:"id" minimum:"1"`
	}

	GesturePath struct {
		Gesture uint32 `path:"gesture"`
	}

	AppPath struct {
		AppID string `path:"app"`
	}
)

// Geometry converts r, defaulting a missing scale to 1.
func (r Rect) Geometry() window.Geometry {
	return window.Geometry{X: r.X, Y: r.Y, W: r.W, H: r.H, Scale: core.Optional(r.Scale, 1)}
}

type (
	SceneOutput struct {
		Body scene.Scene
	}

	WindowsOutput struct {
		Body []window.Window
	}

	WindowOutput struct {
		Body window.Window
	}

	DockOutput struct {
		Body dock.Model
	}

	ExposeOutput struct {
		Body []expose.Thumb
	}

	VersionOutput struct {
		Body build.Build
	}

	MapWindowInput struct {
		Body struct {
			ID       uint32 `json:"id" minimum:"1"`
			AppID    string `json:"app_id"`
			Title    string `json:"title,omitempty"`
			Kind     string `json:"kind,omitempty" enum:"toplevel,popup,transient"`
			Parent   uint32 `json:"parent,omitempty"`
			Surface  uint64 `json:"surface,omitempty"`
			Geometry Rect   `json:"geometry"`
		}
	}

	TitleInput struct {
		WindowPath
		Body struct {
			Title string `json:"title"`
		}
	}

	ConfigureInput struct {
		WindowPath
		Body struct {
			Geometry Rect `json:"geometry"`
		}
	}

	StateInput struct {
		WindowPath
		Body struct {
			Visibility string `json:"visibility" enum:"normal,minimized,maximized,fullscreen"`
		}
	}

	PointerBeginInput struct {
		GesturePath
		Body struct {
			Window    uint32   `json:"window,omitempty" doc:"Window under the pointer, hit-tested when omitted"`
			Action    string   `json:"action,omitempty" enum:"move,resize,drag"`
			Edges     []string `json:"edges,omitempty" doc:"Any of top, bottom, left and right"`
			X         float64  `json:"x"`
			Y         float64  `json:"y"`
			Modifiers []string `json:"modifiers,omitempty"`
		}
	}

	PointerInput struct {
		GesturePath
		Body struct {
			X         float64  `json:"x"`
			Y         float64  `json:"y"`
			Modifiers []string `json:"modifiers,omitempty"`
		}
	}

	ExposeInput struct {
		Body struct {
			ID uint32 `json:"id" minimum:"1"`
		}
	}

	ExposeGestureInput struct {
		Body struct {
			Delta float64 `json:"delta" doc:"fraction of a full swipe, positive opens"`
			End   bool    `json:"end,omitempty"`
		}
	}

	SwitcherInput struct {
		Action string `path:"action" enum:"next,previous,commit,cancel,quit"`
	}

	AppInfoInput struct {
		AppPath
		Body struct {
			Name string `json:"name"`
			Icon string `json:"icon,omitempty"`
			Exec string `json:"exec,omitempty"`
		}
	}

	OutputInput struct {
		Body struct {
			Width  float64 `json:"width" exclusiveMinimum:"0"`
			Height float64 `json:"height" exclusiveMinimum:"0"`
		}
	}

	EventsInput struct {
		Frames bool `query:"frames" default:"true" doc:"Include frame events"`
	}
)

// Register adds every operation to api.
func Register(api huma.API, c Compositor, events *bus.Hub[any]) {
	huma.Register(api, huma.Operation{
		OperationID: "get-scene",
		Method:      http.MethodGet,
		Path:        "/api/scene",
		Summary:     "Get the last emitted scene",
		Tags:        []string{"Scene"},
	}, func(ctx context.Context, input *struct{}) (*SceneOutput, error) {
		return &SceneOutput{Body: c.Latest().Scene}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-windows",
		Method:      http.MethodGet,
		Path:        "/api/windows",
		Summary:     "List windows",
		Tags:        []string{"Windows"},
	}, func(ctx context.Context, input *struct{}) (*WindowsOutput, error) {
		windows := c.Latest().Windows
		if windows == nil {
			windows = []window.Window{}
		}
		return &WindowsOutput{Body: windows}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-window",
		Method:      http.MethodGet,
		Path:        "/api/windows/{id}",
		Summary:     "Get window",
		Tags:        []string{"Windows"},
	}, func(ctx context.Context, input *WindowPath) (*WindowOutput, error) {
		for _, w := range c.Latest().Windows {
			if w.ID == window.ID(input.ID) {
				return &WindowOutput{Body: w}, nil
			}
		}
		return nil, huma.Error404NotFound(fmt.Sprintf("window %d not found", input.ID))
	})

	accept(api, c, "map-window", http.MethodPost, "/api/windows", "Map a window", "Windows", func(input *MapWindowInput) (compositor.Message, error) {
		kind, err := window.ParseKind(input.Body.Kind)
		if err != nil {
			return nil, err
		}
		return compositor.WindowMapped{
			ID:       window.ID(input.Body.ID),
			AppID:    input.Body.AppID,
			Title:    input.Body.Title,
			Kind:     kind,
			Parent:   window.ID(input.Body.Parent),
			Surface:  window.SurfaceID(input.Body.Surface),
			Geometry: input.Body.Geometry.Geometry(),
		}, nil
	})

	accept(api, c, "unmap-window", http.MethodDelete, "/api/windows/{id}", "Unmap a window", "Windows", func(input *WindowPath) (compositor.Message, error) {
		return compositor.WindowUnmapped{ID: window.ID(input.ID)}, nil
	})

	accept(api, c, "set-window-title", http.MethodPost, "/api/windows/{id}/title", "Change a window title", "Windows", func(input *TitleInput) (compositor.Message, error) {
		return compositor.WindowTitleChanged{ID: window.ID(input.ID), Title: input.Body.Title}, nil
	})

	accept(api, c, "close-window", http.MethodPost, "/api/windows/{id}/close", "Ask a window to close", "Windows", func(input *WindowPath) (compositor.Message, error) {
		return compositor.WindowRequestsClose{ID: window.ID(input.ID)}, nil
	})

	accept(api, c, "configure-window", http.MethodPost, "/api/windows/{id}/configure", "Request a window geometry", "Windows", func(input *ConfigureInput) (compositor.Message, error) {
		return compositor.WindowConfigureRequested{ID: window.ID(input.ID), Geometry: input.Body.Geometry.Geometry()}, nil
	})

	accept(api, c, "set-window-state", http.MethodPost, "/api/windows/{id}/state", "Maximize, fullscreen, minimize or restore a window", "Windows", func(input *StateInput) (compositor.Message, error) {
		v, err := window.ParseVisibility(input.Body.Visibility)
		if err != nil {
			return nil, err
		}
		return compositor.WindowStateRequested{ID: window.ID(input.ID), Visibility: v}, nil
	})

	accept(api, c, "focus-window", http.MethodPost, "/api/windows/{id}/focus", "Focus a window", "Windows", func(input *WindowPath) (compositor.Message, error) {
		return compositor.FocusRequested{ID: window.ID(input.ID)}, nil
	})

	accept(api, c, "raise-window", http.MethodPost, "/api/windows/{id}/raise", "Raise a window", "Windows", func(input *WindowPath) (compositor.Message, error) {
		return compositor.RaiseRequested{ID: window.ID(input.ID)}, nil
	})

	accept(api, c, "pointer-begin", http.MethodPost, "/api/pointer/{gesture}/begin", "Begin a pointer gesture", "Pointer", func(input *PointerBeginInput) (compositor.Message, error) {
		action, err := compositor.ParseAction(input.Body.Action)
		if err != nil {
			return nil, err
		}
		edge, err := parseEdges(input.Body.Edges)
		if err != nil {
			return nil, err
		}
		mods, err := compositor.ParseModifiers(input.Body.Modifiers)
		if err != nil {
			return nil, err
		}
		return compositor.PointerBegin{
			Gesture:   interaction.GestureID(input.Gesture),
			Window:    window.ID(input.Body.Window),
			Action:    action,
			Edge:      edge,
			At:        interaction.Point{X: input.Body.X, Y: input.Body.Y},
			Modifiers: mods,
		}, nil
	})

	accept(api, c, "pointer-update", http.MethodPost, "/api/pointer/{gesture}/update", "Move a pointer gesture", "Pointer", func(input *PointerInput) (compositor.Message, error) {
		mods, err := compositor.ParseModifiers(input.Body.Modifiers)
		if err != nil {
			return nil, err
		}
		return compositor.PointerUpdate{
			Gesture:   interaction.GestureID(input.Gesture),
			At:        interaction.Point{X: input.Body.X, Y: input.Body.Y},
			Modifiers: mods,
		}, nil
	})

	accept(api, c, "pointer-end", http.MethodPost, "/api/pointer/{gesture}/end", "End a pointer gesture", "Pointer", func(input *PointerInput) (compositor.Message, error) {
		mods, err := compositor.ParseModifiers(input.Body.Modifiers)
		if err != nil {
			return nil, err
		}
		return compositor.PointerEnd{
			Gesture:   interaction.GestureID(input.Gesture),
			At:        interaction.Point{X: input.Body.X, Y: input.Body.Y},
			Modifiers: mods,
		}, nil
	})

	accept(api, c, "pointer-cancel", http.MethodPost, "/api/pointer/{gesture}/cancel", "Cancel a pointer gesture", "Pointer", func(input *GesturePath) (compositor.Message, error) {
		return compositor.PointerCancel{Gesture: interaction.GestureID(input.Gesture)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-expose",
		Method:      http.MethodGet,
		Path:        "/api/expose",
		Summary:     "Get the overview layout",
		Tags:        []string{"Expose"},
	}, func(ctx context.Context, input *struct{}) (*ExposeOutput, error) {
		return &ExposeOutput{Body: c.Latest().Expose}, nil
	})

	accept(api, c, "toggle-expose", http.MethodPost, "/api/expose/toggle", "Open or close the overview", "Expose", func(input *struct{}) (compositor.Message, error) {
		return compositor.ExposeToggled{}, nil
	})

	accept(api, c, "select-expose", http.MethodPost, "/api/expose/select", "Select a window in the overview", "Expose", func(input *ExposeInput) (compositor.Message, error) {
		return compositor.ExposeSelected{ID: window.ID(input.Body.ID)}, nil
	})

	accept(api, c, "preview-expose", http.MethodPost, "/api/expose/preview", "Raise a window in the overview", "Expose", func(input *ExposeInput) (compositor.Message, error) {
		return compositor.ExposePreviewed{ID: window.ID(input.Body.ID)}, nil
	})

	accept(api, c, "swipe-expose", http.MethodPost, "/api/expose/gesture", "Swipe the overview open or closed", "Expose", func(input *ExposeGestureInput) (compositor.Message, error) {
		return compositor.ExposeGesture{Delta: input.Body.Delta, End: input.Body.End}, nil
	})

	accept(api, c, "toggle-desktop", http.MethodPost, "/api/desktop/toggle", "Slide every window off-screen or bring them back", "Expose", func(input *struct{}) (compositor.Message, error) {
		return compositor.ShowDesktopToggled{}, nil
	})

	accept(api, c, "switcher", http.MethodPost, "/api/switcher/{action}", "Drive the application switcher", "Dock", func(input *SwitcherInput) (compositor.Message, error) {
		switch input.Action {
		case "next":
			return compositor.SwitcherNext{}, nil
		case "previous":
			return compositor.SwitcherPrevious{}, nil
		case "commit":
			return compositor.SwitcherCommit{}, nil
		case "cancel":
			return compositor.SwitcherCancel{}, nil
		case "quit":
			return compositor.SwitcherQuit{}, nil
		default:
			return nil, fmt.Errorf("%w: switcher action %q", window.ErrInvalidState, input.Action)
		}
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dock",
		Method:      http.MethodGet,
		Path:        "/api/dock",
		Summary:     "Get the dock",
		Tags:        []string{"Dock"},
	}, func(ctx context.Context, input *struct{}) (*DockOutput, error) {
		return &DockOutput{Body: c.Latest().Dock}, nil
	})

	accept(api, c, "activate-app", http.MethodPost, "/api/dock/{app}/activate", "Activate or launch an application", "Dock", func(input *AppPath) (compositor.Message, error) {
		return compositor.DockActivated{AppID: input.AppID}, nil
	})

	accept(api, c, "close-app", http.MethodPost, "/api/dock/{app}/close", "Close every window of an application", "Dock", func(input *AppPath) (compositor.Message, error) {
		return compositor.DockClosed{AppID: input.AppID}, nil
	})

	accept(api, c, "set-app-info", http.MethodPost, "/api/dock/{app}/info", "Set application name and icon", "Dock", func(input *AppInfoInput) (compositor.Message, error) {
		return compositor.AppIconResolved{AppID: input.AppID, Name: input.Body.Name, Icon: input.Body.Icon, Exec: input.Body.Exec}, nil
	})

	accept(api, c, "resize-output", http.MethodPost, "/api/output", "Resize the output", "Output", func(input *OutputInput) (compositor.Message, error) {
		return compositor.OutputResized{Width: input.Body.Width, Height: input.Body.Height}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Get build information",
		Tags:        []string{"Meta"},
	}, func(ctx context.Context, input *struct{}) (*VersionOutput, error) {
		return &VersionOutput{Body: build.Current}, nil
	})

	sse.Register(api, huma.Operation{
		OperationID: "events",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Stream outbound notifications",
		Tags:        []string{"Scene"},
	}, map[string]any{
		"frame":     compositor.Frame{},
		"configure": compositor.Configure{},
		"focus":     compositor.FocusChanged{},
		"stacking":  compositor.StackingChanged{},
		"close":     compositor.CloseRequested{},
		"launch":    compositor.LaunchRequested{},
		"drop":      compositor.DropPerformed{},
	}, func(ctx context.Context, input *EventsInput, send sse.Sender) {
		eventC, unsubscribe := events.Subscribe(64)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventC:
				if _, ok := event.(compositor.Frame); ok && !input.Frames {
					continue
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

// accept registers an operation that queues a message and answers 202 Accepted.
func accept[I any](api huma.API, c Compositor, id, method, path, summary, tag string, fn func(input *I) (compositor.Message, error)) {
	huma.Register(api, huma.Operation{
		OperationID:   id,
		Method:        method,
		Path:          path,
		Summary:       summary,
		Tags:          []string{tag},
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *I) (*struct{}, error) {
		msg, err := fn(input)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		c.Push(msg)
		return nil, nil
	})
}

func parseEdges(names []string) (interaction.Edge, error) {
	var edge interaction.Edge
	for _, name := range names {
		switch name {
		case "top":
			edge |= interaction.EdgeTop
		case "bottom":
			edge |= interaction.EdgeBottom
		case "left":
			edge |= interaction.EdgeLeft
		case "right":
			edge |= interaction.EdgeRight
		default:
			return 0, fmt.Errorf("%w: unknown edge %q", window.ErrInvalidState, name)
		}
	}
	return edge, nil
}
