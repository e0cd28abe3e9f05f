package compositor

import (
	"github.com/ItsNotGoodName/composer/internal/dock"
	"github.com/ItsNotGoodName/composer/internal/interaction"
	"github.com/ItsNotGoodName/composer/internal/scene"
	"github.com/ItsNotGoodName/composer/internal/window"
)

// Outbound notifications published on the bus at the end of a tick.
type (
	Frame struct {
		Scene scene.Scene `json:"scene"`
	}

	// Configure acknowledges the logical state of a window to its client.
	Configure struct {
		Serial     uint64            `json:"serial"`
		ID         window.ID         `json:"id"`
		Geometry   window.Geometry   `json:"geometry"`
		Visibility window.Visibility `json:"visibility"`
	}

	FocusChanged struct {
		From window.ID `json:"from"`
		To   window.ID `json:"to"`
	}

	StackingChanged struct {
		Order []window.ID `json:"order"`
	}

	CloseRequested struct {
		ID window.ID `json:"id"`
	}

	LaunchRequested struct {
		Launcher dock.Launcher `json:"launcher"`
	}

	DropPerformed struct {
		Source window.ID         `json:"source"`
		Target window.ID         `json:"target"`
		At     interaction.Point `json:"at"`
	}

	// AppInfoRequested asks the background resolver for the metadata of an app.
	AppInfoRequested struct {
		AppID string `json:"app_id"`
	}
)
