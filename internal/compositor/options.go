package compositor

import (
	"fmt"
	"time"

	"github.com/ItsNotGoodName/composer/internal/animation"
	"github.com/ItsNotGoodName/composer/internal/config"
	"github.com/ItsNotGoodName/composer/internal/dock"
	"github.com/ItsNotGoodName/composer/internal/expose"
	"github.com/ItsNotGoodName/composer/internal/interaction"
	"github.com/ItsNotGoodName/composer/internal/window"
)

type Options struct {
	Output    window.Geometry
	FrameRate int
	Policy    interaction.Policy
	Expose    expose.Options
	DockGrace time.Duration
	Launchers []dock.Launcher
}

func DefaultOptions() Options {
	return Options{
		Output:    window.Rect(0, 0, 1920, 1080),
		FrameRate: 60,
		Policy:    interaction.DefaultPolicy(),
		Expose:    expose.DefaultOptions(),
		DockGrace: 2 * time.Second,
	}
}

// Interval is the time between ticks.
func (o Options) Interval() time.Duration {
	if o.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(o.FrameRate)
}

func OptionsFromConfig(cfg config.Config) (Options, error) {
	policyEasing, err := animation.Easing(cfg.Animation.Easing)
	if err != nil {
		return Options{}, fmt.Errorf("animation: %w", err)
	}
	exposeEasing, err := animation.Easing(cfg.Expose.Easing)
	if err != nil {
		return Options{}, fmt.Errorf("expose: %w", err)
	}

	launchers := make([]dock.Launcher, 0, len(cfg.Dock.Launchers))
	for _, l := range cfg.Dock.Launchers {
		launchers = append(launchers, dock.Launcher{
			UUID:  l.UUID,
			AppID: l.AppID,
			Name:  l.Name,
			Icon:  l.Icon,
			Exec:  l.Exec,
		})
	}

	return Options{
		Output:    window.Rect(0, 0, cfg.Output.Width, cfg.Output.Height),
		FrameRate: cfg.FrameRate,
		Policy: interaction.Policy{
			MinWidth:       cfg.Policy.MinWidth,
			MinHeight:      cfg.Policy.MinHeight,
			SnapDistance:   cfg.Policy.SnapDistance,
			SnapVelocity:   cfg.Policy.SnapVelocity,
			ReservedBottom: cfg.Policy.ReservedBottom,
			Duration:       time.Duration(cfg.Animation.DurationMS) * time.Millisecond,
			FadeDuration:   time.Duration(cfg.Animation.FadeDurationMS) * time.Millisecond,
			Easing:         policyEasing,
		},
		Expose: expose.Options{
			Gap:           cfg.Expose.Gap,
			Padding:       cfg.Expose.Padding,
			MaxDistortion: cfg.Expose.MaxDistortion,
			Duration:      time.Duration(cfg.Expose.DurationMS) * time.Millisecond,
			Easing:        exposeEasing,
		},
		DockGrace: time.Duration(cfg.Dock.GraceMS) * time.Millisecond,
		Launchers: launchers,
	}, nil
}
