package config

var defaultConfig = Config{
	Output: Output{
		Width:  1920,
		Height: 1080,
	},
	FrameRate: 60,
	Policy: Policy{
		MinWidth:       64,
		MinHeight:      48,
		SnapDistance:   16,
		SnapVelocity:   1200,
		ReservedBottom: 0,
	},
	Animation: Animation{
		DurationMS:     250,
		FadeDurationMS: 150,
		Easing:         "out-cubic",
	},
	Expose: Expose{
		Gap:           24,
		Padding:       48,
		MaxDistortion: 1.15,
		DurationMS:    300,
		Easing:        "out-cubic",
	},
	Dock: Dock{
		GraceMS:   2000,
		Launchers: []Launcher{},
	},
	AppInfo: AppInfo{
		Dirs:     []string{"/usr/share/applications", "/usr/local/share/applications"},
		IconDirs: []string{"/usr/share/icons/hicolor/48x48/apps", "/usr/share/pixmaps"},
	},
}

type Config struct {
	Output    Output    `json:"output" yaml:"output"`
	FrameRate int       `json:"frame_rate" yaml:"frame_rate"`
	Policy    Policy    `json:"policy" yaml:"policy"`
	Animation Animation `json:"animation" yaml:"animation"`
	Expose    Expose    `json:"expose" yaml:"expose"`
	Dock      Dock      `json:"dock" yaml:"dock"`
	AppInfo   AppInfo   `json:"appinfo" yaml:"appinfo"`
}

type Output struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

type Policy struct {
	MinWidth       float64 `json:"min_width" yaml:"min_width"`
	MinHeight      float64 `json:"min_height" yaml:"min_height"`
	SnapDistance   float64 `json:"snap_distance" yaml:"snap_distance"`
	SnapVelocity   float64 `json:"snap_velocity" yaml:"snap_velocity"`
	ReservedBottom float64 `json:"reserved_bottom" yaml:"reserved_bottom"`
}

type Animation struct {
	DurationMS     int    `json:"duration_ms" yaml:"duration_ms"`
	FadeDurationMS int    `json:"fade_duration_ms" yaml:"fade_duration_ms"`
	Easing         string `json:"easing" yaml:"easing"`
}

type Expose struct {
	Gap           float64 `json:"gap" yaml:"gap"`
	Padding       float64 `json:"padding" yaml:"padding"`
	MaxDistortion float64 `json:"max_distortion" yaml:"max_distortion"`
	DurationMS    int     `json:"duration_ms" yaml:"duration_ms"`
	Easing        string  `json:"easing" yaml:"easing"`
}

type Dock struct {
	// GraceMS is how long a closed application stays in the dock. Zero keeps it until
	// it is closed from the dock.
	GraceMS   int        `json:"grace_ms" yaml:"grace_ms"`
	Launchers []Launcher `json:"launchers" yaml:"launchers"`
}

type Launcher struct {
	UUID  string `json:"uuid" yaml:"uuid"`
	AppID string `json:"app_id" yaml:"app_id"`
	Name  string `json:"name" yaml:"name"`
	Icon  string `json:"icon" yaml:"icon"`
	Exec  string `json:"exec" yaml:"exec"`
}

type AppInfo struct {
	Dirs     []string `json:"dirs" yaml:"dirs"`
	IconDirs []string `json:"icon_dirs" yaml:"icon_dirs"`
}

// Default returns a copy of the default configuration.
func Default() Config {
	cfg := defaultConfig
	cfg.Dock.Launchers = []Launcher{}
	cfg.AppInfo.Dirs = append([]string(nil), defaultConfig.AppInfo.Dirs...)
	cfg.AppInfo.IconDirs = append([]string(nil), defaultConfig.AppInfo.IconDirs...)
	return cfg
}
