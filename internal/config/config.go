package config

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Driver interface {
	Exists() (bool, error)
	Write(config Config) error
	Read() (Config, error)
}

// NewDriver picks a file driver from the extension of filePath.
func NewDriver(filePath string) Driver {
	if strings.EqualFold(filepath.Ext(filePath), ".json") {
		return NewJSON(filePath)
	}
	return NewYAML(filePath)
}

func NewStore(driver Driver) (*Store, error) {
	exists, err := driver.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := driver.Write(Default()); err != nil {
			return nil, err
		}
	}

	return &Store{
		driver: driver,
	}, nil
}

type Store struct {
	mu     sync.Mutex
	driver Driver
}

func (p *Store) GetConfig() (Config, error) {
	return p.driver.Read()
}

func (p *Store) UpdateConfig(fn func(cfg Config) (Config, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg, err := p.driver.Read()
	if err != nil {
		return err
	}

	cfg, err = fn(cfg)
	if err != nil {
		return err
	}

	return p.driver.Write(cfg)
}

// Normalize fills missing values with defaults and gives every launcher a UUID.
func Normalize(store *Store) error {
	return store.UpdateConfig(func(cfg Config) (Config, error) {
		return normalize(cfg), nil
	})
}

func normalize(cfg Config) Config {
	def := defaultConfig

	if cfg.Output.Width <= 0 || cfg.Output.Height <= 0 {
		cfg.Output = def.Output
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = def.FrameRate
	}

	if cfg.Policy.MinWidth <= 0 {
		cfg.Policy.MinWidth = def.Policy.MinWidth
	}
	if cfg.Policy.MinHeight <= 0 {
		cfg.Policy.MinHeight = def.Policy.MinHeight
	}
	if cfg.Policy.SnapDistance < 0 {
		cfg.Policy.SnapDistance = def.Policy.SnapDistance
	}
	if cfg.Policy.SnapVelocity < 0 {
		cfg.Policy.SnapVelocity = def.Policy.SnapVelocity
	}

	if cfg.Animation.Easing == "" {
		cfg.Animation.Easing = def.Animation.Easing
	}
	if cfg.Expose.Easing == "" {
		cfg.Expose.Easing = def.Expose.Easing
	}
	if cfg.Expose.MaxDistortion < 1 {
		cfg.Expose.MaxDistortion = def.Expose.MaxDistortion
	}

	if cfg.Dock.Launchers == nil {
		cfg.Dock.Launchers = []Launcher{}
	}
	for i := range cfg.Dock.Launchers {
		if cfg.Dock.Launchers[i].UUID == "" {
			cfg.Dock.Launchers[i].UUID = uuid.NewString()
		}
		if cfg.Dock.Launchers[i].Name == "" {
			cfg.Dock.Launchers[i].Name = cfg.Dock.Launchers[i].AppID
		}
	}

	return cfg
}
