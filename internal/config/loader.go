package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/dealancer/validate.v2"
	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/carlaview/internal/core"
)

// FileName is the configuration file name looked up in the search path.
const FileName = "carlaview.yaml"

// SourceEmbedded is reported by Load when no file was found.
const SourceEmbedded = "embedded"

// Loader reads configuration files from a filesystem.
type Loader struct {
	Fs   afero.Fs
	Home func() (string, error)
}

// NewLoader returns a Loader over the real filesystem.
func NewLoader() *Loader {
	return &Loader{Fs: afero.NewOsFs(), Home: os.UserHomeDir}
}

// Load returns the configuration and the path it came from.
// Search order: customPath -> ~/.carlaview/carlaview.yaml ->
// ./configs/carlaview.yaml -> embedded default.
//
// A custom path must exist and be valid. Unreadable or invalid files in
// the search path are skipped.
func (l *Loader) Load(customPath string) (Config, string, error) {
	if customPath != "" {
		cfg, err := l.readFile(customPath)
		if err != nil {
			return Config{}, "", err
		}
		return cfg, customPath, nil
	}

	for _, path := range l.searchPath() {
		if cfg, err := l.readFile(path); err == nil {
			return cfg, path, nil
		}
	}

	cfg, err := Parse(defaultYAML)
	if err != nil {
		return Default(), SourceEmbedded, nil // Fallback to hardcoded if embed fails
	}
	return cfg, SourceEmbedded, nil
}

// UserPath returns ~/.carlaview/<name>, or empty if home is unavailable.
func (l *Loader) UserPath(name string) string {
	if l.Home == nil {
		return ""
	}
	home, err := l.Home()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".carlaview", name)
}

func (l *Loader) searchPath() []string {
	var paths []string
	if p := l.UserPath(FileName); p != "" {
		paths = append(paths, p)
	}
	return append(paths, filepath.Join("configs", FileName))
}

func (l *Loader) readFile(path string) (Config, error) {
	data, err := afero.ReadFile(l.Fs, path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func (l *Loader) Save(path string, cfg Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := l.Fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := afero.WriteFile(l.Fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Parse decodes a YAML document over the defaults and validates it.
// Keys missing from data keep their default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// Check validates field ranges from the struct tags. The validator
// calls Validate for the relations between fields.
func (c Config) Check() error {
	if err := validate.Validate(&c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate checks the relations between fields that tags cannot express.
func (c Config) Validate() error {
	var errs []error
	if err := c.DisplayConfig().Check(); err != nil {
		errs = append(errs, err)
	}
	if c.Model.CannyLow > c.Model.CannyHigh {
		errs = append(errs, fmt.Errorf("model: canny_low %v above canny_high %v",
			c.Model.CannyLow, c.Model.CannyHigh))
	}
	colors := map[string][]int{
		"sensors.point_color": c.Sensors.PointColor,
		"text.color":          c.Text.Color,
	}
	for name, rgb := range colors {
		if _, ok := core.ParseColor(rgb); !ok {
			errs = append(errs, fmt.Errorf("%s: want 3 components, got %d", name, len(rgb)))
		}
	}
	points := map[string][]int{
		"text.speed_position": c.Text.SpeedPosition,
		"text.angle_position": c.Text.AnglePosition,
	}
	for name, p := range points {
		if len(p) != 2 {
			errs = append(errs, fmt.Errorf("%s: want 2 components, got %d", name, len(p)))
		}
	}
	if c.Simulator.Timeout < 0 || c.Spawn.Delay < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
