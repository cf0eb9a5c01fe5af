package visualizer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/visualizer/instance"
	"github.com/gogpu/visualizer/text"
)

// Configuration errors.
var (
	// ErrInvalidConfig is returned by Validate for out-of-range settings.
	ErrInvalidConfig = errors.New("visualizer: invalid config")

	// ErrUnsupportedConfigFormat is returned by LoadConfig for files that
	// are neither TOML nor YAML.
	ErrUnsupportedConfigFormat = errors.New("visualizer: unsupported config format")
)

// Config holds the engine settings. The zero value is not valid; start from
// DefaultConfig.
type Config struct {
	Instances InstancesConfig `toml:"instances" yaml:"instances"`
	Atlas     AtlasConfig     `toml:"atlas" yaml:"atlas"`
	Text      TextConfig      `toml:"text" yaml:"text"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`

	// Frames is the number of frames the demo driver runs.
	Frames int `toml:"frames" yaml:"frames"`
}

// InstancesConfig sizes the instance attribute buffers.
type InstancesConfig struct {
	InitialCapacity uint32 `toml:"initial_capacity" yaml:"initial_capacity"`
	GrowthFactor    uint32 `toml:"growth_factor" yaml:"growth_factor"`
}

// AtlasConfig sizes the glyph atlas. A zero BitmapCacheSize uses the
// default size and a negative one disables the bitmap cache.
type AtlasConfig struct {
	InitialSize     uint64 `toml:"initial_size" yaml:"initial_size"`
	GrowthIncrement uint64 `toml:"growth_increment" yaml:"growth_increment"`
	BitmapCacheSize int    `toml:"bitmap_cache_size" yaml:"bitmap_cache_size"`
}

// TextConfig selects the font. An empty FontPath uses Go Regular.
type TextConfig struct {
	FontPath string  `toml:"font_path" yaml:"font_path"`
	Scale    float32 `toml:"scale" yaml:"scale"`
}

// LoggingConfig sets up the logger of the demo driver. Format is "console"
// or "json".
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		Instances: InstancesConfig{
			InitialCapacity: instance.DefaultInitialCapacity,
			GrowthFactor:    instance.DefaultGrowthFactor,
		},
		Atlas: AtlasConfig{
			InitialSize:     text.DefaultAtlasSize,
			GrowthIncrement: text.DefaultAtlasGrowth,
			BitmapCacheSize: text.DefaultBitmapCacheSize,
		},
		Text:    TextConfig{Scale: 16},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Frames:  60,
	}
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.Instances.InitialCapacity == 0:
		return fmt.Errorf("%w: instances.initial_capacity must be positive", ErrInvalidConfig)
	case c.Instances.GrowthFactor == 0:
		return fmt.Errorf("%w: instances.growth_factor must be positive", ErrInvalidConfig)
	case c.Atlas.InitialSize == 0:
		return fmt.Errorf("%w: atlas.initial_size must be positive", ErrInvalidConfig)
	case c.Atlas.GrowthIncrement == 0:
		return fmt.Errorf("%w: atlas.growth_increment must be positive", ErrInvalidConfig)
	case c.Text.Scale <= 0:
		return fmt.Errorf("%w: text.scale must be positive", ErrInvalidConfig)
	case c.Frames < 0:
		return fmt.Errorf("%w: frames must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return fmt.Errorf("%w: logging.level: %w", ErrInvalidConfig, err)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (c LoggingConfig) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	err := l.UnmarshalText([]byte(c.Level))
	return l, err
}

// LoadConfig reads a TOML (.toml) or YAML (.yaml, .yml) file over
// DefaultConfig and validates the result. Settings missing from the file
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedConfigFormat, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) instanceConfig(logger *slog.Logger) instance.Config {
	return instance.Config{
		InitialCapacity: c.Instances.InitialCapacity,
		GrowthFactor:    c.Instances.GrowthFactor,
		Logger:          logger,
	}
}

func (c Config) atlasConfig(logger *slog.Logger) text.AtlasConfig {
	return text.AtlasConfig{
		InitialSize:     c.Atlas.InitialSize,
		GrowthIncrement: c.Atlas.GrowthIncrement,
		BitmapCacheSize: c.Atlas.BitmapCacheSize,
		Logger:          logger,
	}
}
