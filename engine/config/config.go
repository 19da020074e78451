package config

import (
	"io"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned by Validate when a value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the engine configuration, normally read from a TOML file.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Scene     SceneConfig     `toml:"scene"`
	Animation AnimationConfig `toml:"animation"`
	Assets    AssetsConfig    `toml:"assets"`
}

// LogConfig configures the process-wide logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// SceneConfig sizes the worker pool that updates animators.
type SceneConfig struct {
	// Workers is the upper bound of concurrent animator updates.
	Workers int `toml:"workers"`

	// QueueSize is the task queue capacity of the pool.
	QueueSize int `toml:"queue_size"`

	// ProfileInterval enables frame statistics when non-empty, e.g. "5s".
	ProfileInterval string `toml:"profile_interval,omitempty"`
}

// AnimationConfig holds animator defaults.
type AnimationConfig struct {
	// DefaultSpeed is the playback speed new animators start with.
	DefaultSpeed float64 `toml:"default_speed"`
}

// AssetsConfig tells the loader where rigs live.
type AssetsConfig struct {
	// Dir is the directory holding YAML and glTF rigs.
	Dir string `toml:"dir"`

	// Watch enables hot reload of rigs under Dir.
	Watch bool `toml:"watch"`

	// Pack is an optional resource pack written by rig-packer.
	Pack string `toml:"pack,omitempty"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Scene: SceneConfig{
			Workers:   runtime.NumCPU(),
			QueueSize: 256,
		},
		Animation: AnimationConfig{DefaultSpeed: 1},
		Assets:    AssetsConfig{Dir: "assets"},
	}
}

// Load reads a TOML file on top of Default and validates the result.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Config: the loaded configuration
//   - error: error if the file cannot be read, has unknown keys, or fails validation
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Decode reads TOML from r on top of Default and validates the result.
//
// Parameters:
//   - r: the TOML source
//
// Returns:
//   - Config: the decoded configuration
//   - error: error if decoding or validation fails
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
//
// Parameters:
//   - w: the destination
//
// Returns:
//   - error: error if encoding fails
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks every value for range errors.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig, or nil
func (c Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Wrapf(ErrInvalidConfig, "log.level %q", c.Log.Level)
	}
	if c.Scene.Workers < 1 {
		return errors.Wrapf(ErrInvalidConfig, "scene.workers must be at least 1, got %d", c.Scene.Workers)
	}
	if c.Scene.QueueSize < 1 {
		return errors.Wrapf(ErrInvalidConfig, "scene.queue_size must be at least 1, got %d", c.Scene.QueueSize)
	}
	if c.Animation.DefaultSpeed < 0 {
		return errors.Wrapf(ErrInvalidConfig, "animation.default_speed must not be negative, got %g", c.Animation.DefaultSpeed)
	}
	if c.Assets.Watch && c.Assets.Dir == "" {
		return errors.Wrap(ErrInvalidConfig, "assets.watch needs assets.dir")
	}
	return nil
}
