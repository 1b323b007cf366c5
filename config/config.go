package config

import (
	"bytes"
	"math/bits"
	"os"

	"github.com/achilleasa/polaris-lbvh/log"
	"github.com/achilleasa/polaris-lbvh/types"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// ErrInvalid is returned when a configuration value is out of range.
var ErrInvalid = errors.New("invalid configuration")

// Default build settings.
const (
	DefaultRadix       = 256
	DefaultBlockSize   = 1024
	DefaultAABBEpsilon = 0.001
	DefaultSceneExtent = 125.0
)

// Top level configuration.
type Config struct {
	Log   Log   `toml:"log"`
	Build Build `toml:"build"`
}

// Logging settings.
type Log struct {
	Level string `toml:"level"`
}

// Bounds of the fixed scene volume that centroids are quantized against.
type Bounds struct {
	Min types.Vec3 `toml:"min"`
	Max types.Vec3 `toml:"max"`
}

// Settings for the LBVH build pipeline.
type Build struct {
	// Fixed scene bound used for Morton quantization.
	SceneBounds Bounds `toml:"scene_bounds"`

	// Padding added to every triangle AABB.
	AABBEpsilon float32 `toml:"aabb_epsilon"`

	// Number of concurrent work groups; 0 uses every logical CPU.
	Workers int `toml:"workers"`

	// Work items per work group for the radix sort kernels.
	BlockSize int `toml:"block_size"`

	// Radix sort bucket count; a power of two in [2, 65536].
	Radix int `toml:"radix"`

	// Device memory limit in bytes; 0 disables the limit.
	MaxMemory uint64 `toml:"max_memory"`

	// Run the hierarchy validator after every build.
	ValidateOutput bool `toml:"validate"`
}

// Get the default configuration.
func Default() Config {
	return Config{
		Log: Log{Level: log.Notice.String()},
		Build: Build{
			SceneBounds: Bounds{
				Min: types.Splat3(-DefaultSceneExtent),
				Max: types.Splat3(DefaultSceneExtent),
			},
			AABBEpsilon: DefaultAABBEpsilon,
			BlockSize:   DefaultBlockSize,
			Radix:       DefaultRadix,
		},
	}
}

// Load a TOML configuration file on top of the defaults. Unknown keys are
// rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "config: could not read %q", path)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err = dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: could not parse %q", path)
	}

	return cfg, cfg.Validate()
}

// Serialize the configuration as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Check configuration values.
func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrapf(ErrInvalid, "log level: %v", err)
	}
	return c.Build.Validate()
}

// Check build settings.
func (b Build) Validate() error {
	// Every axis needs a non-empty extent for Morton quantization
	for axis := 0; axis < 3; axis++ {
		if !(b.SceneBounds.Min[axis] < b.SceneBounds.Max[axis]) {
			return errors.Wrapf(ErrInvalid, "scene bounds min %v must be below max %v on every axis", b.SceneBounds.Min, b.SceneBounds.Max)
		}
	}
	if b.AABBEpsilon < 0 {
		return errors.Wrapf(ErrInvalid, "aabb_epsilon must not be negative; got %f", b.AABBEpsilon)
	}
	if b.Workers < 0 {
		return errors.Wrapf(ErrInvalid, "workers must not be negative; got %d", b.Workers)
	}
	if b.BlockSize <= 0 {
		return errors.Wrapf(ErrInvalid, "block_size must be positive; got %d", b.BlockSize)
	}
	if b.Radix < 2 || b.Radix > 65536 || bits.OnesCount(uint(b.Radix)) != 1 {
		return errors.Wrapf(ErrInvalid, "radix must be a power of two in [2, 65536]; got %d", b.Radix)
	}
	// The radix sort keeps radix counters per block
	if b.BlockSize < b.Radix {
		return errors.Wrapf(ErrInvalid, "block_size (%d) must not be smaller than radix (%d)", b.BlockSize, b.Radix)
	}
	return nil
}
