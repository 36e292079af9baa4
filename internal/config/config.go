// Package config loads the rescuephoto server configuration
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Environment variables read by Load
const (
	EnvConfigPath = "RESCUEPHOTO_CONFIG"
	EnvPort       = "PORT"
)

// Config holds server settings
type Config struct {
	Port           string   `toml:"port"`
	ImageDir       string   `toml:"image_dir"`
	DatabasePath   string   `toml:"database_path"`
	Threshold      float64  `toml:"threshold"`
	MaxDistance    int      `toml:"max_distance"`
	MaxUploadBytes int64    `toml:"max_upload_bytes"`
	Workers        int      `toml:"workers"`
	Resampler      string   `toml:"resampler"`
	Filter         string   `toml:"filter"`
	CacheTTL       Duration `toml:"cache_ttl"`
	CacheCleanup   Duration `toml:"cache_cleanup"`
}

// Duration is a time.Duration that decodes from strings like "5m"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Port:           "8080",
		ImageDir:       "./images",
		DatabasePath:   "./rescuephoto.db",
		Threshold:      85.0,
		MaxDistance:    10,
		MaxUploadBytes: 10 << 20,
		Workers:        4,
		Resampler:      "imaging",
		Filter:         "linear",
		CacheTTL:       Duration{5 * time.Minute},
		CacheCleanup:   Duration{10 * time.Minute},
	}
}

// Load reads the TOML file named by RESCUEPHOTO_CONFIG on top of the
// defaults, then applies PORT. A missing variable means defaults only.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigPath); path != "" {
		var err error
		cfg, err = LoadFile(path)
		if err != nil {
			return Config{}, err
		}
	}
	if port := os.Getenv(EnvPort); port != "" {
		cfg.Port = port
	}
	return cfg, cfg.Validate()
}

// LoadFile decodes a TOML file over the defaults
func LoadFile(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	return cfg, cfg.Validate()
}

// Validate rejects out-of-range settings
func (c Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("port must be set")
	case c.ImageDir == "":
		return errors.New("image_dir must be set")
	case c.Threshold < 0 || c.Threshold > 100:
		return errors.Errorf("threshold %.2f out of range 0-100", c.Threshold)
	case c.MaxDistance < 0 || c.MaxDistance > 64:
		return errors.Errorf("max_distance %d out of range 0-64", c.MaxDistance)
	case c.MaxUploadBytes <= 0:
		return errors.New("max_upload_bytes must be positive")
	case c.Workers < 1:
		return errors.New("workers must be at least 1")
	case c.CacheTTL.Duration <= 0:
		return errors.New("cache_ttl must be positive")
	}
	return nil
}

// Addr returns the listen address for Port
func (c Config) Addr() string {
	return ":" + c.Port
}
