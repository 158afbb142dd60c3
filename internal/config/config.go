// Package config holds hwpcat configuration, loaded by viper from flags,
// HWPCAT_* environment variables and an optional TOML file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/hanpama/hwarang"
)

// Config holds app configuration
type Config struct {
	// Tables is "text" (one line per cell paragraph) or "grid" (ASCII borders).
	Tables    string `mapstructure:"tables"`
	Normalize bool   `mapstructure:"normalize"`

	// Workers bounds batch concurrency; zero means one per CPU.
	Workers       int   `mapstructure:"workers"`
	MaxFileSize   int64 `mapstructure:"max_file_size"`
	MaxStreamSize int64 `mapstructure:"max_stream_size"`

	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tables", "text")
	v.SetDefault("normalize", false)
	v.SetDefault("workers", 0)
	v.SetDefault("max_file_size", hwarang.DefaultMaxFileSize)
	v.SetDefault("max_stream_size", 0)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_output_dir", "")
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.TableMode(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TableMode parses the tables setting.
func (c *Config) TableMode() (hwarang.TableMode, error) {
	switch strings.ToLower(c.Tables) {
	case "", "text":
		return hwarang.TableText, nil
	case "grid":
		return hwarang.TableGrid, nil
	}
	return 0, fmt.Errorf("invalid tables mode %q (want text or grid)", c.Tables)
}

// Extractor returns the library configuration for c.
func (c *Config) Extractor() hwarang.Config {
	mode, _ := c.TableMode()
	return hwarang.Config{
		MaxFileSize:   c.MaxFileSize,
		MaxStreamSize: c.MaxStreamSize,
		Workers:       c.Workers,
		Tables:        mode,
		Normalize:     c.Normalize,
	}
}
