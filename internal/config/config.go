// Package config loads deployment configuration for the detection CLI:
// weight overrides, decision thresholds, execution policy, and the store
// location. Files may be YAML or JSON; format is detected by extension or
// content.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDBPath is where the CLI keeps its SQLite store unless overridden.
const DefaultDBPath = ".skygate/skygate.db"

// Config is the merged runtime configuration.
type Config struct {
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	DBPath    string `yaml:"db_path" json:"db_path"`

	// Decision thresholds; both exclusive bounds in (0,1).
	VerdictThreshold      float64 `yaml:"verdict_threshold" json:"verdict_threshold"`
	SignificanceThreshold float64 `yaml:"significance_threshold" json:"significance_threshold"`

	// Parallelism bounds concurrent detector runs; <= 1 is sequential.
	Parallelism int `yaml:"parallelism" json:"parallelism"`

	// DetectorTimeout converts a hung detector into a failed outcome
	// (Go duration string, e.g. "30s"). Empty disables the timeout.
	DetectorTimeout string `yaml:"detector_timeout" json:"detector_timeout"`

	// Weights overrides ensemble weights by detector name.
	Weights map[string]float64 `yaml:"weights" json:"weights"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		LogLevel:              "info",
		LogFormat:             "text",
		DBPath:                DefaultDBPath,
		VerdictThreshold:      0.5,
		SignificanceThreshold: 0.6,
		Parallelism:           1,
		DetectorTimeout:       "30s",
	}
}

// LoadFromPath reads a config file (YAML or JSON) and merges it over the
// defaults. A missing path is not an error: defaults are returned.
func LoadFromPath(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses config bytes over the defaults. ext is the file extension
// for a format hint; empty means detect from content.
func Load(data []byte, ext string) (Config, error) {
	cfg := Default()

	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}

	isJSON := ext == ".json"
	if ext == "" {
		isJSON = strings.HasPrefix(strings.TrimSpace(string(data)), "{")
	}

	if isJSON {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine would refuse at startup.
func (c Config) Validate() error {
	if c.VerdictThreshold <= 0 || c.VerdictThreshold >= 1 {
		return fmt.Errorf("config: verdict_threshold %v out of (0,1)", c.VerdictThreshold)
	}
	if c.SignificanceThreshold <= 0 || c.SignificanceThreshold >= 1 {
		return fmt.Errorf("config: significance_threshold %v out of (0,1)", c.SignificanceThreshold)
	}
	for name, w := range c.Weights {
		if w <= 0 {
			return fmt.Errorf("config: weight for %q must be positive, got %v", name, w)
		}
	}
	if c.DetectorTimeout != "" {
		if _, err := time.ParseDuration(c.DetectorTimeout); err != nil {
			return fmt.Errorf("config: detector_timeout: %w", err)
		}
	}
	return nil
}

// Timeout returns the parsed detector timeout (0 when disabled).
func (c Config) Timeout() time.Duration {
	if c.DetectorTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.DetectorTimeout)
	if err != nil {
		return 0
	}
	return d
}
