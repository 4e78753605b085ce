// Package config resolves the hub URL, API token, and CLI defaults from
// (in increasing priority) an optional YAML file, environment variables,
// and explicit flags — grounded on the flag-parsing style of the
// teacher's cmd/mash-controller and cmd/mash-log main()s, layered with
// gopkg.in/yaml.v3 (a teacher direct dependency) for the optional file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the resolved settings a hass-atlas invocation needs.
type Config struct {
	URL             string `yaml:"url"`
	Token           string `yaml:"-"` // never persisted to a config file
	DryRun          bool   `yaml:"dry_run"`
	LogLevel        string `yaml:"log_level"`
	AreaMappingFile string `yaml:"area_mapping_file"`
	PanelIntegration string `yaml:"panel_integration"`
}

// defaults mirrors the zero-config behavior described in spec §6: dry-run
// by default, info-level logging, SPAN as the assumed panel integration.
func defaults() Config {
	return Config{
		DryRun:           true,
		LogLevel:         "info",
		PanelIntegration: "span_ebus",
	}
}

// FileDefaults loads persisted defaults from a YAML file at path. A
// missing file is not an error — it simply means there are no persisted
// defaults, matching the optional-file stance of spec §6.
func FileDefaults(path string) (Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays HA_URL / HASS_API_TOKEN (spec §6) onto cfg, env taking
// priority over whatever the file set for URL (the token is never
// file-sourced).
func (c Config) ApplyEnv() Config {
	if v := os.Getenv("HA_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("HASS_API_TOKEN"); v != "" {
		c.Token = v
	}
	return c
}

// ApplyFlags overlays explicit CLI flag values onto cfg. Empty-string /
// zero-value flag results are treated as "not set" by the caller before
// this is invoked — callers pass only flags the user actually supplied.
type FlagOverrides struct {
	URL              *string
	DryRun           *bool
	LogLevel         *string
	PanelIntegration *string
}

// ApplyFlags layers o onto c, flags taking the highest priority of all
// three config sources.
func (c Config) ApplyFlags(o FlagOverrides) Config {
	if o.URL != nil && *o.URL != "" {
		c.URL = *o.URL
	}
	if o.DryRun != nil {
		c.DryRun = *o.DryRun
	}
	if o.LogLevel != nil && *o.LogLevel != "" {
		c.LogLevel = *o.LogLevel
	}
	if o.PanelIntegration != nil && *o.PanelIntegration != "" {
		c.PanelIntegration = *o.PanelIntegration
	}
	return c
}

// Validate checks that the resolved config is usable for a live command
// (not needed for replay, which reads a capture file instead).
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("config: no hub URL set (use --url, HA_URL, or mDNS discovery)")
	}
	if c.Token == "" {
		return fmt.Errorf("config: no API token set (use HASS_API_TOKEN)")
	}
	return nil
}
