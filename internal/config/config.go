// Package config provides configuration management for assetgraph.
//
// Config file locations (priority order):
//  1. $ASSETGRAPH_CONFIG
//  2. ./assetgraph.yaml
//  3. $XDG_CONFIG_HOME/assetgraph/config.yaml
//  4. ~/.config/assetgraph/config.yaml
//  5. /etc/assetgraph/config.yaml
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"assetgraph/internal/domain"
	"assetgraph/internal/objects"
)

// Defaults for a new installation
const (
	DefaultDatabasePath    = "./assetgraph.db"
	DefaultServerAddr      = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultDebounce        = 500 * time.Millisecond
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	core := domain.DefaultCoreClasses()
	if c.Classes.BusinessObject == "" {
		c.Classes.BusinessObject = core.BusinessObject
	}
	if c.Classes.ListType == "" {
		c.Classes.ListType = core.ListType
	}
	if c.Classes.PhysicalConnection == "" {
		c.Classes.PhysicalConnection = core.PhysicalConnection
	}

	if c.Routes.MaxRoutes == 0 {
		c.Routes.MaxRoutes = objects.DefaultMaxRoutes
	}
	if c.Routes.MaxHops == 0 {
		c.Routes.MaxHops = objects.DefaultMaxHops
	}
	if c.DataModel.Debounce == 0 {
		c.DataModel.Debounce = Duration(DefaultDebounce)
	}
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Routes.MaxRoutes < 0 || c.Routes.MaxHops < 0 {
		return fmt.Errorf("route limits must be positive")
	}
	if c.DataModel.Watch && c.DataModel.Path == "" {
		return fmt.Errorf("datamodel.watch requires datamodel.path")
	}
	return nil
}
