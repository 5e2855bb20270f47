package config

import (
	"time"

	"assetgraph/internal/domain"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Classes   ClassesConfig   `yaml:"classes"`
	Routes    RoutesConfig    `yaml:"routes"`
	DataModel DataModelConfig `yaml:"datamodel"`
}

// DatabaseConfig locates the graph store
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// LogConfig selects the log level and encoding
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// ClassesConfig names the classes the engine treats specially
type ClassesConfig struct {
	BusinessObject     string `yaml:"business_object"`
	ListType           string `yaml:"list_type"`
	PhysicalConnection string `yaml:"physical_connection"`
}

// RoutesConfig bounds route searches through special relationships
type RoutesConfig struct {
	MaxRoutes int `yaml:"max_routes"`
	MaxHops   int `yaml:"max_hops"`
}

// DataModelConfig points at the data model applied at startup
type DataModelConfig struct {
	Path     string   `yaml:"path,omitempty"`
	Watch    bool     `yaml:"watch,omitempty"`
	Debounce Duration `yaml:"debounce,omitempty"`
}

// Core returns the configured core classes
func (c ClassesConfig) Core() domain.CoreClasses {
	return domain.CoreClasses{
		BusinessObject:     c.BusinessObject,
		ListType:           c.ListType,
		PhysicalConnection: c.PhysicalConnection,
	}
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
