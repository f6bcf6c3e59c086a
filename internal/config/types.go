// Package config loads the gateway's yaml configuration and verifies its
// integrity hash.
package config

// Config is the root configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Storage StorageConfig `yaml:"storage"`
	Ops     OpsConfig     `yaml:"ops"`
}

// ServiceConfig covers the daemon itself.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`
}

// StorageConfig covers the sqlite call journal.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// OpsConfig selects which built-in operation sets get registered.
type OpsConfig struct {
	Sets []string `yaml:"sets"`
}

// Defaults returns a usable configuration for development.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "opgate",
			Listen:   "127.0.0.1:8710",
			LogLevel: "INFO",
		},
		Storage: StorageConfig{
			DBPath: "data/opgate.db",
		},
		Ops: OpsConfig{
			Sets: []string{"sys"},
		},
	}
}

// HasOpSet reports whether a named operation set is enabled.
func (c *Config) HasOpSet(name string) bool {
	for _, s := range c.Ops.Sets {
		if s == name {
			return true
		}
	}
	return false
}
