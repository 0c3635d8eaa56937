// Package config defines service configuration structures and loading hooks.
//
// Two documents are involved: the service configuration (defaults, optional
// YAML file, STAMP_ environment variables) and the data-source manifest, a
// JSON file naming the three dataset files the service loads at startup.
package config

import (
	"net"
	"strconv"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Host and Port configure the HTTP listen address.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// DataConfig is the path of the data-source manifest.
	DataConfig string `koanf:"data_config"`

	// RowLimit caps the number of measurement rows returned per query.
	RowLimit int `koanf:"row_limit"`

	// CORSOrigins lists the origins allowed to call the API.
	CORSOrigins []string `koanf:"cors_origins"`
}

// Defaults.
const (
	DefaultHost       = "127.0.0.1"
	DefaultPort       = 8500
	DefaultDataConfig = "latest_data.json"
	DefaultRowLimit   = 400
)

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Host:        DefaultHost,
		Port:        DefaultPort,
		DataConfig:  DefaultDataConfig,
		RowLimit:    DefaultRowLimit,
		CORSOrigins: []string{"*"},
	}
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
