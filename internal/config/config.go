// Package config provides configuration loading and management.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/coral-mesh/listquery/internal/constants"
)

// Config is the listquery configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Logging  LoggingConfig   `yaml:"logging"`
	Query    QueryConfig     `yaml:"query"`
	History  HistoryConfig   `yaml:"history"`
	Datasets []DatasetConfig `yaml:"datasets"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"LISTQUERY_HOST"`
	Port            int           `yaml:"port" env:"LISTQUERY_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"LISTQUERY_SHUTDOWN_TIMEOUT"`
	QueryTimeout    time.Duration `yaml:"query_timeout" env:"LISTQUERY_QUERY_TIMEOUT"`

	// MaxTop caps $top on list requests. Zero means unlimited.
	MaxTop int `yaml:"max_top" env:"LISTQUERY_MAX_TOP"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LISTQUERY_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"LISTQUERY_LOG_PRETTY"`
}

// QueryConfig configures query translation.
type QueryConfig struct {
	// PropertyCase is "upper-first" or "none".
	PropertyCase string `yaml:"property_case" env:"LISTQUERY_PROPERTY_CASE"`
}

// HistoryConfig configures the query log. An empty Path disables it.
type HistoryConfig struct {
	Path string `yaml:"path" env:"LISTQUERY_HISTORY_PATH"`
}

// DatasetConfig describes one queryable dataset.
type DatasetConfig struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
	Table  string `yaml:"table,omitempty"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Dataset returns the dataset with the given name.
func (c *Config) Dataset(name string) (DatasetConfig, bool) {
	for _, ds := range c.Datasets {
		if ds.Name == name {
			return ds, true
		}
	}
	return DatasetConfig{}, false
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            constants.DefaultHost,
			Port:            constants.DefaultPort,
			ShutdownTimeout: constants.DefaultShutdownTimeout,
			QueryTimeout:    constants.DefaultQueryTimeout,
			MaxTop:          constants.DefaultMaxTop,
		},
		Logging: LoggingConfig{
			Level: constants.DefaultLogLevel,
		},
		Query: QueryConfig{
			PropertyCase: constants.PropertyCaseUpperFirst,
		},
	}
}
