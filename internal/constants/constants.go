// Package constants defines shared configuration constants and defaults.
package constants

import "time"

const (
	// AppName is used for the binary, config directory and environment
	// variable prefix.
	AppName = "listquery"

	// ConfigEnvVar names the environment variable holding the config path.
	ConfigEnvVar = "LISTQUERY_CONFIG"

	// ConfigFile is the config file name looked up in DefaultDir.
	ConfigFile = "config.yaml"

	// DefaultDir is the per-user config directory, relative to $HOME.
	DefaultDir = ".listquery"
)

// Server defaults.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8080

	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP server.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultReadHeaderTimeout guards against slow clients.
	DefaultReadHeaderTimeout = 5 * time.Second

	// DefaultQueryTimeout bounds a single list request.
	DefaultQueryTimeout = 30 * time.Second

	// DefaultMaxTop caps $top on list requests. Zero disables the cap.
	DefaultMaxTop = 1000
)

// MaxDatasetFileSize bounds JSON dataset files, which are held in memory.
const MaxDatasetFileSize = 512 << 20

// Logging defaults.
const (
	DefaultLogLevel = "info"
)

// Property case modes for mapping request property names to record fields.
const (
	PropertyCaseUpperFirst = "upper-first"
	PropertyCaseNone       = "none"
)

// Dataset source kinds.
const (
	SourceJSON   = "json"
	SourceDuckDB = "duckdb"
)
