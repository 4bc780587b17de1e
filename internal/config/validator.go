package config

import (
	"fmt"
	"strings"

	"github.com/coral-mesh/listquery/internal/constants"
	"github.com/coral-mesh/listquery/internal/duckdb"
)

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError collects every invalid setting found in one pass.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "validation failed with %d errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&builder, "  %d. %s\n", i+1, err.Error())
	}
	return builder.String()
}

// Validate checks the configuration and returns a *MultiValidationError
// listing every problem, or nil.
func (c *Config) Validate() error {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		add("server.port", "must be between 0 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout < 0 {
		add("server.shutdown_timeout", "must not be negative")
	}
	if c.Server.QueryTimeout < 0 {
		add("server.query_timeout", "must not be negative")
	}
	if c.Server.MaxTop < 0 {
		add("server.max_top", "must not be negative, got %d", c.Server.MaxTop)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "disabled", "off":
	default:
		add("logging.level", "unknown level %q", c.Logging.Level)
	}

	switch c.Query.PropertyCase {
	case "", constants.PropertyCaseUpperFirst, constants.PropertyCaseNone:
	default:
		add("query.property_case", "must be %q or %q, got %q",
			constants.PropertyCaseUpperFirst, constants.PropertyCaseNone, c.Query.PropertyCase)
	}

	seen := make(map[string]bool)
	for i, ds := range c.Datasets {
		field := fmt.Sprintf("datasets[%d]", i)
		if ds.Name == "" {
			add(field+".name", "is required")
		} else if seen[ds.Name] {
			add(field+".name", "duplicate dataset %q", ds.Name)
		}
		seen[ds.Name] = true

		if ds.Path == "" {
			add(field+".path", "is required")
		}
		switch ds.Source {
		case constants.SourceJSON:
		case constants.SourceDuckDB:
			if ds.Table == "" {
				add(field+".table", "is required for duckdb datasets")
			} else if !duckdb.IsIdentifier(ds.Table) {
				add(field+".table", "invalid table name %q", ds.Table)
			}
		default:
			add(field+".source", "must be %q or %q, got %q", constants.SourceJSON, constants.SourceDuckDB, ds.Source)
		}
	}

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}
