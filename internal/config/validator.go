package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "storage.cache_size_mb")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log output formats
func ValidLogFormats() []string {
	return []string{"console", "json"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found. Settings only the server needs are checked by ValidateServe.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	errs = append(errs, c.validateAuthorities()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateNetwork()...)
	errs = append(errs, c.validateLog()...)

	if c.Keys.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "keys.path",
			Value:   c.Keys.Path,
			Message: "must not be empty",
		})
	}
	return errs
}

// ValidateServe reports settings that must be present to run a server.
func (c *Config) ValidateServe() error {
	var errs ValidationErrors
	if len(c.Authorities) == 0 {
		errs = append(errs, ValidationError{
			Field:   "authorities",
			Value:   c.Authorities,
			Message: "at least one authority identity is required",
		})
	}
	if c.Network.ListenAddr == "" {
		errs = append(errs, ValidationError{
			Field:   "network.listen_addr",
			Value:   c.Network.ListenAddr,
			Message: "must not be empty",
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateAuthorities() []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(c.Authorities))
	for i, a := range c.Authorities {
		field := fmt.Sprintf("authorities[%d]", i)
		switch {
		case strings.TrimSpace(a) == "":
			errs = append(errs, ValidationError{Field: field, Value: a, Message: "must not be blank"})
		case seen[a]:
			errs = append(errs, ValidationError{Field: field, Value: a, Message: "duplicate authority"})
		}
		seen[a] = true
	}
	return errs
}

func (c *Config) validateStorage() []ValidationError {
	var errs []ValidationError
	if c.Storage.CacheSizeMB <= 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.cache_size_mb",
			Value:   c.Storage.CacheSizeMB,
			Message: "must be positive",
		})
	}
	if c.Storage.MemTableSizeMB <= 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.memtable_size_mb",
			Value:   c.Storage.MemTableSizeMB,
			Message: "must be positive",
		})
	}
	return errs
}

func (c *Config) validateNetwork() []ValidationError {
	var errs []ValidationError
	if c.Network.CertValidity <= 0 {
		errs = append(errs, ValidationError{
			Field:   "network.cert_validity",
			Value:   c.Network.CertValidity,
			Message: "must be positive",
		})
	}
	if c.Network.RequestTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "network.request_timeout",
			Value:   c.Network.RequestTimeout,
			Message: "must be positive",
		})
	}
	return errs
}

func (c *Config) validateLog() []ValidationError {
	var errs []ValidationError
	if !slices.Contains(ValidLogLevels(), c.Log.Level) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidLogFormats(), c.Log.Format) {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Value:   c.Log.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}
	return errs
}
