package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config key (e.g., "lock_timeout")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
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

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate locking options
	errors = append(errors, c.validateLocking()...)

	// Validate logging options
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateLocking validates the lockfile options
func (c *Config) validateLocking() []ValidationError {
	var errors []ValidationError

	if c.LockTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "lock_timeout",
			Value:   c.LockTimeout,
			Message: "must be non-negative (0 waits indefinitely)",
		})
	}

	// Upper bound catches unit mistakes (milliseconds pasted as seconds)
	const maxLockTimeout = 86400 // 24 hours
	if c.LockTimeout > maxLockTimeout {
		errors = append(errors, ValidationError{
			Field:   "lock_timeout",
			Value:   c.LockTimeout,
			Message: fmt.Sprintf("exceeds maximum of %d seconds (24h)", maxLockTimeout),
		})
	}

	return errors
}

// validateLogging validates the logging options
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level; the logger parses levels case-insensitively
	if c.LogLevel != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.LogLevel)) {
		errors = append(errors, ValidationError{
			Field:   "log_level",
			Value:   c.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Log file path validation - if set, check for invalid characters
	if c.LogFile != "" {
		if strings.ContainsRune(c.LogFile, '\x00') {
			errors = append(errors, ValidationError{
				Field:   "log_file",
				Value:   c.LogFile,
				Message: "path contains invalid null character",
			})
		}

		// Reasonable path length limit (most filesystems have limits around 4096)
		const maxPathLength = 4096
		if len(c.LogFile) > maxPathLength {
			errors = append(errors, ValidationError{
				Field:   "log_file",
				Value:   c.LogFile,
				Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
			})
		}
	}

	return errors
}
