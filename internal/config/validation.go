package config

import (
	"fmt"
	"strings"
)

// MaxLHSSizeLimit bounds max_lhs_size. Candidate counts grow as O(n^k), and the
// minimality filter enumerates 2^k subsets per candidate.
const MaxLHSSizeLimit = 16

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateDatabase("source", &c.Source)...)
	errors = append(errors, validateDiscovery("discovery", &c.Discovery, false)...)

	for _, name := range c.ListJobs() {
		job := c.Jobs[name]
		errors = append(errors, c.validateJob(name, &job)...)
	}

	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	validDrivers := map[string]bool{DriverMySQL: true, DriverPostgres: true}
	if !validDrivers[db.Driver] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".driver",
			Message: "driver must be 'mysql' or 'postgres'",
		})
	}

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

// validateDiscovery checks discovery settings. Job overrides are partial, so zero
// values are accepted there and mean "inherit".
func validateDiscovery(prefix string, d *DiscoveryConfig, override bool) ValidationErrors {
	var errors ValidationErrors

	if d.MaxLHSSize < 0 || (!override && d.MaxLHSSize == 0) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_lhs_size",
			Message: "max_lhs_size must be positive",
		})
	}
	if d.MaxLHSSize > MaxLHSSizeLimit {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_lhs_size",
			Message: fmt.Sprintf("max_lhs_size cannot exceed %d", MaxLHSSizeLimit),
		})
	}

	validMethods := map[string]bool{MethodCardinality: true, MethodGrouping: true, "": true}
	if !validMethods[d.Method] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".method",
			Message: "method must be 'cardinality' or 'grouping'",
		})
	}

	if d.Workers < 0 || (!override && d.Workers == 0) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".workers",
			Message: "workers must be at least 1",
		})
	}

	if d.VerifyTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".verify_timeout_seconds",
			Message: "verify_timeout_seconds cannot be negative",
		})
	}

	if d.QueriesPerSecond < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".queries_per_second",
			Message: "queries_per_second cannot be negative",
		})
	}

	if d.RetryAttempts < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".retry_attempts",
			Message: "retry_attempts cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateJob(name string, job *JobConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("jobs.%s", name)

	if job.Table == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".table",
			Message: "table is required",
		})
	}

	for i, col := range job.ExcludeColumns {
		if col == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.exclude_columns[%d]", prefix, i),
				Message: "column name cannot be empty",
			})
		}
	}

	if job.Discovery != nil {
		errors = append(errors, validateDiscovery(prefix+".discovery", job.Discovery, true)...)
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
