package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "solver.workers")
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

// ValidSolvers returns the list of valid solver names
func ValidSolvers() []string {
	return []string{"cp", "greedy"}
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidFormats returns the list of valid log and output formats
func ValidFormats() []string {
	return []string{"text", "json"}
}

// ValidColorModes returns the list of valid color modes
func ValidColorModes() []string {
	return []string{"auto", "always", "never"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateSolver()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateOutput()...)

	return errors
}

func (c *Config) validateSolver() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidSolvers(), strings.ToLower(c.Solver.Name)) {
		errors = append(errors, ValidationError{
			Field:   "solver.name",
			Value:   c.Solver.Name,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidSolvers(), ", ")),
		})
	}
	if c.Solver.TimeLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "solver.time_limit",
			Value:   c.Solver.TimeLimit,
			Message: "must be non-negative",
		})
	}
	if c.Solver.NodeLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "solver.node_limit",
			Value:   c.Solver.NodeLimit,
			Message: "must be non-negative",
		})
	}
	if c.Solver.Workers < 1 || c.Solver.Workers > 64 {
		errors = append(errors, ValidationError{
			Field:   "solver.workers",
			Value:   c.Solver.Workers,
			Message: "must be between 1 and 64",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidFormats(), strings.ToLower(c.Logging.Format)) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidFormats(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidFormats(), strings.ToLower(c.Output.Format)) {
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Value:   c.Output.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidFormats(), ", ")),
		})
	}
	if !slices.Contains(ValidColorModes(), strings.ToLower(c.Output.Color)) {
		errors = append(errors, ValidationError{
			Field:   "output.color",
			Value:   c.Output.Color,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidColorModes(), ", ")),
		})
	}

	return errors
}
