package config

import (
	"fmt"
	"regexp"
	"strings"
)

// providerIDPattern mirrors the management API's validation for POST
// /providers ids.
var providerIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g.,
	// "providers.official.baseUrl").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// ValidProviderID reports whether id matches the pattern required of
// provider ids, both at config load time and by the management API's
// POST /providers handler.
func ValidProviderID(id string) bool {
	return providerIDPattern.MatchString(id)
}

// Validate validates the entire configuration and returns a *ValidationError
// (as error) if any rule fails, or nil if the configuration is valid. All
// errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, FieldError{"port", "must be between 1 and 65535"})
	}
	if cfg.Host == "" {
		errs = append(errs, FieldError{"host", "must not be empty"})
	}

	errs = append(errs, validateProviders(cfg.Providers)...)
	if cfg.DefaultProvider != "" {
		if _, ok := cfg.Providers[cfg.DefaultProvider]; !ok {
			errs = append(errs, FieldError{"defaultProvider", fmt.Sprintf("unknown provider %q", cfg.DefaultProvider)})
		}
	}
	errs = append(errs, validateRouting(&cfg.Routing)...)
	errs = append(errs, validateConcurrency(&cfg.Concurrency)...)
	errs = append(errs, validateRouteQueues(cfg.RouteQueues)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateProviders(providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	if _, ok := providers[OfficialProviderID]; !ok {
		errs = append(errs, FieldError{"providers.official", "the \"official\" provider is required"})
	}

	for id, p := range providers {
		field := fmt.Sprintf("providers.%s", id)
		if !providerIDPattern.MatchString(id) {
			errs = append(errs, FieldError{field, "id must match ^[A-Za-z0-9_-]+$"})
		}
		if p.BaseURL == "" {
			errs = append(errs, FieldError{field + ".baseUrl", "must not be empty"})
		}
		if p.Mode != "passthrough" && p.Mode != "inject" {
			errs = append(errs, FieldError{field + ".mode", "must be \"passthrough\" or \"inject\""})
		}
		if p.ProviderType != "anthropic" && p.ProviderType != "openai" {
			errs = append(errs, FieldError{field + ".providerType", "must be \"anthropic\" or \"openai\""})
		}
		if p.Mode == "inject" && p.APIKey == "" {
			errs = append(errs, FieldError{field + ".apiKey", "required when mode is \"inject\""})
		}
	}

	return errs
}

func validateRouting(r *RoutingConfig) []FieldError {
	var errs []FieldError
	for i, b := range r.Block {
		if b.Path == "" {
			errs = append(errs, FieldError{fmt.Sprintf("routing.block[%d].path", i), "must not be empty"})
		}
		if b.Code < 100 || b.Code > 599 {
			errs = append(errs, FieldError{fmt.Sprintf("routing.block[%d].code", i), "must be a valid HTTP status code"})
		}
	}
	for i, b := range r.OpenAIBlock {
		if b.Path == "" {
			errs = append(errs, FieldError{fmt.Sprintf("routing.openaiBlock[%d].path", i), "must not be empty"})
		}
	}
	return errs
}

func validateConcurrency(c *ConcurrencyConfig) []FieldError {
	var errs []FieldError
	if c.MaxWorkers < 1 {
		errs = append(errs, FieldError{"concurrency.maxWorkers", "must be >= 1"})
	}
	if c.MaxQueueSize < 0 {
		errs = append(errs, FieldError{"concurrency.maxQueueSize", "must be >= 0"})
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, FieldError{"concurrency.requestTimeout", "must be >= 0"})
	}
	return errs
}

func validateRouteQueues(queues []RouteQueueConfig) []FieldError {
	var errs []FieldError
	for i, rq := range queues {
		field := fmt.Sprintf("routeQueues[%d]", i)
		if rq.Pattern == "" {
			errs = append(errs, FieldError{field + ".pattern", "must not be empty"})
		}
		// An invalid regular expression is not rejected here: pkg/match
		// compiles it into a matcher that rejects everything and logs a
		// warning, making the queue unreachable rather than failing load.
		if rq.MaxWorkers < 1 {
			errs = append(errs, FieldError{field + ".maxWorkers", "must be >= 1"})
		}
	}
	return errs
}

func validateLogging(l *LoggingConfig) []FieldError {
	var errs []FieldError
	if l.Enabled && l.Database == "" {
		errs = append(errs, FieldError{"logging.database", "must not be empty when logging is enabled"})
	}
	switch l.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"logging.level", "must be one of debug, info, warn, error"})
	}
	return errs
}
