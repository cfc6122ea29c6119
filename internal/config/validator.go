package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // config key, e.g. "forward.batch_size"
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the accepted values of log.level.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidForwardKinds returns the accepted values of forward.kind.
func ValidForwardKinds() []string {
	return []string{"", "kafka", "opensearch"}
}

// Validate checks c and returns every problem found.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Log.Level)) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	for i, l := range c.FailLevels {
		if strings.TrimSpace(l) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("fail_levels[%d]", i),
				Value:   l,
				Message: "must not be empty",
			})
		}
	}

	errs = append(errs, c.validateFormats()...)
	errs = append(errs, c.validateForward()...)
	return errs
}

func (c *Config) validateFormats() ValidationErrors {
	var errs ValidationErrors
	seen := make(map[string]bool)
	for i, f := range c.Formats {
		field := fmt.Sprintf("formats[%d]", i)
		if f.Name == "" {
			errs = append(errs, ValidationError{Field: field + ".name", Value: f.Name, Message: "must not be empty"})
		} else if seen[f.Name] {
			errs = append(errs, ValidationError{Field: field + ".name", Value: f.Name, Message: "duplicate format name"})
		}
		seen[f.Name] = true

		if _, err := regexp.Compile(f.Pattern); err != nil || f.Pattern == "" {
			msg := "must not be empty"
			if err != nil {
				msg = "invalid regex: " + err.Error()
			}
			errs = append(errs, ValidationError{Field: field + ".pattern", Value: f.Pattern, Message: msg})
		}
	}
	return errs
}

func (c *Config) validateForward() ValidationErrors {
	var errs ValidationErrors
	fw := c.Forward

	if !slices.Contains(ValidForwardKinds(), fw.Kind) {
		errs = append(errs, ValidationError{
			Field:   "forward.kind",
			Value:   fw.Kind,
			Message: "must be empty, kafka or opensearch",
		})
	}
	if fw.BatchSize <= 0 {
		errs = append(errs, ValidationError{Field: "forward.batch_size", Value: fw.BatchSize, Message: "must be positive"})
	}
	if fw.FlushInterval <= 0 {
		errs = append(errs, ValidationError{Field: "forward.flush_interval", Value: fw.FlushInterval, Message: "must be positive"})
	}

	switch fw.Kind {
	case "kafka":
		if len(fw.Kafka.Brokers) == 0 {
			errs = append(errs, ValidationError{Field: "forward.kafka.brokers", Value: fw.Kafka.Brokers, Message: "required when forward.kind is kafka"})
		}
		if fw.Kafka.Topic == "" {
			errs = append(errs, ValidationError{Field: "forward.kafka.topic", Value: fw.Kafka.Topic, Message: "required when forward.kind is kafka"})
		}
	case "opensearch":
		if len(fw.OpenSearch.Addresses) == 0 {
			errs = append(errs, ValidationError{Field: "forward.opensearch.addresses", Value: fw.OpenSearch.Addresses, Message: "required when forward.kind is opensearch"})
		}
	}
	return errs
}
