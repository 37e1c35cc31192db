package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "insight.similarity_threshold")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
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

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all
// validation errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateCompletion()...)
	errors = append(errors, c.validateAgent()...)
	errors = append(errors, c.validateSynthesis()...)
	errors = append(errors, c.validateInsight()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateCompletion validates the CompletionConfig.
func (c *Config) validateCompletion() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Completion.Command) == "" {
		errors = append(errors, ValidationError{
			Field:   "completion.command",
			Value:   c.Completion.Command,
			Message: "must not be empty",
		})
	}
	if c.Completion.MaxTokens < 0 {
		errors = append(errors, ValidationError{
			Field:   "completion.max_tokens",
			Value:   c.Completion.MaxTokens,
			Message: "must be non-negative",
		})
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "completion.temperature",
			Value:   c.Completion.Temperature,
			Message: "must be between 0 and 2",
		})
	}

	return errors
}

// validateAgent validates the AgentConfig.
func (c *Config) validateAgent() []ValidationError {
	var errors []ValidationError

	if c.Agent.PlanConfirmCeilingMinutes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "agent.plan_confirm_ceiling_minutes",
			Value:   c.Agent.PlanConfirmCeilingMinutes,
			Message: "must be positive",
		})
	}
	if c.Agent.ApprovalCeilingSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "agent.approval_ceiling_seconds",
			Value:   c.Agent.ApprovalCeilingSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

// validateSynthesis validates the SynthesisConfig.
func (c *Config) validateSynthesis() []ValidationError {
	var errors []ValidationError

	if c.Synthesis.DebounceSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "synthesis.debounce_seconds",
			Value:   c.Synthesis.DebounceSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

// validateInsight validates the InsightConfig.
func (c *Config) validateInsight() []ValidationError {
	var errors []ValidationError

	if c.Insight.SimilarityThreshold <= 0 || c.Insight.SimilarityThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "insight.similarity_threshold",
			Value:   c.Insight.SimilarityThreshold,
			Message: "must be in (0, 1]",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig.
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
