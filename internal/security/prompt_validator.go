package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxPromptLength applies when the validator is built with a non-positive limit.
const DefaultMaxPromptLength = 4000

// injectionPatterns catch attempts to override or extract the assistant's instructions.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(the\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(the\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(the\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)override\s+(all\s+)?(the\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)new\s+context\s*:`),
	regexp.MustCompile(`(?i)change\s+context\s*:`),
	regexp.MustCompile(`(?i)instead\s+of\s+the\s+above`),
	regexp.MustCompile(`(?i)(reveal|print|show)\s+(me\s+)?(your|the)\s+system\s+prompt`),
	regexp.MustCompile(`(?i)you\s+are\s+no\s+longer\s+a`),
}

// PromptValidator validates chat messages for length and prompt injection
type PromptValidator struct {
	maxLength int
}

func NewPromptValidator(maxLength int) *PromptValidator {
	if maxLength <= 0 {
		maxLength = DefaultMaxPromptLength
	}
	return &PromptValidator{maxLength: maxLength}
}

// ValidationResult contains validation outcome
type ValidationResult struct {
	Valid   bool
	Message string
}

// Validate checks one message for length and injection patterns
func (v *PromptValidator) Validate(prompt string) ValidationResult {
	if n := utf8.RuneCountInString(prompt); n > v.maxLength {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("message too long: %d chars (max %d)", n, v.maxLength),
		}
	}

	if strings.TrimSpace(prompt) == "" {
		return ValidationResult{Valid: false, Message: "message cannot be empty"}
	}

	for _, pattern := range injectionPatterns {
		if pattern.MatchString(prompt) {
			return ValidationResult{
				Valid:   false,
				Message: fmt.Sprintf("prompt injection detected: %s", pattern.String()),
			}
		}
	}

	return ValidationResult{Valid: true, Message: "ok"}
}
