package security

import (
	"regexp"
	"strings"
)

// cardNumberPattern matches 13-19 digit runs, optionally grouped by spaces or dashes.
var cardNumberPattern = regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)

// PIIDetector checks chat messages for sensitive data that should never be
// forwarded to the model or external services.
type PIIDetector struct {
	keywords []string
}

func NewPIIDetector(keywords []string) *PIIDetector {
	lower := make([]string, len(keywords))
	for i, k := range keywords {
		lower[i] = strings.ToLower(k)
	}
	return &PIIDetector{keywords: lower}
}

// Detect returns true and the matched keyword if PII is found in text
func (d *PIIDetector) Detect(text string) (bool, string) {
	lower := strings.ToLower(text)
	for _, kw := range d.keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true, kw
		}
	}
	if cardNumberPattern.MatchString(text) {
		return true, "card number"
	}
	return false, ""
}
