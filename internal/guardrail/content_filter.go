// Package guardrail holds the policy checks applied to responses and
// tickets: content filtering, response validation, and escalation rules.
// Each check is pure; all policy data is fixed at construction.
package guardrail

import (
	"fmt"
	"strings"
)

// ContentFilter flags responses that touch prohibited topics.
type ContentFilter struct {
	prohibited []string
}

// NewContentFilter creates a filter over the given prohibited topics.
// The list is copied; later mutation of the argument has no effect.
func NewContentFilter(topics []string) *ContentFilter {
	return &ContentFilter{prohibited: append([]string(nil), topics...)}
}

// Check reports whether text is free of prohibited topics, along with the
// topics that matched. Matching is case-insensitive substring search.
func (f *ContentFilter) Check(text string) (bool, []string) {
	var violations []string
	lower := strings.ToLower(text)

	for _, topic := range f.prohibited {
		if strings.Contains(lower, strings.ToLower(topic)) {
			violations = append(violations, topic)
		}
	}
	return len(violations) == 0, violations
}

// Sanitize replaces the whole response with an apology naming the violated
// topics. No partial redaction is attempted. With no violations the
// original text is returned unchanged.
func (f *ContentFilter) Sanitize(text string, violations []string) string {
	if len(violations) == 0 {
		return text
	}
	return fmt.Sprintf(
		"I apologize, but I cannot provide %s as it's outside my support scope. "+
			"Please consult with a qualified professional or I can escalate this to "+
			"a human agent who can better assist you.",
		strings.Join(violations, ", "),
	)
}
