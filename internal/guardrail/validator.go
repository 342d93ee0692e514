package guardrail

import (
	"fmt"
	"strings"
)

// placeholderTokens are leftovers that mark an unfinished draft.
var placeholderTokens = []string{"TODO", "FIXME", "[INSERT", "XXX"}

// ResponseValidator checks response quality against length bounds and a
// few lexical heuristics.
type ResponseValidator struct {
	minLength int
	maxLength int
}

// NewResponseValidator creates a validator with the given length bounds.
func NewResponseValidator(minLength, maxLength int) *ResponseValidator {
	return &ResponseValidator{minLength: minLength, maxLength: maxLength}
}

// Validate reports whether the response meets quality standards. On
// failure the second return names the problem.
func (v *ResponseValidator) Validate(response string) (bool, string) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return false, "Response is empty"
	}

	length := len(trimmed)
	if length < v.minLength {
		return false, fmt.Sprintf("Response too short (%d chars, minimum %d)", length, v.minLength)
	}
	if length > v.maxLength {
		return false, fmt.Sprintf("Response too long (%d chars, maximum %d)", length, v.maxLength)
	}

	// A pile of questions is a non-answer.
	if strings.Count(response, "?") > 5 {
		return false, "Response contains too many questions instead of answers"
	}

	upper := strings.ToUpper(response)
	for _, token := range placeholderTokens {
		if strings.Contains(upper, token) {
			return false, fmt.Sprintf("Response contains placeholder: %s", token)
		}
	}

	return true, ""
}

// CheckCompleteness reports whether the response ends in terminal
// punctuation. Anything else is treated as cut off mid-sentence.
func (v *ResponseValidator) CheckCompleteness(response string) bool {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
