package guardrail

import (
	"fmt"
	"strings"

	"github.com/deskd-io/deskd/pkg/protocol"
)

// urgencyWords always warrant a human look regardless of configuration.
var urgencyWords = []string{"urgent", "emergency", "critical", "asap", "immediately"}

// EscalationChecker decides whether a ticket needs human follow-up. The
// independent signals are OR-combined with no weighting.
type EscalationChecker struct {
	triggers            []string
	confidenceThreshold float64
}

// NewEscalationChecker creates a checker with the given trigger phrases
// and confidence threshold.
func NewEscalationChecker(triggers []string, confidenceThreshold float64) *EscalationChecker {
	return &EscalationChecker{
		triggers:            append([]string(nil), triggers...),
		confidenceThreshold: confidenceThreshold,
	}
}

// Decide accumulates escalation reasons for the ticket. The category is
// accepted for parity with the caller but carries no signal today.
func (c *EscalationChecker) Decide(ticket string, confidence float64, _ protocol.Category) protocol.EscalationDecision {
	var reasons []string
	lower := strings.ToLower(ticket)

	if confidence < c.confidenceThreshold {
		reasons = append(reasons, fmt.Sprintf("Low confidence score: %.2f", confidence))
	}

	for _, trigger := range c.triggers {
		if strings.Contains(lower, strings.ToLower(trigger)) {
			reasons = append(reasons, fmt.Sprintf("Trigger word detected: %s", trigger))
		}
	}

	for _, word := range urgencyWords {
		if strings.Contains(lower, word) {
			reasons = append(reasons, "Urgent issue detected")
			break
		}
	}

	if strings.Count(lower, "?") > 3 {
		reasons = append(reasons, "Multiple complex questions")
	}

	return protocol.EscalationDecision{
		ShouldEscalate: len(reasons) > 0,
		Reasons:        reasons,
	}
}

// EscalationMessage renders the human-review notice appended to the
// delivered response.
func EscalationMessage(reasons []string) string {
	var b strings.Builder
	b.WriteString("This ticket has been flagged for human review due to:\n")
	for _, reason := range reasons {
		b.WriteString("- " + reason + "\n")
	}
	b.WriteString("\nA support specialist will review this case and reach out to you shortly.")
	return b.String()
}
