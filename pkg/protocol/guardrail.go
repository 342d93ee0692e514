package protocol

import "fmt"

// ViolationKind tags the guardrail that raised a violation.
type ViolationKind string

const (
	ViolationContent      ViolationKind = "content"
	ViolationQuality      ViolationKind = "quality"
	ViolationCompleteness ViolationKind = "completeness"
)

// Violation is one guardrail finding on a response. Violations are
// recorded as data; they never abort the pipeline on their own.
type Violation struct {
	Kind   ViolationKind `json:"kind"`
	Detail string        `json:"detail,omitempty"`
}

func (v Violation) String() string {
	switch v.Kind {
	case ViolationContent:
		return fmt.Sprintf("Prohibited topic: %s", v.Detail)
	case ViolationQuality:
		return fmt.Sprintf("Quality issue: %s", v.Detail)
	case ViolationCompleteness:
		return "Response appears incomplete"
	default:
		return v.Detail
	}
}

// EscalationDecision is the outcome of the escalation check for one
// ticket. It is derived per ticket and never cached across tickets.
type EscalationDecision struct {
	ShouldEscalate bool     `json:"should_escalate"`
	Reasons        []string `json:"reasons,omitempty"`
}
