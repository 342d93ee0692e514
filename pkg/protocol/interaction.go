package protocol

import "time"

// Interaction is one completed ticket-processing record. Once logged it is
// never mutated or removed; the interaction log is the sole source for
// aggregate statistics.
type Interaction struct {
	TicketID     string      `json:"ticket_id"`
	Timestamp    time.Time   `json:"timestamp"`
	Category     Category    `json:"category"`
	Confidence   float64     `json:"confidence"`
	ResponseTime float64     `json:"response_time"` // seconds
	Escalated    bool        `json:"escalated"`
	Violations   []Violation `json:"violations"`
	AgentUsed    string      `json:"agent_used"`
}
