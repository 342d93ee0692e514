package protocol

import "time"

// Category is the topic a ticket is routed on.
type Category string

const (
	CategoryTechnical Category = "TECHNICAL"
	CategoryBilling   Category = "BILLING"
	CategoryGeneral   Category = "GENERAL"
)

// ParseCategory normalizes a raw classifier label. Anything that is not
// one of the three known categories maps to GENERAL.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryTechnical, CategoryBilling, CategoryGeneral:
		return Category(s)
	default:
		return CategoryGeneral
	}
}

// Valid reports whether c is one of the three known categories.
func (c Category) Valid() bool {
	return c == CategoryTechnical || c == CategoryBilling || c == CategoryGeneral
}

// Ticket is a customer-submitted support request. It is created once at
// intake and read-only afterwards.
type Ticket struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Result is the outcome of running one ticket through the workflow.
// This is the sole surface the API server, connectors, and CLI depend on.
type Result struct {
	TicketID   string         `json:"ticket_id"`
	Category   Category       `json:"category"`
	Response   string         `json:"response"`
	Confidence float64        `json:"confidence"`
	Escalated  bool           `json:"escalated"`
	AgentUsed  string         `json:"agent_used"`
	Metadata   map[string]any `json:"metadata"`
	Violations []Violation    `json:"violations"`
}
