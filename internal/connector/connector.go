// Package connector defines the intake surface for external messaging
// platforms. A connector turns an inbound chat message into a ticket
// submission and delivers the pipeline's reply back to the sender.
package connector

import "context"

// InboundTicket is a ticket submission received from a platform.
type InboundTicket struct {
	Source   string // connector name, e.g. "telegram"
	SenderID string // platform-specific sender identifier
	ChatID   string // platform-specific conversation identifier
	Text     string // the ticket text as typed by the customer
}

// Handler processes an inbound ticket and returns the reply to send
// back. The reply already carries any escalation notice.
type Handler func(ctx context.Context, t InboundTicket) (string, error)

// Connector is a long-running intake listener.
type Connector interface {
	Name() string
	// Start blocks until the context is cancelled.
	Start(ctx context.Context) error
	Stop() error
}
