package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskd-io/deskd/internal/provider"
	"github.com/deskd-io/deskd/pkg/protocol"
)

const billingTemperature = 0.3

const billingPromptTemplate = `You are a billing support specialist. Help resolve this billing issue.

Customer Issue: %s

Provide a helpful, professional response that:
1. Acknowledges their billing concern
2. Explains the situation clearly
3. Provides next steps or resolution
4. Reassures the customer

Important guidelines:
- Be empathetic about billing concerns
- Clearly explain any charges or policies
- Offer to investigate further if needed
- For refunds over $100, mention that a specialist will review

Keep your response concise (max 300 words) and professional.

Response:`

const billingFallback = "I understand you have a billing question. " +
	"I'd be happy to help clarify any charges or assist with your account. " +
	"Could you provide more specific details about your concern?"

const billingEmptyPrompt = "I'm here to help with your billing question. What can I assist you with?"

// highValueIndicators is a crude marker set for refunds big enough to
// need a specialist's eyes. Advisory only; consumed downstream for
// potential escalation.
var highValueIndicators = []string{"$1000", "$500", "thousand", "hundred"}

// Billing handles billing and payment tickets. It does not use search.
type Billing struct {
	provider provider.Provider
}

// NewBilling creates a Billing responder.
func NewBilling(prov provider.Provider) *Billing {
	return &Billing{provider: prov}
}

func (a *Billing) Name() string { return "billing" }

func (a *Billing) Respond(ctx context.Context, ticket string) protocol.AgentResponse {
	if strings.TrimSpace(ticket) == "" {
		return protocol.AgentResponse{
			Agent:    a.Name(),
			Content:  billingEmptyPrompt,
			Metadata: map[string]any{"search_used": false},
		}
	}

	meta := map[string]any{
		"search_used":       false,
		"high_value_refund": isHighValueRefund(ticket),
	}

	reply, err := complete(ctx, a.provider, fmt.Sprintf(billingPromptTemplate, ticket), billingTemperature)
	if err != nil {
		meta["error"] = err.Error()
		return protocol.AgentResponse{
			Agent:    a.Name(),
			Content:  billingFallback,
			Metadata: meta,
		}
	}

	return protocol.AgentResponse{
		Agent:    a.Name(),
		Content:  strings.TrimSpace(reply),
		Metadata: meta,
	}
}

// isHighValueRefund flags refund requests that mention a high-value
// amount token.
func isHighValueRefund(ticket string) bool {
	lower := strings.ToLower(ticket)
	if !strings.Contains(lower, "refund") {
		return false
	}
	for _, indicator := range highValueIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
