package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskd-io/deskd/internal/provider"
	"github.com/deskd-io/deskd/pkg/protocol"
)

const classifierTemperature = 0.2

const classifierPromptTemplate = `You are a support ticket classifier. Analyze the following ticket and categorize it.

Categories:
- TECHNICAL: Issues with product functionality, bugs, errors, technical problems
- BILLING: Payment issues, subscription questions, invoices, refunds
- GENERAL: General inquiries, feature requests, information requests, other questions

Ticket: %s

Analyze the ticket and respond with ONLY the category name (TECHNICAL, BILLING, or GENERAL) and a brief reason.

Format:
CATEGORY: [category]
REASON: [brief reason in one sentence]`

// Classifier assigns one of the three categories to a ticket.
type Classifier struct {
	provider provider.Provider
}

// NewClassifier creates a Classifier backed by prov.
func NewClassifier(prov provider.Provider) *Classifier {
	return &Classifier{provider: prov}
}

func (c *Classifier) Name() string { return "classifier" }

// Respond returns the category as Content and the classification reason
// plus a confidence hint in Metadata. Unparseable or failed classification
// defaults to GENERAL.
func (c *Classifier) Respond(ctx context.Context, ticket string) protocol.AgentResponse {
	if strings.TrimSpace(ticket) == "" {
		return protocol.AgentResponse{
			Agent:   c.Name(),
			Content: string(protocol.CategoryGeneral),
			Metadata: map[string]any{
				"reason":     "Empty ticket",
				"confidence": 0.5,
			},
		}
	}

	reply, err := complete(ctx, c.provider, fmt.Sprintf(classifierPromptTemplate, ticket), classifierTemperature)
	if err != nil {
		return protocol.AgentResponse{
			Agent:   c.Name(),
			Content: string(protocol.CategoryGeneral),
			Metadata: map[string]any{
				"reason":     fmt.Sprintf("Classification error: %v", err),
				"confidence": 0.3,
				"error":      err.Error(),
			},
		}
	}

	category, reason := parseClassification(reply)

	return protocol.AgentResponse{
		Agent:   c.Name(),
		Content: string(category),
		Metadata: map[string]any{
			"reason":     reason,
			"confidence": 0.85,
		},
	}
}

// parseClassification scans the reply for CATEGORY and REASON lines. The
// last occurrence of each label wins; a missing or unknown category maps
// to GENERAL.
func parseClassification(reply string) (protocol.Category, string) {
	rawCategory := ""
	reason := "Unable to classify"

	for _, line := range strings.Split(strings.TrimSpace(reply), "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "CATEGORY:"); ok {
			rawCategory = strings.ToUpper(strings.TrimSpace(after))
		} else if after, ok := strings.CutPrefix(line, "REASON:"); ok {
			reason = strings.TrimSpace(after)
		}
	}

	return protocol.ParseCategory(rawCategory), reason
}
