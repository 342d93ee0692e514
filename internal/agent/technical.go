package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskd-io/deskd/internal/provider"
	"github.com/deskd-io/deskd/internal/search"
	"github.com/deskd-io/deskd/pkg/protocol"
)

const technicalTemperature = 0.3

const technicalPromptTemplate = `You are a technical support specialist. Help resolve this technical issue.

Customer Issue: %s

Additional Information (from web search):
%s

Provide a helpful, professional response that:
1. Acknowledges the issue
2. Provides clear troubleshooting steps or solution
3. Offers additional help if needed

Keep your response concise (max 400 words) and actionable.

Response:`

const technicalFallback = "I understand you're experiencing a technical issue. " +
	"Let me help you troubleshoot this. Could you provide more details about " +
	"what you're seeing and what steps you've already tried?"

const technicalEmptyPrompt = "I'd be happy to help with your technical issue. Could you please provide more details?"

// Technical handles technical support tickets, enriching the prompt with
// web search context.
type Technical struct {
	provider provider.Provider
	searcher search.Searcher
}

// NewTechnical creates a Technical responder.
func NewTechnical(prov provider.Provider, searcher search.Searcher) *Technical {
	return &Technical{provider: prov, searcher: searcher}
}

func (a *Technical) Name() string { return "technical" }

func (a *Technical) Respond(ctx context.Context, ticket string) protocol.AgentResponse {
	if strings.TrimSpace(ticket) == "" {
		return protocol.AgentResponse{
			Agent:    a.Name(),
			Content:  technicalEmptyPrompt,
			Metadata: map[string]any{"search_used": false},
		}
	}

	results := a.searcher.Search(ctx, "technical support "+truncate(ticket, 100), 2)
	prompt := fmt.Sprintf(technicalPromptTemplate, ticket, search.FormatContext(results))

	reply, err := complete(ctx, a.provider, prompt, technicalTemperature)
	if err != nil {
		return protocol.AgentResponse{
			Agent:   a.Name(),
			Content: technicalFallback,
			Metadata: map[string]any{
				"search_used": false,
				"error":       err.Error(),
			},
		}
	}

	return protocol.AgentResponse{
		Agent:   a.Name(),
		Content: strings.TrimSpace(reply),
		Metadata: map[string]any{
			"search_used":    true,
			"search_results": results,
		},
	}
}
