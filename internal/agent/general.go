package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskd-io/deskd/internal/provider"
	"github.com/deskd-io/deskd/internal/search"
	"github.com/deskd-io/deskd/pkg/protocol"
)

const generalTemperature = 0.4

const generalPromptTemplate = `You are a customer support agent. Help answer this general inquiry.

Customer Question: %s

Additional Information (from web search):
%s

Provide a helpful, friendly response that:
1. Directly answers their question
2. Provides relevant information
3. Offers additional assistance if needed

Keep your response conversational but professional (max 300 words).

Response:`

const generalFallback = "Thank you for reaching out! I'd be happy to help. " +
	"Could you provide a bit more detail so I can give you the best answer?"

const generalEmptyPrompt = "Hello! How can I assist you today?"

// General handles everything that is neither technical nor billing.
type General struct {
	provider provider.Provider
	searcher search.Searcher
}

// NewGeneral creates a General responder.
func NewGeneral(prov provider.Provider, searcher search.Searcher) *General {
	return &General{provider: prov, searcher: searcher}
}

func (a *General) Name() string { return "general" }

func (a *General) Respond(ctx context.Context, ticket string) protocol.AgentResponse {
	if strings.TrimSpace(ticket) == "" {
		return protocol.AgentResponse{
			Agent:    a.Name(),
			Content:  generalEmptyPrompt,
			Metadata: map[string]any{"search_used": false},
		}
	}

	results := a.searcher.Search(ctx, truncate(ticket, 100), 2)
	prompt := fmt.Sprintf(generalPromptTemplate, ticket, search.FormatContext(results))

	reply, err := complete(ctx, a.provider, prompt, generalTemperature)
	if err != nil {
		return protocol.AgentResponse{
			Agent:   a.Name(),
			Content: generalFallback,
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
