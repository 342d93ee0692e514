package eval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/deskd-io/deskd/internal/provider"
	"github.com/deskd-io/deskd/pkg/protocol"
)

const evaluatorTemperature = 0.1

const evalPromptTemplate = `You are an expert evaluator for customer support AI agents.

Ticket: %s
Category: %s
Agent Response: %s

Evaluate the response on these criteria:
1. Relevance: Does it address the ticket?
2. Accuracy: Is the information correct?
3. Completeness: Does it fully answer the question?
4. Professionalism: Is the tone appropriate?
5. Clarity: Is it easy to understand?

Provide:
1. Overall quality score (0.0 to 1.0)
2. Brief evaluation (max 100 words)

Format your response as:
SCORE: [0.0-1.0]
EVALUATION: [your evaluation]`

// Evaluator grades responses with a completion call. Grading failures
// never reach the caller; they degrade to the 0.5 default score.
type Evaluator struct {
	provider provider.Provider
}

// NewEvaluator creates an Evaluator backed by prov.
func NewEvaluator(prov provider.Provider) *Evaluator {
	return &Evaluator{provider: prov}
}

// EvaluateResponse asks the model to grade a response. It returns a score
// in [0, 1] and a free-text explanation; on any failure the score is 0.5
// and the explanation describes what went wrong.
func (e *Evaluator) EvaluateResponse(ctx context.Context, ticket, response string, category protocol.Category) (float64, string) {
	prompt := fmt.Sprintf(evalPromptTemplate, ticket, category, response)

	resp, err := e.provider.Complete(ctx, protocol.CompletionRequest{
		Prompt:      prompt,
		Temperature: evaluatorTemperature,
	})
	if err != nil {
		return 0.5, fmt.Sprintf("Evaluation failed: %v", err)
	}

	score := 0.5
	evalText := resp.Content

	for _, line := range strings.Split(resp.Content, "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "SCORE:"); ok {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(after), 64); err == nil {
				score = clamp(parsed)
			}
		} else if after, ok := strings.CutPrefix(line, "EVALUATION:"); ok {
			evalText = strings.TrimSpace(after)
		}
	}

	return score, evalText
}
