package eval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/deskd-io/deskd/pkg/protocol"
)

// stubProvider returns a fixed completion or error.
type stubProvider struct {
	content string
	err     error
	lastReq protocol.CompletionRequest
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, req protocol.CompletionRequest) (*protocol.CompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &protocol.CompletionResponse{Content: s.content}, nil
}

func TestEvaluateResponse(t *testing.T) {
	stub := &stubProvider{content: "SCORE: 0.8\nEVALUATION: Clear and relevant."}
	e := NewEvaluator(stub)

	score, text := e.EvaluateResponse(context.Background(), "my app crashes", "try reinstalling", protocol.CategoryTechnical)
	if score != 0.8 {
		t.Errorf("expected score 0.8, got %v", score)
	}
	if text != "Clear and relevant." {
		t.Errorf("unexpected evaluation %q", text)
	}
	if stub.lastReq.Temperature != evaluatorTemperature {
		t.Errorf("expected evaluator temperature, got %v", stub.lastReq.Temperature)
	}
	if !strings.Contains(stub.lastReq.Prompt, "my app crashes") {
		t.Error("prompt missing ticket text")
	}
}

func TestEvaluateResponseClampsScore(t *testing.T) {
	e := NewEvaluator(&stubProvider{content: "SCORE: 1.7\nEVALUATION: overenthusiastic"})
	score, _ := e.EvaluateResponse(context.Background(), "t", "r", protocol.CategoryGeneral)
	if score != 1.0 {
		t.Errorf("expected clamp to 1.0, got %v", score)
	}
}

func TestEvaluateResponseParseFailure(t *testing.T) {
	e := NewEvaluator(&stubProvider{content: "I refuse to use the format"})
	score, text := e.EvaluateResponse(context.Background(), "t", "r", protocol.CategoryGeneral)
	if score != 0.5 {
		t.Errorf("expected default 0.5, got %v", score)
	}
	if text != "I refuse to use the format" {
		t.Errorf("expected raw content as evaluation, got %q", text)
	}
}

func TestEvaluateResponseProviderError(t *testing.T) {
	e := NewEvaluator(&stubProvider{err: errors.New("timeout")})
	score, text := e.EvaluateResponse(context.Background(), "t", "r", protocol.CategoryGeneral)
	if score != 0.5 {
		t.Errorf("expected default 0.5, got %v", score)
	}
	if !strings.Contains(text, "Evaluation failed") {
		t.Errorf("unexpected text %q", text)
	}
}

func TestEvaluateResponseMalformedScore(t *testing.T) {
	e := NewEvaluator(&stubProvider{content: "SCORE: high\nEVALUATION: vague"})
	score, text := e.EvaluateResponse(context.Background(), "t", "r", protocol.CategoryGeneral)
	if score != 0.5 {
		t.Errorf("expected default 0.5 on unparsable score, got %v", score)
	}
	if text != "vague" {
		t.Errorf("unexpected text %q", text)
	}
}
