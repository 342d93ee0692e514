package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/deskd-io/deskd/pkg/protocol"
)

// stubProvider returns a fixed completion or error and records calls.
type stubProvider struct {
	content string
	err     error
	calls   int
	lastReq protocol.CompletionRequest
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, req protocol.CompletionRequest) (*protocol.CompletionResponse, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &protocol.CompletionResponse{Content: s.content}, nil
}

// stubSearcher returns fixed results and records queries.
type stubSearcher struct {
	results   []protocol.SearchResult
	lastQuery string
	calls     int
}

func (s *stubSearcher) Search(_ context.Context, query string, _ int) []protocol.SearchResult {
	s.calls++
	s.lastQuery = query
	if s.results == nil {
		return []protocol.SearchResult{{Title: "No results", Snippet: "No search results found"}}
	}
	return s.results
}

func TestClassifierRespond(t *testing.T) {
	stub := &stubProvider{content: "CATEGORY: BILLING\nREASON: Mentions an invoice."}
	c := NewClassifier(stub)

	resp := c.Respond(context.Background(), "My invoice is wrong")
	if resp.Content != "BILLING" {
		t.Errorf("expected BILLING, got %q", resp.Content)
	}
	if resp.Metadata["reason"] != "Mentions an invoice." {
		t.Errorf("unexpected reason %v", resp.Metadata["reason"])
	}
	if resp.Metadata["confidence"] != 0.85 {
		t.Errorf("unexpected confidence %v", resp.Metadata["confidence"])
	}
	if stub.lastReq.Temperature != classifierTemperature {
		t.Errorf("unexpected temperature %v", stub.lastReq.Temperature)
	}
	if !strings.Contains(stub.lastReq.Prompt, "My invoice is wrong") {
		t.Error("prompt missing ticket text")
	}
}

func TestClassifierEmptyTicketSkipsProvider(t *testing.T) {
	stub := &stubProvider{content: "CATEGORY: TECHNICAL"}
	c := NewClassifier(stub)

	resp := c.Respond(context.Background(), "   ")
	if stub.calls != 0 {
		t.Errorf("expected no provider calls, got %d", stub.calls)
	}
	if resp.Content != "GENERAL" {
		t.Errorf("expected GENERAL, got %q", resp.Content)
	}
	if resp.Metadata["confidence"] != 0.5 {
		t.Errorf("expected confidence 0.5, got %v", resp.Metadata["confidence"])
	}
	if resp.Metadata["reason"] != "Empty ticket" {
		t.Errorf("unexpected reason %v", resp.Metadata["reason"])
	}
}

func TestClassifierProviderError(t *testing.T) {
	c := NewClassifier(&stubProvider{err: errors.New("rate limited")})

	resp := c.Respond(context.Background(), "anything")
	if resp.Content != "GENERAL" {
		t.Errorf("expected GENERAL fallback, got %q", resp.Content)
	}
	if resp.Metadata["confidence"] != 0.3 {
		t.Errorf("expected confidence 0.3, got %v", resp.Metadata["confidence"])
	}
	if _, ok := resp.Metadata["error"]; !ok {
		t.Error("expected error metadata")
	}
}

func TestParseClassification(t *testing.T) {
	cases := []struct {
		name       string
		reply      string
		wantCat    protocol.Category
		wantReason string
	}{
		{
			"well formed",
			"CATEGORY: TECHNICAL\nREASON: App crash reported.",
			protocol.CategoryTechnical,
			"App crash reported.",
		},
		{
			"last occurrence wins",
			"CATEGORY: BILLING\nREASON: first\nCATEGORY: GENERAL\nREASON: second",
			protocol.CategoryGeneral,
			"second",
		},
		{
			"lowercase label value is normalized",
			"CATEGORY: billing\nREASON: invoice",
			protocol.CategoryBilling,
			"invoice",
		},
		{
			"unknown category defaults",
			"CATEGORY: SALES\nREASON: pricing question",
			protocol.CategoryGeneral,
			"pricing question",
		},
		{
			"missing labels default",
			"I think this is a technical problem.",
			protocol.CategoryGeneral,
			"Unable to classify",
		},
		{
			"indented labels are accepted",
			"  CATEGORY: TECHNICAL\n  REASON: whitespace around labels",
			protocol.CategoryTechnical,
			"whitespace around labels",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cat, reason := parseClassification(c.reply)
			if cat != c.wantCat {
				t.Errorf("category = %q, want %q", cat, c.wantCat)
			}
			if reason != c.wantReason {
				t.Errorf("reason = %q, want %q", reason, c.wantReason)
			}
		})
	}
}
