package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deskd-io/deskd/pkg/protocol"
)

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("missing api key header")
		}
		if r.Header.Get("anthropic-version") != anthropicAPIVersion {
			t.Error("missing anthropic-version header")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.MaxTokens == 0 {
			t.Error("expected max_tokens to be set")
		}

		resp := anthropicResponse{
			Content: []contentBlock{{Type: "text", Text: "Sure, here is help."}},
			Usage:   anthropicUsage{InputTokens: 7, OutputTokens: 4},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewAnthropic("test-key", WithAnthropicBaseURL(srv.URL))

	got, err := p.Complete(context.Background(), protocol.CompletionRequest{Prompt: "help"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Content != "Sure, here is help." {
		t.Errorf("unexpected content %q", got.Content)
	}
	if got.Usage.TotalTokens() != 11 {
		t.Errorf("expected 11 total tokens, got %d", got.Usage.TotalTokens())
	}
}
