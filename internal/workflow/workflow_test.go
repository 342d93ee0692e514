package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/deskd-io/deskd/internal/guardrail"
	"github.com/deskd-io/deskd/internal/metrics"
	"github.com/deskd-io/deskd/pkg/protocol"
)

// scriptedResponder returns canned responses keyed by nothing; it just
// plays back what the test configured.
type scriptedResponder struct {
	name     string
	content  string
	metadata map[string]any
	calls    int
}

func (r *scriptedResponder) Name() string { return r.name }

func (r *scriptedResponder) Respond(_ context.Context, _ string) protocol.AgentResponse {
	r.calls++
	meta := r.metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return protocol.AgentResponse{Agent: r.name, Content: r.content, Metadata: meta}
}

type fixture struct {
	orch       *Orchestrator
	tracker    *metrics.Tracker
	classifier *scriptedResponder
	technical  *scriptedResponder
	billing    *scriptedResponder
	general    *scriptedResponder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tracker: metrics.NewTracker(),
		classifier: &scriptedResponder{
			name:     "classifier",
			content:  "GENERAL",
			metadata: map[string]any{"reason": "default", "confidence": 0.85},
		},
		technical: &scriptedResponder{
			name:     "technical",
			content:  "Please restart the app, clear the cache, and try the upload again.",
			metadata: map[string]any{"search_used": true},
		},
		billing: &scriptedResponder{
			name:     "billing",
			content:  "I have reviewed your charge and issued the correction.",
			metadata: map[string]any{"search_used": false, "high_value_refund": false},
		},
		general: &scriptedResponder{
			name:     "general",
			content:  "Thanks for reaching out! Here is what you need to know about our plans.",
			metadata: map[string]any{"search_used": true},
		},
	}

	orch, err := New(Params{
		Classifier:    f.classifier,
		Technical:     f.technical,
		Billing:       f.billing,
		General:       f.general,
		ContentFilter: guardrail.NewContentFilter([]string{"legal advice"}),
		Validator:     guardrail.NewResponseValidator(20, 2000),
		Escalation:    guardrail.NewEscalationChecker([]string{"lawyer"}, 0.5),
		Tracker:       f.tracker,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.orch = orch
	return f
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Params{}); err == nil {
		t.Fatal("expected error for empty params")
	}
}

func TestProcessTicketRoutesByCategory(t *testing.T) {
	f := newFixture(t)
	f.classifier.content = "TECHNICAL"

	result, err := f.orch.ProcessTicket(context.Background(), "my app crashes when uploading")
	if err != nil {
		t.Fatalf("ProcessTicket: %v", err)
	}

	if result.Category != protocol.CategoryTechnical {
		t.Errorf("category = %q", result.Category)
	}
	if result.AgentUsed != "technical" {
		t.Errorf("agent = %q", result.AgentUsed)
	}
	if f.technical.calls != 1 || f.billing.calls != 0 || f.general.calls != 0 {
		t.Errorf("unexpected routing: tech=%d billing=%d general=%d",
			f.technical.calls, f.billing.calls, f.general.calls)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		t.Errorf("confidence out of range: %v", result.Confidence)
	}
	if !strings.HasPrefix(result.TicketID, "TICKET-") {
		t.Errorf("unexpected ticket id %q", result.TicketID)
	}
}

func TestProcessTicketUnknownCategoryFallsBackToGeneral(t *testing.T) {
	f := newFixture(t)
	f.classifier.content = "SOMETHING_ELSE"

	result, _ := f.orch.ProcessTicket(context.Background(), "hello there, quick question")
	if result.Category != protocol.CategoryGeneral {
		t.Errorf("category = %q", result.Category)
	}
	if f.general.calls != 1 {
		t.Errorf("expected general responder, calls=%d", f.general.calls)
	}
}

func TestProcessTicketEmptyTicket(t *testing.T) {
	f := newFixture(t)
	f.classifier.content = "GENERAL"
	f.classifier.metadata = map[string]any{"reason": "Empty ticket", "confidence": 0.5}
	// The general responder's canned empty-ticket prompt: short, no search.
	f.general.content = "Hello! How can I assist you today?"
	f.general.metadata = map[string]any{"search_used": false}

	result, _ := f.orch.ProcessTicket(context.Background(), "")
	if result.Category != protocol.CategoryGeneral {
		t.Errorf("category = %q", result.Category)
	}
	if result.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", result.Confidence)
	}
	if result.Escalated {
		t.Errorf("empty ticket should not escalate: %v", result.Metadata["escalation_reasons"])
	}
	if len(result.Violations) != 0 {
		t.Errorf("expected zero violations, got %v", result.Violations)
	}
}

func TestProcessTicketSanitizesProhibitedContent(t *testing.T) {
	f := newFixture(t)
	f.classifier.content = "GENERAL"
	f.general.content = "You should really get some legal advice about this situation today."

	result, _ := f.orch.ProcessTicket(context.Background(), "what should I do about my landlord")

	if !strings.Contains(result.Response, "I apologize, but I cannot provide legal advice") {
		t.Errorf("expected sanitized response, got %q", result.Response)
	}
	foundContent := false
	for _, v := range result.Violations {
		if v.Kind == protocol.ViolationContent && v.Detail == "legal advice" {
			foundContent = true
		}
	}
	if !foundContent {
		t.Errorf("missing content violation: %v", result.Violations)
	}
}

func TestProcessTicketRecordsPlaceholderViolation(t *testing.T) {
	f := newFixture(t)
	f.classifier.content = "TECHNICAL"
	f.technical.content = "Here is a fix for your problem. TODO add the actual steps here."

	result, _ := f.orch.ProcessTicket(context.Background(), "app is broken")

	found := false
	for _, v := range result.Violations {
		if v.Kind == protocol.ViolationQuality && strings.Contains(v.Detail, "placeholder") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected placeholder violation, got %v", result.Violations)
	}
}

func TestProcessTicketIncompleteResponse(t *testing.T) {
	f := newFixture(t)
	f.classifier.content = "GENERAL"
	f.general.content = "This answer just stops in the middle of a"

	result, _ := f.orch.ProcessTicket(context.Background(), "question about plans")

	found := false
	for _, v := range result.Violations {
		if v.Kind == protocol.ViolationCompleteness {
			found = true
		}
	}
	if !found {
		t.Errorf("expected completeness violation, got %v", result.Violations)
	}
}

func TestProcessTicketEscalationAppends(t *testing.T) {
	f := newFixture(t)
	f.classifier.content = "BILLING"
	original := f.billing.content

	result, _ := f.orch.ProcessTicket(context.Background(),
		"This is URGENT! I need an immediate refund of $5000 or I will contact my lawyer!")

	if !result.Escalated {
		t.Fatal("expected escalation")
	}
	if !strings.HasPrefix(result.Response, original) {
		t.Error("escalation must append to the response, not replace it")
	}
	if !strings.Contains(result.Response, "flagged for human review") {
		t.Errorf("missing escalation notice:\n%s", result.Response)
	}

	reasons, ok := result.Metadata["escalation_reasons"].([]string)
	if !ok {
		t.Fatalf("missing escalation_reasons metadata: %v", result.Metadata)
	}
	haveUrgent, haveTrigger := false, false
	for _, r := range reasons {
		if r == "Urgent issue detected" {
			haveUrgent = true
		}
		if r == "Trigger word detected: lawyer" {
			haveTrigger = true
		}
	}
	if !haveUrgent || !haveTrigger {
		t.Errorf("unexpected reasons %v", reasons)
	}
}

func TestProcessTicketLogsInteraction(t *testing.T) {
	f := newFixture(t)
	f.classifier.content = "BILLING"

	result, _ := f.orch.ProcessTicket(context.Background(), "charge question")

	s := f.orch.MetricsSummary()
	if s.TotalInteractions != 1 {
		t.Fatalf("expected 1 interaction, got %d", s.TotalInteractions)
	}
	if s.CategoryBreakdown[protocol.CategoryBilling] != 1 {
		t.Errorf("unexpected breakdown %v", s.CategoryBreakdown)
	}
	recent := f.orch.RecentInteractions(1)
	if len(recent) != 1 || recent[0].TicketID != result.TicketID {
		t.Errorf("recent interaction mismatch: %+v", recent)
	}
	if _, ok := result.Metadata["response_time"]; !ok {
		t.Error("missing response_time metadata")
	}
}

func TestTicketIDsAreUnique(t *testing.T) {
	f := newFixture(t)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		result, _ := f.orch.ProcessTicket(context.Background(), "hello, a question about plans")
		if seen[result.TicketID] {
			t.Fatalf("duplicate ticket id %q", result.TicketID)
		}
		seen[result.TicketID] = true
	}
}

func TestClassifierConfidenceUsedBeforeRouting(t *testing.T) {
	f := newFixture(t)
	f.classifier.metadata = map[string]any{"confidence": 0.3}
	f.classifier.content = "GENERAL"
	// Long response with search: 0.7 + 0.1 + 0.15 = 0.95 after routing.
	f.general.content = strings.Repeat("All the details you asked about are in this sentence. ", 5)

	result, _ := f.orch.ProcessTicket(context.Background(), "tell me about the premium plan")
	if result.Confidence != 0.95 {
		t.Errorf("confidence = %v, want routing-stage value 0.95", result.Confidence)
	}
}
