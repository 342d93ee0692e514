package metrics

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/deskd-io/deskd/pkg/protocol"
)

func sample(id string, category protocol.Category, confidence, responseTime float64, escalated bool, agent string) protocol.Interaction {
	return protocol.Interaction{
		TicketID:     id,
		Timestamp:    time.Now(),
		Category:     category,
		Confidence:   confidence,
		ResponseTime: responseTime,
		Escalated:    escalated,
		AgentUsed:    agent,
	}
}

func TestSummaryEmpty(t *testing.T) {
	tr := NewTracker()
	s := tr.Summary()

	if s.TotalInteractions != 0 || s.AvgConfidence != 0 || s.AvgResponseTime != 0 ||
		s.EscalationRate != 0 || s.TotalViolations != 0 {
		t.Errorf("expected zeroed summary, got %+v", s)
	}
	if len(s.CategoryBreakdown) != 0 || len(s.AgentPerformance) != 0 {
		t.Errorf("expected empty maps, got %+v", s)
	}
}

func TestSummaryAverages(t *testing.T) {
	tr := NewTracker()
	confidences := []float64{0.5, 0.7, 0.9}
	for i, c := range confidences {
		escalated := i == 0
		tr.Log(sample(fmt.Sprintf("TICKET-%d", i), protocol.CategoryTechnical, c, float64(i+1), escalated, "technical"))
	}

	s := tr.Summary()
	if s.TotalInteractions != 3 {
		t.Fatalf("expected 3 interactions, got %d", s.TotalInteractions)
	}
	wantConfidence := (0.5 + 0.7 + 0.9) / 3
	if math.Abs(s.AvgConfidence-wantConfidence) > 1e-9 {
		t.Errorf("avg confidence %v, want %v", s.AvgConfidence, wantConfidence)
	}
	wantTime := (1.0 + 2.0 + 3.0) / 3
	if math.Abs(s.AvgResponseTime-wantTime) > 1e-9 {
		t.Errorf("avg response time %v, want %v", s.AvgResponseTime, wantTime)
	}
	wantRate := 100.0 * 1 / 3
	if math.Abs(s.EscalationRate-wantRate) > 1e-9 {
		t.Errorf("escalation rate %v, want %v", s.EscalationRate, wantRate)
	}
	if s.CategoryBreakdown[protocol.CategoryTechnical] != 3 {
		t.Errorf("unexpected breakdown %v", s.CategoryBreakdown)
	}
}

func TestSummaryPerAgent(t *testing.T) {
	tr := NewTracker()
	tr.Log(sample("a", protocol.CategoryBilling, 0.6, 2, false, "billing"))
	tr.Log(sample("b", protocol.CategoryBilling, 0.8, 4, true, "billing"))
	tr.Log(sample("c", protocol.CategoryGeneral, 1.0, 1, false, "general"))

	s := tr.Summary()
	billing := s.AgentPerformance["billing"]
	if billing.Count != 2 {
		t.Fatalf("expected 2 billing interactions, got %d", billing.Count)
	}
	if math.Abs(billing.AvgConfidence-0.7) > 1e-9 {
		t.Errorf("billing avg confidence %v, want 0.7", billing.AvgConfidence)
	}
	if math.Abs(billing.AvgResponseTime-3) > 1e-9 {
		t.Errorf("billing avg response time %v, want 3", billing.AvgResponseTime)
	}
	if s.AgentPerformance["general"].Count != 1 {
		t.Errorf("unexpected general stats %+v", s.AgentPerformance["general"])
	}
}

func TestViolationCount(t *testing.T) {
	tr := NewTracker()
	m := sample("a", protocol.CategoryGeneral, 0.5, 1, false, "general")
	m.Violations = []protocol.Violation{
		{Kind: protocol.ViolationQuality, Detail: "Response is empty"},
		{Kind: protocol.ViolationCompleteness},
	}
	tr.Log(m)
	tr.Log(sample("b", protocol.CategoryGeneral, 0.5, 1, false, "general"))

	if got := tr.Summary().TotalViolations; got != 2 {
		t.Errorf("expected 2 violations, got %d", got)
	}
}

func TestRecent(t *testing.T) {
	tr := NewTracker()
	for _, id := range []string{"a", "b", "c"} {
		tr.Log(sample(id, protocol.CategoryGeneral, 0.5, 1, false, "general"))
	}

	recent := tr.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2, got %d", len(recent))
	}
	if recent[0].TicketID != "b" || recent[1].TicketID != "c" {
		t.Errorf("unexpected order: %s, %s", recent[0].TicketID, recent[1].TicketID)
	}

	if got := tr.Recent(10); len(got) != 3 {
		t.Errorf("expected all 3 when n exceeds log, got %d", len(got))
	}
	if got := tr.Recent(0); got != nil {
		t.Errorf("expected nil for n=0, got %v", got)
	}
}

func TestConcurrentLogAndSummary(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tr.Log(sample("t", protocol.CategoryGeneral, 0.5, 1, false, "general"))
				_ = tr.Summary()
			}
		}(i)
	}
	wg.Wait()

	if got := tr.Count(); got != 400 {
		t.Errorf("expected 400 interactions, got %d", got)
	}
}
