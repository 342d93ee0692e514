// Package workflow sequences one ticket through the processing pipeline:
// classify, route to a specialist, validate against guardrails, check for
// escalation, and record metrics. Every stage degrades to a fallback on
// failure; the terminal state is always reached and every submission
// yields a result.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deskd-io/deskd/internal/agent"
	"github.com/deskd-io/deskd/internal/eval"
	"github.com/deskd-io/deskd/internal/guardrail"
	"github.com/deskd-io/deskd/internal/metrics"
	"github.com/deskd-io/deskd/pkg/protocol"
)

// state identifies a pipeline stage. Transitions are strictly sequential;
// no stage is re-entered.
type state string

const (
	stateClassify        state = "classify"
	stateRoute           state = "route"
	stateValidate        state = "validate"
	stateCheckEscalation state = "check_escalation"
	stateFinalize        state = "finalize"
	stateDone            state = "done"
)

// Params holds the collaborators an Orchestrator needs.
type Params struct {
	Classifier agent.Responder
	Technical  agent.Responder
	Billing    agent.Responder
	General    agent.Responder

	ContentFilter *guardrail.ContentFilter
	Validator     *guardrail.ResponseValidator
	Escalation    *guardrail.EscalationChecker

	Tracker *metrics.Tracker
	Logger  *slog.Logger
}

// Orchestrator runs the ticket workflow. One instance serves concurrent
// tickets; the metrics tracker is the only shared mutable resource and
// synchronizes itself.
type Orchestrator struct {
	classifier agent.Responder
	routes     map[protocol.Category]agent.Responder
	general    agent.Responder

	contentFilter *guardrail.ContentFilter
	validator     *guardrail.ResponseValidator
	escalation    *guardrail.EscalationChecker

	tracker *metrics.Tracker
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an Orchestrator. All Params fields except Logger are
// required; a missing one is a construction error, not a per-ticket
// fallback.
func New(p Params) (*Orchestrator, error) {
	switch {
	case p.Classifier == nil:
		return nil, fmt.Errorf("workflow: classifier is required")
	case p.Technical == nil || p.Billing == nil || p.General == nil:
		return nil, fmt.Errorf("workflow: all three specialist responders are required")
	case p.ContentFilter == nil || p.Validator == nil || p.Escalation == nil:
		return nil, fmt.Errorf("workflow: all three guardrails are required")
	case p.Tracker == nil:
		return nil, fmt.Errorf("workflow: metrics tracker is required")
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Category dispatch is a fixed mapping resolved once here; anything
	// unrecognized falls through to the general responder.
	routes := map[protocol.Category]agent.Responder{
		protocol.CategoryTechnical: p.Technical,
		protocol.CategoryBilling:   p.Billing,
		protocol.CategoryGeneral:   p.General,
	}

	return &Orchestrator{
		classifier:    p.Classifier,
		routes:        routes,
		general:       p.General,
		contentFilter: p.ContentFilter,
		validator:     p.Validator,
		escalation:    p.Escalation,
		tracker:       p.Tracker,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// ticketRecord is the single mutable processing record threaded through
// the stage sequence. It is owned by exactly one stage at a time.
type ticketRecord struct {
	ticket     protocol.Ticket
	category   protocol.Category
	response   string
	confidence float64
	escalated  bool
	violations []protocol.Violation
	metadata   map[string]any
	agentUsed  string
}

// ProcessTicket runs one ticket through the full pipeline and returns its
// result. Per-ticket failures never surface here; the error return exists
// only for contract symmetry with other services and is always nil.
func (o *Orchestrator) ProcessTicket(ctx context.Context, text string) (*protocol.Result, error) {
	start := o.now()
	rec := &ticketRecord{
		ticket: protocol.Ticket{
			ID:        newTicketID(start),
			Text:      text,
			CreatedAt: start,
		},
		metadata: make(map[string]any),
	}

	o.logger.Debug("processing ticket", "ticket", rec.ticket.ID)

	for st := stateClassify; st != stateDone; {
		switch st {
		case stateClassify:
			o.classify(ctx, rec)
			st = stateRoute
		case stateRoute:
			o.route(ctx, rec)
			st = stateValidate
		case stateValidate:
			o.validate(rec)
			st = stateCheckEscalation
		case stateCheckEscalation:
			o.checkEscalation(rec)
			st = stateFinalize
		case stateFinalize:
			o.finalize(rec, start)
			st = stateDone
		}
	}

	o.logger.Info("ticket processed",
		"ticket", rec.ticket.ID,
		"category", rec.category,
		"agent", rec.agentUsed,
		"confidence", rec.confidence,
		"escalated", rec.escalated,
		"violations", len(rec.violations),
	)

	return &protocol.Result{
		TicketID:   rec.ticket.ID,
		Category:   rec.category,
		Response:   rec.response,
		Confidence: rec.confidence,
		Escalated:  rec.escalated,
		AgentUsed:  rec.agentUsed,
		Metadata:   rec.metadata,
		Violations: rec.violations,
	}, nil
}

func (o *Orchestrator) classify(ctx context.Context, rec *ticketRecord) {
	resp := o.classifier.Respond(ctx, rec.ticket.Text)
	rec.category = protocol.ParseCategory(resp.Content)
	rec.metadata["classification_reason"] = resp.Metadata["reason"]
	rec.confidence = metadataFloat(resp.Metadata, "confidence", 0.5)
}

func (o *Orchestrator) route(ctx context.Context, rec *ticketRecord) {
	responder, ok := o.routes[rec.category]
	if !ok {
		responder = o.general
	}

	resp := responder.Respond(ctx, rec.ticket.Text)
	rec.response = resp.Content
	rec.agentUsed = responder.Name()
	rec.metadata["agent_metadata"] = resp.Metadata

	hasSearch := metadataBool(resp.Metadata, "search_used")
	rec.confidence = eval.CalculateConfidence(responder.Name(), len(resp.Content), hasSearch)
}

func (o *Orchestrator) validate(rec *ticketRecord) {
	safe, topics := o.contentFilter.Check(rec.response)
	if !safe {
		for _, topic := range topics {
			rec.violations = append(rec.violations, protocol.Violation{
				Kind:   protocol.ViolationContent,
				Detail: topic,
			})
		}
		rec.response = o.contentFilter.Sanitize(rec.response, topics)
	}

	// Validation runs on the possibly sanitized text.
	if ok, reason := o.validator.Validate(rec.response); !ok {
		rec.violations = append(rec.violations, protocol.Violation{
			Kind:   protocol.ViolationQuality,
			Detail: reason,
		})
	}

	if !o.validator.CheckCompleteness(rec.response) {
		rec.violations = append(rec.violations, protocol.Violation{
			Kind: protocol.ViolationCompleteness,
		})
	}
}

func (o *Orchestrator) checkEscalation(rec *ticketRecord) {
	decision := o.escalation.Decide(rec.ticket.Text, rec.confidence, rec.category)
	rec.escalated = decision.ShouldEscalate

	if decision.ShouldEscalate {
		rec.response = rec.response + "\n\n---\n" + guardrail.EscalationMessage(decision.Reasons)
		rec.metadata["escalation_reasons"] = decision.Reasons
	}
}

func (o *Orchestrator) finalize(rec *ticketRecord, start time.Time) {
	elapsed := o.now().Sub(start).Seconds()

	o.tracker.Log(protocol.Interaction{
		TicketID:     rec.ticket.ID,
		Timestamp:    o.now(),
		Category:     rec.category,
		Confidence:   rec.confidence,
		ResponseTime: elapsed,
		Escalated:    rec.escalated,
		Violations:   rec.violations,
		AgentUsed:    rec.agentUsed,
	})

	rec.metadata["response_time"] = elapsed
}

// MetricsSummary returns the current aggregate statistics.
func (o *Orchestrator) MetricsSummary() metrics.Summary {
	return o.tracker.Summary()
}

// RecentInteractions returns the n most recent interactions.
func (o *Orchestrator) RecentInteractions(n int) []protocol.Interaction {
	return o.tracker.Recent(n)
}

// ExportMetrics writes the session metrics document to path.
func (o *Orchestrator) ExportMetrics(path string) error {
	return o.tracker.Export(path)
}

// newTicketID builds a process-unique ticket identifier. The timestamp
// keeps IDs sortable for humans; the random suffix prevents collisions
// under rapid submission.
func newTicketID(t time.Time) string {
	return fmt.Sprintf("TICKET-%s-%s", t.Format("20060102150405"), uuid.NewString()[:8])
}

func metadataFloat(meta map[string]any, key string, fallback float64) float64 {
	switch v := meta[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}

func metadataBool(meta map[string]any, key string) bool {
	v, _ := meta[key].(bool)
	return v
}
