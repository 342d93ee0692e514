// Package metrics keeps the append-only interaction log and derives
// aggregate statistics from it on demand. The log is the one shared
// mutable resource in the system; the tracker serializes appends and
// snapshots reads so summaries stay consistent under concurrent tickets.
package metrics

import (
	"log/slog"
	"sync"
	"time"

	"github.com/deskd-io/deskd/pkg/protocol"
)

// Store persists interactions beyond the process lifetime. The in-memory
// log remains the source of truth for summaries within a session.
type Store interface {
	Insert(protocol.Interaction) error
	All() ([]protocol.Interaction, error)
}

// AgentStats aggregates per-agent performance.
type AgentStats struct {
	Count           int     `json:"count"`
	AvgConfidence   float64 `json:"avg_confidence"`
	AvgResponseTime float64 `json:"avg_response_time"`
}

// Summary is derived from the full interaction log at query time; it is
// never stored independently.
type Summary struct {
	TotalInteractions int                       `json:"total_interactions"`
	AvgResponseTime   float64                   `json:"avg_response_time"`
	AvgConfidence     float64                   `json:"avg_confidence"`
	EscalationRate    float64                   `json:"escalation_rate"`
	TotalViolations   int                       `json:"total_violations"`
	CategoryBreakdown map[protocol.Category]int `json:"category_breakdown"`
	AgentPerformance  map[string]AgentStats     `json:"agent_performance"`
}

// Tracker is the session-scoped interaction log.
type Tracker struct {
	mu           sync.RWMutex
	interactions []protocol.Interaction
	sessionStart time.Time

	store  Store // optional
	logger *slog.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithStore attaches a durable store. Every logged interaction is also
// inserted there, best-effort.
func WithStore(s Store) TrackerOption {
	return func(t *Tracker) { t.store = s }
}

// WithLogger sets the tracker's logger.
func WithLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates an empty tracker for a new session.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		sessionStart: time.Now(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Log appends one interaction. Prior entries are never touched. A store
// failure is logged and otherwise ignored; it must not fail the pipeline.
func (t *Tracker) Log(interaction protocol.Interaction) {
	t.mu.Lock()
	t.interactions = append(t.interactions, interaction)
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.Insert(interaction); err != nil {
			t.logger.Warn("interaction store insert failed",
				"ticket", interaction.TicketID, "error", err)
		}
	}
}

// Hydrate seeds the log from the durable store. Intended for startup,
// before any tickets are accepted.
func (t *Tracker) Hydrate() error {
	if t.store == nil {
		return nil
	}
	stored, err := t.store.All()
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.interactions = append(stored, t.interactions...)
	t.mu.Unlock()
	return nil
}

// Count returns the number of logged interactions.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.interactions)
}

// Recent returns the n most recent interactions, oldest first.
func (t *Tracker) Recent(n int) []protocol.Interaction {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n <= 0 || len(t.interactions) == 0 {
		return nil
	}
	start := len(t.interactions) - n
	if start < 0 {
		start = 0
	}
	out := make([]protocol.Interaction, len(t.interactions)-start)
	copy(out, t.interactions[start:])
	return out
}

// Summary recomputes aggregate statistics from the full log. An empty log
// yields a zeroed summary; no division by zero.
func (t *Tracker) Summary() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Summary{
		CategoryBreakdown: make(map[protocol.Category]int),
		AgentPerformance:  make(map[string]AgentStats),
	}

	total := len(t.interactions)
	if total == 0 {
		return s
	}

	var sumTime, sumConfidence float64
	escalated := 0
	agentTotals := make(map[string]*agentAccumulator)

	for _, m := range t.interactions {
		sumTime += m.ResponseTime
		sumConfidence += m.Confidence
		if m.Escalated {
			escalated++
		}
		s.TotalViolations += len(m.Violations)
		s.CategoryBreakdown[m.Category]++

		acc := agentTotals[m.AgentUsed]
		if acc == nil {
			acc = &agentAccumulator{}
			agentTotals[m.AgentUsed] = acc
		}
		acc.count++
		acc.confidence += m.Confidence
		acc.responseTime += m.ResponseTime
	}

	s.TotalInteractions = total
	s.AvgResponseTime = sumTime / float64(total)
	s.AvgConfidence = sumConfidence / float64(total)
	s.EscalationRate = float64(escalated) / float64(total) * 100

	for agent, acc := range agentTotals {
		s.AgentPerformance[agent] = AgentStats{
			Count:           acc.count,
			AvgConfidence:   acc.confidence / float64(acc.count),
			AvgResponseTime: acc.responseTime / float64(acc.count),
		}
	}

	return s
}

type agentAccumulator struct {
	count        int
	confidence   float64
	responseTime float64
}
