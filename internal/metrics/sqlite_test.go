package metrics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/deskd-io/deskd/pkg/protocol"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteInsertAndAll(t *testing.T) {
	store := newTestStore(t)

	m := protocol.Interaction{
		TicketID:     "TICKET-1",
		Timestamp:    time.Now().UTC().Truncate(time.Millisecond),
		Category:     protocol.CategoryTechnical,
		Confidence:   0.75,
		ResponseTime: 2.25,
		Escalated:    true,
		Violations:   []protocol.Violation{{Kind: protocol.ViolationQuality, Detail: "Response is empty"}},
		AgentUsed:    "technical",
	}
	if err := store.Insert(m); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	all, err := store.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 row, got %d", len(all))
	}
	got := all[0]
	if got.TicketID != m.TicketID || got.Category != m.Category || !got.Escalated {
		t.Errorf("row mismatch: %+v", got)
	}
	if !got.Timestamp.Equal(m.Timestamp) {
		t.Errorf("timestamp mismatch: %v vs %v", got.Timestamp, m.Timestamp)
	}
	if len(got.Violations) != 1 || got.Violations[0].Kind != protocol.ViolationQuality {
		t.Errorf("violations mismatch: %+v", got.Violations)
	}
}

func TestSQLiteInsertIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	m := protocol.Interaction{TicketID: "TICKET-1", Timestamp: time.Now(), Category: protocol.CategoryGeneral, AgentUsed: "general"}
	if err := store.Insert(m); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	m.Confidence = 0.9
	if err := store.Insert(m); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	n, err := store.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row after re-insert, got %d", n)
	}
}

func TestTrackerHydrate(t *testing.T) {
	store := newTestStore(t)
	store.Insert(protocol.Interaction{TicketID: "TICKET-old", Timestamp: time.Now().Add(-time.Hour), Category: protocol.CategoryBilling, AgentUsed: "billing"})

	tr := NewTracker(WithStore(store))
	if err := tr.Hydrate(); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if tr.Count() != 1 {
		t.Fatalf("expected 1 hydrated interaction, got %d", tr.Count())
	}

	tr.Log(protocol.Interaction{TicketID: "TICKET-new", Timestamp: time.Now(), Category: protocol.CategoryGeneral, AgentUsed: "general"})

	n, err := store.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 stored rows, got %d", n)
	}
}
