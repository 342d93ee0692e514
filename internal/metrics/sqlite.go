package metrics

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/deskd-io/deskd/pkg/protocol"
)

// SQLiteStore implements Store using SQLite. It gives interactions
// durability across restarts; the tracker re-hydrates from it at startup.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("metrics store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("metrics store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS interactions (
			ticket_id     TEXT PRIMARY KEY,
			timestamp     TEXT NOT NULL,
			category      TEXT NOT NULL,
			confidence    REAL NOT NULL,
			response_time REAL NOT NULL,
			escalated     INTEGER NOT NULL DEFAULT 0,
			violations    TEXT NOT NULL DEFAULT '[]',
			agent_used    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_interactions_category ON interactions(category);
		CREATE INDEX IF NOT EXISTS idx_interactions_timestamp ON interactions(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("metrics store: migrate: %w", err)
	}
	return nil
}

// Insert stores one interaction. Re-inserting the same ticket ID is an
// overwrite, which keeps replays idempotent.
func (s *SQLiteStore) Insert(m protocol.Interaction) error {
	violations, _ := json.Marshal(m.Violations)

	_, err := s.db.Exec(`
		INSERT INTO interactions (ticket_id, timestamp, category, confidence, response_time, escalated, violations, agent_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticket_id) DO UPDATE SET
			timestamp=excluded.timestamp, category=excluded.category, confidence=excluded.confidence,
			response_time=excluded.response_time, escalated=excluded.escalated,
			violations=excluded.violations, agent_used=excluded.agent_used
	`, m.TicketID, m.Timestamp.Format(time.RFC3339Nano), string(m.Category), m.Confidence,
		m.ResponseTime, boolToInt(m.Escalated), string(violations), m.AgentUsed)
	if err != nil {
		return fmt.Errorf("metrics store: insert: %w", err)
	}
	return nil
}

// All returns every stored interaction, oldest first.
func (s *SQLiteStore) All() ([]protocol.Interaction, error) {
	rows, err := s.db.Query(`
		SELECT ticket_id, timestamp, category, confidence, response_time, escalated, violations, agent_used
		FROM interactions ORDER BY timestamp ASC`)
	if err != nil {
		return nil, fmt.Errorf("metrics store: query: %w", err)
	}
	defer rows.Close()

	var out []protocol.Interaction
	for rows.Next() {
		var m protocol.Interaction
		var ts, category, violations string
		var escalated int
		if err := rows.Scan(&m.TicketID, &ts, &category, &m.Confidence, &m.ResponseTime,
			&escalated, &violations, &m.AgentUsed); err != nil {
			return nil, fmt.Errorf("metrics store: scan: %w", err)
		}
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		m.Category = protocol.Category(category)
		m.Escalated = escalated != 0
		if err := json.Unmarshal([]byte(violations), &m.Violations); err != nil {
			m.Violations = nil
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Count returns the number of stored interactions.
func (s *SQLiteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM interactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("metrics store: count: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
