// Package logbuf keeps a bounded in-memory tail of the daemon's log
// stream so the API can serve recent entries without touching disk.
package logbuf

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Ring holds the most recent entries up to a fixed capacity. Older
// entries are discarded as new ones arrive.
type Ring struct {
	mu   sync.RWMutex
	buf  []Entry
	head int
	full bool
	cap  int
}

// NewRing creates a ring with the given capacity. Capacity below 1 is
// raised to 1.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]Entry, capacity), cap: capacity}
}

// Append stores an entry, evicting the oldest when full.
func (r *Ring) Append(e Entry) {
	r.mu.Lock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % r.cap
	if r.head == 0 {
		r.full = true
	}
	r.mu.Unlock()
}

// Len reports how many entries are currently held.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return r.cap
	}
	return r.head
}

// Tail returns up to n entries, oldest first, filtered to records at or
// above minLevel and not before since. A zero since and n <= 0 disable
// those filters.
func (r *Ring) Tail(n int, minLevel slog.Level, since time.Time) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := r.head
	start := 0
	if r.full {
		count = r.cap
		start = r.head
	}

	var out []Entry
	for i := 0; i < count; i++ {
		e := r.buf[(start+i)%r.cap]
		if !since.IsZero() && e.Time.Before(since) {
			continue
		}
		if ParseLevel(e.Level) < minLevel {
			continue
		}
		out = append(out, e)
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// ParseLevel maps a level name to its slog.Level. Unknown names map to
// INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
