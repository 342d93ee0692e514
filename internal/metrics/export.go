package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/deskd-io/deskd/pkg/protocol"
)

// ExportDocument is the structure written by Export. Every field written
// is independently readable back via ReadExport.
type ExportDocument struct {
	SessionStart time.Time              `json:"session_start"`
	SessionEnd   time.Time              `json:"session_end"`
	Summary      Summary                `json:"summary"`
	Interactions []protocol.Interaction `json:"interactions"`
}

// Export writes the session document to path as indented JSON. Overwrite
// semantics: repeated exports to the same path are idempotent.
func (t *Tracker) Export(path string) error {
	t.mu.RLock()
	interactions := make([]protocol.Interaction, len(t.interactions))
	copy(interactions, t.interactions)
	sessionStart := t.sessionStart
	t.mu.RUnlock()

	doc := ExportDocument{
		SessionStart: sessionStart,
		SessionEnd:   time.Now(),
		Summary:      t.Summary(),
		Interactions: interactions,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("metrics: marshal export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}

// ReadExport parses a document previously written by Export.
func ReadExport(path string) (*ExportDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metrics: read %s: %w", path, err)
	}
	var doc ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("metrics: parse %s: %w", path, err)
	}
	return &doc, nil
}
