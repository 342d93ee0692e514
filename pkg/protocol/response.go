package protocol

// AgentResponse is what a responder produces for a ticket. Content is the
// reply text; Metadata carries free-form context (whether search was used,
// snippets, fallback error info).
type AgentResponse struct {
	Agent    string         `json:"agent"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Meta returns the metadata map, allocating it on first use.
func (r *AgentResponse) Meta() map[string]any {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	return r.Metadata
}

// SearchResult is one entry returned by the web search collaborator.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}
