// Package eval scores responses: a cheap structural confidence heuristic
// used by the workflow, and an optional LLM-based grader. The two scores
// are independent; callers decide how to combine them.
package eval

// CalculateConfidence estimates response quality from shape alone: length
// of the reply, whether search context backed it, and which agent wrote
// it. The result is clamped to [0, 1].
func CalculateConfidence(agentName string, responseLength int, hasSearchResults bool) float64 {
	confidence := 0.7

	if responseLength < 50 {
		confidence -= 0.2
	} else if responseLength > 200 {
		confidence += 0.1
	}

	if hasSearchResults {
		confidence += 0.15
	}

	// The classifier's single-label output is usually trustworthy.
	if agentName == "classifier" {
		confidence += 0.1
	}

	return clamp(confidence)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
