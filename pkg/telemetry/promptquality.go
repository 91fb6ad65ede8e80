package telemetry

// PromptQualityThreshold is the minimum intent-classification score that
// counts as a usable match; anything lower is flagged rather than acted
// on, since a low-confidence prompt is worse than no suggestion at all.
const PromptQualityThreshold = 0.2

// PromptQualityMonitor flags low-confidence intent classifications rather
// than letting the pipeline quietly act on them.
type PromptQualityMonitor struct {
	events    *Log
	threshold float64
}

// NewPromptQualityMonitor builds a monitor using PromptQualityThreshold.
// events may be nil, in which case low-quality prompts are detected but
// never written.
func NewPromptQualityMonitor(events *Log) *PromptQualityMonitor {
	return &PromptQualityMonitor{events: events, threshold: PromptQualityThreshold}
}

// Evaluate reports whether score clears the quality threshold for
// promptID. A prompt with an empty promptID (the classifier found no
// match at all) is never flagged here; the Governor has no special rule
// for an empty promptID either.
func (m *PromptQualityMonitor) Evaluate(promptID string, score float64) bool {
	if promptID == "" {
		return true
	}
	if score >= m.threshold {
		return true
	}
	if m.events != nil {
		m.events.writeRaw(map[string]any{
			"type":      TypePromptQualityLow,
			"prompt_id": promptID,
			"score":     score,
		})
	}
	return false
}
