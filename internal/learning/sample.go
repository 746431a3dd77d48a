package learning

import (
	"time"
)

// SampleSource identifies how a learning sample was acquired.
type SampleSource string

const (
	// SourceExplicitFeedback means the user explicitly provided the outcome
	// (e.g. corrected a suggested category).
	SourceExplicitFeedback SampleSource = "explicit_feedback"

	// SourceImplicitBehavior means the outcome was inferred from user behavior
	// (e.g. the user accepted a suggestion without changes).
	SourceImplicitBehavior SampleSource = "implicit_behavior"

	// SourceSystemInference means the system derived the sample itself.
	SourceSystemInference SampleSource = "system_inference"

	// SourceCollaborativeSync means the sample arrived through collaborative
	// learning synchronization.
	SourceCollaborativeSync SampleSource = "collaborative_sync"
)

// Sample is one observed event a module can learn from. Samples are
// immutable once created and owned by the module that collected them.
type Sample struct {
	// ID is a unique identifier for the sample.
	ID string `json:"id"`

	// UserID identifies the user the sample was observed for.
	UserID string `json:"user_id"`

	// Features is the feature mapping extracted from the event.
	Features map[string]any `json:"features"`

	// Label is the observed outcome, if any.
	Label string `json:"label,omitempty"`

	// Source indicates how the sample was acquired.
	Source SampleSource `json:"source"`

	// CreatedAt is when the event was observed.
	CreatedAt time.Time `json:"created_at"`
}

// Text returns the raw text input of the sample, if one was recorded.
// Text-driven modules (intent disambiguation) mine trigger patterns from it.
func (s *Sample) Text() string {
	if v, ok := s.Features["text"].(string); ok {
		return v
	}
	return ""
}
