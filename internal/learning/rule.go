package learning

import (
	"time"
)

// RuleSource identifies where a learned rule came from.
type RuleSource string

const (
	// RuleSourceUserLearned means the rule was mined from this user's behavior.
	RuleSourceUserLearned RuleSource = "user_learned"

	// RuleSourceCollaborative means the rule was obtained through
	// collaborative learning.
	RuleSourceCollaborative RuleSource = "collaborative"

	// RuleSourceSystemDefault means the rule ships with the system.
	RuleSourceSystemDefault RuleSource = "system_default"

	// RuleSourceAdminConfigured means the rule was configured by an operator.
	RuleSourceAdminConfigured RuleSource = "admin_configured"
)

// Rule is a learned, matchable unit of inference. Rules are mutated only by
// their owning module: hit statistics on every successful match, confidence
// through feedback.
type Rule struct {
	// ID is a unique identifier for the rule.
	ID string `json:"id"`

	// ModuleID identifies the module that owns the rule.
	ModuleID string `json:"module_id"`

	// Patterns are the trigger patterns. A rule matches an input when any
	// pattern is a case-insensitive substring of it.
	Patterns []string `json:"patterns"`

	// Result is the output the rule produces when it matches.
	Result any `json:"result"`

	// Priority orders rules during matching (higher first).
	Priority int `json:"priority"`

	// Confidence is the rule's confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// SuccessCount is the number of positive feedback events.
	SuccessCount int `json:"success_count"`

	// TotalCount is the number of feedback events overall.
	TotalCount int `json:"total_count"`

	// HitCount is the number of successful matches.
	HitCount int `json:"hit_count"`

	// Source indicates where the rule came from.
	Source RuleSource `json:"source"`

	// CreatedAt is when the rule was mined or imported.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the rule last matched an input.
	LastUsedAt time.Time `json:"last_used_at"`

	// Metadata holds module-specific extras.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RecordHit updates match statistics after a successful match.
func (r *Rule) RecordHit() {
	r.HitCount++
	r.LastUsedAt = time.Now()
}

// ResultString returns the rule result as a string, or "" when the result
// is not textual.
func (r *Rule) ResultString() string {
	if s, ok := r.Result.(string); ok {
		return s
	}
	return ""
}

// RuleFilter narrows Rules queries. Zero values mean "no restriction".
type RuleFilter struct {
	// Source restricts results to rules from one source.
	Source RuleSource

	// Limit caps the number of returned rules (0 = unlimited).
	Limit int
}
