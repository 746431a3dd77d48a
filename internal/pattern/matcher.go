// Package pattern implements the rule utilities shared by learning
// modules: trigger-pattern matching, feedback-driven confidence updates,
// and frequency-based pattern mining over behavior samples.
package pattern

import (
	"strings"

	"github.com/rand/adapt/internal/learning"
)

// Matches reports whether any of the rule's trigger patterns is a
// case-insensitive substring of the input.
func Matches(rule *learning.Rule, input string) bool {
	folded := strings.ToLower(input)
	for _, p := range rule.Patterns {
		if p == "" {
			continue
		}
		if strings.Contains(folded, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// BestMatch returns the highest-ranked rule matching the input, or nil.
// Rules are ranked by priority, then confidence.
func BestMatch(rules []learning.Rule, input string) *learning.Rule {
	var best *learning.Rule
	for i := range rules {
		r := &rules[i]
		if !Matches(r, input) {
			continue
		}
		if best == nil || r.Priority > best.Priority ||
			(r.Priority == best.Priority && r.Confidence > best.Confidence) {
			best = r
		}
	}
	return best
}

// Feedback folds one feedback event into the rule's confidence as a
// running success ratio. The ratio of non-negative counters keeps the
// confidence within [0,1] by construction.
func Feedback(rule *learning.Rule, positive bool) {
	if positive {
		rule.SuccessCount++
	}
	rule.TotalCount++
	rule.Confidence = float64(rule.SuccessCount) / float64(rule.TotalCount)
}
