// Package collab supports collaborative learning: anonymizing locally
// mined patterns before they leave the device, and merging globally
// aggregated rules back into a module's rule set.
package collab

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rand/adapt/internal/learning"
)

// Strategy is an anonymization strategy for one sample field.
type Strategy string

const (
	// StrategyHash replaces the value with a short stable hash, keeping
	// pattern-matching ability without the raw value.
	StrategyHash Strategy = "hash"

	// StrategyRange replaces a numeric value with a coarse bucket.
	StrategyRange Strategy = "range"

	// StrategyRemove drops the field entirely.
	StrategyRemove Strategy = "remove"

	// StrategyPseudonymize replaces an identifier with a stable pseudonym.
	StrategyPseudonymize Strategy = "pseudonymize"

	// StrategyKeep keeps the value as is.
	StrategyKeep Strategy = "keep"
)

// DefaultFieldStrategies is the anonymization applied to sample features
// before collaborative upload.
var DefaultFieldStrategies = map[string]Strategy{
	"merchant":    StrategyHash,
	"amount":      StrategyRange,
	"description": StrategyRemove,
	"text":        StrategyRemove,
	"user_id":     StrategyPseudonymize,
}

// Anonymize applies field strategies to a feature mapping. Unknown fields
// are kept. The input is not modified.
func Anonymize(features map[string]any, strategies map[string]Strategy) map[string]any {
	if strategies == nil {
		strategies = DefaultFieldStrategies
	}

	out := make(map[string]any, len(features))
	for key, value := range features {
		strategy, ok := strategies[key]
		if !ok {
			strategy = StrategyKeep
		}
		switch strategy {
		case StrategyHash:
			out[key] = HashValue(fmt.Sprint(value))
		case StrategyRange:
			if n, ok := toFloat(value); ok {
				out[key] = AmountRange(n)
			}
		case StrategyRemove:
			// dropped
		case StrategyPseudonymize:
			out[key] = "user_" + HashValue(fmt.Sprint(value))[:8]
		default:
			out[key] = value
		}
	}
	return out
}

// HashValue returns a 16-character stable hash of the value.
func HashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:16]
}

// AmountRange buckets an amount into a coarse, non-identifying range.
func AmountRange(amount float64) string {
	switch {
	case amount < 10:
		return "tiny"
	case amount < 50:
		return "small"
	case amount < 100:
		return "medium"
	case amount < 500:
		return "large"
	case amount < 1000:
		return "xlarge"
	default:
		return "huge"
	}
}

// HashRule produces the feature hash that identifies a rule across users.
// Identity fields (rule id, timestamps, usage counters) are excluded so
// that equal patterns from different users collide.
func HashRule(rule learning.Rule) string {
	patterns := make([]string, len(rule.Patterns))
	copy(patterns, rule.Patterns)
	sort.Strings(patterns)

	payload, _ := json.Marshal(struct {
		ModuleID string   `json:"module_id"`
		Patterns []string `json:"patterns"`
		Result   any      `json:"result"`
	}{rule.ModuleID, patterns, rule.Result})

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
