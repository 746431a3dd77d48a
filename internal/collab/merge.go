package collab

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rand/adapt/internal/learning"
)

// replaceConfidenceFactor is how much stronger a global rule's confidence
// must be before it displaces a locally learned rule for the same pattern.
const replaceConfidenceFactor = 1.2

// GlobalRule is an anonymized rule aggregated across users.
type GlobalRule struct {
	FeatureHash string    `json:"feature_hash"`
	ModuleID    string    `json:"module_id"`
	Patterns    []string  `json:"patterns"`
	Result      any       `json:"result"`
	Confidence  float64   `json:"confidence"`
	UserCount   int       `json:"user_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Contribution is the anonymized form of a locally learned rule, ready for
// upload to the aggregation service.
type Contribution struct {
	FeatureHash string   `json:"feature_hash"`
	ModuleID    string   `json:"module_id"`
	Patterns    []string `json:"patterns"`
	Result      any      `json:"result"`
	Confidence  float64  `json:"confidence"`
}

// Contribute converts locally learned rules into anonymized contributions.
// Only user-learned rules with real support are shared; collaborative and
// default rules would feed back noise.
func Contribute(rules []learning.Rule, minConfidence float64) []Contribution {
	var out []Contribution
	for _, r := range rules {
		if r.Source != learning.RuleSourceUserLearned {
			continue
		}
		if r.Confidence < minConfidence {
			continue
		}
		patterns := make([]string, len(r.Patterns))
		copy(patterns, r.Patterns)
		out = append(out, Contribution{
			FeatureHash: HashRule(r),
			ModuleID:    r.ModuleID,
			Patterns:    patterns,
			Result:      r.Result,
			Confidence:  r.Confidence,
		})
	}
	return out
}

// MergeResult summarizes a collaborative merge.
type MergeResult struct {
	Adopted  int
	Replaced int
	Kept     int
}

// Merge folds globally aggregated rules into a local rule set and returns
// the merged set. Global rules with no local counterpart are adopted as
// collaborative rules. A global rule displaces a local one for the same
// feature hash only when its confidence exceeds the local confidence by
// replaceConfidenceFactor; otherwise local learning wins. The input slice
// is not modified.
func Merge(local []learning.Rule, global []GlobalRule) ([]learning.Rule, MergeResult) {
	byHash := make(map[string]int, len(local))
	merged := make([]learning.Rule, len(local))
	copy(merged, local)
	for i, r := range merged {
		byHash[HashRule(r)] = i
	}

	var res MergeResult
	now := time.Now()
	for _, g := range global {
		idx, exists := byHash[g.FeatureHash]
		if !exists {
			merged = append(merged, collaborativeRule(g, now))
			res.Adopted++
			continue
		}
		if g.Confidence > merged[idx].Confidence*replaceConfidenceFactor {
			replacement := collaborativeRule(g, now)
			replacement.ID = merged[idx].ID
			merged[idx] = replacement
			res.Replaced++
		} else {
			res.Kept++
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Priority != merged[j].Priority {
			return merged[i].Priority > merged[j].Priority
		}
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged, res
}

func collaborativeRule(g GlobalRule, now time.Time) learning.Rule {
	patterns := make([]string, len(g.Patterns))
	copy(patterns, g.Patterns)
	return learning.Rule{
		ID:         uuid.New().String(),
		ModuleID:   g.ModuleID,
		Patterns:   patterns,
		Result:     g.Result,
		Priority:   90,
		Confidence: g.Confidence,
		Source:     learning.RuleSourceCollaborative,
		CreatedAt:  now,
		Metadata:   map[string]any{"user_count": g.UserCount},
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
