package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rand/adapt/internal/learning"
)

func TestAnonymize_DefaultStrategies(t *testing.T) {
	features := map[string]any{
		"merchant":    "Blue Bottle Coffee",
		"amount":      42.5,
		"description": "morning coffee with colleagues",
		"text":        "add expense coffee",
		"user_id":     "user-1234",
		"category":    "food",
	}

	out := Anonymize(features, nil)

	assert.NotContains(t, out, "description")
	assert.NotContains(t, out, "text")
	assert.Equal(t, "food", out["category"], "unknown fields stay")
	assert.Equal(t, "small", out["amount"])

	merchant, ok := out["merchant"].(string)
	require.True(t, ok)
	assert.Len(t, merchant, 16)
	assert.NotContains(t, merchant, "Blue")

	user, ok := out["user_id"].(string)
	require.True(t, ok)
	assert.True(t, len(user) > 5 && user[:5] == "user_")
	assert.NotContains(t, user, "1234")
}

func TestAnonymize_Deterministic(t *testing.T) {
	a := Anonymize(map[string]any{"merchant": "same shop"}, nil)
	b := Anonymize(map[string]any{"merchant": "same shop"}, nil)
	assert.Equal(t, a["merchant"], b["merchant"])
}

func TestAnonymize_DoesNotModifyInput(t *testing.T) {
	features := map[string]any{"description": "secret"}
	_ = Anonymize(features, nil)
	assert.Equal(t, "secret", features["description"])
}

func TestAmountRange(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{5, "tiny"},
		{10, "small"},
		{49.99, "small"},
		{50, "medium"},
		{100, "large"},
		{500, "xlarge"},
		{1000, "huge"},
		{25000, "huge"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AmountRange(tt.amount), "amount %f", tt.amount)
	}
}

func TestHashRule_StableAcrossIdentityFields(t *testing.T) {
	base := learning.Rule{
		ID:         "local-1",
		ModuleID:   "intent",
		Patterns:   []string{"coffee", "latte"},
		Result:     "add_expense",
		Confidence: 0.8,
		HitCount:   12,
	}
	other := learning.Rule{
		ID:         "remote-7",
		ModuleID:   "intent",
		Patterns:   []string{"latte", "coffee"},
		Result:     "add_expense",
		Confidence: 0.3,
		HitCount:   0,
	}

	assert.Equal(t, HashRule(base), HashRule(other),
		"same patterns and result must collide regardless of identity fields")

	different := base
	different.Patterns = []string{"tea"}
	assert.NotEqual(t, HashRule(base), HashRule(different))
}

func TestContribute_FiltersSourceAndConfidence(t *testing.T) {
	rules := []learning.Rule{
		{ID: "good", ModuleID: "intent", Patterns: []string{"coffee"}, Result: "add_expense",
			Confidence: 0.9, Source: learning.RuleSourceUserLearned},
		{ID: "weak", ModuleID: "intent", Patterns: []string{"tea"}, Result: "add_expense",
			Confidence: 0.4, Source: learning.RuleSourceUserLearned},
		{ID: "collab", ModuleID: "intent", Patterns: []string{"taxi"}, Result: "add_expense",
			Confidence: 0.95, Source: learning.RuleSourceCollaborative},
	}

	contribs := Contribute(rules, 0.7)
	require.Len(t, contribs, 1)
	assert.Equal(t, []string{"coffee"}, contribs[0].Patterns)
	assert.NotEmpty(t, contribs[0].FeatureHash)
}

func TestMerge_AdoptsUnknownGlobalRules(t *testing.T) {
	global := []GlobalRule{{
		FeatureHash: "abc",
		ModuleID:    "intent",
		Patterns:    []string{"taxi"},
		Result:      "add_expense",
		Confidence:  0.85,
		UserCount:   120,
	}}

	merged, res := Merge(nil, global)
	require.Len(t, merged, 1)
	assert.Equal(t, 1, res.Adopted)
	assert.Equal(t, learning.RuleSourceCollaborative, merged[0].Source)
	assert.Equal(t, 90, merged[0].Priority)
	assert.NotEmpty(t, merged[0].ID)
	assert.Equal(t, 120, merged[0].Metadata["user_count"])
}

func TestMerge_LocalWinsUnlessGlobalClearlyStronger(t *testing.T) {
	local := learning.Rule{
		ID:         "local-1",
		ModuleID:   "intent",
		Patterns:   []string{"coffee"},
		Result:     "add_expense",
		Priority:   100,
		Confidence: 0.7,
		Source:     learning.RuleSourceUserLearned,
	}
	hash := HashRule(local)

	// 0.8 <= 0.7*1.2: local stays.
	merged, res := Merge([]learning.Rule{local}, []GlobalRule{{
		FeatureHash: hash, ModuleID: "intent",
		Patterns: []string{"coffee"}, Result: "add_expense", Confidence: 0.8,
	}})
	require.Len(t, merged, 1)
	assert.Equal(t, 1, res.Kept)
	assert.Equal(t, learning.RuleSourceUserLearned, merged[0].Source)
	assert.InDelta(t, 0.7, merged[0].Confidence, 1e-9)

	// 0.9 > 0.7*1.2: global displaces local, keeping the local rule id.
	merged, res = Merge([]learning.Rule{local}, []GlobalRule{{
		FeatureHash: hash, ModuleID: "intent",
		Patterns: []string{"coffee"}, Result: "add_expense", Confidence: 0.9,
	}})
	require.Len(t, merged, 1)
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, learning.RuleSourceCollaborative, merged[0].Source)
	assert.Equal(t, "local-1", merged[0].ID)
	assert.InDelta(t, 0.9, merged[0].Confidence, 1e-9)
}

func TestMerge_DoesNotModifyInput(t *testing.T) {
	local := []learning.Rule{{
		ID: "local-1", ModuleID: "intent",
		Patterns: []string{"coffee"}, Result: "add_expense",
		Priority: 100, Confidence: 0.7, Source: learning.RuleSourceUserLearned,
	}}

	_, _ = Merge(local, []GlobalRule{{
		FeatureHash: HashRule(local[0]), ModuleID: "intent",
		Patterns: []string{"coffee"}, Result: "add_expense", Confidence: 0.99,
	}})

	assert.Equal(t, learning.RuleSourceUserLearned, local[0].Source)
	assert.InDelta(t, 0.7, local[0].Confidence, 1e-9)
}
