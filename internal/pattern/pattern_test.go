package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rand/adapt/internal/learning"
)

func TestMatches_CaseInsensitiveSubstring(t *testing.T) {
	rule := &learning.Rule{Patterns: []string{"budget"}}

	assert.True(t, Matches(rule, "Set my BUDGET please"))
	assert.True(t, Matches(rule, "budget"))
	assert.False(t, Matches(rule, "set my bud get"))
}

func TestMatches_AnyPatternSuffices(t *testing.T) {
	rule := &learning.Rule{Patterns: []string{"coffee", "latte"}}

	assert.True(t, Matches(rule, "one latte to go"))
	assert.True(t, Matches(rule, "morning COFFEE"))
	assert.False(t, Matches(rule, "tea please"))
}

func TestMatches_EmptyPatternNeverMatches(t *testing.T) {
	rule := &learning.Rule{Patterns: []string{""}}
	assert.False(t, Matches(rule, "anything"))

	rule.Patterns = nil
	assert.False(t, Matches(rule, "anything"))
}

func TestBestMatch_PriorityThenConfidence(t *testing.T) {
	rules := []learning.Rule{
		{ID: "low", Patterns: []string{"pay"}, Priority: 50, Confidence: 0.99},
		{ID: "high", Patterns: []string{"pay"}, Priority: 100, Confidence: 0.61},
		{ID: "tied", Patterns: []string{"pay"}, Priority: 100, Confidence: 0.60},
	}

	best := BestMatch(rules, "pay rent")
	require.NotNil(t, best)
	assert.Equal(t, "high", best.ID)
}

func TestBestMatch_NoMatchReturnsNil(t *testing.T) {
	rules := []learning.Rule{
		{ID: "r", Patterns: []string{"coffee"}, Priority: 100, Confidence: 0.9},
	}
	assert.Nil(t, BestMatch(rules, "buy groceries"))
	assert.Nil(t, BestMatch(nil, "anything"))
}

func TestFeedback_RunningRatio(t *testing.T) {
	rule := &learning.Rule{SuccessCount: 3, TotalCount: 4, Confidence: 0.75}

	Feedback(rule, true)
	assert.Equal(t, 4, rule.SuccessCount)
	assert.Equal(t, 5, rule.TotalCount)
	assert.InDelta(t, 0.8, rule.Confidence, 1e-9)

	Feedback(rule, false)
	assert.Equal(t, 4, rule.SuccessCount)
	assert.Equal(t, 6, rule.TotalCount)
	assert.InDelta(t, 4.0/6.0, rule.Confidence, 1e-9)
}

func textSample(text, label string) learning.Sample {
	return learning.Sample{
		Features: map[string]any{"text": text},
		Label:    label,
		Source:   learning.SourceExplicitFeedback,
	}
}

func TestMiner_ExtractCandidates(t *testing.T) {
	m := NewMiner(MinerConfig{})
	group := []string{
		"add coffee expense",
		"add coffee expense",
		"add tea expense",
		"some unrelated text",
	}

	candidates := m.ExtractCandidates(group)
	require.Len(t, candidates, 5)

	byPattern := make(map[string]int)
	for _, c := range candidates {
		byPattern[c.Pattern] = c.Frequency
	}
	assert.Equal(t, 3, byPattern["add"])
	assert.Equal(t, 3, byPattern["expense"])
	assert.Equal(t, 2, byPattern["coffee"])
	assert.Equal(t, 2, byPattern["add coffee"])
	assert.Equal(t, 2, byPattern["coffee expense"])

	// Frequency-1 patterns miss the ceil(0.3*4)=2 threshold.
	for _, excluded := range []string{"some", "unrelated", "text", "tea"} {
		assert.NotContains(t, byPattern, excluded)
	}
}

func TestMiner_ExtractCandidates_DedupesWithinText(t *testing.T) {
	m := NewMiner(MinerConfig{})

	// "add" appears twice in one text but counts once per text.
	candidates := m.ExtractCandidates([]string{"add add expense"})
	byPattern := make(map[string]int)
	for _, c := range candidates {
		byPattern[c.Pattern] = c.Frequency
	}
	assert.Equal(t, 1, byPattern["add"])
}

func TestMiner_ExtractCandidates_DropsShortTokens(t *testing.T) {
	m := NewMiner(MinerConfig{})

	candidates := m.ExtractCandidates([]string{"a coffee", "a coffee"})
	for _, c := range candidates {
		assert.NotEqual(t, "a", c.Pattern)
	}
}

func TestMiner_Mine_GroupBelowMinSizeProducesNothing(t *testing.T) {
	m := NewMiner(MinerConfig{})
	samples := []learning.Sample{
		textSample("add expense coffee", "add_expense"),
		textSample("add coffee please", "add_expense"),
	}

	assert.Empty(t, m.Mine("intent", samples))
}

func TestMiner_Mine_ProducesRulesWithProvenance(t *testing.T) {
	m := NewMiner(MinerConfig{})
	samples := []learning.Sample{
		textSample("add expense coffee", "add_expense"),
		textSample("add coffee expense", "add_expense"),
		textSample("expense add", "add_expense"),
	}

	rules := m.Mine("intent", samples)
	require.NotEmpty(t, rules)

	for _, r := range rules {
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, "intent", r.ModuleID)
		assert.Equal(t, "add_expense", r.Result)
		assert.Equal(t, learning.RuleSourceUserLearned, r.Source)
		assert.Len(t, r.Patterns, 1)
		assert.GreaterOrEqual(t, r.Confidence, 0.6)
		assert.LessOrEqual(t, r.Confidence, 1.0)
	}
}

func TestMiner_Mine_RejectsAmbiguousPatterns(t *testing.T) {
	m := NewMiner(MinerConfig{})

	// "add" appears in both groups evenly, so its success rate for either
	// label is 0.5 and below the 0.6 bound.
	samples := []learning.Sample{
		textSample("add coffee", "add_expense"),
		textSample("add tea", "add_expense"),
		textSample("add snacks", "add_expense"),
		textSample("add budget", "set_budget"),
		textSample("add limit", "set_budget"),
		textSample("add cap", "set_budget"),
	}

	rules := m.Mine("intent", samples)
	for _, r := range rules {
		assert.NotEqual(t, []string{"add"}, r.Patterns,
			"pattern shared evenly across groups must not become a rule")
	}
}

func TestMiner_Mine_IgnoresUnlabeledAndEmptySamples(t *testing.T) {
	m := NewMiner(MinerConfig{})
	samples := []learning.Sample{
		textSample("add expense coffee", ""),
		textSample("", "add_expense"),
		{Features: map[string]any{}, Label: "add_expense"},
	}

	assert.Empty(t, m.Mine("intent", samples))
}
