package budget

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rand/adapt/internal/learning"
	"github.com/rand/adapt/internal/store"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()
	return New(Config{Store: store.NewMemoryStore()})
}

func adjustment(category string, suggested, adopted float64) learning.Sample {
	return learning.Sample{
		Features: map[string]any{
			FeatureCategory:  category,
			FeatureSuggested: suggested,
			FeatureAdopted:   adopted,
		},
		Source: learning.SourceImplicitBehavior,
	}
}

func TestBudget_TrainLearnsAdjustmentFactor(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	// User consistently raises food suggestions by half.
	require.NoError(t, m.CollectSamples(ctx, []learning.Sample{
		adjustment("food", 100, 150),
		adjustment("food", 200, 300),
		adjustment("food", 400, 600),
	}))

	result, err := m.Train(ctx, false)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.RulesGenerated)

	pred, err := m.Predict(ctx, "food")
	require.NoError(t, err)
	require.True(t, pred.Matched)
	factor, ok := pred.Result.(float64)
	require.True(t, ok)
	assert.InDelta(t, 1.5, factor, 1e-9)
}

func TestBudget_TooFewObservationsProduceNoRule(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	require.NoError(t, m.CollectSamples(ctx, []learning.Sample{
		adjustment("travel", 100, 80),
		adjustment("travel", 100, 90),
	}))

	result, err := m.Train(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, result.RulesGenerated)

	pred, err := m.Predict(ctx, "travel")
	require.NoError(t, err)
	assert.False(t, pred.Matched)
}

func TestBudget_IgnoresMalformedSamples(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	require.NoError(t, m.CollectSamples(ctx, []learning.Sample{
		{Features: map[string]any{FeatureCategory: "food"}, Source: learning.SourceImplicitBehavior},
		adjustment("food", 0, 100),
		adjustment("", 100, 100),
	}))

	result, err := m.Train(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, result.RulesGenerated)
}

func TestBudget_ConfidenceGrowsWithSupport(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	var samples []learning.Sample
	for i := 0; i < 5; i++ {
		samples = append(samples, adjustment("food", 100, 120))
	}
	require.NoError(t, m.CollectSamples(ctx, samples))

	_, err := m.Train(ctx, false)
	require.NoError(t, err)

	pred, err := m.Predict(ctx, "food")
	require.NoError(t, err)
	require.True(t, pred.Matched)
	assert.InDelta(t, 0.25, pred.Confidence, 1e-9, "5 of 20 observations")
}

func TestBudget_PredictCaseInsensitiveCategory(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	require.NoError(t, m.CollectSamples(ctx, []learning.Sample{
		adjustment("Food", 100, 110),
		adjustment("Food", 100, 110),
		adjustment("Food", 100, 110),
	}))
	_, err := m.Train(ctx, false)
	require.NoError(t, err)

	pred, err := m.Predict(ctx, "fOOD")
	require.NoError(t, err)
	assert.True(t, pred.Matched)
}

func TestBudget_IntFeaturesAccepted(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	samples := []learning.Sample{
		{Features: map[string]any{FeatureCategory: "rent", FeatureSuggested: 1000, FeatureAdopted: 1100}},
		{Features: map[string]any{FeatureCategory: "rent", FeatureSuggested: 1000, FeatureAdopted: 1100}},
		{Features: map[string]any{FeatureCategory: "rent", FeatureSuggested: 1000, FeatureAdopted: 1100}},
	}
	require.NoError(t, m.CollectSamples(ctx, samples))

	result, err := m.Train(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RulesGenerated)
}
