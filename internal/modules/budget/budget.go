// Package budget implements the budget-adjustment learning module. It
// learns, per spending category, how users adjust suggested budgets, and
// predicts an adjustment factor to apply to future suggestions.
package budget

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rand/adapt/internal/learning"
	"github.com/rand/adapt/internal/modules"
	"github.com/rand/adapt/internal/store"
)

// ModuleID is the stable identifier of the budget module.
const ModuleID = "budget_adjustment"

// Feature keys of budget samples.
const (
	FeatureCategory  = "category"
	FeatureSuggested = "suggested"
	FeatureAdopted   = "adopted"
)

// minObservations is the smallest number of adjustments per category that
// can produce a factor rule.
const minObservations = 3

// Config configures the budget module.
type Config struct {
	// Store persists the module's samples.
	Store store.SampleStore

	// Core overrides the shared module configuration.
	Core modules.CoreConfig
}

// Module learns per-category budget adjustment factors.
type Module struct {
	*modules.Core
}

// New creates a budget module backed by the given sample store.
func New(cfg Config) *Module {
	core := cfg.Core
	core.ID = ModuleID
	core.Name = "Budget Adjustment"
	core.Store = cfg.Store
	return &Module{Core: modules.NewCore(core)}
}

// Train recomputes the per-category adjustment factors. The computation is
// a from-scratch aggregate either way; incremental passes merely restrict
// the input to the retained lookback window like full passes do, so both
// replace the rule set atomically.
func (m *Module) Train(ctx context.Context, incremental bool) (learning.TrainingResult, error) {
	start := time.Now()
	finish := m.BeginTraining()

	samples, err := m.Store().GetAll(ctx, m.LookbackMonths())
	if err != nil {
		finish(false)
		return learning.TrainingResult{}, fmt.Errorf("load samples: %w", err)
	}

	rules := m.buildRules(samples)
	m.ReplaceRules(rules)

	ids := make([]string, len(samples))
	for i, s := range samples {
		ids[i] = s.ID
	}
	if err := m.Store().MarkConsumed(ctx, ids); err != nil {
		finish(false)
		return learning.TrainingResult{}, fmt.Errorf("mark consumed: %w", err)
	}

	finish(true)
	result := learning.TrainingResult{
		Success:        true,
		SamplesUsed:    len(samples),
		RulesGenerated: len(rules),
		TrainingTime:   time.Since(start),
	}
	if metrics, merr := m.Metrics(ctx); merr == nil {
		result.NewMetrics = &metrics
	}

	m.Logger().Info("budget training finished",
		"incremental", incremental,
		"samples", result.SamplesUsed,
		"rules", result.RulesGenerated,
	)
	return result, nil
}

// buildRules aggregates the mean adopted/suggested ratio per category.
func (m *Module) buildRules(samples []learning.Sample) []learning.Rule {
	type agg struct {
		sum   float64
		count int
	}
	byCategory := make(map[string]*agg)

	for _, s := range samples {
		category, ok := s.Features[FeatureCategory].(string)
		if !ok || category == "" {
			continue
		}
		suggested := floatFeature(s.Features, FeatureSuggested)
		adopted := floatFeature(s.Features, FeatureAdopted)
		if suggested <= 0 || adopted <= 0 {
			continue
		}
		a := byCategory[category]
		if a == nil {
			a = &agg{}
			byCategory[category] = a
		}
		a.sum += adopted / suggested
		a.count++
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	now := time.Now()
	var rules []learning.Rule
	for _, category := range categories {
		a := byCategory[category]
		if a.count < minObservations {
			continue
		}
		factor := a.sum / float64(a.count)

		rules = append(rules, learning.Rule{
			ID:         uuid.New().String(),
			ModuleID:   m.ID(),
			Patterns:   []string{category},
			Result:     factor,
			Priority:   100,
			Confidence: observationConfidence(a.count),
			Source:     learning.RuleSourceUserLearned,
			CreatedAt:  now,
			Metadata:   map[string]any{"observations": a.count},
		})
	}
	return rules
}

// Predict returns the adjustment factor learned for the input category.
func (m *Module) Predict(_ context.Context, input any) (learning.Prediction, error) {
	category, ok := input.(string)
	if !ok || category == "" {
		return learning.NoMatch(), nil
	}

	folded := strings.ToLower(category)
	for _, rule := range m.SnapshotRules() {
		for _, p := range rule.Patterns {
			if strings.ToLower(p) == folded {
				r := rule
				return learning.Prediction{
					Matched:     true,
					MatchedRule: &r,
					Result:      r.Result,
					Confidence:  r.Confidence,
					Source:      learning.PredictLearnedRule,
				}, nil
			}
		}
	}
	return learning.NoMatch(), nil
}

// observationConfidence grows confidence with sample support, saturating
// at 1.0 after 20 observations.
func observationConfidence(n int) float64 {
	return math.Min(1, float64(n)/20)
}

func floatFeature(features map[string]any, key string) float64 {
	switch v := features[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
