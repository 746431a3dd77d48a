// Package consumption implements the consumption-pattern learning module.
// It aggregates spending events into per-category profiles (frequency,
// average amount, share of total spend) and predicts the profile for a
// category.
package consumption

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rand/adapt/internal/learning"
	"github.com/rand/adapt/internal/modules"
	"github.com/rand/adapt/internal/store"
)

// ModuleID is the stable identifier of the consumption module.
const ModuleID = "consumption_patterns"

// Feature keys of consumption samples.
const (
	FeatureCategory = "category"
	FeatureAmount   = "amount"
)

// Config configures the consumption module.
type Config struct {
	// Store persists the module's samples.
	Store store.SampleStore

	// Core overrides the shared module configuration.
	Core modules.CoreConfig
}

// Module learns recurring consumption patterns.
type Module struct {
	*modules.Core
}

// New creates a consumption module backed by the given sample store.
func New(cfg Config) *Module {
	core := cfg.Core
	core.ID = ModuleID
	core.Name = "Consumption Patterns"
	core.Store = cfg.Store
	return &Module{Core: modules.NewCore(core)}
}

// Train rebuilds the per-category profiles over the lookback window. The
// aggregation is always from scratch; the previous profiles stay visible
// until the replacement set is complete.
func (m *Module) Train(ctx context.Context, incremental bool) (learning.TrainingResult, error) {
	start := time.Now()
	finish := m.BeginTraining()

	samples, err := m.Store().GetAll(ctx, m.LookbackMonths())
	if err != nil {
		finish(false)
		return learning.TrainingResult{}, fmt.Errorf("load samples: %w", err)
	}

	rules := m.buildProfiles(samples)
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

	m.Logger().Info("consumption training finished",
		"incremental", incremental,
		"samples", result.SamplesUsed,
		"rules", result.RulesGenerated,
	)
	return result, nil
}

func (m *Module) buildProfiles(samples []learning.Sample) []learning.Rule {
	type agg struct {
		total float64
		count int
	}
	byCategory := make(map[string]*agg)
	var grandTotal float64

	for _, s := range samples {
		category, ok := s.Features[FeatureCategory].(string)
		if !ok || category == "" {
			continue
		}
		amount, ok := s.Features[FeatureAmount].(float64)
		if !ok || amount <= 0 {
			continue
		}
		a := byCategory[category]
		if a == nil {
			a = &agg{}
			byCategory[category] = a
		}
		a.total += amount
		a.count++
		grandTotal += amount
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
		share := 0.0
		if grandTotal > 0 {
			share = a.total / grandTotal
		}

		rules = append(rules, learning.Rule{
			ID:       uuid.New().String(),
			ModuleID: m.ID(),
			Patterns: []string{category},
			Result: map[string]any{
				"frequency":  float64(a.count),
				"avg_amount": a.total / float64(a.count),
				"share":      share,
			},
			Priority:   100,
			Confidence: share,
			Source:     learning.RuleSourceUserLearned,
			CreatedAt:  now,
		})
	}
	return rules
}

// Predict returns the consumption profile learned for the input category.
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
					Source:      learning.PredictModelInference,
				}, nil
			}
		}
	}
	return learning.NoMatch(), nil
}
