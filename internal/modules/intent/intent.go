// Package intent implements the intent-disambiguation learning module. It
// mines trigger-pattern rules from resolved user utterances and predicts
// the intent label of new inputs by case-insensitive pattern matching.
package intent

import (
	"context"
	"fmt"
	"time"

	"github.com/rand/adapt/internal/collab"
	"github.com/rand/adapt/internal/learning"
	"github.com/rand/adapt/internal/modules"
	"github.com/rand/adapt/internal/pattern"
	"github.com/rand/adapt/internal/store"
)

// ModuleID is the stable identifier of the intent module.
const ModuleID = "intent_disambiguation"

// collaborativeDiscount scales confidence for rules obtained through
// collaborative learning; they were mined from other users' behavior.
const collaborativeDiscount = 0.8

// Config configures the intent module.
type Config struct {
	// Store persists the module's samples.
	Store store.SampleStore

	// Miner overrides the mining configuration.
	Miner pattern.MinerConfig

	// Core overrides the shared module configuration (ID, Name and Store
	// are set by New).
	Core modules.CoreConfig
}

// Module learns intent-disambiguation rules from utterance samples.
type Module struct {
	*modules.Core
	miner *pattern.Miner
}

// New creates an intent module backed by the given sample store.
func New(cfg Config) *Module {
	core := cfg.Core
	core.ID = ModuleID
	core.Name = "Intent Disambiguation"
	core.Store = cfg.Store

	return &Module{
		Core:  modules.NewCore(core),
		miner: pattern.NewMiner(cfg.Miner),
	}
}

// Train runs a mining pass. A full pass rebuilds the rule set from the
// entire retained sample history inside the lookback window; an
// incremental pass keeps the mined rules and folds the pending samples
// into their confidence statistics. Either way the previous rule set stays
// intact until the replacement is fully built.
func (m *Module) Train(ctx context.Context, incremental bool) (learning.TrainingResult, error) {
	start := time.Now()
	finish := m.BeginTraining()

	var (
		result learning.TrainingResult
		err    error
	)
	if incremental && len(m.SnapshotRules()) > 0 {
		result, err = m.trainIncremental(ctx)
	} else {
		result, err = m.trainFull(ctx)
	}
	finish(err == nil)
	if err != nil {
		return learning.TrainingResult{}, err
	}

	result.Success = true
	result.TrainingTime = time.Since(start)
	if metrics, merr := m.Metrics(ctx); merr == nil {
		result.NewMetrics = &metrics
	}

	m.Logger().Info("intent training finished",
		"incremental", incremental,
		"samples", result.SamplesUsed,
		"rules", result.RulesGenerated,
	)
	return result, nil
}

func (m *Module) trainFull(ctx context.Context) (learning.TrainingResult, error) {
	samples, err := m.Store().GetAll(ctx, m.LookbackMonths())
	if err != nil {
		return learning.TrainingResult{}, fmt.Errorf("load samples: %w", err)
	}

	rules := m.miner.Mine(m.ID(), samples)
	m.ReplaceRules(rules)

	if err := m.consumeAll(ctx, samples); err != nil {
		return learning.TrainingResult{}, err
	}
	return learning.TrainingResult{
		SamplesUsed:    len(samples),
		RulesGenerated: len(rules),
	}, nil
}

// trainIncremental keeps the mined rules and updates their confidence from
// the pending labeled samples: a sample whose text matches a rule counts
// as positive feedback when its label equals the rule result.
func (m *Module) trainIncremental(ctx context.Context) (learning.TrainingResult, error) {
	pending, err := m.Store().GetPending(ctx)
	if err != nil {
		return learning.TrainingResult{}, fmt.Errorf("load pending samples: %w", err)
	}
	if len(pending) == 0 {
		return learning.TrainingResult{}, nil
	}

	m.MutateRules(func(rules []learning.Rule) []learning.Rule {
		for _, sample := range pending {
			text := sample.Text()
			if text == "" || sample.Label == "" {
				continue
			}
			matched := pattern.BestMatch(rules, text)
			correct := matched != nil && matched.ResultString() == sample.Label
			if matched != nil {
				pattern.Feedback(matched, correct)
			}
			m.RecordEvaluation(matched != nil, correct, 0)
		}
		return rules
	})

	if err := m.consumeAll(ctx, pending); err != nil {
		return learning.TrainingResult{}, err
	}
	return learning.TrainingResult{SamplesUsed: len(pending)}, nil
}

func (m *Module) consumeAll(ctx context.Context, samples []learning.Sample) error {
	ids := make([]string, len(samples))
	for i, s := range samples {
		ids[i] = s.ID
	}
	if err := m.Store().MarkConsumed(ctx, ids); err != nil {
		return fmt.Errorf("mark consumed: %w", err)
	}
	return nil
}

// Predict matches the input text against the learned rules. Absence of a
// match is a normal fallback result, never an error.
func (m *Module) Predict(_ context.Context, input any) (learning.Prediction, error) {
	start := time.Now()

	text, ok := input.(string)
	if !ok || text == "" {
		return learning.NoMatch(), nil
	}

	rules := m.SnapshotRules()
	matched := pattern.BestMatch(rules, text)
	if matched == nil {
		return learning.NoMatch(), nil
	}

	confidence := matched.Confidence
	if matched.Source == learning.RuleSourceCollaborative {
		confidence *= collaborativeDiscount
	}

	m.recordHit(matched.ID)
	rule := *matched

	m.Logger().Debug("intent matched",
		"rule", rule.ID, "result", rule.Result,
		"confidence", confidence, "elapsed", time.Since(start))

	source := learning.PredictLearnedRule
	if rule.Source == learning.RuleSourceSystemDefault {
		source = learning.PredictDefaultRule
	}
	return learning.Prediction{
		Matched:     true,
		MatchedRule: &rule,
		Result:      rule.Result,
		Confidence:  confidence,
		Source:      source,
	}, nil
}

// ApplyGlobalRules folds globally aggregated collaborative rules into the
// rule set. Local learning wins unless the global rule is clearly stronger.
func (m *Module) ApplyGlobalRules(global []collab.GlobalRule) collab.MergeResult {
	var res collab.MergeResult
	m.MutateRules(func(rules []learning.Rule) []learning.Rule {
		merged, r := collab.Merge(rules, global)
		res = r
		return merged
	})

	m.Logger().Info("collaborative rules merged",
		"adopted", res.Adopted, "replaced", res.Replaced, "kept", res.Kept)
	return res
}

// ContributeRules returns the module's shareable rules in anonymized form.
func (m *Module) ContributeRules(minConfidence float64) []collab.Contribution {
	return collab.Contribute(m.SnapshotRules(), minConfidence)
}

// recordHit updates hit statistics on the stored rule, not just on the
// snapshot returned to the caller.
func (m *Module) recordHit(ruleID string) {
	m.MutateRules(func(rules []learning.Rule) []learning.Rule {
		for i := range rules {
			if rules[i].ID == ruleID {
				rules[i].RecordHit()
				break
			}
		}
		return rules
	})
}
