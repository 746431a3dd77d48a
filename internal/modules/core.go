// Package modules provides the shared plumbing concrete learning modules
// are composed from: sample collection, rule-set bookkeeping, stage
// transitions, metrics accounting, and model export/import. Each domain
// module (intent, budget, consumption) embeds a Core and contributes only
// its own training and prediction logic.
package modules

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rand/adapt/internal/learning"
	"github.com/rand/adapt/internal/store"
)

// DefaultLookbackMonths bounds the historical window full retrains
// consider.
const DefaultLookbackMonths = 6

// CoreConfig configures the shared module core.
type CoreConfig struct {
	// ID is the module's stable identifier.
	ID string

	// Name is the module's display name.
	Name string

	// Store persists the module's samples.
	Store store.SampleStore

	// MinSamples is the accumulated-sample threshold that moves the module
	// out of cold start. Default: 10.
	MinSamples int

	// LookbackMonths bounds full retrains. Default: 6.
	LookbackMonths int

	// MinAccuracy is the accuracy bound below which the module degrades,
	// once enough predictions were evaluated. Default: 0.6.
	MinAccuracy float64

	// MinEvaluated is the number of evaluated predictions required before
	// the degraded transition applies. Default: 20.
	MinEvaluated int

	// Version is the module's export format version. Default: the
	// framework export version.
	Version string

	// Logger for module operations.
	Logger *slog.Logger
}

// Core implements the parts of the learning module contract that do not
// depend on the learning algorithm.
type Core struct {
	id             string
	name           string
	store          store.SampleStore
	minSamples     int
	lookbackMonths int
	minAccuracy    float64
	minEvaluated   int
	version        string
	logger         *slog.Logger

	mu           sync.RWMutex
	rules        []learning.Rule
	stage        learning.Stage
	lastTraining time.Time

	evalMu       sync.Mutex
	evalTotal    int
	evalMatched  int
	evalCorrect  int
	respTotal    time.Duration
	respCount    int
}

// NewCore creates the shared core, applying defaults for zero config
// values.
func NewCore(cfg CoreConfig) *Core {
	if cfg.MinSamples == 0 {
		cfg.MinSamples = 10
	}
	if cfg.LookbackMonths == 0 {
		cfg.LookbackMonths = DefaultLookbackMonths
	}
	if cfg.MinAccuracy == 0 {
		cfg.MinAccuracy = 0.6
	}
	if cfg.MinEvaluated == 0 {
		cfg.MinEvaluated = 20
	}
	if cfg.Version == "" {
		cfg.Version = learning.ExportVersion
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Core{
		id:             cfg.ID,
		name:           cfg.Name,
		store:          cfg.Store,
		minSamples:     cfg.MinSamples,
		lookbackMonths: cfg.LookbackMonths,
		minAccuracy:    cfg.MinAccuracy,
		minEvaluated:   cfg.MinEvaluated,
		version:        cfg.Version,
		logger:         cfg.Logger,
		stage:          learning.StageColdStart,
	}
}

// ID returns the module's stable identifier.
func (c *Core) ID() string { return c.id }

// Name returns the module's display name.
func (c *Core) Name() string { return c.name }

// Store returns the module's sample store.
func (c *Core) Store() store.SampleStore { return c.store }

// LookbackMonths returns the retrain lookback window.
func (c *Core) LookbackMonths() int { return c.lookbackMonths }

// Logger returns the module logger.
func (c *Core) Logger() *slog.Logger { return c.logger }

// CollectSample appends one sample to the module's private store. It never
// trains synchronously; it only advances cold start once enough samples
// accumulated.
func (c *Core) CollectSample(ctx context.Context, sample learning.Sample) error {
	return c.CollectSamples(ctx, []learning.Sample{sample})
}

// CollectSamples appends a batch of samples.
func (c *Core) CollectSamples(ctx context.Context, samples []learning.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	if err := c.store.SaveBatch(ctx, samples); err != nil {
		return fmt.Errorf("save samples: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage == learning.StageColdStart {
		count, err := c.store.Count(ctx)
		if err != nil {
			return fmt.Errorf("count samples: %w", err)
		}
		if count >= c.minSamples {
			c.stage = learning.StageCollecting
		}
	}
	return nil
}

// Rules returns a filtered copy of the learned rules, ordered by priority
// then confidence.
func (c *Core) Rules(_ context.Context, filter learning.RuleFilter) ([]learning.Rule, error) {
	c.mu.RLock()
	rules := make([]learning.Rule, 0, len(c.rules))
	for _, r := range c.rules {
		if filter.Source != "" && r.Source != filter.Source {
			continue
		}
		rules = append(rules, r)
	}
	c.mu.RUnlock()

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].Confidence > rules[j].Confidence
	})
	if filter.Limit > 0 && len(rules) > filter.Limit {
		rules = rules[:filter.Limit]
	}
	return rules, nil
}

// Status reports the module's learning state.
func (c *Core) Status(ctx context.Context) (learning.Status, error) {
	pending, err := c.store.PendingCount(ctx)
	if err != nil {
		return learning.Status{}, fmt.Errorf("pending count: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return learning.Status{
		ModuleID:         c.id,
		Enabled:          true,
		LastTrainingTime: c.lastTraining,
		PendingSamples:   pending,
		Stage:            c.stage,
	}, nil
}

// ClearData erases retained samples. With keepRules, mined rules stay
// usable for prediction even though nothing remains to retrain from.
func (c *Core) ClearData(ctx context.Context, keepRules bool) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear samples: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !keepRules {
		c.rules = nil
		c.stage = learning.StageColdStart
	}
	return nil
}

// ExportModel snapshots the module's rule set.
func (c *Core) ExportModel(context.Context) (learning.ModelExport, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rules := make([]learning.Rule, len(c.rules))
	copy(rules, c.rules)

	return learning.ModelExport{
		ModuleID:   c.id,
		ExportedAt: time.Now(),
		Version:    c.version,
		Rules:      rules,
		Metadata: map[string]any{
			"stage":         string(c.stage),
			"last_training": c.lastTraining.UTC().Format(time.RFC3339Nano),
		},
	}, nil
}

// ImportModel fully replaces the module's rule set and stage from a
// snapshot. Snapshots with an incompatible format version are rejected
// whole; nothing is imported partially.
func (c *Core) ImportModel(_ context.Context, data learning.ModelExport) error {
	if !learning.CompatibleVersion(c.version, data.Version) {
		return fmt.Errorf("%w: have %s, got %s",
			learning.ErrVersionMismatch, c.version, data.Version)
	}

	rules := make([]learning.Rule, len(data.Rules))
	copy(rules, data.Rules)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = rules
	if len(rules) > 0 {
		c.stage = learning.StageActive
	} else {
		c.stage = learning.StageCollecting
	}
	return nil
}

// SnapshotRules returns a copy of the current rule set.
func (c *Core) SnapshotRules() []learning.Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rules := make([]learning.Rule, len(c.rules))
	copy(rules, c.rules)
	return rules
}

// ReplaceRules atomically swaps in a new rule set. Callers build the full
// replacement first so other goroutines never observe a half-trained set.
func (c *Core) ReplaceRules(rules []learning.Rule) {
	c.mu.Lock()
	c.rules = rules
	c.mu.Unlock()
}

// MutateRules applies fn to a copy of the rule set and swaps the result
// in, preserving replace-on-completion semantics for incremental updates.
func (c *Core) MutateRules(fn func(rules []learning.Rule) []learning.Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]learning.Rule, len(c.rules))
	copy(next, c.rules)
	c.rules = fn(next)
}

// BeginTraining marks the module as training and returns a function that
// records the outcome. The finish function restores a coherent stage even
// when training failed, so a failed pass never leaves the module stuck in
// the transient training stage.
func (c *Core) BeginTraining() (finish func(succeeded bool)) {
	c.mu.Lock()
	previous := c.stage
	c.stage = learning.StageTraining
	c.mu.Unlock()

	return func(succeeded bool) {
		c.mu.Lock()
		defer c.mu.Unlock()

		if !succeeded {
			c.stage = previous
			return
		}

		c.lastTraining = time.Now()
		switch {
		case c.accuracyDegradedLocked():
			c.stage = learning.StageDegraded
		case len(c.rules) > 0:
			c.stage = learning.StageActive
		default:
			c.stage = learning.StageCollecting
		}
	}
}

// RecordEvaluation folds one evaluated prediction into the metrics
// window: whether a rule matched, whether the result was correct, and how
// long the prediction took.
func (c *Core) RecordEvaluation(matched, correct bool, elapsed time.Duration) {
	c.evalMu.Lock()
	defer c.evalMu.Unlock()
	c.evalTotal++
	if matched {
		c.evalMatched++
	}
	if correct {
		c.evalCorrect++
	}
	c.respTotal += elapsed
	c.respCount++
}

// Metrics computes the module's current learning metrics from the
// evaluation window and store counts.
func (c *Core) Metrics(ctx context.Context) (learning.Metrics, error) {
	total, err := c.store.Count(ctx)
	if err != nil {
		return learning.Metrics{}, fmt.Errorf("count samples: %w", err)
	}

	c.evalMu.Lock()
	evalTotal, evalMatched, evalCorrect := c.evalTotal, c.evalMatched, c.evalCorrect
	var avgResp time.Duration
	if c.respCount > 0 {
		avgResp = c.respTotal / time.Duration(c.respCount)
	}
	c.evalMu.Unlock()

	var accuracy, precision, recall float64
	if evalTotal > 0 {
		accuracy = float64(evalCorrect) / float64(evalTotal)
		recall = float64(evalMatched) / float64(evalTotal)
	}
	if evalMatched > 0 {
		precision = float64(evalCorrect) / float64(evalMatched)
	}

	c.mu.RLock()
	totalRules := len(c.rules)
	c.mu.RUnlock()

	return learning.Metrics{
		ModuleID:        c.id,
		MeasuredAt:      time.Now(),
		TotalSamples:    total,
		TotalRules:      totalRules,
		Accuracy:        accuracy,
		Precision:       precision,
		Recall:          recall,
		F1:              learning.F1Score(precision, recall),
		AvgResponseTime: avgResp,
	}, nil
}

// accuracyDegradedLocked reports whether measured accuracy fell below the
// acceptable bound. Requires c.mu held.
func (c *Core) accuracyDegradedLocked() bool {
	c.evalMu.Lock()
	defer c.evalMu.Unlock()
	if c.evalTotal < c.minEvaluated {
		return false
	}
	return float64(c.evalCorrect)/float64(c.evalTotal) < c.minAccuracy
}
