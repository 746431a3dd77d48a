// Package learning defines the adaptive learning framework: the contract
// every self-learning module satisfies, the registry that orchestrates
// modules, and the scheduler that decides when each module trains.
//
// Modules are independent statistical learners (intent disambiguation,
// budget adjustment, consumption patterns) that turn behavior samples into
// reusable rules. The framework guarantees that a failure inside one
// module's training never corrupts another module's state and never stops
// the scheduler.
package learning

import (
	"context"
)

// Module is the uniform contract every pluggable learning algorithm
// exposes. Any implementation can be registered without registry or
// scheduler changes.
//
// Predict must never fail for well-formed input: when nothing matches, it
// returns a fallback prediction with Matched=false. Errors are reserved
// for infrastructure failures (a broken sample store, a cancelled context).
type Module interface {
	// ID returns the module's stable, unique identifier.
	ID() string

	// Name returns the module's display name.
	Name() string

	// CollectSample appends one sample to the module's private store.
	// Duplicate content is accepted. Collection never trains synchronously.
	CollectSample(ctx context.Context, sample Sample) error

	// CollectSamples appends a batch of samples.
	CollectSamples(ctx context.Context, samples []Sample) error

	// Train runs the module's mining procedure. Incremental passes may
	// reuse previously mined rules and only fold in new samples; full
	// passes discard prior rules and rebuild from the retained history.
	// A partially failed pass must leave the previous rule set intact.
	Train(ctx context.Context, incremental bool) (TrainingResult, error)

	// Predict runs inference over the learned rules.
	Predict(ctx context.Context, input any) (Prediction, error)

	// Metrics computes the module's current learning metrics.
	Metrics(ctx context.Context) (Metrics, error)

	// Rules returns learned rules, optionally filtered.
	Rules(ctx context.Context, filter RuleFilter) ([]Rule, error)

	// Status returns a snapshot of the module's learning state.
	Status(ctx context.Context) (Status, error)

	// ExportModel produces a versioned snapshot of the module's rules and
	// model data.
	ExportModel(ctx context.Context) (ModelExport, error)

	// ImportModel replaces the module's rule set and stage from a snapshot.
	// Incompatible snapshots are rejected whole; imports are never partial.
	ImportModel(ctx context.Context, data ModelExport) error

	// ClearData erases retained samples. With keepRules, previously mined
	// rules remain usable for prediction.
	ClearData(ctx context.Context, keepRules bool) error
}
