package learning

import (
	"time"
)

// Stage is a module's lifecycle position.
type Stage string

const (
	// StageColdStart means the module has too few samples to learn from.
	StageColdStart Stage = "cold_start"

	// StageCollecting means samples are accumulating but no training pass
	// has produced rules yet.
	StageCollecting Stage = "collecting"

	// StageTraining is transient, held only during an in-flight train call.
	StageTraining Stage = "training"

	// StageActive means the module has learned rules and serves predictions.
	StageActive Stage = "active"

	// StageDegraded means measured accuracy fell below the module's
	// acceptable bound; the next forced retrain leaves this stage.
	StageDegraded Stage = "degraded"
)

// Status is a point-in-time snapshot of a module's learning state.
type Status struct {
	// ModuleID identifies the module.
	ModuleID string `json:"module_id"`

	// Enabled reports whether the module is learning at all.
	Enabled bool `json:"enabled"`

	// LastTrainingTime is when the module last completed a training pass.
	// Zero when the module never trained.
	LastTrainingTime time.Time `json:"last_training_time,omitzero"`

	// NextScheduledTraining is the advisory next training time, when known.
	NextScheduledTraining time.Time `json:"next_scheduled_training,omitzero"`

	// PendingSamples counts samples not yet consumed by training.
	PendingSamples int `json:"pending_samples"`

	// Stage is the module's lifecycle position.
	Stage Stage `json:"stage"`
}
