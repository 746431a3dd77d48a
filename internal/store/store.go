// Package store provides sample persistence for learning modules. Each
// module owns one SampleStore; samples are never shared across modules.
package store

import (
	"context"

	"github.com/rand/adapt/internal/learning"
)

// SampleStore is the per-module sample persistence contract. Saved samples
// are never lost; GetAll honors a lookback window in calendar months.
type SampleStore interface {
	// Save persists one sample.
	Save(ctx context.Context, sample learning.Sample) error

	// SaveBatch persists a batch of samples.
	SaveBatch(ctx context.Context, samples []learning.Sample) error

	// GetAll returns samples observed within the lookback window, oldest
	// first. lookbackMonths <= 0 means no window.
	GetAll(ctx context.Context, lookbackMonths int) ([]learning.Sample, error)

	// GetRecent returns the most recently observed samples, newest first.
	GetRecent(ctx context.Context, limit int) ([]learning.Sample, error)

	// GetPending returns samples not yet consumed by training, oldest first.
	GetPending(ctx context.Context) ([]learning.Sample, error)

	// Count returns the number of retained samples.
	Count(ctx context.Context) (int, error)

	// PendingCount returns the number of samples not yet consumed by
	// training.
	PendingCount(ctx context.Context) (int, error)

	// MarkConsumed flags samples as consumed by a training pass.
	MarkConsumed(ctx context.Context, ids []string) error

	// Clear erases all retained samples.
	Clear(ctx context.Context) error

	// Close releases store resources.
	Close() error
}
