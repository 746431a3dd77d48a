package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rand/adapt/internal/learning"
)

// MemoryStore is an in-memory SampleStore. It backs tests and modules that
// do not need persistence across restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	samples  []learning.Sample
	consumed map[string]bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{consumed: make(map[string]bool)}
}

// Save persists one sample.
func (s *MemoryStore) Save(ctx context.Context, sample learning.Sample) error {
	return s.SaveBatch(ctx, []learning.Sample{sample})
}

// SaveBatch persists a batch of samples.
func (s *MemoryStore) SaveBatch(_ context.Context, samples []learning.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sample := range samples {
		if sample.ID == "" {
			sample.ID = uuid.New().String()
		}
		if sample.CreatedAt.IsZero() {
			sample.CreatedAt = time.Now()
		}
		s.samples = append(s.samples, sample)
	}
	return nil
}

// GetAll returns samples within the lookback window, oldest first.
func (s *MemoryStore) GetAll(_ context.Context, lookbackMonths int) ([]learning.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cutoff time.Time
	if lookbackMonths > 0 {
		cutoff = time.Now().AddDate(0, -lookbackMonths, 0)
	}

	var out []learning.Sample
	for _, sample := range s.samples {
		if cutoff.IsZero() || !sample.CreatedAt.Before(cutoff) {
			out = append(out, sample)
		}
	}
	sortByCreatedAt(out, false)
	return out, nil
}

// GetRecent returns up to limit samples, newest first.
func (s *MemoryStore) GetRecent(_ context.Context, limit int) ([]learning.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]learning.Sample, len(s.samples))
	copy(out, s.samples)
	sortByCreatedAt(out, true)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetPending returns unconsumed samples, oldest first.
func (s *MemoryStore) GetPending(_ context.Context) ([]learning.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []learning.Sample
	for _, sample := range s.samples {
		if !s.consumed[sample.ID] {
			out = append(out, sample)
		}
	}
	sortByCreatedAt(out, false)
	return out, nil
}

// Count returns the number of retained samples.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples), nil
}

// PendingCount returns the number of unconsumed samples.
func (s *MemoryStore) PendingCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sample := range s.samples {
		if !s.consumed[sample.ID] {
			n++
		}
	}
	return n, nil
}

// MarkConsumed flags samples as consumed by training.
func (s *MemoryStore) MarkConsumed(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.consumed[id] = true
	}
	return nil
}

// Clear erases all samples.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = nil
	s.consumed = make(map[string]bool)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func sortByCreatedAt(samples []learning.Sample, newestFirst bool) {
	sort.SliceStable(samples, func(i, j int) bool {
		if newestFirst {
			return samples[i].CreatedAt.After(samples[j].CreatedAt)
		}
		return samples[i].CreatedAt.Before(samples[j].CreatedAt)
	})
}
