package learning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Registry orchestrates the registered learning modules. It owns the
// scheduler and fans out cross-module operations with per-module failure
// isolation: one module's error never aborts the whole pass.
//
// A process constructs exactly one Registry at startup and passes it to
// callers explicitly; there is no package-level instance.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module

	sched  *Scheduler
	logger *slog.Logger

	initialized bool
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Scheduler configuration for the registry-owned scheduler.
	Scheduler SchedulerConfig

	// Logger for registry operations.
	Logger *slog.Logger
}

// NewRegistry creates a registry with an attached (not yet started)
// scheduler.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Registry{
		modules: make(map[string]Module),
		logger:  cfg.Logger,
	}
	r.sched = NewScheduler(r, cfg.Scheduler)
	return r
}

// Scheduler returns the registry-owned scheduler.
func (r *Registry) Scheduler() *Scheduler {
	return r.sched
}

// Initialize starts the scheduler. Calling it again is a no-op.
func (r *Registry) Initialize() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return
	}

	r.sched.Start()
	r.initialized = true
	r.logger.Info("learning registry initialized")
}

// Dispose stops the scheduler and clears all registered modules.
func (r *Registry) Dispose() {
	r.mu.Lock()
	if !r.initialized && len(r.modules) == 0 {
		r.mu.Unlock()
		return
	}
	r.initialized = false
	r.modules = make(map[string]Module)
	r.mu.Unlock()

	// Stop outside the lock: Stop waits for an in-flight check pass, and
	// that pass reads modules through the registry.
	r.sched.Stop()
	r.logger.Info("learning registry disposed")
}

// Register stores a module under its id, overwriting any prior module with
// the same id, and schedules it with default parameters.
func (r *Registry) Register(m Module) {
	r.mu.Lock()
	r.modules[m.ID()] = m
	r.mu.Unlock()

	r.sched.Schedule(m.ID(), ScheduleOptions{})
	r.logger.Info("registered learning module", "module", m.ID(), "name", m.Name())
}

// Unregister removes a module and its schedule.
func (r *Registry) Unregister(moduleID string) {
	r.mu.Lock()
	delete(r.modules, moduleID)
	r.mu.Unlock()

	r.sched.Unschedule(moduleID)
}

// Module returns the registered module with the given id.
func (r *Registry) Module(moduleID string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[moduleID]
	return m, ok
}

// ModuleIDs returns a sorted snapshot of the registered module ids.
func (r *Registry) ModuleIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.modules))
	for id := range r.modules {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// TrainAll trains every registered module sequentially, in sorted id
// order. An error from one module is converted into a failed
// TrainingResult; it never prevents the remaining modules from training.
func (r *Registry) TrainAll(ctx context.Context) map[string]TrainingResult {
	results := make(map[string]TrainingResult)

	for _, id := range r.ModuleIDs() {
		m, ok := r.Module(id)
		if !ok {
			continue
		}

		res, err := r.trainOne(ctx, m)
		if err != nil {
			r.logger.Warn("module training failed", "module", id, "error", err)
			res = FailedTraining(err)
		}
		results[id] = res
	}

	return results
}

// trainOne invokes a module's Train and contains its panics, so a
// misbehaving module cannot take down the orchestrator.
func (r *Registry) trainOne(ctx context.Context, m Module) (res TrainingResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("training panicked: %v", p)
		}
	}()
	return m.Train(ctx, true)
}

// AllStatus reads every module's status concurrently. Modules whose status
// read fails are logged and omitted from the result.
func (r *Registry) AllStatus(ctx context.Context) map[string]Status {
	var (
		mu       sync.Mutex
		statuses = make(map[string]Status)
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range r.ModuleIDs() {
		m, ok := r.Module(id)
		if !ok {
			continue
		}
		g.Go(func() error {
			st, err := m.Status(gctx)
			if err != nil {
				r.logger.Warn("module status read failed", "module", id, "error", err)
				return nil
			}
			if next, err := r.sched.NextTrainingTime(id); err == nil {
				st.NextScheduledTraining = next
			}
			mu.Lock()
			statuses[id] = st
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}

// OverallReport aggregates every module's metrics. Overall accuracy is the
// unweighted mean of per-module accuracies; totals are summed. Modules
// whose metrics read fails are logged and excluded from the aggregates.
func (r *Registry) OverallReport(ctx context.Context) Report {
	report := Report{
		GeneratedAt:   time.Now(),
		ModuleMetrics: make(map[string]Metrics),
	}

	for _, id := range r.ModuleIDs() {
		m, ok := r.Module(id)
		if !ok {
			continue
		}
		metrics, err := m.Metrics(ctx)
		if err != nil {
			r.logger.Warn("module metrics read failed", "module", id, "error", err)
			continue
		}
		report.ModuleMetrics[id] = metrics
		report.TotalRules += metrics.TotalRules
		report.TotalSamples += metrics.TotalSamples
	}

	if n := len(report.ModuleMetrics); n > 0 {
		var sum float64
		for _, m := range report.ModuleMetrics {
			sum += m.Accuracy
		}
		report.OverallAccuracy = sum / float64(n)
	}

	return report
}

// ExportAll snapshots every registered module. A module whose export fails
// is logged and left out of the snapshot rather than failing the backup.
func (r *Registry) ExportAll(ctx context.Context) FullModelExport {
	export := FullModelExport{
		ExportedAt: time.Now(),
		Version:    ExportVersion,
		Modules:    make(map[string]ModelExport),
	}

	for _, id := range r.ModuleIDs() {
		m, ok := r.Module(id)
		if !ok {
			continue
		}
		data, err := m.ExportModel(ctx)
		if err != nil {
			r.logger.Warn("module export failed", "module", id, "error", err)
			continue
		}
		export.Modules[id] = data
	}

	return export
}

// ImportAll restores module snapshots. Module ids present in the export
// but not currently registered are skipped, not errors. The first failing
// module import is reported after all modules were attempted.
func (r *Registry) ImportAll(ctx context.Context, export FullModelExport) error {
	var firstErr error

	for id, data := range export.Modules {
		m, ok := r.Module(id)
		if !ok {
			r.logger.Debug("skipping import for unregistered module", "module", id)
			continue
		}
		if err := m.ImportModel(ctx, data); err != nil {
			r.logger.Warn("module import failed", "module", id, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("import module %s: %w", id, err)
			}
		}
	}

	return firstErr
}
