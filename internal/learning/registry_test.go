package learning

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModule is a scriptable Module implementation for orchestration tests.
type fakeModule struct {
	id   string
	name string

	mu       sync.Mutex
	trained  int
	lastFull bool

	trainErr   error
	trainPanic bool
	statusErr  error
	metricsErr error
	exportErr  error
	importErr  error

	status   Status
	metrics  Metrics
	rules    []Rule
	imported *ModelExport
}

func newFakeModule(id string) *fakeModule {
	return &fakeModule{
		id:     id,
		name:   id,
		status: Status{ModuleID: id, Enabled: true, Stage: StageCollecting},
	}
}

func (f *fakeModule) ID() string   { return f.id }
func (f *fakeModule) Name() string { return f.name }

func (f *fakeModule) CollectSample(ctx context.Context, s Sample) error {
	return f.CollectSamples(ctx, []Sample{s})
}

func (f *fakeModule) CollectSamples(context.Context, []Sample) error { return nil }

func (f *fakeModule) Train(_ context.Context, incremental bool) (TrainingResult, error) {
	if f.trainPanic {
		panic("train exploded")
	}
	f.mu.Lock()
	f.trained++
	f.lastFull = !incremental
	f.mu.Unlock()
	if f.trainErr != nil {
		return TrainingResult{}, f.trainErr
	}
	return TrainingResult{Success: true, SamplesUsed: 5, RulesGenerated: 2}, nil
}

func (f *fakeModule) trainCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trained
}

func (f *fakeModule) Predict(context.Context, any) (Prediction, error) {
	return NoMatch(), nil
}

func (f *fakeModule) Metrics(context.Context) (Metrics, error) {
	if f.metricsErr != nil {
		return Metrics{}, f.metricsErr
	}
	return f.metrics, nil
}

func (f *fakeModule) Rules(context.Context, RuleFilter) ([]Rule, error) {
	return f.rules, nil
}

func (f *fakeModule) Status(context.Context) (Status, error) {
	if f.statusErr != nil {
		return Status{}, f.statusErr
	}
	return f.status, nil
}

func (f *fakeModule) ExportModel(context.Context) (ModelExport, error) {
	if f.exportErr != nil {
		return ModelExport{}, f.exportErr
	}
	return ModelExport{
		ModuleID:   f.id,
		ExportedAt: time.Now(),
		Version:    ExportVersion,
		Rules:      f.rules,
	}, nil
}

func (f *fakeModule) ImportModel(_ context.Context, data ModelExport) error {
	if f.importErr != nil {
		return f.importErr
	}
	f.imported = &data
	return nil
}

func (f *fakeModule) ClearData(context.Context, bool) error { return nil }

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(RegistryConfig{
		Scheduler: SchedulerConfig{TickInterval: time.Hour},
		Logger:    slog.Default(),
	})
	t.Cleanup(r.Dispose)
	return r
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := newTestRegistry(t)

	r.Register(newFakeModule("intent"))
	r.Register(newFakeModule("budget"))

	m, ok := r.Module("intent")
	require.True(t, ok)
	assert.Equal(t, "intent", m.ID())

	_, ok = r.Module("unknown")
	assert.False(t, ok)

	assert.Equal(t, []string{"budget", "intent"}, r.ModuleIDs())
}

func TestRegistry_RegisterOverwritesSameID(t *testing.T) {
	r := newTestRegistry(t)

	first := newFakeModule("intent")
	second := newFakeModule("intent")
	second.name = "replacement"

	r.Register(first)
	r.Register(second)

	m, ok := r.Module("intent")
	require.True(t, ok)
	assert.Equal(t, "replacement", m.Name())
	assert.Len(t, r.ModuleIDs(), 1)
}

func TestRegistry_InitializeIdempotent(t *testing.T) {
	r := newTestRegistry(t)

	r.Initialize()
	r.Initialize()
	r.Dispose()
	r.Dispose()
}

func TestRegistry_DisposeClearsModules(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(newFakeModule("intent"))
	r.Initialize()

	r.Dispose()

	_, ok := r.Module("intent")
	assert.False(t, ok)
	assert.Empty(t, r.ModuleIDs())
}

func TestRegistry_TrainAllIsolatesFailures(t *testing.T) {
	r := newTestRegistry(t)

	healthy := newFakeModule("a_healthy")
	broken := newFakeModule("b_broken")
	broken.trainErr = errors.New("store unavailable")
	alsoHealthy := newFakeModule("c_healthy")

	r.Register(healthy)
	r.Register(broken)
	r.Register(alsoHealthy)

	results := r.TrainAll(context.Background())
	require.Len(t, results, 3)

	assert.True(t, results["a_healthy"].Success)
	assert.True(t, results["c_healthy"].Success)
	assert.False(t, results["b_broken"].Success)
	assert.Contains(t, results["b_broken"].ErrorMessage, "store unavailable")

	assert.Equal(t, 1, healthy.trainCount())
	assert.Equal(t, 1, alsoHealthy.trainCount())
}

func TestRegistry_TrainAllContainsPanics(t *testing.T) {
	r := newTestRegistry(t)

	panicking := newFakeModule("a_panics")
	panicking.trainPanic = true
	survivor := newFakeModule("b_survives")

	r.Register(panicking)
	r.Register(survivor)

	results := r.TrainAll(context.Background())
	require.Len(t, results, 2)
	assert.False(t, results["a_panics"].Success)
	assert.Contains(t, results["a_panics"].ErrorMessage, "panicked")
	assert.True(t, results["b_survives"].Success)
}

func TestRegistry_AllStatusOmitsFailedReads(t *testing.T) {
	r := newTestRegistry(t)

	ok1 := newFakeModule("ok1")
	bad := newFakeModule("bad")
	bad.statusErr = errors.New("db closed")
	ok2 := newFakeModule("ok2")

	r.Register(ok1)
	r.Register(bad)
	r.Register(ok2)

	statuses := r.AllStatus(context.Background())
	assert.Len(t, statuses, 2)
	assert.Contains(t, statuses, "ok1")
	assert.Contains(t, statuses, "ok2")
	assert.NotContains(t, statuses, "bad")
	assert.False(t, statuses["ok1"].NextScheduledTraining.IsZero(),
		"registered modules carry an advisory next training time")
}

func TestRegistry_OverallReportAggregates(t *testing.T) {
	r := newTestRegistry(t)

	a := newFakeModule("a")
	a.metrics = Metrics{ModuleID: "a", Accuracy: 0.9, TotalRules: 10, TotalSamples: 100}
	b := newFakeModule("b")
	b.metrics = Metrics{ModuleID: "b", Accuracy: 0.5, TotalRules: 4, TotalSamples: 40}
	broken := newFakeModule("c")
	broken.metricsErr = errors.New("no metrics")

	r.Register(a)
	r.Register(b)
	r.Register(broken)

	report := r.OverallReport(context.Background())
	assert.Len(t, report.ModuleMetrics, 2)
	assert.InDelta(t, 0.7, report.OverallAccuracy, 1e-9)
	assert.Equal(t, 14, report.TotalRules)
	assert.Equal(t, 140, report.TotalSamples)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestRegistry_OverallReportEmpty(t *testing.T) {
	r := newTestRegistry(t)

	report := r.OverallReport(context.Background())
	assert.Zero(t, report.OverallAccuracy)
	assert.Empty(t, report.ModuleMetrics)
}

func TestRegistry_ExportImportRoundTrip(t *testing.T) {
	r := newTestRegistry(t)

	a := newFakeModule("a")
	a.rules = []Rule{{ID: "r1", ModuleID: "a", Patterns: []string{"coffee"}, Result: "add_expense", Confidence: 0.8}}
	b := newFakeModule("b")

	r.Register(a)
	r.Register(b)

	export := r.ExportAll(context.Background())
	assert.Equal(t, ExportVersion, export.Version)
	require.Len(t, export.Modules, 2)
	require.Len(t, export.Modules["a"].Rules, 1)

	require.NoError(t, r.ImportAll(context.Background(), export))
	require.NotNil(t, a.imported)
	assert.Equal(t, "r1", a.imported.Rules[0].ID)
}

func TestRegistry_ExportAllOmitsFailedModules(t *testing.T) {
	r := newTestRegistry(t)

	good := newFakeModule("good")
	bad := newFakeModule("bad")
	bad.exportErr = errors.New("export broken")

	r.Register(good)
	r.Register(bad)

	export := r.ExportAll(context.Background())
	assert.Contains(t, export.Modules, "good")
	assert.NotContains(t, export.Modules, "bad")
}

func TestRegistry_ImportAllSkipsUnregistered(t *testing.T) {
	r := newTestRegistry(t)

	a := newFakeModule("a")
	r.Register(a)

	export := FullModelExport{
		ExportedAt: time.Now(),
		Version:    ExportVersion,
		Modules: map[string]ModelExport{
			"a":       {ModuleID: "a", Version: ExportVersion},
			"unknown": {ModuleID: "unknown", Version: ExportVersion},
		},
	}

	require.NoError(t, r.ImportAll(context.Background(), export))
	assert.NotNil(t, a.imported)
}

func TestRegistry_ImportAllReportsFirstErrorAfterAttemptingAll(t *testing.T) {
	r := newTestRegistry(t)

	bad := newFakeModule("bad")
	bad.importErr = errors.New("incompatible")
	good := newFakeModule("good")

	r.Register(bad)
	r.Register(good)

	export := FullModelExport{
		Version: ExportVersion,
		Modules: map[string]ModelExport{
			"bad":  {ModuleID: "bad", Version: ExportVersion},
			"good": {ModuleID: "good", Version: ExportVersion},
		},
	}

	err := r.ImportAll(context.Background(), export)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.NotNil(t, good.imported, "remaining imports must still be attempted")
}
