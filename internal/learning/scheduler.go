package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrModuleNotFound is returned when a scheduler operation names a module
// that is not registered.
var ErrModuleNotFound = errors.New("module not found")

// ErrRetrainThrottled is returned when immediate retrains for a module are
// requested faster than the configured rate allows.
var ErrRetrainThrottled = errors.New("immediate retraining throttled")

// ModuleSource resolves module ids to live modules. The registry is the
// canonical implementation; the indirection keeps the scheduler free of
// global state.
type ModuleSource interface {
	Module(moduleID string) (Module, bool)
}

// TimeOfDay is the preferred wall-clock training time of a module. It is
// informational only: triggering uses the configured interval, not
// wall-clock alignment.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ScheduleConfig is the per-module schedule state.
type ScheduleConfig struct {
	// ModuleID identifies the scheduled module.
	ModuleID string `json:"module_id"`

	// Interval is the minimum time between scheduled training passes.
	Interval time.Duration `json:"interval"`

	// PreferredTime is the preferred time of day for training.
	PreferredTime TimeOfDay `json:"preferred_time"`

	// MinSamplesForTraining is the pending-sample threshold below which a
	// check pass never triggers training.
	MinSamplesForTraining int `json:"min_samples_for_training"`

	// LastCheck is when the scheduler last evaluated this module.
	LastCheck time.Time `json:"last_check,omitzero"`
}

// ScheduleOptions override schedule defaults at registration time. Zero
// values keep the defaults.
type ScheduleOptions struct {
	Interval              time.Duration
	PreferredTime         *TimeOfDay
	MinSamplesForTraining int
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// TickInterval is how often the periodic check pass runs.
	// Default: 30 minutes.
	TickInterval time.Duration

	// DefaultInterval is the training interval for newly scheduled modules.
	// Default: 24 hours.
	DefaultInterval time.Duration

	// DefaultMinSamples is the pending-sample threshold for newly
	// scheduled modules. Default: 10.
	DefaultMinSamples int

	// TrainTimeout bounds a single module's training during a check pass,
	// so a stuck module cannot stall the scheduler forever.
	// Default: 5 minutes.
	TrainTimeout time.Duration

	// RetrainEvery rate-limits immediate full retrains per module.
	// Default: one per minute, burst 3.
	RetrainEvery time.Duration

	// Logger for scheduler operations.
	Logger *slog.Logger
}

// Scheduler owns per-module schedule configuration and runs the periodic
// check pass that decides when modules train. Start and Stop are
// idempotent; stopping cancels future ticks but never interrupts an
// in-flight training call.
type Scheduler struct {
	source ModuleSource
	logger *slog.Logger
	cfg    SchedulerConfig

	mu        sync.Mutex
	schedules map[string]*ScheduleConfig
	limiters  map[string]*rate.Limiter
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}

	// now is swappable for tests.
	now func() time.Time
}

// NewScheduler creates a scheduler reading modules from source.
func NewScheduler(source ModuleSource, cfg SchedulerConfig) *Scheduler {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 30 * time.Minute
	}
	if cfg.DefaultInterval == 0 {
		cfg.DefaultInterval = 24 * time.Hour
	}
	if cfg.DefaultMinSamples == 0 {
		cfg.DefaultMinSamples = 10
	}
	if cfg.TrainTimeout == 0 {
		cfg.TrainTimeout = 5 * time.Minute
	}
	if cfg.RetrainEvery == 0 {
		cfg.RetrainEvery = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Scheduler{
		source:    source,
		logger:    cfg.Logger,
		cfg:       cfg,
		schedules: make(map[string]*ScheduleConfig),
		limiters:  make(map[string]*rate.Limiter),
		now:       time.Now,
	}
}

// Schedule creates (or replaces) the schedule config for a module.
func (s *Scheduler) Schedule(moduleID string, opts ScheduleOptions) {
	cfg := &ScheduleConfig{
		ModuleID:              moduleID,
		Interval:              s.cfg.DefaultInterval,
		PreferredTime:         TimeOfDay{Hour: 3},
		MinSamplesForTraining: s.cfg.DefaultMinSamples,
	}
	if opts.Interval > 0 {
		cfg.Interval = opts.Interval
	}
	if opts.PreferredTime != nil {
		cfg.PreferredTime = *opts.PreferredTime
	}
	if opts.MinSamplesForTraining > 0 {
		cfg.MinSamplesForTraining = opts.MinSamplesForTraining
	}

	s.mu.Lock()
	s.schedules[moduleID] = cfg
	s.limiters[moduleID] = rate.NewLimiter(rate.Every(s.cfg.RetrainEvery), 3)
	s.mu.Unlock()
}

// Unschedule removes a module's schedule config.
func (s *Scheduler) Unschedule(moduleID string) {
	s.mu.Lock()
	delete(s.schedules, moduleID)
	delete(s.limiters, moduleID)
	s.mu.Unlock()
}

// Config returns a copy of a module's schedule config.
func (s *Scheduler) Config(moduleID string) (ScheduleConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.schedules[moduleID]
	if !ok {
		return ScheduleConfig{}, false
	}
	return *cfg, true
}

// Start begins the periodic check pass. Calling it again is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(s.stopCh, s.doneCh)
	s.logger.Info("learning scheduler started", "tick", s.cfg.TickInterval)
}

// Stop cancels future ticks and waits for an in-flight check pass to
// return. Calling it again is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
	s.logger.Info("learning scheduler stopped")
}

func (s *Scheduler) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.CheckNow(context.Background())
		}
	}
}

// CheckNow runs one check pass over all scheduled modules. For each module
// still resolvable through the source it reads the module's status and
// triggers incremental training when the pending-sample threshold is met
// and the interval since the last training has elapsed. A failure while
// checking one module is logged and never stops the rest of the pass.
func (s *Scheduler) CheckNow(ctx context.Context) {
	now := s.now()

	for _, moduleID := range s.scheduledIDs() {
		cfg, ok := s.Config(moduleID)
		if !ok {
			continue
		}
		module, ok := s.source.Module(moduleID)
		if !ok {
			continue
		}

		if err := s.checkModule(ctx, module, cfg, now); err != nil {
			s.logger.Warn("scheduled training check failed",
				"module", moduleID, "error", err)
		}
	}
}

func (s *Scheduler) checkModule(ctx context.Context, module Module, cfg ScheduleConfig, now time.Time) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("check panicked: %v", p)
		}
	}()

	status, err := module.Status(ctx)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}

	if status.PendingSamples < cfg.MinSamplesForTraining {
		return nil
	}
	if !status.LastTrainingTime.IsZero() && now.Sub(status.LastTrainingTime) < cfg.Interval {
		return nil
	}

	tctx, cancel := context.WithTimeout(ctx, s.cfg.TrainTimeout)
	defer cancel()

	result, err := module.Train(tctx, true)
	s.recordCheck(cfg.ModuleID, now)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	s.logger.Info("scheduled training completed",
		"module", cfg.ModuleID,
		"samples", result.SamplesUsed,
		"rules", result.RulesGenerated,
		"duration", result.TrainingTime,
	)
	return nil
}

// TriggerImmediateTraining bypasses the schedule and interval check and
// runs a full (non-incremental) retrain of the module.
func (s *Scheduler) TriggerImmediateTraining(ctx context.Context, moduleID string) (TrainingResult, error) {
	module, ok := s.source.Module(moduleID)
	if !ok {
		return TrainingResult{}, fmt.Errorf("%w: %s", ErrModuleNotFound, moduleID)
	}

	s.mu.Lock()
	limiter := s.limiters[moduleID]
	s.mu.Unlock()
	if limiter != nil && !limiter.Allow() {
		return TrainingResult{}, fmt.Errorf("%w: %s", ErrRetrainThrottled, moduleID)
	}

	return module.Train(ctx, false)
}

// NextTrainingTime is advisory: the last check time (or now, if the module
// was never checked) plus the configured interval. It does not guarantee
// training occurs at that instant, only that the next periodic check will
// evaluate the condition.
func (s *Scheduler) NextTrainingTime(moduleID string) (time.Time, error) {
	cfg, ok := s.Config(moduleID)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrModuleNotFound, moduleID)
	}

	base := cfg.LastCheck
	if base.IsZero() {
		base = s.now()
	}
	return base.Add(cfg.Interval), nil
}

func (s *Scheduler) scheduledIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.schedules))
	for id := range s.schedules {
		ids = append(ids, id)
	}
	return ids
}

func (s *Scheduler) recordCheck(moduleID string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg, ok := s.schedules[moduleID]; ok {
		cfg.LastCheck = t
	}
}
