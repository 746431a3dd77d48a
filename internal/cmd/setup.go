package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rand/adapt/internal/config"
	"github.com/rand/adapt/internal/learning"
	"github.com/rand/adapt/internal/modules"
	"github.com/rand/adapt/internal/modules/budget"
	"github.com/rand/adapt/internal/modules/consumption"
	"github.com/rand/adapt/internal/modules/intent"
	"github.com/rand/adapt/internal/store"
)

// App bundles the registry with everything it needs torn down on exit.
type App struct {
	Registry *learning.Registry

	stores []*store.SQLiteStore
}

// setupApp constructs the registry and registers the enabled modules, each
// with its own sample database under the data directory.
func setupApp(cfg config.Config) (*App, error) {
	app := &App{
		Registry: learning.NewRegistry(learning.RegistryConfig{
			Scheduler: learning.SchedulerConfig{
				TickInterval:      cfg.Scheduler.TickInterval,
				DefaultInterval:   cfg.Scheduler.TrainingInterval,
				DefaultMinSamples: cfg.Scheduler.MinSamples,
			},
			Logger: slog.Default(),
		}),
	}

	type moduleSpec struct {
		enabled bool
		id      string
		build   func(s store.SampleStore) learning.Module
	}

	core := modules.CoreConfig{
		MinSamples:     cfg.Scheduler.MinSamples,
		LookbackMonths: cfg.Modules.LookbackMonths,
	}

	specs := []moduleSpec{
		{cfg.Modules.Intent, intent.ModuleID, func(s store.SampleStore) learning.Module {
			return intent.New(intent.Config{Store: s, Core: core})
		}},
		{cfg.Modules.Budget, budget.ModuleID, func(s store.SampleStore) learning.Module {
			return budget.New(budget.Config{Store: s, Core: core})
		}},
		{cfg.Modules.Consumption, consumption.ModuleID, func(s store.SampleStore) learning.Module {
			return consumption.New(consumption.Config{Store: s, Core: core})
		}},
	}

	for _, spec := range specs {
		if !spec.enabled {
			continue
		}
		st, err := store.NewSQLiteStore(store.SQLiteOptions{
			Path:              filepath.Join(cfg.DataDir, spec.id+".db"),
			CreateIfNotExists: true,
		})
		if err != nil {
			app.Shutdown()
			return nil, fmt.Errorf("open %s store: %w", spec.id, err)
		}
		app.stores = append(app.stores, st)
		app.Registry.Register(spec.build(st))
	}

	return app, nil
}

// Shutdown disposes the registry and closes the module databases.
func (a *App) Shutdown() {
	a.Registry.Dispose()
	for _, st := range a.stores {
		if err := st.Close(); err != nil {
			slog.Warn("closing sample store failed", "error", err)
		}
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
