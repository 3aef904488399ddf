package app

import (
	"github.com/angelmondragon/smart-inventory/internal/scheduler"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
)

// JobDeps returns the scheduler dependencies backed by the wired services.
// The warehouse exporter is only attached when the archive is enabled.
func (a *App) JobDeps(logg *logger.Logger) scheduler.JobDeps {
	deps := scheduler.JobDeps{
		Forecaster:  a.Forecaster,
		AutoReorder: a.AutoReorder,
		Sweeper:     a.Sweeper,
		SalesLog:    a.SalesLog,
		Inventory:   a.Inventory,
		Logger:      logg,
	}
	if a.Archive != nil {
		deps.Exporter = a.Archive
	}
	return deps
}
