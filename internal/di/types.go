// Package di provides dependency injection type definitions.
//
// The Container holds every long-lived component of the process and is
// passed to the server for access to them.
package di

import (
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/persistence"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/modules/snapshots"
	"github.com/aristath/folio/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Storage
	DB *database.DB

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Portfolio engine
	Gateway  *persistence.Gateway
	Sessions *portfolio.Sessions

	// Side services
	Quotes       domain.QuoteProvider // nil when quotes are disabled
	SnapshotRepo *snapshots.Repository

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered background jobs
type JobInstances struct {
	RefreshPrices   scheduler.Job // nil when quotes are disabled
	RecordSnapshots scheduler.Job
	WALCheckpoint   scheduler.Job
}

// Close releases the resources held by the container
func (c *Container) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
