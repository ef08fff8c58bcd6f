// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Record changes
	PortfolioChanged    EventType = "PORTFOLIO_CHANGED"
	HoldingChanged      EventType = "HOLDING_CHANGED"
	HoldingRemoved      EventType = "HOLDING_REMOVED"
	TransactionRecorded EventType = "TRANSACTION_RECORDED"
	WatchlistChanged    EventType = "WATCHLIST_CHANGED"

	// View state
	SelectionChanged EventType = "SELECTION_CHANGED"

	// Bulk updates
	PricesUpdated EventType = "PRICES_UPDATED"
	DataLoaded    EventType = "DATA_LOADED"

	// Side effects
	PersistenceFailed EventType = "PERSISTENCE_FAILED"
	SnapshotRecorded  EventType = "SNAPSHOT_RECORDED"
)

// AllEventTypes lists every event type, used to validate stream filters
var AllEventTypes = []EventType{
	PortfolioChanged,
	HoldingChanged,
	HoldingRemoved,
	TransactionRecorded,
	WatchlistChanged,
	SelectionChanged,
	PricesUpdated,
	DataLoaded,
	PersistenceFailed,
	SnapshotRecorded,
}

// Event is a system event scoped to one user
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
	Type      EventType `json:"type"`
	Module    string    `json:"module"`
	UserID    string    `json:"user_id"`
}
