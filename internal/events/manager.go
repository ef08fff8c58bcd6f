package events

import (
	"time"

	"github.com/rs/zerolog"
)

// Manager stamps and logs events before handing them to the bus
type Manager struct {
	bus *Bus
	log zerolog.Logger
	now func() time.Time
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
		now: time.Now,
	}
}

// Emit publishes data as an event for userID.
// A nil Manager drops the event, which lets callers run without a bus.
func (m *Manager) Emit(userID, module string, data EventData) {
	if m == nil || data == nil {
		return
	}

	event := Event{
		Type:      data.EventType(),
		Timestamp: m.now(),
		Module:    module,
		UserID:    userID,
		Data:      data,
	}

	m.bus.Publish(event)

	m.log.Debug().
		Str("event_type", string(event.Type)).
		Str("module", module).
		Str("user_id", userID).
		Msg("Event emitted")
}

// Bus returns the underlying bus
func (m *Manager) Bus() *Bus {
	return m.bus
}
