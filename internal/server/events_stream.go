package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/folio/internal/auth"
	"github.com/aristath/folio/internal/events"
)

const (
	eventBufferSize = 100
	writeTimeout    = 5 * time.Second
)

// EventsStreamHandler streams the authenticated user's events over a websocket.
// Query: types (optional comma separated event types)
type EventsStreamHandler struct {
	eventBus  *events.Bus
	log       zerolog.Logger
	heartbeat time.Duration
}

// NewEventsStreamHandler creates a new events stream handler
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus:  eventBus,
		log:       log.With().Str("component", "events_stream").Logger(),
		heartbeat: 30 * time.Second,
	}
}

// ServeHTTP handles GET /api/events/ws
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeStreamError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	filter, err := parseEventTypes(r.URL.Query().Get("types"))
	if err != nil {
		writeStreamError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to accept websocket")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	// Client messages are ignored; CloseRead cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	log := h.log.With().Str("user_id", userID).Logger()
	log.Info().Int("types", len(filter)).Msg("Client connected to event stream")

	eventChan := make(chan events.Event, eventBufferSize)
	unsubscribe := h.eventBus.Subscribe(func(event events.Event) {
		if event.UserID != userID {
			return
		}
		// Non-blocking send (drop if channel full)
		select {
		case eventChan <- event:
		default:
			log.Warn().Str("event_type", string(event.Type)).Msg("Event channel full, dropping event")
		}
	}, filter...)
	defer unsubscribe()

	if err := h.write(ctx, conn, map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event stream",
	}); err != nil {
		log.Debug().Err(err).Msg("Failed to send connected message")
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Client disconnected from event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			if err := h.write(ctx, conn, event); err != nil {
				log.Debug().Err(err).Str("event_type", string(event.Type)).Msg("Failed to send event")
				return
			}

		case <-heartbeat.C:
			if err := h.write(ctx, conn, map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			}); err != nil {
				log.Debug().Err(err).Msg("Failed to send heartbeat")
				return
			}
		}
	}
}

func (h *EventsStreamHandler) write(ctx context.Context, conn *websocket.Conn, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// parseEventTypes validates a comma separated list of event types.
// An empty list means every type.
func parseEventTypes(raw string) ([]events.EventType, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	known := make(map[events.EventType]bool, len(events.AllEventTypes))
	for _, t := range events.AllEventTypes {
		known[t] = true
	}

	var types []events.EventType
	for _, part := range strings.Split(raw, ",") {
		t := events.EventType(strings.ToUpper(strings.TrimSpace(part)))
		if t == "" {
			continue
		}
		if !known[t] {
			return nil, fmt.Errorf("unknown event type: %s", part)
		}
		types = append(types, t)
	}
	return types, nil
}

func writeStreamError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
