package portfolio

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/auth"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
)

// Engine is one user's in-memory state and the components acting on it
type Engine struct {
	UserID      string
	Coordinator *Coordinator
	Loader      *Loader
	Service     *Service
}

// NewEngine wires a coordinator, loader and service for userID
func NewEngine(userID string, gateway domain.Gateway, eventManager *events.Manager, log zerolog.Logger) *Engine {
	log = log.With().Str("user_id", userID).Logger()
	coordinator := NewCoordinator(auth.Static(userID), log, WithEvents(eventManager))
	return &Engine{
		UserID:      userID,
		Coordinator: coordinator,
		Loader:      NewLoader(gateway, coordinator, eventManager, log),
		Service:     NewService(gateway, coordinator, eventManager, log),
	}
}

type session struct {
	ready  chan struct{}
	engine *Engine
	err    error
}

// Sessions hosts one Engine per user. An engine is created on first use and
// populated by a full load before it is handed out.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	gateway  domain.Gateway
	events   *events.Manager
	log      zerolog.Logger
}

// NewSessions creates an empty session registry
func NewSessions(gateway domain.Gateway, eventManager *events.Manager, log zerolog.Logger) *Sessions {
	return &Sessions{
		sessions: make(map[string]*session),
		gateway:  gateway,
		events:   eventManager,
		log:      log.With().Str("component", "sessions").Logger(),
	}
}

// Get returns userID's engine, opening it if needed.
// Concurrent callers for the same user share a single load.
func (s *Sessions) Get(ctx context.Context, userID string) (*Engine, error) {
	if userID == "" {
		return nil, domain.Unauthenticated()
	}

	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{ready: make(chan struct{})}
		s.sessions[userID] = sess
		s.mu.Unlock()

		sess.engine, sess.err = s.open(ctx, userID)
		if sess.err != nil {
			s.mu.Lock()
			delete(s.sessions, userID)
			s.mu.Unlock()
		}
		close(sess.ready)
		return sess.engine, sess.err
	}
	s.mu.Unlock()

	select {
	case <-sess.ready:
		return sess.engine, sess.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Sessions) open(ctx context.Context, userID string) (*Engine, error) {
	engine := NewEngine(userID, s.gateway, s.events, s.log)
	if _, err := engine.Loader.LoadAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	s.log.Info().Str("user_id", userID).Msg("Session opened")
	return engine, nil
}

// Active returns every ready engine, ordered by user id
func (s *Sessions) Active() []*Engine {
	s.mu.Lock()
	defer s.mu.Unlock()

	engines := make([]*Engine, 0, len(s.sessions))
	for _, sess := range s.sessions {
		select {
		case <-sess.ready:
			if sess.err == nil {
				engines = append(engines, sess.engine)
			}
		default:
		}
	}
	sort.Slice(engines, func(i, j int) bool { return engines[i].UserID < engines[j].UserID })
	return engines
}

// Close drops userID's engine; the next Get reloads it
func (s *Sessions) Close(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}
