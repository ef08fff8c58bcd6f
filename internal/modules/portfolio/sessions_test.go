package portfolio

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
)

func newTestSessions(gw domain.Gateway) *Sessions {
	bus := events.NewBus(zerolog.Nop())
	return NewSessions(gw, events.NewManager(bus, zerolog.Nop()), zerolog.Nop())
}

func TestSessions_RequiresUser(t *testing.T) {
	s := newTestSessions(&fakeGateway{})

	_, err := s.Get(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestSessions_LoadsOncePerUser(t *testing.T) {
	var calls callCounter
	gw := &fakeGateway{
		fetchPortfolios: func(userID string) ([]domain.Portfolio, error) {
			calls.next(userID)
			return []domain.Portfolio{{ID: "p-" + userID, UserID: userID, Name: "Main"}}, nil
		},
	}
	s := newTestSessions(gw)

	var wg sync.WaitGroup
	engines := make([]*Engine, 10)
	for i := range engines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := s.Get(context.Background(), "alice")
			assert.NoError(t, err)
			engines[i] = e
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, calls.count("alice"))
	for _, e := range engines {
		assert.Same(t, engines[0], e)
	}

	p, err := engines[0].Coordinator.Portfolio("p-alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.UserID)
}

func TestSessions_IsolatesUsers(t *testing.T) {
	gw := &fakeGateway{
		fetchPortfolios: func(userID string) ([]domain.Portfolio, error) {
			return []domain.Portfolio{{ID: "p-" + userID, UserID: userID, Name: "Main"}}, nil
		},
	}
	s := newTestSessions(gw)

	bob, err := s.Get(context.Background(), "bob")
	require.NoError(t, err)
	alice, err := s.Get(context.Background(), "alice")
	require.NoError(t, err)

	_, err = bob.Coordinator.Portfolio("p-alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	active := s.Active()
	require.Len(t, active, 2)
	assert.Same(t, alice, active[0])
	assert.Same(t, bob, active[1])
}

func TestSessions_FailedLoadIsRetried(t *testing.T) {
	var calls callCounter
	gw := &fakeGateway{
		fetchPortfolios: func(string) ([]domain.Portfolio, error) {
			if calls.next("portfolios") == 0 {
				return nil, errors.New("unavailable")
			}
			return nil, nil
		},
	}
	s := newTestSessions(gw)

	_, err := s.Get(context.Background(), "alice")
	require.Error(t, err)
	assert.Empty(t, s.Active())

	e, err := s.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", e.UserID)
}

func TestSessions_Close(t *testing.T) {
	var calls callCounter
	gw := &fakeGateway{
		fetchPortfolios: func(string) ([]domain.Portfolio, error) {
			calls.next("portfolios")
			return nil, nil
		},
	}
	s := newTestSessions(gw)

	first, err := s.Get(context.Background(), "alice")
	require.NoError(t, err)
	s.Close("alice")
	second, err := s.Get(context.Background(), "alice")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, calls.count("portfolios"))
}
