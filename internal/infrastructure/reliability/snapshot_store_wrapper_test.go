package reliability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"giftcast/internal/core/domain"
	"giftcast/pkg/circuitbreaker"
	"giftcast/pkg/retry"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errUnavailable = errors.New("store unavailable")

type flakyStore struct {
	mu       sync.Mutex
	failures int
	err      error
	saves    int
	loads    int
}

func (s *flakyStore) next() error {
	if s.failures > 0 {
		s.failures--
		return s.err
	}
	return nil
}

func (s *flakyStore) Save(context.Context, *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return s.next()
}

func (s *flakyStore) Load(context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if err := s.next(); err != nil {
		return nil, err
	}
	return &domain.Snapshot{Version: domain.SnapshotVersion}, nil
}

func noWaitRetry(attempts int) retry.Config {
	return retry.Config{Enabled: true, MaxAttempts: attempts, Multiplier: 1}
}

func TestSnapshotStoreWrapper_RetriesTransientFailures(t *testing.T) {
	store := &flakyStore{failures: 2, err: errUnavailable}
	w := NewSnapshotStoreWrapper(store, noWaitRetry(3), circuitbreaker.Config{FailureThreshold: 10, Timeout: time.Minute}, nil, zaptest.NewLogger(t).Sugar())

	require.NoError(t, w.Save(context.Background(), &domain.Snapshot{}))
	assert.Equal(t, 3, store.saves)
	assert.Equal(t, circuitbreaker.StateClosed, w.GetCircuitBreakerStats().State)
}

func TestSnapshotStoreWrapper_LoadRetries(t *testing.T) {
	store := &flakyStore{failures: 1, err: errUnavailable}
	w := NewSnapshotStoreWrapper(store, noWaitRetry(2), circuitbreaker.DefaultConfig(), nil, zaptest.NewLogger(t).Sugar())

	snapshot, err := w.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snapshot)
	assert.Equal(t, 2, store.loads)
}

func TestSnapshotStoreWrapper_OpensAndFailsFast(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &flakyStore{failures: 100, err: errUnavailable}
	w := NewSnapshotStoreWrapper(store, noWaitRetry(5), circuitbreaker.Config{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          30 * time.Second,
	}, clock, zaptest.NewLogger(t).Sugar())

	err := w.Save(context.Background(), &domain.Snapshot{})
	require.Error(t, err)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 3, store.saves, "no calls reach the store once open")

	err = w.Save(context.Background(), &domain.Snapshot{})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 3, store.saves)

	store.mu.Lock()
	store.failures = 0
	store.mu.Unlock()
	clock.Advance(31 * time.Second)

	require.NoError(t, w.Save(context.Background(), &domain.Snapshot{}))
	assert.Equal(t, circuitbreaker.StateClosed, w.GetCircuitBreakerStats().State)
}

func TestSnapshotStoreWrapper_PermanentErrorsAreNotRetried(t *testing.T) {
	errNotWriter := errors.New("not the writer")
	store := &flakyStore{failures: 5, err: errNotWriter}
	w := NewSnapshotStoreWrapper(store, noWaitRetry(3), circuitbreaker.DefaultConfig(), nil, zaptest.NewLogger(t).Sugar(), errNotWriter)

	err := w.Save(context.Background(), &domain.Snapshot{})
	assert.ErrorIs(t, err, errNotWriter)
	assert.Equal(t, 1, store.saves)
	assert.Same(t, store, w.Unwrap())
}
