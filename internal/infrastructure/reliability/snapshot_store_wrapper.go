package reliability

import (
	"context"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	"giftcast/pkg/circuitbreaker"
	"giftcast/pkg/retry"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// SnapshotStoreWrapper retries snapshot saves and loads with backoff behind
// a circuit breaker, so a store that is down fails fast instead of piling
// up retries on every flush.
type SnapshotStoreWrapper struct {
	store  ports.SnapshotStore
	logger *zap.SugaredLogger

	retryConfig    retry.Config
	circuitBreaker *circuitbreaker.CircuitBreaker
}

var _ ports.SnapshotStore = (*SnapshotStoreWrapper)(nil)

// NewSnapshotStoreWrapper wraps store. Errors listed in permanent are never
// retried.
func NewSnapshotStoreWrapper(
	store ports.SnapshotStore,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	clock clockwork.Clock,
	logger *zap.SugaredLogger,
	permanent ...error,
) *SnapshotStoreWrapper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	retryConfig.Clock = clock
	retryConfig.NonRetryableErrors = append(append([]error{circuitbreaker.ErrOpen}, retryConfig.NonRetryableErrors...), permanent...)

	w := &SnapshotStoreWrapper{
		store:          store,
		logger:         logger,
		retryConfig:    retryConfig,
		circuitBreaker: circuitbreaker.NewWithClock(cbConfig, clock),
	}
	w.circuitBreaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("Snapshot store circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})
	return w
}

func (w *SnapshotStoreWrapper) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	return retry.Retry(ctx, w.retryConfig, func() error {
		return w.circuitBreaker.Execute(ctx, func() error {
			return w.store.Save(ctx, snapshot)
		})
	})
}

func (w *SnapshotStoreWrapper) Load(ctx context.Context) (*domain.Snapshot, error) {
	return retry.RetryWithResult(ctx, w.retryConfig, func() (*domain.Snapshot, error) {
		var snapshot *domain.Snapshot
		err := w.circuitBreaker.Execute(ctx, func() error {
			var err error
			snapshot, err = w.store.Load(ctx)
			return err
		})
		return snapshot, err
	})
}

// Unwrap returns the wrapped store.
func (w *SnapshotStoreWrapper) Unwrap() ports.SnapshotStore {
	return w.store
}

func (w *SnapshotStoreWrapper) GetCircuitBreakerStats() circuitbreaker.Stats {
	return w.circuitBreaker.GetStats()
}
