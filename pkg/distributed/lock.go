package distributed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned when an operation needs a lease this holder lost.
var ErrNotHeld = errors.New("lease is not held by this instance")

var (
	renewScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
	releaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)
)

// Lease is a single-holder redis key renewed in the background. It marks one
// process as the writer for a shared key.
type Lease struct {
	client redis.UniversalClient
	key    string
	value  string
	ttl    time.Duration
	clock  clockwork.Clock

	mu     sync.Mutex
	held   bool
	stop   chan struct{}
	done   chan struct{}
	onLost func()
}

func NewLease(client redis.UniversalClient, key string, ttl time.Duration, clock clockwork.Clock) *Lease {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Lease{
		client: client,
		key:    key,
		value:  uuid.NewString(),
		ttl:    ttl,
		clock:  clock,
	}
}

// OnLost registers a callback run once if a renewal finds the lease taken.
func (l *Lease) OnLost(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLost = fn
}

// TryAcquire takes the lease if nobody holds it and starts renewing it.
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return true, nil
	}

	acquired, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", l.key, err)
	}
	if !acquired {
		return false, nil
	}

	l.held = true
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.renew(l.stop, l.done)
	return true, nil
}

func (l *Lease) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Holder returns the value stored under the key, or "" when free.
func (l *Lease) Holder(ctx context.Context) (string, error) {
	v, err := l.client.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (l *Lease) renew(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := l.clock.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
			res, err := renewScript.Run(ctx, l.client, []string{l.key}, l.value, l.ttl.Milliseconds()).Int64()
			cancel()
			if err != nil {
				// transient redis errors are retried on the next tick
				continue
			}
			if res == 0 {
				l.markLost()
				return
			}
		}
	}
}

func (l *Lease) markLost() {
	l.mu.Lock()
	l.held = false
	cb := l.onLost
	l.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Release stops renewal and deletes the key if it is still ours.
func (l *Lease) Release(ctx context.Context) error {
	l.mu.Lock()
	if l.stop == nil {
		l.mu.Unlock()
		return nil
	}
	stop, done := l.stop, l.done
	l.stop, l.done = nil, nil
	wasHeld := l.held
	l.held = false
	l.mu.Unlock()

	close(stop)
	<-done

	if !wasHeld {
		return ErrNotHeld
	}
	res, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lease %s: %w", l.key, err)
	}
	if res == 0 {
		return ErrNotHeld
	}
	return nil
}
